// Package reconcile matches vision-detected shelf items against the
// product catalog and proposes stock corrections.
package reconcile

import (
	"pasalsathi/backend/internal/domain"
)

// MatchItems annotates each detected item with the first catalog product
// whose name contains it. Products must already be in stable name order;
// the first containment hit wins, so a detected "Steel Plate" pairs with
// the product named "Steel Plate" rather than "Steel Plate Large" when
// both are present. Unmatched items pass through with Matched false.
func MatchItems(items []domain.DetectedItem, products []domain.Product) []domain.ItemMatch {
	matches := make([]domain.ItemMatch, 0, len(items))
	for _, item := range items {
		match := domain.ItemMatch{DetectedItem: item}
		for _, product := range products {
			if !product.Active {
				continue
			}
			if !product.MatchesName(item.Label) {
				continue
			}
			match.Matched = true
			match.ProductID = product.ID
			match.ProductName = product.NameEN
			match.CurrentStock = product.Quantity
			match.Difference = item.Count - product.Quantity
			break
		}
		matches = append(matches, match)
	}
	return matches
}
