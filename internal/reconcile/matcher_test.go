package reconcile

import (
	"testing"

	"pasalsathi/backend/internal/domain"
)

func TestMatchItemsFirstContainmentWins(t *testing.T) {
	products := []domain.Product{
		{ID: "prod-1", NameEN: "Steel Plate", Quantity: 4, Active: true},
		{ID: "prod-2", NameEN: "Steel Plate Large", Quantity: 9, Active: true},
	}
	items := []domain.DetectedItem{
		{Label: "steel plate", Count: 7, Category: "steel", Confidence: "high"},
	}

	matches := MatchItems(items, products)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if !m.Matched {
		t.Fatalf("expected a match for steel plate")
	}
	if m.ProductID != "prod-1" {
		t.Fatalf("expected first product in name order to win, got %s", m.ProductID)
	}
	if m.CurrentStock != 4 {
		t.Fatalf("expected current stock 4, got %d", m.CurrentStock)
	}
	if m.Difference != 3 {
		t.Fatalf("expected difference 3, got %d", m.Difference)
	}
}

func TestMatchItemsBidirectionalContainment(t *testing.T) {
	products := []domain.Product{
		{ID: "prod-1", NameEN: "Brass Lamp", NameNP: "पीतल दियो", Quantity: 2, Active: true},
	}

	// Detected label longer than the product name still matches.
	matches := MatchItems([]domain.DetectedItem{{Label: "Brass Lamp Small", Count: 5}}, products)
	if !matches[0].Matched || matches[0].ProductID != "prod-1" {
		t.Fatalf("expected label containing product name to match, got %+v", matches[0])
	}

	matches = MatchItems([]domain.DetectedItem{{Label: "पीतल दियो", Count: 1}}, products)
	if !matches[0].Matched {
		t.Fatalf("expected nepali name to match")
	}
}

func TestMatchItemsUnmatchedAndInactive(t *testing.T) {
	products := []domain.Product{
		{ID: "prod-1", NameEN: "Plastic Bucket", Quantity: 3, Active: false},
	}
	matches := MatchItems([]domain.DetectedItem{
		{Label: "Plastic Bucket", Count: 6},
		{Label: "Mystery Widget", Count: 2},
		{Label: "", Count: 1},
	}, products)

	for i, m := range matches {
		if m.Matched {
			t.Fatalf("match %d should be unmatched, got %+v", i, m)
		}
		if m.ProductID != "" {
			t.Fatalf("unmatched item should carry no product id, got %s", m.ProductID)
		}
	}
}

func TestMatchItemsNegativeStockDifference(t *testing.T) {
	products := []domain.Product{
		{ID: "prod-1", NameEN: "Steel Cup", Quantity: -5, Active: true},
	}
	matches := MatchItems([]domain.DetectedItem{{Label: "Steel Cup", Count: 3}}, products)
	if matches[0].Difference != 8 {
		t.Fatalf("expected difference 8 against negative stock, got %d", matches[0].Difference)
	}
}
