package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestStockAdjustmentsAgainstPostgres(t *testing.T) {
	databaseURL := os.Getenv("PASALSATHI_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set PASALSATHI_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	productID := fmt.Sprintf("prod-stock-it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name_en, name_np, category_id, location_id, cost_price, selling_price,
			quantity, quantity_type, low_stock_threshold, supplier_id, active, created_at, updated_at
		)
		VALUES ($1, 'Stock IT Plate', '', 'steel', 'shelf_top', 10, 15, 3, 'exact', 2, null, true, now(), now())
	`, productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	// Unguarded decrement past zero.
	updated, err := s.AdjustProductQuantity(ctx, productID, -5)
	if err != nil {
		t.Fatalf("adjust quantity: %v", err)
	}
	if updated.Quantity != -2 {
		t.Fatalf("expected quantity -2 after decrement, got %d", updated.Quantity)
	}

	// Purchase receipt bumps quantity and overwrites cost price.
	updated, err = s.ApplyPurchaseToProduct(ctx, productID, 20, 12.5)
	if err != nil {
		t.Fatalf("apply purchase: %v", err)
	}
	if updated.Quantity != 18 {
		t.Fatalf("expected quantity 18 after purchase, got %d", updated.Quantity)
	}
	if updated.CostPrice != 12.5 {
		t.Fatalf("expected cost price 12.5 after purchase, got %.2f", updated.CostPrice)
	}

	// Absolute set wins over whatever history says.
	updated, err = s.SetProductQuantity(ctx, productID, 7)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if updated.Quantity != 7 {
		t.Fatalf("expected quantity 7 after set, got %d", updated.Quantity)
	}

	low, err := s.ListLowStockProducts(ctx)
	if err != nil {
		t.Fatalf("list low stock: %v", err)
	}
	for _, p := range low {
		if p.ID == productID {
			t.Fatalf("quantity 7 with threshold 2 must not be low stock")
		}
	}
}
