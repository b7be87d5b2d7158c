package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jemi-market/storefront-core/internal/model"
	"github.com/jemi-market/storefront-core/internal/pricing"
	"github.com/jemi-market/storefront-core/internal/storage"
)

var testPricing = pricing.Config{
	FreeDeliveryThreshold: 10000,
	DeliveryFee:           500,
}

const testKey = "jemi-cart"

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	kv := storage.NewMemory()
	return New(kv, testKey, testPricing, nil), kv
}

func item(id string, price int64, qty, stock int) model.CartLineItem {
	return model.CartLineItem{
		ProductID: id,
		Name:      "product " + id,
		UnitPrice: price,
		Quantity:  qty,
		Stock:     stock,
	}
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.AddItem(ctx, item("p1", 1000, 2, 5)); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if err := s.AddItem(ctx, item("p1", 1000, 1, 5)); err != nil {
		t.Fatalf("AddItem merge error: %v", err)
	}

	items := s.Items()
	if len(items) != 1 {
		t.Fatalf("line count = %d, want 1 (merge, not duplicate)", len(items))
	}
	if items[0].Quantity != 3 {
		t.Fatalf("Quantity = %d, want 3", items[0].Quantity)
	}
}

func TestAddItem_RejectsWhenAtStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.AddItem(ctx, item("p1", 1000, 3, 3)); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	err := s.AddItem(ctx, item("p1", 1000, 1, 3))
	if !errors.Is(err, ErrStockExceeded) {
		t.Fatalf("err = %v, want ErrStockExceeded", err)
	}

	got, _ := s.ItemByProductID("p1")
	if got.Quantity != 3 {
		t.Fatalf("Quantity = %d, rejected add must not mutate", got.Quantity)
	}
}

func TestAddItem_ClampsMergeToStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.AddItem(ctx, item("p1", 1000, 2, 3)); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if err := s.AddItem(ctx, item("p1", 1000, 5, 3)); err != nil {
		t.Fatalf("AddItem clamp error: %v", err)
	}

	got, _ := s.ItemByProductID("p1")
	if got.Quantity != 3 {
		t.Fatalf("Quantity = %d, want clamp to stock 3", got.Quantity)
	}
}

func TestAddItem_NewLineClampedToStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.AddItem(ctx, item("p1", 1000, 10, 4)); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	got, _ := s.ItemByProductID("p1")
	if got.Quantity != 4 {
		t.Fatalf("Quantity = %d, want 4", got.Quantity)
	}

	if err := s.AddItem(ctx, item("p2", 1000, 1, 0)); !errors.Is(err, ErrStockExceeded) {
		t.Fatalf("out-of-stock product: err = %v, want ErrStockExceeded", err)
	}
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_ = s.AddItem(ctx, item("p1", 1000, 2, 5))
	_ = s.AddItem(ctx, item("p2", 2000, 1, 5))

	if err := s.UpdateQuantity(ctx, "p1", 0); err != nil {
		t.Fatalf("UpdateQuantity error: %v", err)
	}

	items := s.Items()
	if len(items) != 1 {
		t.Fatalf("line count = %d, want 1", len(items))
	}
	if items[0].ProductID != "p2" {
		t.Fatalf("wrong line removed: %+v", items)
	}
}

func TestUpdateQuantity_RejectsAboveStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_ = s.AddItem(ctx, item("p1", 1000, 2, 5))

	err := s.UpdateQuantity(ctx, "p1", 6)
	if !errors.Is(err, ErrStockExceeded) {
		t.Fatalf("err = %v, want ErrStockExceeded", err)
	}

	got, _ := s.ItemByProductID("p1")
	if got.Quantity != 2 {
		t.Fatalf("Quantity = %d, rejected update must not mutate", got.Quantity)
	}

	if err := s.UpdateQuantity(ctx, "p1", 5); err != nil {
		t.Fatalf("exact-stock update rejected: %v", err)
	}
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_ = s.AddItem(ctx, item("p1", 1000, 1, 5))

	s.RemoveItem(ctx, "missing")

	if len(s.Items()) != 1 {
		t.Fatalf("removing absent product must not touch the cart")
	}
}

func TestClear_EmptiesAndPersists(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	_ = s.AddItem(ctx, item("p1", 1000, 1, 5))
	s.Clear(ctx)

	if !s.IsEmpty() {
		t.Fatalf("cart not empty after Clear")
	}

	raw, err := kv.Get(ctx, testKey)
	if err != nil {
		t.Fatalf("snapshot missing after Clear: %v", err)
	}
	var items []model.CartLineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("persisted snapshot not empty: %+v", items)
	}
}

func TestPersistence_SurvivesRestart(t *testing.T) {
	kv := storage.NewMemory()
	ctx := context.Background()

	s := New(kv, testKey, testPricing, nil)
	_ = s.AddItem(ctx, item("p1", 3000, 2, 5))
	_ = s.AddItem(ctx, item("p2", 1500, 1, 5))

	restarted := New(kv, testKey, testPricing, nil)

	items := restarted.Items()
	if len(items) != 2 {
		t.Fatalf("line count after restart = %d, want 2", len(items))
	}
	if items[0].ProductID != "p1" || items[1].ProductID != "p2" {
		t.Fatalf("insertion order lost: %+v", items)
	}
	if restarted.Totals().Subtotal != 7500 {
		t.Fatalf("Subtotal after restart = %d, want 7500", restarted.Totals().Subtotal)
	}
}

func TestRehydrate_CorruptedSnapshotYieldsEmptyCart(t *testing.T) {
	kv := storage.NewMemory()
	_ = kv.Set(context.Background(), testKey, "[{broken")

	s := New(kv, testKey, testPricing, nil)

	if !s.IsEmpty() {
		t.Fatalf("corrupted snapshot must yield empty cart")
	}
}

func TestTotals_RecomputedOnEveryRead(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_ = s.AddItem(ctx, item("p1", 9999, 1, 5))

	first := s.Totals()
	if first.FreeDelivery || first.Total != 10499 {
		t.Fatalf("unexpected totals: %+v", first)
	}

	_ = s.UpdateQuantity(ctx, "p1", 2)

	second := s.Totals()
	if !second.FreeDelivery {
		t.Fatalf("totals stale after mutation: %+v", second)
	}
	if second.Total != 19998 {
		t.Fatalf("Total = %d, want 19998", second.Total)
	}
}

func TestItemCount(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_ = s.AddItem(ctx, item("p1", 1000, 2, 5))
	_ = s.AddItem(ctx, item("p2", 1000, 3, 5))

	if got := s.ItemCount(); got != 5 {
		t.Fatalf("ItemCount = %d, want 5", got)
	}
}

func TestSubscribe_NotifiedOnMutation(t *testing.T) {
	s, _ := newTestStore(t)

	var notified int
	s.Subscribe(func() { notified++ })

	_ = s.AddItem(context.Background(), item("p1", 1000, 1, 5))

	if notified != 1 {
		t.Fatalf("notifications = %d, want 1", notified)
	}
}
