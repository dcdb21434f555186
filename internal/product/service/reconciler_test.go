package service

import (
	"context"
	"testing"

	"buy01/internal/client"
	"buy01/internal/product/model"
)

type fakeProber struct {
	results map[string]client.ProbeResult
	probes  int
}

func (p *fakeProber) Exists(ctx context.Context, mediaID string) client.ProbeResult {
	p.probes++
	if r, ok := p.results[mediaID]; ok {
		return r
	}
	return client.ProbeExists
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("drops confirmed-gone references and keeps order", func(t *testing.T) {
		store := newFakeStore(&model.Product{ID: "p1", UserID: "u1", MediaIDs: []string{"a", "b", "c"}})
		prober := &fakeProber{results: map[string]client.ProbeResult{"b": client.ProbeGone}}
		rec := NewReconciler(store, prober, nil)

		summary, err := rec.Reconcile(ctx)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		want := "Cleaned up 1 orphaned media references from products"
		if summary != want {
			t.Errorf("Summary %q, want %q", summary, want)
		}
		got := store.products["p1"].MediaIDs
		if len(got) != 2 || got[0] != "a" || got[1] != "c" {
			t.Errorf("Expected [a c], got %v", got)
		}
		if store.saves != 1 {
			t.Errorf("Expected 1 save, got %d", store.saves)
		}
	})

	t.Run("uncertain probe keeps the reference", func(t *testing.T) {
		store := newFakeStore(&model.Product{ID: "p1", UserID: "u1", MediaIDs: []string{"a", "b"}})
		prober := &fakeProber{results: map[string]client.ProbeResult{"b": client.ProbeUnknown}}
		rec := NewReconciler(store, prober, nil)

		summary, err := rec.Reconcile(ctx)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if summary != "Cleaned up 0 orphaned media references from products" {
			t.Errorf("Unexpected summary %q", summary)
		}
		if got := store.products["p1"].MediaIDs; len(got) != 2 {
			t.Errorf("Reference dropped on uncertainty: %v", got)
		}
		if store.saves != 0 {
			t.Errorf("Unchanged product was persisted %d times", store.saves)
		}
	})

	t.Run("counts across products and persists each changed product once", func(t *testing.T) {
		store := newFakeStore(
			&model.Product{ID: "p1", UserID: "u1", MediaIDs: []string{"a", "gone1"}},
			&model.Product{ID: "p2", UserID: "u2", MediaIDs: []string{"gone2", "gone3"}},
			&model.Product{ID: "p3", UserID: "u3", MediaIDs: []string{"b"}},
		)
		prober := &fakeProber{results: map[string]client.ProbeResult{
			"gone1": client.ProbeGone,
			"gone2": client.ProbeGone,
			"gone3": client.ProbeGone,
		}}
		rec := NewReconciler(store, prober, nil)

		summary, err := rec.Reconcile(ctx)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if summary != "Cleaned up 3 orphaned media references from products" {
			t.Errorf("Unexpected summary %q", summary)
		}
		if store.saves != 2 {
			t.Errorf("Expected 2 saves, got %d", store.saves)
		}
		if got := store.products["p2"].MediaIDs; len(got) != 0 {
			t.Errorf("Expected empty list, got %v", got)
		}
	})

	t.Run("second run over a clean store is a no-op", func(t *testing.T) {
		store := newFakeStore(&model.Product{ID: "p1", UserID: "u1", MediaIDs: []string{"a", "gone"}})
		prober := &fakeProber{results: map[string]client.ProbeResult{"gone": client.ProbeGone}}
		rec := NewReconciler(store, prober, nil)

		if _, err := rec.Reconcile(ctx); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		store.saves = 0

		summary, err := rec.Reconcile(ctx)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if summary != "Cleaned up 0 orphaned media references from products" {
			t.Errorf("Unexpected summary %q", summary)
		}
		if store.saves != 0 {
			t.Errorf("Clean store was persisted %d times", store.saves)
		}
	})
}
