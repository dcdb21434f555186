package service

import (
	"context"
	"errors"
	"testing"

	"buy01/internal/apperr"
	"buy01/internal/event"
	"buy01/internal/product/model"
	"buy01/pkg/eventbus"
)

type fakeStore struct {
	products map[string]*model.Product
	saves    int
}

func newFakeStore(products ...*model.Product) *fakeStore {
	s := &fakeStore{products: make(map[string]*model.Product)}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (*model.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *p
	cp.MediaIDs = append([]string(nil), p.MediaIDs...)
	return &cp, nil
}

func (s *fakeStore) FindByUserID(ctx context.Context, userID string) ([]model.Product, error) {
	var out []model.Product
	for _, p := range s.products {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeStore) FindAll(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	for _, p := range s.products {
		cp := *p
		cp.MediaIDs = append([]string(nil), p.MediaIDs...)
		out = append(out, cp)
	}
	return out, nil
}

func (s *fakeStore) Create(ctx context.Context, product *model.Product) error {
	if product.ID == "" {
		product.ID = "generated"
	}
	s.products[product.ID] = product
	return nil
}

func (s *fakeStore) Save(ctx context.Context, product *model.Product) error {
	s.saves++
	cp := *product
	s.products[product.ID] = &cp
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	delete(s.products, id)
	return nil
}

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	events []published
	err    error
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{topic: topic, payload: payload})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeBridge struct {
	calls int
	err   error
}

func (b *fakeBridge) SetProduct(ctx context.Context, mediaID, productID, userID string) error {
	b.calls++
	return b.err
}

func TestAssociateMedia(t *testing.T) {
	ctx := context.Background()

	t.Run("owner mismatch fails without mutation", func(t *testing.T) {
		store := newFakeStore(&model.Product{ID: "p1", UserID: "owner", MediaIDs: []string{"m1"}})
		bridge := &fakeBridge{}
		svc := NewProductService(store, &fakePublisher{}, bridge, nil)

		_, err := svc.AssociateMedia(ctx, "p1", "m2", "intruder")
		if !errors.Is(err, apperr.ErrForbidden) {
			t.Fatalf("Expected ErrForbidden, got %v", err)
		}
		if got := store.products["p1"].MediaIDs; len(got) != 1 || got[0] != "m1" {
			t.Errorf("Media ids mutated: %v", got)
		}
		if bridge.calls != 0 {
			t.Errorf("Bridge called %d times, expected 0", bridge.calls)
		}
	})

	t.Run("bridge failure leaves the committed write", func(t *testing.T) {
		store := newFakeStore(&model.Product{ID: "p1", UserID: "owner", MediaIDs: []string{"m1"}})
		bridge := &fakeBridge{err: errors.New("timeout")}
		svc := NewProductService(store, &fakePublisher{}, bridge, nil)

		product, err := svc.AssociateMedia(ctx, "p1", "m2", "owner")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(product.MediaIDs) != 2 || product.MediaIDs[1] != "m2" {
			t.Errorf("Expected [m1 m2], got %v", product.MediaIDs)
		}
		if got := store.products["p1"].MediaIDs; len(got) != 2 {
			t.Errorf("Persisted media ids: %v", got)
		}
	})

	t.Run("order of insertion is preserved", func(t *testing.T) {
		store := newFakeStore(&model.Product{ID: "p1", UserID: "owner", MediaIDs: []string{"m1", "m2"}})
		svc := NewProductService(store, &fakePublisher{}, &fakeBridge{}, nil)

		product, err := svc.AssociateMedia(ctx, "p1", "m3", "owner")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		want := []string{"m1", "m2", "m3"}
		for i, id := range want {
			if product.MediaIDs[i] != id {
				t.Fatalf("Expected %v, got %v", want, product.MediaIDs)
			}
		}
	})
}

func TestDeleteProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes product.deleted with media ids", func(t *testing.T) {
		store := newFakeStore(&model.Product{ID: "p1", UserID: "owner", MediaIDs: []string{"m1", "m2"}})
		pub := &fakePublisher{}
		svc := NewProductService(store, pub, &fakeBridge{}, nil)

		if err := svc.Delete(ctx, "p1", "owner"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok := store.products["p1"]; ok {
			t.Error("Product still present after delete")
		}
		if len(pub.events) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(pub.events))
		}
		if pub.events[0].topic != eventbus.TopicProductDeleted {
			t.Errorf("Unexpected topic %q", pub.events[0].topic)
		}

		cmd, err := event.DecodeProductDeleted(pub.events[0].payload)
		if err != nil {
			t.Fatalf("Undecodable payload: %v", err)
		}
		if cmd.Target != event.DeleteByMediaIDs || len(cmd.MediaIDs) != 2 {
			t.Errorf("Unexpected command: %+v", cmd)
		}
	})

	t.Run("owner mismatch fails and keeps the product", func(t *testing.T) {
		store := newFakeStore(&model.Product{ID: "p1", UserID: "owner"})
		pub := &fakePublisher{}
		svc := NewProductService(store, pub, &fakeBridge{}, nil)

		if err := svc.Delete(ctx, "p1", "intruder"); !errors.Is(err, apperr.ErrForbidden) {
			t.Fatalf("Expected ErrForbidden, got %v", err)
		}
		if _, ok := store.products["p1"]; !ok {
			t.Error("Product deleted despite failed authorization")
		}
		if len(pub.events) != 0 {
			t.Errorf("Unexpected events: %v", pub.events)
		}
	})

	t.Run("publish failure does not fail the deletion", func(t *testing.T) {
		store := newFakeStore(&model.Product{ID: "p1", UserID: "owner"})
		pub := &fakePublisher{err: errors.New("broker down")}
		svc := NewProductService(store, pub, &fakeBridge{}, nil)

		if err := svc.Delete(ctx, "p1", "owner"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok := store.products["p1"]; ok {
			t.Error("Product still present after delete")
		}
	})
}

func TestRemoveMedia(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the id and persists once", func(t *testing.T) {
		store := newFakeStore(&model.Product{ID: "p1", UserID: "owner", MediaIDs: []string{"m1", "m2"}})
		svc := NewProductService(store, &fakePublisher{}, &fakeBridge{}, nil)

		if err := svc.RemoveMedia(ctx, "p1", "m1"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got := store.products["p1"].MediaIDs; len(got) != 1 || got[0] != "m2" {
			t.Errorf("Expected [m2], got %v", got)
		}
		if store.saves != 1 {
			t.Errorf("Expected 1 save, got %d", store.saves)
		}
	})

	t.Run("removing an absent id is a no-op success", func(t *testing.T) {
		store := newFakeStore(&model.Product{ID: "p1", UserID: "owner", MediaIDs: []string{"m1"}})
		svc := NewProductService(store, &fakePublisher{}, &fakeBridge{}, nil)

		if err := svc.RemoveMedia(ctx, "p1", "absent"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if store.saves != 0 {
			t.Errorf("Expected no save, got %d", store.saves)
		}
	})
}

func TestHandleUserDeleted(t *testing.T) {
	ctx := context.Background()

	t.Run("cascades and re-emits one event per product", func(t *testing.T) {
		store := newFakeStore(
			&model.Product{ID: "p1", UserID: "u1", MediaIDs: []string{"m1"}},
			&model.Product{ID: "p2", UserID: "u1", MediaIDs: []string{"m2", "m3"}},
			&model.Product{ID: "p3", UserID: "other"},
		)
		pub := &fakePublisher{}
		svc := NewProductService(store, pub, &fakeBridge{}, nil)

		if err := svc.HandleUserDeleted(ctx, []byte("u1")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(store.products) != 1 {
			t.Errorf("Expected only the other user's product to survive, got %d", len(store.products))
		}
		if _, ok := store.products["p3"]; !ok {
			t.Error("Unrelated product was deleted")
		}
		if len(pub.events) != 2 {
			t.Errorf("Expected 2 product.deleted events, got %d", len(pub.events))
		}
	})

	t.Run("redelivery for an already-deleted user is a no-op", func(t *testing.T) {
		store := newFakeStore()
		pub := &fakePublisher{}
		svc := NewProductService(store, pub, &fakeBridge{}, nil)

		if err := svc.HandleUserDeleted(ctx, []byte("u1")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(pub.events) != 0 {
			t.Errorf("Unexpected events: %v", pub.events)
		}
	})

	t.Run("empty payload is dropped without error", func(t *testing.T) {
		svc := NewProductService(newFakeStore(), &fakePublisher{}, &fakeBridge{}, nil)
		if err := svc.HandleUserDeleted(ctx, []byte("  ")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	})
}
