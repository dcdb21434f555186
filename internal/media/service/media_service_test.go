package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"buy01/internal/apperr"
	"buy01/internal/media/model"
)

type fakeStore struct {
	media map[string]*model.Media
}

func newFakeStore(media ...*model.Media) *fakeStore {
	s := &fakeStore{media: make(map[string]*model.Media)}
	for _, m := range media {
		s.media[m.ID] = m
	}
	return s
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (*model.Media, error) {
	m, ok := s.media[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *fakeStore) FindByUserID(ctx context.Context, userID string) ([]model.Media, error) {
	var out []model.Media
	for _, m := range s.media {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeStore) FindByProductID(ctx context.Context, productID string) ([]model.Media, error) {
	var out []model.Media
	for _, m := range s.media {
		if m.ProductID == productID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeStore) Create(ctx context.Context, media *model.Media) error {
	s.media[media.ID] = media
	return nil
}

func (s *fakeStore) Save(ctx context.Context, media *model.Media) error {
	cp := *media
	s.media[media.ID] = &cp
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	delete(s.media, id)
	return nil
}

// fakeFiles keeps content in memory, keyed by path
type fakeFiles struct {
	files map[string]string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: make(map[string]string)}
}

func (f *fakeFiles) Save(name string, src io.Reader) (string, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	path := "uploads/" + name
	f.files[path] = string(b)
	return path, nil
}

func (f *fakeFiles) Open(path string) (io.ReadCloser, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (f *fakeFiles) Remove(path string) error {
	delete(f.files, path)
	return nil
}

type removeCall struct {
	productID string
	mediaID   string
}

type fakeProductBridge struct {
	calls []removeCall
	err   error
}

func (b *fakeProductBridge) RemoveMedia(ctx context.Context, productID, mediaID string) error {
	b.calls = append(b.calls, removeCall{productID: productID, mediaID: mediaID})
	return b.err
}

func newService(store *fakeStore, files *fakeFiles, bridge *fakeProductBridge) *MediaService {
	return NewMediaService(store, files, bridge, "http://localhost:8083/api/media", nil)
}

func TestUpload(t *testing.T) {
	store := newFakeStore()
	files := newFakeFiles()
	svc := newService(store, files, &fakeProductBridge{})

	media, err := svc.Upload(context.Background(), "u1", "cat.png", "image/png", 4, strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if media.ID == "" {
		t.Fatal("Missing generated id")
	}
	if media.UserID != "u1" || media.OriginalFilename != "cat.png" {
		t.Errorf("Unexpected record: %+v", media)
	}
	if !strings.HasSuffix(media.URL, "/images/"+media.ID) {
		t.Errorf("Unexpected URL %q", media.URL)
	}
	if _, ok := store.media[media.ID]; !ok {
		t.Error("Record not persisted")
	}
	if files.files[media.FilePath] != "data" {
		t.Error("File content not stored")
	}
}

func TestDeleteMedia(t *testing.T) {
	ctx := context.Background()

	t.Run("owner deletes record, file and the product reference", func(t *testing.T) {
		store := newFakeStore(&model.Media{ID: "m1", UserID: "u1", ProductID: "p1", FilePath: "uploads/m1"})
		files := newFakeFiles()
		files.files["uploads/m1"] = "data"
		bridge := &fakeProductBridge{}
		svc := newService(store, files, bridge)

		if err := svc.Delete(ctx, "m1", "u1"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok := store.media["m1"]; ok {
			t.Error("Record still present")
		}
		if _, ok := files.files["uploads/m1"]; ok {
			t.Error("File still present")
		}
		if len(bridge.calls) != 1 || bridge.calls[0] != (removeCall{productID: "p1", mediaID: "m1"}) {
			t.Errorf("Unexpected bridge calls: %v", bridge.calls)
		}
	})

	t.Run("unassociated media skips the bridge", func(t *testing.T) {
		store := newFakeStore(&model.Media{ID: "m1", UserID: "u1", FilePath: "uploads/m1"})
		bridge := &fakeProductBridge{}
		svc := newService(store, newFakeFiles(), bridge)

		if err := svc.Delete(ctx, "m1", "u1"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(bridge.calls) != 0 {
			t.Errorf("Unexpected bridge calls: %v", bridge.calls)
		}
	})

	t.Run("bridge failure does not block the deletion", func(t *testing.T) {
		store := newFakeStore(&model.Media{ID: "m1", UserID: "u1", ProductID: "p1", FilePath: "uploads/m1"})
		bridge := &fakeProductBridge{err: errors.New("product service down")}
		svc := newService(store, newFakeFiles(), bridge)

		if err := svc.Delete(ctx, "m1", "u1"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok := store.media["m1"]; ok {
			t.Error("Record still present")
		}
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		store := newFakeStore(&model.Media{ID: "m1", UserID: "u1"})
		svc := newService(store, newFakeFiles(), &fakeProductBridge{})

		if err := svc.Delete(ctx, "m1", "intruder"); !errors.Is(err, apperr.ErrForbidden) {
			t.Fatalf("Expected ErrForbidden, got %v", err)
		}
		if _, ok := store.media["m1"]; !ok {
			t.Error("Record deleted despite failed authorization")
		}
	})
}

func TestAssociateProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps the back-link for the owner", func(t *testing.T) {
		store := newFakeStore(&model.Media{ID: "m1", UserID: "u1"})
		svc := newService(store, newFakeFiles(), &fakeProductBridge{})

		media, err := svc.AssociateProduct(ctx, "m1", "p1", "u1")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if media.ProductID != "p1" {
			t.Errorf("ProductID %q, want p1", media.ProductID)
		}
		if store.media["m1"].ProductID != "p1" {
			t.Error("Back-link not persisted")
		}
	})

	t.Run("re-stamping the same product is idempotent", func(t *testing.T) {
		store := newFakeStore(&model.Media{ID: "m1", UserID: "u1", ProductID: "p1"})
		svc := newService(store, newFakeFiles(), &fakeProductBridge{})

		if _, err := svc.AssociateProduct(ctx, "m1", "p1", "u1"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		store := newFakeStore(&model.Media{ID: "m1", UserID: "u1"})
		svc := newService(store, newFakeFiles(), &fakeProductBridge{})

		if _, err := svc.AssociateProduct(ctx, "m1", "p1", "intruder"); !errors.Is(err, apperr.ErrForbidden) {
			t.Fatalf("Expected ErrForbidden, got %v", err)
		}
		if store.media["m1"].ProductID != "" {
			t.Error("Back-link stamped despite failed authorization")
		}
	})
}

func TestHandleProductDeleted(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit media-id list deletes exactly those ids", func(t *testing.T) {
		store := newFakeStore(
			&model.Media{ID: "m1", UserID: "u1", ProductID: "p1", FilePath: "uploads/m1"},
			&model.Media{ID: "m2", UserID: "u1", ProductID: "p1", FilePath: "uploads/m2"},
			&model.Media{ID: "m3", UserID: "u1", ProductID: "other", FilePath: "uploads/m3"},
		)
		svc := newService(store, newFakeFiles(), &fakeProductBridge{})

		payload := []byte(`{"id":"p1","mediaIds":["m1","m2"]}`)
		if err := svc.HandleProductDeleted(ctx, payload); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(store.media) != 1 {
			t.Fatalf("Expected 1 surviving record, got %d", len(store.media))
		}
		if _, ok := store.media["m3"]; !ok {
			t.Error("Unrelated media was deleted")
		}
	})

	t.Run("bare product id falls back to deletion by reference", func(t *testing.T) {
		store := newFakeStore(
			&model.Media{ID: "m1", UserID: "u1", ProductID: "p1", FilePath: "uploads/m1"},
			&model.Media{ID: "m2", UserID: "u1", ProductID: "other", FilePath: "uploads/m2"},
		)
		svc := newService(store, newFakeFiles(), &fakeProductBridge{})

		if err := svc.HandleProductDeleted(ctx, []byte("p1")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok := store.media["m1"]; ok {
			t.Error("Referenced media survived")
		}
		if _, ok := store.media["m2"]; !ok {
			t.Error("Unrelated media was deleted")
		}
	})

	t.Run("duplicate delivery is idempotent", func(t *testing.T) {
		store := newFakeStore(&model.Media{ID: "m1", UserID: "u1", ProductID: "p1", FilePath: "uploads/m1"})
		svc := newService(store, newFakeFiles(), &fakeProductBridge{})

		payload := []byte(`{"id":"p1","mediaIds":["m1"]}`)
		if err := svc.HandleProductDeleted(ctx, payload); err != nil {
			t.Fatalf("Unexpected error on first delivery: %v", err)
		}
		if err := svc.HandleProductDeleted(ctx, payload); err != nil {
			t.Fatalf("Unexpected error on redelivery: %v", err)
		}
		if len(store.media) != 0 {
			t.Errorf("Expected empty store, got %d records", len(store.media))
		}
	})

	t.Run("empty payload is dropped without error", func(t *testing.T) {
		svc := newService(newFakeStore(), newFakeFiles(), &fakeProductBridge{})
		if err := svc.HandleProductDeleted(ctx, []byte("")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	})
}

func TestHandleUserDeleted(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes every record owned by the user", func(t *testing.T) {
		store := newFakeStore(
			&model.Media{ID: "m1", UserID: "u1", FilePath: "uploads/m1"},
			&model.Media{ID: "m2", UserID: "u1", FilePath: "uploads/m2"},
			&model.Media{ID: "m3", UserID: "other", FilePath: "uploads/m3"},
		)
		svc := newService(store, newFakeFiles(), &fakeProductBridge{})

		if err := svc.HandleUserDeleted(ctx, []byte("u1")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(store.media) != 1 {
			t.Errorf("Expected 1 surviving record, got %d", len(store.media))
		}
		if _, ok := store.media["m3"]; !ok {
			t.Error("Unrelated media was deleted")
		}
	})

	t.Run("redelivery after the cascade is a no-op", func(t *testing.T) {
		svc := newService(newFakeStore(), newFakeFiles(), &fakeProductBridge{})
		if err := svc.HandleUserDeleted(ctx, []byte("u1")); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	})
}
