package event

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestEncodeProductDeleted(t *testing.T) {
	t.Run("with media ids", func(t *testing.T) {
		data, err := EncodeProductDeleted("p1", []string{"m1", "m2"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		var decoded ProductDeleted
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Invalid JSON: %v", err)
		}
		if decoded.ID != "p1" {
			t.Errorf("Expected id=p1, got %q", decoded.ID)
		}
		if len(decoded.MediaIDs) != 2 || decoded.MediaIDs[0] != "m1" || decoded.MediaIDs[1] != "m2" {
			t.Errorf("Unexpected media ids: %v", decoded.MediaIDs)
		}
	})

	t.Run("nil media ids encodes an empty list", func(t *testing.T) {
		data, err := EncodeProductDeleted("p1", nil)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if string(data) != `{"id":"p1","mediaIds":[]}` {
			t.Errorf("Unexpected payload: %s", data)
		}
	})
}

func TestDecodeProductDeleted(t *testing.T) {
	t.Run("json with media ids deletes those ids", func(t *testing.T) {
		cmd, err := DecodeProductDeleted([]byte(`{"id":"p1","mediaIds":["m1","m2"]}`))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cmd.Target != DeleteByMediaIDs {
			t.Errorf("Expected DeleteByMediaIDs, got %v", cmd.Target)
		}
		if len(cmd.MediaIDs) != 2 {
			t.Errorf("Unexpected media ids: %v", cmd.MediaIDs)
		}
		if cmd.ProductID != "p1" {
			t.Errorf("Expected product id p1, got %q", cmd.ProductID)
		}
	})

	t.Run("json with empty media ids falls back to product id", func(t *testing.T) {
		cmd, err := DecodeProductDeleted([]byte(`{"id":"p1","mediaIds":[]}`))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cmd.Target != DeleteByProductID {
			t.Errorf("Expected DeleteByProductID, got %v", cmd.Target)
		}
		if cmd.ProductID != "p1" {
			t.Errorf("Expected product id p1, got %q", cmd.ProductID)
		}
	})

	t.Run("bare id string is the legacy form", func(t *testing.T) {
		cmd, err := DecodeProductDeleted([]byte("p1"))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cmd.Target != DeleteByProductID || cmd.ProductID != "p1" {
			t.Errorf("Unexpected command: %+v", cmd)
		}
	})

	t.Run("surrounding whitespace is trimmed", func(t *testing.T) {
		cmd, err := DecodeProductDeleted([]byte("  p1\n"))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cmd.ProductID != "p1" {
			t.Errorf("Expected product id p1, got %q", cmd.ProductID)
		}
	})

	t.Run("malformed json degrades to raw payload", func(t *testing.T) {
		cmd, err := DecodeProductDeleted([]byte(`{"id":`))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cmd.Target != DeleteByProductID || cmd.ProductID != `{"id":` {
			t.Errorf("Unexpected command: %+v", cmd)
		}
	})

	t.Run("empty payload is rejected", func(t *testing.T) {
		if _, err := DecodeProductDeleted([]byte("  ")); err == nil {
			t.Error("Expected an error for an empty payload")
		}
	})
}
