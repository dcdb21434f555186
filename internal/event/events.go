// Package event defines the deletion-event payloads exchanged between
// services. Topic names and payload shapes are a wire contract: the
// product.deleted payload is a JSON object, but a bare product id string is
// accepted forever for compatibility with older producers and replayed events.
package event

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
)

// ProductDeleted is the canonical product.deleted payload. MediaIDs carries
// the deleted product's media references so consumers can act without a
// follow-up query.
type ProductDeleted struct {
	ID       string   `json:"id"`
	MediaIDs []string `json:"mediaIds"`
}

// ErrEmptyPayload reports a payload with no usable content
var ErrEmptyPayload = errors.New("empty event payload")

// EncodeProductDeleted serializes the canonical product.deleted payload
func EncodeProductDeleted(id string, mediaIDs []string) ([]byte, error) {
	if mediaIDs == nil {
		mediaIDs = []string{}
	}
	return json.Marshal(ProductDeleted{ID: id, MediaIDs: mediaIDs})
}

// DeleteTarget tells a consumer how to apply a product.deleted payload
type DeleteTarget int

const (
	// DeleteByMediaIDs means delete exactly the listed media ids
	DeleteByMediaIDs DeleteTarget = iota
	// DeleteByProductID means delete all media referencing the product id
	DeleteByProductID
)

// ProductDeletedCommand is the parsed form of a product.deleted payload
type ProductDeletedCommand struct {
	Target    DeleteTarget
	ProductID string
	MediaIDs  []string
}

// DecodeProductDeleted applies the payload recognition policy, in order:
// a JSON object with a non-empty mediaIds list, a JSON object with an id
// field, then the whole raw payload as a bare product id.
func DecodeProductDeleted(payload []byte) (ProductDeletedCommand, error) {
	raw := strings.TrimSpace(string(payload))
	if raw == "" {
		return ProductDeletedCommand{}, ErrEmptyPayload
	}

	if strings.HasPrefix(raw, "{") {
		var pd ProductDeleted
		if err := json.Unmarshal([]byte(raw), &pd); err == nil {
			if len(pd.MediaIDs) > 0 {
				return ProductDeletedCommand{
					Target:    DeleteByMediaIDs,
					ProductID: pd.ID,
					MediaIDs:  pd.MediaIDs,
				}, nil
			}
			if pd.ID != "" {
				return ProductDeletedCommand{
					Target:    DeleteByProductID,
					ProductID: pd.ID,
				}, nil
			}
		}
		// Malformed or unrecognized JSON falls through to the bare-id form
	}

	return ProductDeletedCommand{
		Target:    DeleteByProductID,
		ProductID: raw,
	}, nil
}
