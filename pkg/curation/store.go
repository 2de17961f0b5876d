package curation

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ErrBasketTooLarge is returned by a Store that cannot hold the basket's changes.
var ErrBasketTooLarge = errors.New("basket has too many changes to store")

// Store persists how a user's basket differs from the system defaults.
// Load reports found=false when nothing has been saved yet.
type Store interface {
	Load(r *http.Request) (c Changes, found bool, err error)
	Save(w http.ResponseWriter, r *http.Request, c Changes) error
}

// changesDoc is the wire form of Changes. Uuids are raw base64url.
type changesDoc struct {
	FromEmpty bool              `json:"e,omitempty"`
	Overrides map[string]string `json:"o,omitempty"`
	Removed   []string          `json:"r,omitempty"`
}

func encodeChanges(c Changes) ([]byte, error) {
	doc := changesDoc{FromEmpty: c.FromEmpty, Removed: c.Removed}
	if len(c.Overrides) > 0 {
		doc.Overrides = make(map[string]string, len(c.Overrides))
		for k, v := range c.Overrides {
			doc.Overrides[k] = base64.RawURLEncoding.EncodeToString(v[:])
		}
	}
	return json.Marshal(doc)
}

func decodeChanges(data []byte) (Changes, error) {
	var doc changesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Changes{}, fmt.Errorf("failed to decode basket: %w", err)
	}

	c := Changes{FromEmpty: doc.FromEmpty, Overrides: make(Selections, len(doc.Overrides)), Removed: doc.Removed}
	for k, v := range doc.Overrides {
		raw, err := base64.RawURLEncoding.DecodeString(v)
		if err != nil {
			return Changes{}, fmt.Errorf("failed to decode basket entry %s: %w", k, err)
		}
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return Changes{}, fmt.Errorf("failed to decode basket entry %s: %w", k, err)
		}
		c.Overrides[k] = id
	}
	return c, nil
}
