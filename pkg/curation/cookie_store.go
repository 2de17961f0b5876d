package curation

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

// CookieSessionName is the name of the signed basket cookie.
const CookieSessionName = "catalog_basket"

const cookieKeyChanges = "changes"

// maxCookieChanges bounds the encoded changes so the signed, base64-wrapped
// cookie stays under the 4096-byte browser limit.
const maxCookieChanges = 1800

// CookieStore keeps basket changes in a signed cookie on the client.
type CookieStore struct {
	store *sessions.CookieStore
}

var _ Store = (*CookieStore)(nil)

// NewCookieStore creates a cookie-backed store.
//
// The secret can be any passphrase; it is SHA-256 hashed to derive the
// 32-byte signing key, so it must be stable across restarts and replicas.
func NewCookieStore(secret string, ttl time.Duration, secure bool) *CookieStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieStore{store: store}
}

func (c *CookieStore) Load(r *http.Request) (Changes, bool, error) {
	// A cookie that fails verification yields a fresh session and an error;
	// treat it like an empty basket.
	session, err := c.store.Get(r, CookieSessionName)
	if err != nil || session.IsNew {
		return Changes{}, false, nil
	}
	raw, ok := session.Values[cookieKeyChanges].(string)
	if !ok {
		return Changes{}, false, nil
	}
	changes, err := decodeChanges([]byte(raw))
	if err != nil {
		return Changes{}, false, nil
	}
	return changes, true, nil
}

// Save returns ErrBasketTooLarge when the changes cannot fit in one cookie.
func (c *CookieStore) Save(w http.ResponseWriter, r *http.Request, changes Changes) error {
	session, _ := c.store.Get(r, CookieSessionName)
	data, err := encodeChanges(changes)
	if err != nil {
		return err
	}
	if len(data) > maxCookieChanges {
		return fmt.Errorf("%w: %d entries", ErrBasketTooLarge, changes.Size())
	}
	session.Values[cookieKeyChanges] = string(data)
	return session.Save(r, w)
}
