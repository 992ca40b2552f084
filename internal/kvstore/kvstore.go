// Package kvstore provides the persistent key/value service shared by every
// execution context. It is the single source of truth for auth state, the
// processed-submission ledger, learned algorithm tags, and per-problem editor
// caches. Writes are best-effort and change notifications fan out to every
// subscriber, possibly with a small propagation delay; nothing here is
// transactional.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Well-known keys. The per-problem editor cache keys are prefixes; the full
// key is prefix + problem id.
const (
	KeyAccessToken          = "accessToken"
	KeyNickname             = "nickname"
	KeyProfileImageURL      = "profileImageUrl"
	KeyProcessedSubmissions = "processedSubmissions"
	KeyAlgoByProblemID      = "algoByProblemId"

	PrefixIDECode     = "ide_code_"
	PrefixIDELanguage = "ide_language_"
	PrefixIDEResults  = "ide_results_"
)

// Change describes one observed store mutation.
type Change struct {
	Key     string
	Value   string
	Deleted bool
}

// Store is an injected persistent key/value service with change
// subscription. Two concrete environments exist behind this interface: an
// embedded database (sqlite, postgres) and a bare in-memory fallback.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes key to value and notifies subscribers.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns all keys with the given prefix, sorted ascending.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Subscribe registers fn to be called for every subsequent change.
	// The returned cancel function unregisters it.
	Subscribe(fn func(Change)) (cancel func())
	// Close releases the underlying resources.
	Close() error
}

// GetJSON reads key and unmarshals its value into out. A missing key leaves
// out untouched and returns ok=false.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals v and writes it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}
