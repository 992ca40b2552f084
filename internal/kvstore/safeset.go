package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// errWriteRejected is returned by the in-memory store's test hook.
var errWriteRejected = errors.New("write rejected")

// idePrefixes are the per-problem editor cache key families covered by the
// eviction policy.
var idePrefixes = []string{PrefixIDECode, PrefixIDEResults, PrefixIDELanguage}

// SafeSetProblemKey writes a per-problem editor cache entry. If the write
// fails, the single oldest known per-problem key is evicted (keys sort by
// problem number, so the smallest sorts first) and the write is retried
// once. A second failure is returned to the caller, who logs it and moves
// on; there is no further recovery.
func SafeSetProblemKey(ctx context.Context, s Store, key, value string) error {
	if err := s.Set(ctx, key, value); err == nil {
		return nil
	}

	oldest := ""
	for _, prefix := range idePrefixes {
		keys, err := s.Keys(ctx, prefix)
		if err != nil {
			return fmt.Errorf("failed to list cache keys: %w", err)
		}
		for _, k := range keys {
			if oldest == "" || k < oldest {
				oldest = k
			}
		}
	}
	if oldest != "" {
		if err := s.Delete(ctx, oldest); err != nil {
			return fmt.Errorf("failed to evict %s: %w", oldest, err)
		}
	}

	if err := s.Set(ctx, key, value); err != nil {
		return fmt.Errorf("write failed after evicting %q: %w", oldest, err)
	}
	return nil
}
