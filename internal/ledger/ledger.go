// Package ledger tracks which submission ids have already been reported,
// bounding duplicate relays to at most one per id. The ledger is a
// persisted append-only ordered set: an id, once present, is never removed
// or re-processed.
//
// The Has/Append pair is deliberately not atomic against the store. All
// watcher ticks run on a single goroutine, so within one process the pair
// is serialized; two processes sharing one store can still both pass the
// check before either appends, and downstream effects must tolerate that
// rare duplication.
package ledger

import (
	"context"
	"fmt"

	"github.com/errorterry/algotrack-agent/internal/kvstore"
)

// Ledger is the processed-submission set backed by the injected store.
type Ledger struct {
	store kvstore.Store
}

// New returns a ledger over the given store.
func New(store kvstore.Store) *Ledger {
	return &Ledger{store: store}
}

// Has reports whether id has already been processed. Must be consulted
// before any externally visible relay effect for that id.
func (l *Ledger) Has(ctx context.Context, id string) (bool, error) {
	ids, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	for _, existing := range ids {
		if existing == id {
			return true, nil
		}
	}
	return false, nil
}

// Append records id as processed. Called only after a successful relay
// attempt. Appending an id twice keeps a single entry.
func (l *Ledger) Append(ctx context.Context, id string) error {
	ids, err := l.load(ctx)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	if err := kvstore.SetJSON(ctx, l.store, kvstore.KeyProcessedSubmissions, ids); err != nil {
		return fmt.Errorf("failed to persist ledger: %w", err)
	}
	return nil
}

// Size returns the number of processed ids.
func (l *Ledger) Size(ctx context.Context) (int, error) {
	ids, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (l *Ledger) load(ctx context.Context) ([]string, error) {
	var ids []string
	if _, err := kvstore.GetJSON(ctx, l.store, kvstore.KeyProcessedSubmissions, &ids); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return ids, nil
}
