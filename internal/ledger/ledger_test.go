package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errorterry/algotrack-agent/internal/kvstore"
)

func TestLedger_HasAndAppend(t *testing.T) {
	l := New(kvstore.NewMemory())
	ctx := context.Background()

	ok, err := l.Has(ctx, "100")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Append(ctx, "100"))

	ok, err = l.Has(ctx, "100")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedger_AppendIsIdempotent(t *testing.T) {
	l := New(kvstore.NewMemory())
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, "100"))
	require.NoError(t, l.Append(ctx, "100"))

	n, err := l.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLedger_PreservesOrder(t *testing.T) {
	store := kvstore.NewMemory()
	l := New(store)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, "300"))
	require.NoError(t, l.Append(ctx, "100"))
	require.NoError(t, l.Append(ctx, "200"))

	var ids []string
	ok, err := kvstore.GetJSON(ctx, store, kvstore.KeyProcessedSubmissions, &ids)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"300", "100", "200"}, ids)
}

func TestLedger_SurvivesStoreReopen(t *testing.T) {
	store := kvstore.NewMemory()
	ctx := context.Background()

	require.NoError(t, New(store).Append(ctx, "42"))

	ok, err := New(store).Has(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)
}
