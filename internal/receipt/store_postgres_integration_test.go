//go:build integration

package receipt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscal/internal/domain"
	"fiscal/pkg/platform/sentinel"
	"fiscal/pkg/testutil/containers"
)

func TestPostgresStoreIntegration(t *testing.T) {
	ctx := context.Background()
	pc := containers.NewPostgresContainer(t)
	_, err := pc.Pool.Exec(ctx, Schema)
	require.NoError(t, err)

	store := NewPostgresStore(pc.Pool)

	t.Run("save and find pending", func(t *testing.T) {
		r := testInvoice(1, "11")
		require.NoError(t, store.Save(ctx, r))

		found, err := store.Find(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, found.ID)
		assert.Nil(t, found.Number)
		assert.True(t, found.TotalAmount.Equal(r.TotalAmount))

		pending, err := store.ListPending(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, pending)
	})

	t.Run("approval persists number and validation together", func(t *testing.T) {
		r := testInvoice(1, "11")
		num := int64(42)
		r.Number = &num
		r.Validation = &domain.Validation{
			ReceiptID:   r.ID,
			Result:      domain.ResultApproved,
			CAE:         "71234567890123",
			CAEExpiry:   time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
			ProcessedAt: time.Now().UTC().Truncate(time.Second),
		}
		require.NoError(t, store.Save(ctx, r))

		found, err := store.Find(ctx, r.ID)
		require.NoError(t, err)
		require.NotNil(t, found.Number)
		assert.Equal(t, int64(42), *found.Number)
		require.NotNil(t, found.Validation)
		assert.Equal(t, "71234567890123", found.Validation.CAE)
		assert.True(t, found.IsValidated())
	})

	t.Run("upsert supersedes", func(t *testing.T) {
		r := testInvoice(2, "6")
		require.NoError(t, store.Save(ctx, r))

		num := int64(7)
		r.Number = &num
		r.Validation = &domain.Validation{ReceiptID: r.ID, Result: domain.ResultApproved}
		require.NoError(t, store.Save(ctx, r))

		found, err := store.Find(ctx, r.ID)
		require.NoError(t, err)
		require.NotNil(t, found.Number)

		pending, err := store.ListPending(ctx)
		require.NoError(t, err)
		for _, p := range pending {
			assert.NotEqual(t, r.ID, p.ID, "numbered receipts are not pending")
		}
	})

	t.Run("missing id", func(t *testing.T) {
		r := testInvoice(1, "11")
		_, err := store.Find(ctx, r.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
