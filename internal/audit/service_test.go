package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestEmitFillsIDAndTimestamp(t *testing.T) {
	svc := NewService(4, nil, testLogger())

	svc.Emit(context.Background(), Event{Kind: EventReceiptApproved})

	event := <-svc.Inbox()
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.False(t, event.At.IsZero())
	assert.Equal(t, EventReceiptApproved, event.Kind)
}

func TestEmitDropsWhenInboxFull(t *testing.T) {
	svc := NewService(1, nil, testLogger())

	// The second emit must not block.
	done := make(chan struct{})
	go func() {
		svc.Emit(context.Background(), Event{Kind: EventReceiptApproved})
		svc.Emit(context.Background(), Event{Kind: EventReceiptRejected})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full inbox")
	}
}

func TestWorkerPersistsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewInMemoryStore()
	svc := NewService(16, nil, testLogger())
	worker := NewWorker(store, svc.Inbox())
	go func() { _ = worker.Run(ctx) }()

	receiptID := uuid.New()
	svc.Emit(ctx, Event{Kind: EventReceiptApproved, ReceiptID: receiptID, ReceiptNumber: 42})
	svc.Emit(ctx, Event{Kind: EventReceiptRejected, ReceiptID: receiptID})

	require.Eventually(t, func() bool {
		return len(store.All()) == 2
	}, time.Second, 10*time.Millisecond)

	byReceipt, err := store.ListByReceipt(ctx, receiptID)
	require.NoError(t, err)
	assert.Len(t, byReceipt, 2)
	assert.Equal(t, int64(42), byReceipt[0].ReceiptNumber)
}

func TestInMemoryStoreListByReceipt(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	target := uuid.New()
	require.NoError(t, store.Append(ctx, Event{ID: uuid.New(), ReceiptID: target}))
	require.NoError(t, store.Append(ctx, Event{ID: uuid.New(), ReceiptID: uuid.New()}))

	events, err := store.ListByReceipt(ctx, target)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
