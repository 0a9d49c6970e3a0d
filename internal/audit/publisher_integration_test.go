//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"fiscal/pkg/testutil/containers"
)

func TestPublisherIntegration(t *testing.T) {
	ctx := context.Background()
	kc := containers.NewKafkaContainer(t)
	log := slog.New(slog.DiscardHandler)

	t.Run("emit and close delivers the event", func(t *testing.T) {
		topic := "fiscal.audit.emit"
		publisher, err := NewPublisher(ctx, []string{kc.Broker}, topic, log)
		require.NoError(t, err)

		event := Event{
			ID:            uuid.New(),
			Kind:          EventReceiptApproved,
			CUIT:          20111111112,
			PointOfSales:  1,
			ReceiptType:   "11",
			ReceiptNumber: 42,
			CAE:           "12345678901234",
			At:            time.Now().UTC().Truncate(time.Second),
		}
		require.NoError(t, publisher.Emit(ctx, event))

		closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		require.NoError(t, publisher.Close(closeCtx))

		consumer, err := kgo.NewClient(
			kgo.SeedBrokers(kc.Broker),
			kgo.ConsumeTopics(topic),
			kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		)
		require.NoError(t, err)
		defer consumer.Close()

		fetchCtx, cancelFetch := context.WithTimeout(ctx, 15*time.Second)
		defer cancelFetch()
		fetches := consumer.PollFetches(fetchCtx)
		require.NoError(t, fetches.Err())

		records := fetches.Records()
		require.Len(t, records, 1)
		assert.Equal(t, []byte(EventReceiptApproved), records[0].Key)

		var got Event
		require.NoError(t, json.Unmarshal(records[0].Value, &got))
		assert.Equal(t, event, got)
	})

	t.Run("topic ensure tolerates an existing topic", func(t *testing.T) {
		topic := "fiscal.audit.existing"
		first, err := NewPublisher(ctx, []string{kc.Broker}, topic, log)
		require.NoError(t, err)
		require.NoError(t, first.Close(ctx))

		second, err := NewPublisher(ctx, []string{kc.Broker}, topic, log)
		require.NoError(t, err)
		require.NoError(t, second.Close(ctx))
	})
}
