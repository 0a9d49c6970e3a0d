package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service is the workflow-facing audit emitter. Events flow through a
// buffered inbox to the store worker and, when configured, out to Kafka.
// Auditing must never fail a validation: a full inbox drops the event with a
// log line instead of blocking.
type Service struct {
	inbox     chan Event
	publisher *Publisher
	logger    *slog.Logger
}

func NewService(inboxSize int, publisher *Publisher, logger *slog.Logger) *Service {
	if inboxSize <= 0 {
		inboxSize = 256
	}
	return &Service{
		inbox:     make(chan Event, inboxSize),
		publisher: publisher,
		logger:    logger,
	}
}

// Inbox is the channel a Worker drains.
func (s *Service) Inbox() <-chan Event { return s.inbox }

// Emit records one event. Missing ID and timestamp are filled in here so
// call sites stay terse.
func (s *Service) Emit(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	select {
	case s.inbox <- event:
	default:
		s.logger.WarnContext(ctx, "audit inbox full, dropping event", "kind", event.Kind)
	}

	if s.publisher != nil {
		if err := s.publisher.Emit(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "audit publish failed", "kind", event.Kind, "error", err.Error())
		}
	}
}
