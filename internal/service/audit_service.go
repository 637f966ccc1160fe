package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sso-relay/internal/events"
	"github.com/spec-kit/sso-relay/internal/observability"
)

// AuditService records relay events in the log and in metrics.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService constructs the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{dispatcher: dispatcher, logger: logger, metrics: metrics}
}

// RegisterHandlers subscribes to every relay event type.
func (s *AuditService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		s.dispatcher.Subscribe(eventType, s.handle)
	}
}

func (s *AuditService) handle(_ context.Context, event events.Event) error {
	s.metrics.RecordEvent(string(event.Type))
	s.logger.Info("audit",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", event.Actor.UserID),
		zap.String("email", event.Actor.Email),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload),
	)
	return nil
}
