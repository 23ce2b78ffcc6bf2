package event

import (
	"context"

	"github.com/postrack/backend/internal/domain/shared"
	"github.com/postrack/backend/internal/domain/terminal"
	"go.uber.org/zap"
)

// AuditLogHandler writes an audit trail entry for every terminal lifecycle
// event. Field operations reviews these entries when a merchant disputes
// which device was installed at their site, so each entry carries the raw
// serial and the merchant identifiers as they were submitted.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an audit handler writing to the given logger
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		logger: logger.Named("audit"),
	}
}

// EventTypes returns the terminal lifecycle events this handler records
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		terminal.EventTypeTerminalIssued,
		terminal.EventTypeTerminalReturned,
		terminal.EventTypeTerminalStatusChanged,
	}
}

// Handle writes one structured audit entry per event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *terminal.TerminalIssuedEvent:
		h.logger.Info("terminal issued",
			zap.String("event_id", e.EventID().String()),
			zap.String("serial", e.Serial),
			zap.String("merchant_id", e.MerchantID),
			zap.String("merchant_name", e.MerchantName),
			zap.String("tid", e.TID),
			zap.Time("occurred_at", e.OccurredAt()),
		)
	case *terminal.TerminalReturnedEvent:
		h.logger.Info("terminal returned",
			zap.String("event_id", e.EventID().String()),
			zap.String("serial", e.Serial),
			zap.Time("occurred_at", e.OccurredAt()),
		)
	case *terminal.TerminalStatusChangedEvent:
		h.logger.Info("terminal status changed",
			zap.String("event_id", e.EventID().String()),
			zap.String("serial", e.Serial),
			zap.String("from", string(e.From)),
			zap.String("to", string(e.To)),
			zap.Time("occurred_at", e.OccurredAt()),
		)
	default:
		// Unknown event types still leave a trace so nothing disappears
		// from the trail silently.
		h.logger.Info("domain event",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
			zap.String("aggregate_type", event.AggregateType()),
			zap.Time("occurred_at", event.OccurredAt()),
		)
	}
	return nil
}

// Ensure AuditLogHandler implements EventHandler
var _ shared.EventHandler = (*AuditLogHandler)(nil)
