package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const mirrorStream = "lead-events"

// RedisMirror republishes every domain event onto a Redis stream so
// external consumers (dashboards, downstream CRM sync) can tail them.
// Mirroring is best-effort: a Redis outage never blocks the workflow.
type RedisMirror struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisMirror builds a mirror over the shared client.
func NewRedisMirror(client *redis.Client, logger *zap.Logger) *RedisMirror {
	return &RedisMirror{client: client, logger: logger}
}

// Register subscribes the mirror to all lead event types.
func (m *RedisMirror) Register(dispatcher Dispatcher) {
	if m == nil || m.client == nil || dispatcher == nil {
		return
	}
	for _, eventType := range []EventType{
		EventLeadCreated,
		EventLeadScored,
		EventLeadAssigned,
		EventLeadStageAdvanced,
		EventLeadStatusChanged,
	} {
		dispatcher.Subscribe(eventType, m.mirror)
	}
}

func (m *RedisMirror) mirror(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		m.logger.Warn("failed to encode event for mirror", zap.Error(err))
		return nil
	}
	err = m.client.XAdd(ctx, &redis.XAddArgs{
		Stream: mirrorStream,
		Values: map[string]interface{}{
			"type":    string(event.Type),
			"lead_id": event.LeadID,
			"body":    body,
		},
	}).Err()
	if err != nil {
		m.logger.Warn("failed to mirror event to redis", zap.Error(err), zap.String("type", string(event.Type)))
	}
	return nil
}
