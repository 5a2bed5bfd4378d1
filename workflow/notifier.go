package workflow

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/coraeos/obari_backend/config"
	"github.com/coraeos/obari_backend/utils"
	"github.com/sirupsen/logrus"
)

// Event is an OBARI domain event published after a successful commit.
type Event struct {
	Type          string         `json:"type"`
	OrgId         string         `json:"org_id"`
	DealId        string         `json:"deal_id"`
	CorrelationId string         `json:"correlation_id"`
	At            time.Time      `json:"at"`
	Data          map[string]any `json:"data,omitempty"`
}

const (
	EventSnapshotFinalized = "obari.snapshot.finalized"
	EventOrdersIssued      = "obari.orders.issued"
	EventReportAdjusted    = "obari.report.adjusted"
	EventDealAdvanced      = "obari.deal.advanced"
)

// Notifier delivers post-commit events best-effort. Delivery failures are
// logged, never surfaced: callers fire and forget.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// LogNotifier writes events to the structured log. Used when no Pub/Sub
// topic is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, event Event) {
	config.GetLogger().WithFields(logrus.Fields{
		"event":          event.Type,
		"org_id":         event.OrgId,
		"deal_id":        event.DealId,
		"correlation_id": event.CorrelationId,
	}).Info("obari event")
}

// PubSubNotifier publishes events to a Pub/Sub topic.
type PubSubNotifier struct {
	topic string
}

func (n *PubSubNotifier) Notify(ctx context.Context, event Event) {
	logger := config.GetLogger()
	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		config.LogError(logger, "notifier.go", "Notify", "GetPubSubClient", event.Type, err)
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		config.LogError(logger, "notifier.go", "Notify", "Marshal", event.Type, err)
		return
	}
	topic := client.Topic(n.topic)
	result := topic.Publish(ctx, &pubsub.Message{Data: payload})
	if _, err := result.Get(ctx); err != nil {
		config.LogError(logger, "notifier.go", "Notify", "Publish", event.Type, err)
	}
}

// DefaultNotifier returns the Pub/Sub notifier when a topic is configured,
// otherwise the log notifier.
func DefaultNotifier() Notifier {
	if topic := config.ObariEventTopic(); topic != "" {
		return &PubSubNotifier{topic: topic}
	}
	return LogNotifier{}
}

func stampEvent(ctx context.Context, event Event) Event {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	if event.CorrelationId == "" {
		if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
			event.CorrelationId = cid
		}
	}
	return event
}
