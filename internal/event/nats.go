// Package event publishes catalog lifecycle and engagement events to NATS
// JetStream. When no NATS URL is configured the publisher degrades to a noop
// so the API keeps serving without a broker.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	streamName    = "CATALOG"
	subjectPrefix = "catalog."
	dedupWindow   = 2 * time.Minute
)

// Event is the wire shape published to JetStream.
type Event struct {
	Type       string    `json:"type"`
	Entity     string    `json:"entity"`
	EntityID   string    `json:"entityId"`
	Action     string    `json:"action,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher emits catalog events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Created(ctx context.Context, entity, id string)
	Engagement(ctx context.Context, entity, id, action string)
	Close()
}

// NewPublisher connects to NATS and ensures the catalog stream exists. An
// empty URL returns a noop publisher.
func NewPublisher(url string, logger *slog.Logger) (Publisher, error) {
	if url == "" {
		logger.Info("nats disabled, events will not be published")
		return noopPublisher{}, nil
	}

	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:       streamName,
		Subjects:   []string{subjectPrefix + ">"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: dedupWindow,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return &natsPublisher{nc: nc, js: js, logger: logger}, nil
}

type natsPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *slog.Logger
}

func (p *natsPublisher) Created(ctx context.Context, entity, id string) {
	p.publish(ctx, Event{
		Type:       "created",
		Entity:     entity,
		EntityID:   id,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *natsPublisher) Engagement(ctx context.Context, entity, id, action string) {
	p.publish(ctx, Event{
		Type:       "engagement",
		Entity:     entity,
		EntityID:   id,
		Action:     action,
		OccurredAt: time.Now().UTC(),
	})
}

// publish is best effort: a broker outage must not fail the request that
// triggered the event.
func (p *natsPublisher) publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshal event", "error", err, "entity", ev.Entity)
		return
	}

	subject := subjectPrefix + ev.Entity + "." + ev.Type
	msgID := ev.Entity + ":" + ev.EntityID + ":" + ev.Type
	if ev.Action != "" {
		msgID += ":" + ev.Action + ":" + ev.OccurredAt.Format(time.RFC3339)
	}

	_, err = p.js.Publish(subject, payload, nats.MsgId(msgID), nats.Context(ctx))
	if err != nil {
		p.logger.Warn("publish event failed", "error", err, "subject", subject)
	}
}

func (p *natsPublisher) Close() {
	p.nc.Drain()
}

type noopPublisher struct{}

func (noopPublisher) Created(context.Context, string, string)            {}
func (noopPublisher) Engagement(context.Context, string, string, string) {}
func (noopPublisher) Close()                                             {}
