// Package events publishes optional PolicyAI lifecycle notifications
// (policy added, apply completed) over NATS. Publishing has no
// persistence: a subscriber that isn't connected when an event fires
// simply misses it. This is purely an ambient observability channel —
// nothing in the core's apply/merge semantics depends on it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Kind names the lifecycle event being published.
type Kind string

const (
	PolicyAdded Kind = "policy_added"
	Applied     Kind = "applied"
)

// Event is the JSON body published to NATS.
type Event struct {
	Kind    Kind   `json:"kind"`
	Type    string `json:"policy_type"`
	Payload any    `json:"payload"`
}

// Sink is the publishing surface Manager wiring depends on, so callers
// can swap in Noop when EventsConfig.Enabled is false without branching
// at every call site.
type Sink interface {
	PolicyAdded(ctx context.Context, typeName, prompt string) error
	Applied(ctx context.Context, typeName string, matchedRules []int, conflicts int) error
	Close()
}

// Publisher is a Sink backed by a NATS connection.
type Publisher struct {
	conn          *nats.Conn
	subjectPrefix string
}

// Connect dials url and returns a Publisher that prefixes every subject
// with subjectPrefix (e.g. "policyai" -> "policyai.EmailPolicy.applied").
func Connect(url, subjectPrefix string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("policyai"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect to nats: %w", err)
	}
	return &Publisher{conn: conn, subjectPrefix: subjectPrefix}, nil
}

// Close closes the underlying connection.
func (p *Publisher) Close() {
	p.conn.Close()
}

// PolicyAdded publishes a Manager.Add lifecycle event.
func (p *Publisher) PolicyAdded(ctx context.Context, typeName, prompt string) error {
	return p.publish(ctx, typeName, PolicyAdded, map[string]any{"prompt": prompt})
}

// Applied publishes a Manager.Apply outcome summary.
func (p *Publisher) Applied(ctx context.Context, typeName string, matchedRules []int, conflicts int) error {
	return p.publish(ctx, typeName, Applied, map[string]any{
		"matched_rules": matchedRules,
		"conflicts":     conflicts,
	})
}

func (p *Publisher) publish(ctx context.Context, typeName string, kind Kind, payload any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("events: context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(Event{Kind: kind, Type: typeName, Payload: payload})
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}
	subject := p.subjectPrefix + "." + typeName + "." + string(kind)
	return p.conn.Publish(subject, data)
}
