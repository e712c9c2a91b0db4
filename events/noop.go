package events

import "context"

// Noop is a Sink that discards every event. Manager wiring uses it when
// EventsConfig.Enabled is false, so the apply/generation paths never
// need to branch on whether publishing is turned on.
type Noop struct{}

func (Noop) PolicyAdded(ctx context.Context, typeName, prompt string) error { return nil }

func (Noop) Applied(ctx context.Context, typeName string, matchedRules []int, conflicts int) error {
	return nil
}

func (Noop) Close() {}
