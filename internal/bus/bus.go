// Package bus carries envelopes between execution contexts. Delivery is
// one-way and fire-and-forget: publishers never learn whether anyone
// consumed a message, and no ordering holds between a publish and work
// proceeding concurrently in another context. Two transports exist: an
// in-process bus for single-process deployments and a WebSocket hub for
// contexts running as separate processes.
package bus

import (
	"context"

	"github.com/errorterry/algotrack-agent/internal/messages"
)

// Topic names, one per message flow. The two sample topics are the
// redundant parallel channels: the bridge publishes identical payloads on
// both so a consumer needs only one to function.
const (
	TopicSubmissions    = "submissions"     // content → background
	TopicSamplesEvent   = "samples.event"   // bridge → consumers (document event channel)
	TopicSamplesMessage = "samples.message" // bridge → consumers (cross-world message channel)
	TopicRunResults     = "run.results"     // panel → page
	TopicControl        = "control"         // resend requests, login bridge
)

// Handler consumes one delivered envelope. Handlers for one subscriber run
// sequentially and to completion, in delivery order.
type Handler func(ctx context.Context, env messages.Envelope)

// Bus publishes envelopes to topics and fans them out to subscribers.
type Bus interface {
	// Publish delivers env to every current subscriber of topic.
	// Best-effort: a slow subscriber may drop messages rather than block
	// the publisher.
	Publish(ctx context.Context, topic string, env messages.Envelope) error
	// Subscribe registers h for topic. The returned cancel function stops
	// delivery and releases the subscription.
	Subscribe(topic string, h Handler) (cancel func())
	// Close shuts the transport down.
	Close() error
}
