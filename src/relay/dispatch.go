package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"status-relay/src/broker"
	"status-relay/src/contracts"
)

// Dispatcher accepts a status request from the webhook handler.
// An error means the request was not accepted; forwarding failures are not reported here.
type Dispatcher interface {
	Dispatch(ctx context.Context, req contracts.StatusRequest) error
}

// DirectDispatcher forwards synchronously inside the webhook request.
type DirectDispatcher struct {
	relay *Relay
}

func NewDirectDispatcher(r *Relay) *DirectDispatcher {
	return &DirectDispatcher{relay: r}
}

// Dispatch runs the relay. Failures are already logged and recorded by the relay.
// The forward completes even if the webhook caller hangs up.
func (d *DirectDispatcher) Dispatch(ctx context.Context, req contracts.StatusRequest) error {
	_, _ = d.relay.Handle(context.WithoutCancel(ctx), req)
	return nil
}

// QueuedDispatcher publishes requests for a Worker to forward.
type QueuedDispatcher struct {
	broker broker.Broker
	topic  string
}

func NewQueuedDispatcher(brk broker.Broker, topic string) *QueuedDispatcher {
	return &QueuedDispatcher{broker: brk, topic: topic}
}

// Dispatch publishes req keyed by repo and commit so one commit's updates stay ordered.
func (d *QueuedDispatcher) Dispatch(ctx context.Context, req contracts.StatusRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	if err := d.broker.Publish(ctx, d.topic, req.PartitionKey(), data); err != nil {
		return fmt.Errorf("failed to publish request %s: %w", req.RequestID, err)
	}
	return nil
}
