package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"status-relay/src/broker"
	"status-relay/src/contracts"
	"status-relay/src/logger"
)

// Worker consumes queued status requests and forwards them one at a time.
type Worker struct {
	broker broker.Broker
	relay  *Relay
	topic  string
	group  string
	logger logger.Logger
}

// NewWorker creates a worker reading topic as consumer group group.
func NewWorker(brk broker.Broker, r *Relay, topic, group string, log logger.Logger) *Worker {
	return &Worker{
		broker: brk,
		relay:  r,
		topic:  topic,
		group:  group,
		logger: log,
	}
}

// Run subscribes and then consumes until ctx is cancelled or the broker closes.
func (w *Worker) Run(ctx context.Context) error {
	msgChan, err := w.Subscribe(ctx)
	if err != nil {
		return err
	}
	return w.Consume(ctx, msgChan)
}

// Subscribe joins the consumer group. Requests published after it returns reach
// the channel, so callers that accept work right away subscribe before accepting.
func (w *Worker) Subscribe(ctx context.Context) (<-chan broker.Message, error) {
	w.logger.Info("[Worker] Starting...")

	msgChan, err := w.broker.Subscribe(ctx, w.topic, w.group)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", w.topic, err)
	}

	w.logger.Info("[Worker] Listening for status requests on '%s' topic...", w.topic)
	return msgChan, nil
}

// Consume forwards each request from msgChan in order.
func (w *Worker) Consume(ctx context.Context, msgChan <-chan broker.Message) error {
	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				w.logger.Info("[Worker] Message channel closed, shutting down")
				return nil
			}

			if err := w.process(ctx, msg); err != nil {
				w.logger.Error("[Worker] Error processing request: %v", err)
			}

		case <-ctx.Done():
			w.logger.Info("[Worker] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

func (w *Worker) process(ctx context.Context, msg broker.Message) error {
	var req contracts.StatusRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("failed to unmarshal request at offset %d: %w", msg.Offset, err)
	}

	w.logger.Debug("[Worker] Processing request %s (key %s)", req.RequestID, msg.Key)

	_, err := w.relay.Handle(ctx, req)
	if errors.Is(err, ErrDuplicate) {
		return nil
	}
	return err
}
