// Package pipeline assembles the relay components for the configured mode.
// It is shared by the serve and worker commands.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"status-relay/src/broker"
	"status-relay/src/config"
	"status-relay/src/credentials"
	"status-relay/src/gitlab"
	"status-relay/src/logger"
	"status-relay/src/relay"
	"status-relay/src/store"
)

// Mode selects how webhooks reach the forwarder.
type Mode int

const (
	// DirectMode forwards inside the webhook request.
	DirectMode Mode = iota
	// LocalQueueMode queues on the in-memory broker with an in-process worker.
	LocalQueueMode
	// DistributedMode queues on Redpanda; 'relay worker' forwards.
	DistributedMode
)

func (m Mode) String() string {
	switch m {
	case LocalQueueMode:
		return "queued (in-memory)"
	case DistributedMode:
		return "queued (redpanda)"
	default:
		return "direct"
	}
}

// DetectMode picks the mode from RELAY_MODE and REDPANDA_BROKERS.
func DetectMode(cfg *config.Config) Mode {
	if cfg.Mode != config.ModeQueued {
		return DirectMode
	}
	if cfg.Distributed() {
		return DistributedMode
	}
	return LocalQueueMode
}

// Backoff bounds for outbound retries; only used when FORWARD_RETRY_MAX > 0.
const (
	retryWaitMin = 500 * time.Millisecond
	retryWaitMax = 10 * time.Second
)

// NewClient builds the outbound client from the forwarding settings.
func NewClient(cfg *config.Config) *gitlab.Client {
	return gitlab.NewClient(cfg.RESTAPI, gitlab.Options{
		Timeout:      cfg.ForwardTimeout,
		RetryMax:     cfg.ForwardRetryMax,
		RetryWaitMin: retryWaitMin,
		RetryWaitMax: retryWaitMax,
	})
}

// NewResolver builds the credential resolver from TOKEN and the alias settings.
func NewResolver(cfg *config.Config) *credentials.Resolver {
	return credentials.NewResolver(cfg.Token, cfg.Aliases())
}

// OpenStore returns the Postgres delivery log when DATABASE_URL is set,
// otherwise an in-memory log local to this process.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("[Pipeline] Delivery log: in memory (set DATABASE_URL to persist)")
		return store.NewMemoryStore(store.DefaultMemoryCapacity), nil
	}

	st, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Postgres store: %w", err)
	}
	log.Info("[Pipeline] Delivery log: Postgres")
	return st, nil
}

// Pipeline holds the components of one relay process.
type Pipeline struct {
	mode       Mode
	cfg        *config.Config
	store      store.Store
	broker     broker.Broker
	relay      *relay.Relay
	dispatcher relay.Dispatcher
	logger     logger.Logger
}

// New opens the delivery log and, in queued modes, the broker.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Pipeline, error) {
	return NewWithClient(ctx, cfg, NewClient(cfg), log)
}

// NewWithClient is New with an explicit forwarder.
func NewWithClient(ctx context.Context, cfg *config.Config, fwd relay.Forwarder, log logger.Logger) (*Pipeline, error) {
	st, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		mode:   DetectMode(cfg),
		cfg:    cfg,
		store:  st,
		relay:  relay.New(fwd, NewResolver(cfg), st, relay.NewDeduper(cfg.DedupeTTL), log),
		logger: log,
	}

	switch p.mode {
	case DirectMode:
		p.dispatcher = relay.NewDirectDispatcher(p.relay)
	case LocalQueueMode:
		p.broker = broker.NewInMemoryBroker()
		p.dispatcher = relay.NewQueuedDispatcher(p.broker, cfg.Topic)
	case DistributedMode:
		brk, err := broker.NewRedpandaBroker(cfg.Brokers, log)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to create Redpanda broker: %w", err)
		}
		p.broker = brk
		p.dispatcher = relay.NewQueuedDispatcher(p.broker, cfg.Topic)
	}

	log.Info("[Pipeline] Mode: %s", p.mode)
	return p, nil
}

func (p *Pipeline) Mode() Mode                   { return p.mode }
func (p *Pipeline) Store() store.Store           { return p.store }
func (p *Pipeline) Relay() *relay.Relay          { return p.relay }
func (p *Pipeline) Dispatcher() relay.Dispatcher { return p.dispatcher }

// Worker returns a queue consumer, or nil in direct mode.
func (p *Pipeline) Worker() *relay.Worker {
	if p.broker == nil {
		return nil
	}
	return relay.NewWorker(p.broker, p.relay, p.cfg.Topic, p.cfg.ConsumerGroup, p.logger)
}

// Start runs the in-process worker in LocalQueueMode and is a no-op otherwise.
// The worker is subscribed before Start returns, so nothing dispatched afterwards is lost.
// The returned channel receives the worker's exit error and is never written in other modes.
func (p *Pipeline) Start(ctx context.Context) (<-chan error, error) {
	done := make(chan error, 1)
	if p.mode != LocalQueueMode {
		return done, nil
	}

	worker := p.Worker()
	msgChan, err := worker.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	go func() {
		err := worker.Consume(ctx, msgChan)
		if err != nil && !errors.Is(err, context.Canceled) {
			// Error logging always goes to stderr even with a silent logger
			fmt.Fprintf(os.Stderr, "[Pipeline] Worker error: %v\n", err)
		}
		done <- err
	}()
	return done, nil
}

// Close releases the broker and the delivery log.
func (p *Pipeline) Close() error {
	var errs []error
	if p.broker != nil {
		errs = append(errs, p.broker.Close())
	}
	errs = append(errs, p.store.Close())
	return errors.Join(errs...)
}
