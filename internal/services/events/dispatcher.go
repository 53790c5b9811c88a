// Package events fans out domain events to registered sinks. Dispatch is
// fire-and-forget: a slow or failing sink never blocks a ledger commit.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ledgerpay/internal/logging"
	"ledgerpay/internal/models"
)

const sinkTimeout = 5 * time.Second

// Sink receives dispatched events.
type Sink interface {
	Deliver(ctx context.Context, event models.Event) error
}

type Dispatcher struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger *logging.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(logger *logging.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) AddSink(sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, sink)
}

// Emit delivers the event to every sink on its own goroutine.
func (d *Dispatcher) Emit(event models.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	d.mu.RLock()
	sinks := make([]Sink, len(d.sinks))
	copy(sinks, d.sinks)
	d.mu.RUnlock()

	for _, sink := range sinks {
		d.wg.Add(1)
		go func(s Sink) {
			defer d.wg.Done()
			defer func() {
				if r := recover(); r != nil && d.logger != nil {
					d.logger.Field("event", event.Name).Errorf("event sink panicked: %v", r)
				}
			}()

			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			defer cancel()
			if err := s.Deliver(ctx, event); err != nil && d.logger != nil {
				d.logger.Field("event", event.Name).Warnf("event delivery failed: %v", err)
			}
		}(sink)
	}
}

// Wait blocks until all in-flight deliveries finish. Used on shutdown and
// in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// LogSink writes every event to the application log.
type LogSink struct {
	Logger *logging.Logger
}

func (s *LogSink) Deliver(_ context.Context, event models.Event) error {
	s.Logger.WithField("event", event.Name).
		WithField("transaction_id", event.TransactionID).
		WithField("user_id", event.UserID).
		WithField("amount", event.Amount.String()).
		Info("domain event")
	return nil
}

// RedisSink publishes events as JSON on a Redis channel so other services
// can subscribe to settlement outcomes.
type RedisSink struct {
	Client  *redis.Client
	Channel string
}

func (s *RedisSink) Deliver(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.Client.Publish(ctx, s.Channel, payload).Err()
}
