// Package notifications fans match and message events out to sinks in the
// background. Writers only enqueue, so a slow or failing sink never delays
// or fails the operation that produced the event.
package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relun/backend/internal/domain/model"
)

const (
	defaultWorkers         = 2
	defaultQueueSize       = 256
	defaultDeliveryTimeout = 5 * time.Second
)

type Sink interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}

type Config struct {
	Workers         int
	QueueSize       int
	DeliveryTimeout time.Duration
}

type Dispatcher struct {
	sinks  []Sink
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

func NewDispatcher(cfg Config, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		sinks:  sinks,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		queue:  make(chan Event, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) OnMatchCreated(m model.Match) {
	match := m
	d.enqueue(Event{
		Type:       EventMatchCreated,
		MatchID:    m.ID,
		Recipients: []model.UserID{m.UserA, m.UserB},
		Match:      &match,
		OccurredAt: d.now().UTC(),
	})
}

func (d *Dispatcher) OnMessageAppended(msg model.Message, recipient model.UserID) {
	message := msg
	d.enqueue(Event{
		Type:       EventMessageAppended,
		MatchID:    msg.MatchID,
		Recipients: []model.UserID{recipient},
		Message:    &message,
		OccurredAt: d.now().UTC(),
	})
}

// Close stops accepting events and waits for queued ones to be delivered
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) enqueue(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("notification dropped after shutdown",
			zap.String("type", string(event.Type)),
			zap.String("match_id", event.MatchID),
		)
		return
	}

	select {
	case d.queue <- event:
	default:
		d.logger.Warn("notification queue full, event dropped",
			zap.String("type", string(event.Type)),
			zap.String("match_id", event.MatchID),
		)
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.DeliveryTimeout)
		err := d.safeDeliver(ctx, sink, event)
		cancel()
		if err != nil {
			d.logger.Warn("notification delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("type", string(event.Type)),
				zap.String("match_id", event.MatchID),
				zap.Error(err),
			)
		}
	}
}

func (d *Dispatcher) safeDeliver(ctx context.Context, sink Sink, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	return sink.Deliver(ctx, event)
}
