package flow

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/spa-line-booking/internal/conversation"
	"github.com/wolfman30/spa-line-booking/internal/events"
	"github.com/wolfman30/spa-line-booking/internal/observability/metrics"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

// Handler applies a single event.
type Handler interface {
	Handle(ctx context.Context, ev Event) (Result, error)
}

// DedupStore records webhook event ids. Ids are recorded only after the event
// was handled successfully, so a redelivery of a failed event runs again.
type DedupStore interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// Summary counts what happened to a dispatched batch.
type Summary struct {
	Handled int
	Failed  int
	Skipped int
}

type DispatcherOption func(*Dispatcher)

// WithConcurrency caps how many users are processed at once.
func WithConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

func WithDedup(store DedupStore) DispatcherOption {
	return func(d *Dispatcher) {
		d.dedup = store
	}
}

func WithDispatchMetrics(fm *metrics.FlowMetrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = fm
	}
}

// Dispatcher fans a webhook batch out to the Handler. Each user's events run
// in delivery order on one lane; different users run concurrently. Every event
// also runs under the user's lock so overlapping batches stay serialized.
type Dispatcher struct {
	handler     Handler
	locker      conversation.Locker
	dedup       DedupStore
	metrics     *metrics.FlowMetrics
	logger      *logging.Logger
	concurrency int
}

func NewDispatcher(handler Handler, locker conversation.Locker, logger *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if handler == nil {
		panic("flow: dispatcher handler required")
	}
	if locker == nil {
		locker = conversation.NewKeyedMutex()
	}
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{
		handler:     handler,
		locker:      locker,
		logger:      logger,
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type outcome int

const (
	outcomeHandled outcome = iota
	outcomeFailed
	outcomeSkipped
)

// Dispatch processes the batch and blocks until every event is done. A failing
// event is logged and never stops the rest of the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, batch []Event) Summary {
	lanes := groupByUser(batch)
	results := make([][]outcome, len(lanes))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, lane := range lanes {
		results[i] = make([]outcome, 0, len(lane))
		g.Go(func() error {
			for _, ev := range lane {
				results[i] = append(results[i], d.process(ctx, ev))
			}
			return nil
		})
	}
	_ = g.Wait()

	var sum Summary
	for _, lane := range results {
		for _, o := range lane {
			switch o {
			case outcomeHandled:
				sum.Handled++
			case outcomeFailed:
				sum.Failed++
			case outcomeSkipped:
				sum.Skipped++
			}
		}
	}
	return sum
}

func (d *Dispatcher) process(ctx context.Context, ev Event) (o outcome) {
	log := d.logger.With("line_user_id", ev.UserID, "event_kind", ev.Kind, "webhook_event_id", ev.ID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic handling line event", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			o = outcomeFailed
		}
		d.metrics.ObserveEvent(string(ev.Kind), o.String())
	}()

	if ev.UserID == "" {
		log.Debug("skipping line event without user source")
		return outcomeSkipped
	}

	unlock, err := d.locker.Lock(ctx, ev.UserID)
	if err != nil {
		log.Error("failed to lock conversation", "error", err)
		return outcomeFailed
	}
	defer unlock()

	dedup := d.dedup != nil && ev.ID != ""
	if dedup {
		seen, err := d.dedup.AlreadyProcessed(ctx, events.ProviderLINE, ev.ID)
		if err != nil {
			log.Warn("dedup check failed, processing anyway", "error", err)
		} else if seen {
			log.Info("skipping duplicate line event", "redelivery", ev.Redelivery)
			return outcomeSkipped
		}
	}

	res, err := d.handler.Handle(ctx, ev)
	if err != nil {
		log.Error("failed to handle line event", "error", err, "from", res.From, "intent", res.Intent.String())
		return outcomeFailed
	}
	if dedup {
		if _, err := d.dedup.MarkProcessed(ctx, events.ProviderLINE, ev.ID); err != nil {
			log.Warn("failed to record processed line event", "error", err)
		}
	}
	return outcomeHandled
}

func (o outcome) String() string {
	switch o {
	case outcomeFailed:
		return "failed"
	case outcomeSkipped:
		return "skipped"
	default:
		return "handled"
	}
}

// groupByUser splits the batch into per-user lanes in first-seen order,
// keeping delivery order inside each lane.
func groupByUser(batch []Event) [][]Event {
	index := make(map[string]int)
	var lanes [][]Event
	for _, ev := range batch {
		i, ok := index[ev.UserID]
		if !ok {
			i = len(lanes)
			index[ev.UserID] = i
			lanes = append(lanes, nil)
		}
		lanes[i] = append(lanes[i], ev)
	}
	return lanes
}
