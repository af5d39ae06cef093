package poll

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/conveyor-cloud/conveyor/internal/event"
	"github.com/conveyor-cloud/conveyor/internal/metrics"
	"github.com/conveyor-cloud/conveyor/internal/models"
	"github.com/conveyor-cloud/conveyor/internal/piece"
	"github.com/conveyor-cloud/conveyor/pkg/log"
)

// State is the lifecycle state of one trigger's polling loop.
type State string

const (
	StateDisabled  State = "DISABLED"
	StateEnabling  State = "ENABLING"
	StateEnabled   State = "ENABLED"
	StatePolling   State = "POLLING"
	StateDisabling State = "DISABLING"
)

// Options configure the coordinator's scheduling behavior.
type Options struct {
	// Interval is the default poll cadence for triggers without a
	// schedule expression in their settings.
	Interval time.Duration

	// Timeout bounds one poll cycle end to end. A cycle that exceeds
	// it is aborted without a watermark advance and retried on the
	// next tick.
	Timeout time.Duration

	// Workers caps concurrent poll cycles across distinct triggers.
	Workers int

	// DegradedThreshold is the consecutive fetch failure count after
	// which a trigger is flagged degraded.
	DegradedThreshold int
}

// Coordinator schedules poll cycles for every enabled trigger
// registration, serializing cycles per trigger and running distinct
// triggers in parallel on a bounded worker pool.
type Coordinator struct {
	store    Store
	registry *piece.Registry
	emitter  piece.Emitter
	bus      event.Bus
	opts     Options

	mu       sync.Mutex
	runtimes map[string]*runtime
}

type runtime struct {
	id        string
	pieceName string
	flowID    string
	trigName  string
	settings  json.RawMessage
	schedule  *Schedule

	state    State
	nextRun  time.Time
	inflight bool
	degraded bool
	backoff  *backoff.ExponentialBackOff
}

// New builds a coordinator. All collaborators are injected; the
// coordinator owns no global state.
func New(store Store, registry *piece.Registry, emitter piece.Emitter, bus event.Bus, opts Options) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.DegradedThreshold <= 0 {
		opts.DegradedThreshold = 5
	}

	return &Coordinator{
		store:    store,
		registry: registry,
		emitter:  emitter,
		bus:      bus,
		opts:     opts,
		runtimes: make(map[string]*runtime),
	}
}

// Enable transitions a registration DISABLED -> ENABLING -> ENABLED:
// it runs the piece's one-time setup, records the initial watermark
// so the first poll does not replay history, persists the enabled
// flag, and schedules the first tick.
func (c *Coordinator) Enable(ctx context.Context, id string) error {
	reg, err := c.store.Get(ctx, id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if rt, ok := c.runtimes[id]; ok && rt.state != StateDisabled {
		c.mu.Unlock()
		return nil
	}
	// Claim the slot before running setup so a concurrent Enable for
	// the same id observes ENABLING and backs off instead of running
	// the piece's setup twice.
	c.runtimes[id] = &runtime{id: id, state: StateEnabling}
	c.mu.Unlock()
	metrics.TriggersEnabled.Inc()

	rollback := func() {
		c.mu.Lock()
		delete(c.runtimes, id)
		c.mu.Unlock()
		metrics.TriggersEnabled.Dec()
	}

	trig, err := c.registry.Trigger(reg.PieceName, reg.TriggerName)
	if err != nil {
		rollback()
		return err
	}

	sched, err := ParseSchedule(json.RawMessage(reg.Settings), c.opts.Interval)
	if err != nil {
		rollback()
		return err
	}

	log.Info("enabling trigger", "trigger_id", id, "piece", reg.PieceName)

	initial, err := trig.OnEnable(ctx, triggerConfig(reg))
	if err != nil {
		rollback()
		return err
	}

	if initial == "" && reg.Watermark == "" {
		initial, err = c.baseline(ctx, trig, reg)
		if err != nil {
			rollback()
			return err
		}
	}

	if err := c.store.SetEnabled(ctx, id, true, initial); err != nil {
		rollback()
		return err
	}

	rt := &runtime{
		id:        id,
		pieceName: reg.PieceName,
		flowID:    reg.FlowID,
		trigName:  reg.TriggerName,
		settings:  json.RawMessage(reg.Settings),
		schedule:  sched,
		state:     StateEnabled,
		nextRun:   sched.Next(time.Now()),
		backoff:   newFailureBackoff(c.opts.Interval),
	}

	c.mu.Lock()
	c.runtimes[id] = rt
	c.mu.Unlock()

	c.bus.Publish(event.Event{
		Type:      event.TypeTriggerEnabled,
		TriggerID: id,
		PieceName: reg.PieceName,
	})

	return nil
}

// baseline derives the starting watermark for a registration whose
// piece reported none and which has no persisted history, so the
// first poll does not replay everything the source already holds.
// Time-based triggers start at the enable time; last-item triggers
// fetch once and start past the newest existing item.
func (c *Coordinator) baseline(ctx context.Context, trig piece.PollingTrigger, reg *models.TriggerRegistration) (string, error) {
	if reg.PollingStrategy != models.PollingStrategyLastItem {
		return EpochMillis(time.Now().UnixMilli()), nil
	}

	items, err := trig.Poll(ctx, triggerConfig(reg), "")
	if err != nil {
		return "", &FetchError{TriggerID: reg.ID, Err: err}
	}

	var newest string
	for _, item := range items {
		newest = MaxKey(newest, item.Key)
	}

	// An empty source has no history to skip.
	return newest, nil
}

// Disable transitions ENABLED -> DISABLING -> DISABLED. An in-flight
// poll is allowed to finish and commit its watermark; only future
// ticks are suppressed. The watermark is preserved so a re-enable
// does not replay already-delivered items.
func (c *Coordinator) Disable(ctx context.Context, id string) error {
	reg, err := c.store.Get(ctx, id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	rt, known := c.runtimes[id]
	if known {
		rt.state = StateDisabling
	}
	c.mu.Unlock()

	if err := c.store.SetEnabled(ctx, id, false, ""); err != nil {
		return err
	}

	if trig, terr := c.registry.Trigger(reg.PieceName, reg.TriggerName); terr == nil {
		if derr := trig.OnDisable(ctx, triggerConfig(reg)); derr != nil {
			log.Warn("trigger teardown failed", "trigger_id", id, "error", derr)
		}
	}

	c.mu.Lock()
	if _, ok := c.runtimes[id]; ok {
		delete(c.runtimes, id)
		metrics.TriggersEnabled.Dec()
	}
	c.mu.Unlock()

	log.Info("trigger disabled", "trigger_id", id, "piece", reg.PieceName)
	c.bus.Publish(event.Event{
		Type:      event.TypeTriggerDisabled,
		TriggerID: id,
		PieceName: reg.PieceName,
	})

	return nil
}

// Resume loads every registration persisted as enabled and schedules
// it, used at daemon startup. Watermarks carry over, so nothing
// delivered before the restart is re-emitted.
func (c *Coordinator) Resume(ctx context.Context) error {
	regs, err := c.store.Enabled(ctx)
	if err != nil {
		return err
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, reg := range regs {
		if _, ok := c.runtimes[reg.ID]; ok {
			continue
		}

		sched, err := ParseSchedule(json.RawMessage(reg.Settings), c.opts.Interval)
		if err != nil {
			log.Error("skipping trigger with invalid schedule", "trigger_id", reg.ID, "error", err)
			continue
		}

		c.runtimes[reg.ID] = &runtime{
			id:        reg.ID,
			pieceName: reg.PieceName,
			flowID:    reg.FlowID,
			trigName:  reg.TriggerName,
			settings:  json.RawMessage(reg.Settings),
			schedule:  sched,
			state:     StateEnabled,
			nextRun:   sched.Next(now),
			backoff:   newFailureBackoff(c.opts.Interval),
		}
		metrics.TriggersEnabled.Inc()
	}

	log.Info("resumed enabled triggers", "count", len(regs))

	return nil
}

// Start runs the scheduling loop until ctx is cancelled, then drains
// in-flight polls.
func (c *Coordinator) Start(ctx context.Context) error {
	pool := newWorkerPool(c.opts.Workers)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.dispatch(ctx, pool)
		case <-ctx.Done():
			pool.wait()
			return nil
		}
	}
}

// Status reports one trigger's live scheduling state alongside its
// durable record.
type Status struct {
	TriggerID    string `json:"trigger_id"`
	State        State  `json:"state"`
	Watermark    string `json:"watermark"`
	FailureCount int    `json:"failure_count"`
	Degraded     bool   `json:"degraded"`
	Enabled      bool   `json:"enabled"`
}

func (c *Coordinator) Status(ctx context.Context, id string) (*Status, error) {
	reg, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	st := &Status{
		TriggerID:    id,
		State:        StateDisabled,
		Watermark:    reg.Watermark,
		FailureCount: reg.FailureCount,
		Enabled:      reg.Enabled,
	}

	c.mu.Lock()
	if rt, ok := c.runtimes[id]; ok {
		st.State = rt.state
		st.Degraded = rt.degraded
	}
	c.mu.Unlock()

	return st, nil
}

func (c *Coordinator) dispatch(ctx context.Context, pool *workerPool) {
	now := time.Now()

	c.mu.Lock()
	due := make([]*runtime, 0)
	for _, rt := range c.runtimes {
		// A tick that finds the previous poll still running is
		// skipped, never run concurrently: the watermark's
		// read-modify-write must stay single-writer per trigger.
		if rt.state != StateEnabled || rt.inflight || now.Before(rt.nextRun) {
			continue
		}
		rt.inflight = true
		rt.state = StatePolling
		due = append(due, rt)
	}
	c.mu.Unlock()

	for _, rt := range due {
		rt := rt
		if err := pool.submit(ctx, func() { c.tick(ctx, rt) }); err != nil {
			c.mu.Lock()
			rt.inflight = false
			if rt.state == StatePolling {
				rt.state = StateEnabled
			}
			c.mu.Unlock()
			return
		}
	}
}

func (c *Coordinator) tick(ctx context.Context, rt *runtime) {
	defer func() {
		c.mu.Lock()
		rt.inflight = false
		if rt.state == StatePolling {
			rt.state = StateEnabled
		}
		c.mu.Unlock()
	}()

	err := c.poll(ctx, rt)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		rt.backoff.Reset()
		if rt.degraded {
			rt.degraded = false
			metrics.TriggersDegraded.WithLabelValues(rt.id, rt.pieceName).Set(0)
		}
		rt.nextRun = rt.schedule.Next(time.Now())
		return
	}

	// Failed cycles back off exponentially instead of hammering a
	// struggling source at full cadence.
	rt.nextRun = time.Now().Add(rt.backoff.NextBackOff())
}

func (c *Coordinator) poll(ctx context.Context, rt *runtime) error {
	reg, err := c.store.Get(ctx, rt.id)
	if err != nil {
		return err
	}
	if !reg.Enabled {
		return nil
	}

	trig, err := c.registry.Trigger(rt.pieceName, rt.trigName)
	if err != nil {
		return err
	}

	pollCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	start := time.Now()
	res, err := RunBatch(pollCtx, c.store, trig, c.emitter, triggerConfig(reg), reg.Watermark)
	metrics.PollDurationSeconds.WithLabelValues(rt.id, rt.pieceName).Observe(time.Since(start).Seconds())

	if res.Emitted > 0 {
		metrics.ItemsEmittedTotal.WithLabelValues(rt.id, rt.pieceName).Add(float64(res.Emitted))
	}

	if err == nil {
		if reg.FailureCount > 0 && res.Emitted == 0 {
			// Nothing committed, so the streak was not reset there.
			if cerr := c.store.ClearFailures(ctx, rt.id); cerr != nil {
				log.Error("failure count reset failed", "trigger_id", rt.id, "error", cerr)
			}
		}
		metrics.PollsTotal.WithLabelValues(rt.id, rt.pieceName, "success").Inc()
		c.bus.Publish(event.Event{
			Type:      event.TypePollSucceeded,
			TriggerID: rt.id,
			PieceName: rt.pieceName,
		})
		return nil
	}

	metrics.PollsTotal.WithLabelValues(rt.id, rt.pieceName, "failure").Inc()
	log.Error("poll cycle failed", "trigger_id", rt.id, "piece", rt.pieceName, "error", err)
	c.bus.Publish(event.Event{
		Type:      event.TypePollFailed,
		TriggerID: rt.id,
		PieceName: rt.pieceName,
	})

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		metrics.FetchFailuresTotal.WithLabelValues(rt.id, rt.pieceName).Inc()

		count, rerr := c.store.RecordFailure(ctx, rt.id)

		c.mu.Lock()
		alreadyDegraded := rt.degraded
		if rerr == nil && count >= c.opts.DegradedThreshold {
			rt.degraded = true
		}
		c.mu.Unlock()

		if rerr != nil {
			log.Error("failure count update failed", "trigger_id", rt.id, "error", rerr)
		} else if count >= c.opts.DegradedThreshold && !alreadyDegraded {
			metrics.TriggersDegraded.WithLabelValues(rt.id, rt.pieceName).Set(1)
			log.Warn("trigger degraded",
				"trigger_id", rt.id,
				"piece", rt.pieceName,
				"consecutive_failures", count,
			)
			c.bus.Publish(event.Event{
				Type:      event.TypeTriggerDegraded,
				TriggerID: rt.id,
				PieceName: rt.pieceName,
			})
		}
	}

	return err
}

func triggerConfig(reg *models.TriggerRegistration) piece.TriggerConfig {
	return piece.TriggerConfig{
		TriggerID:   reg.ID,
		FlowID:      reg.FlowID,
		TriggerName: reg.TriggerName,
		Settings:    json.RawMessage(reg.Settings),
	}
}

func newFailureBackoff(interval time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = 10 * interval
	b.MaxElapsedTime = 0
	return b
}
