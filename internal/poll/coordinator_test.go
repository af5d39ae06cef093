package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/conveyor-cloud/conveyor/internal/event"
	"github.com/conveyor-cloud/conveyor/internal/models"
	"github.com/conveyor-cloud/conveyor/internal/piece"
	"github.com/conveyor-cloud/conveyor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedLastItemRegistration(t *testing.T, db *gorm.DB) *models.TriggerRegistration {
	t.Helper()

	reg := seedRegistration(t, db)
	reg.PollingStrategy = models.PollingStrategyLastItem
	require.NoError(t, db.Save(reg).Error)

	return reg
}

// setupTrackingTrigger counts setup calls and lets a test hook run
// inside OnEnable.
type setupTrackingTrigger struct {
	fakeTrigger
	onEnableCalls int
	onEnableHook  func()
	onEnableErr   error
}

func (f *setupTrackingTrigger) OnEnable(ctx context.Context, cfg piece.TriggerConfig) (string, error) {
	f.onEnableCalls++
	if f.onEnableHook != nil {
		f.onEnableHook()
	}
	return "", f.onEnableErr
}

func newTestCoordinator(t *testing.T, db *gorm.DB, trig piece.PollingTrigger, emitter piece.Emitter) *Coordinator {
	t.Helper()

	registry := piece.NewRegistry()
	require.NoError(t, registry.Register(piece.Static(
		piece.Descriptor{Name: "rss", Version: "0.1.0"},
		map[string]piece.PollingTrigger{"new_item": trig},
	)))

	return New(NewStore(db), registry, emitter, event.New(), Options{
		Interval:          time.Minute,
		Timeout:           5 * time.Second,
		Workers:           2,
		DegradedThreshold: 2,
	})
}

func TestCoordinatorEnableRecordsBaselineWatermark(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	trig := &fakeTrigger{}
	c := newTestCoordinator(t, db, trig, newFakeEmitter())
	reg := seedRegistration(t, db)
	ctx := context.Background()

	before := time.Now().UnixMilli()
	require.NoError(t, c.Enable(ctx, reg.ID))

	got, err := c.store.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, got.Enabled)

	// OnEnable returned no baseline, so the enable time stands in:
	// the first poll must not replay history.
	require.NotEmpty(t, got.Watermark)
	assert.GreaterOrEqual(t, CompareKeys(got.Watermark, EpochMillis(before)), 0)

	status, err := c.Status(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StateEnabled, status.State)
}

func TestCoordinatorEnableBaselinesLastItemFromNewestExisting(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	trig := &fakeTrigger{items: items("item-1", "item-2", "item-3")}
	emitter := newFakeEmitter()
	c := newTestCoordinator(t, db, trig, emitter)
	reg := seedLastItemRegistration(t, db)
	ctx := context.Background()

	require.NoError(t, c.Enable(ctx, reg.ID))

	// The source's existing history is the baseline, not "".
	got, err := c.store.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "item-3", got.Watermark)

	c.mu.Lock()
	rt := c.runtimes[reg.ID]
	c.mu.Unlock()

	// The first poll sees only what the enable already saw and must
	// not hand the backlog to flow execution.
	require.NoError(t, c.poll(ctx, rt))
	assert.Empty(t, emitter.emitted)

	// An item arriving after enable is delivered.
	trig.items = items("item-1", "item-2", "item-3", "item-4")
	require.NoError(t, c.poll(ctx, rt))
	assert.Equal(t, []string{"item-4"}, emitter.emitted)
}

func TestCoordinatorEnableLastItemEmptySource(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	trig := &fakeTrigger{}
	emitter := newFakeEmitter()
	c := newTestCoordinator(t, db, trig, emitter)
	reg := seedLastItemRegistration(t, db)
	ctx := context.Background()

	require.NoError(t, c.Enable(ctx, reg.ID))

	got, err := c.store.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Watermark)

	c.mu.Lock()
	rt := c.runtimes[reg.ID]
	c.mu.Unlock()

	trig.items = items("item-1")
	require.NoError(t, c.poll(ctx, rt))
	assert.Equal(t, []string{"item-1"}, emitter.emitted)
}

func TestCoordinatorEnableIsIdempotent(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	c := newTestCoordinator(t, db, &fakeTrigger{}, newFakeEmitter())
	reg := seedRegistration(t, db)
	ctx := context.Background()

	require.NoError(t, c.Enable(ctx, reg.ID))
	require.NoError(t, c.Enable(ctx, reg.ID))

	assert.Len(t, c.runtimes, 1)
}

func TestCoordinatorEnableRunsSetupOnceUnderContention(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	trig := &setupTrackingTrigger{}
	c := newTestCoordinator(t, db, trig, newFakeEmitter())
	reg := seedRegistration(t, db)
	ctx := context.Background()

	// A second Enable arriving while setup is mid-flight must observe
	// the claimed ENABLING slot and back off instead of running the
	// piece's setup again.
	trig.onEnableHook = func() {
		hook := trig.onEnableHook
		trig.onEnableHook = nil
		defer func() { trig.onEnableHook = hook }()

		status, err := c.Status(ctx, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, StateEnabling, status.State)

		require.NoError(t, c.Enable(ctx, reg.ID))
	}

	require.NoError(t, c.Enable(ctx, reg.ID))

	assert.Equal(t, 1, trig.onEnableCalls)
	assert.Len(t, c.runtimes, 1)
}

func TestCoordinatorEnableRollsBackOnSetupFailure(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	trig := &setupTrackingTrigger{onEnableErr: errors.New("remote subscription refused")}
	c := newTestCoordinator(t, db, trig, newFakeEmitter())
	reg := seedRegistration(t, db)
	ctx := context.Background()

	require.Error(t, c.Enable(ctx, reg.ID))

	status, err := c.Status(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDisabled, status.State)
	assert.False(t, status.Enabled)

	// The failed attempt left no claim behind; a retry runs setup.
	trig.onEnableErr = nil
	require.NoError(t, c.Enable(ctx, reg.ID))
	assert.Equal(t, 2, trig.onEnableCalls)
}

func TestCoordinatorDisablePreservesWatermark(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	trig := &fakeTrigger{items: items("2000", "3000")}
	emitter := newFakeEmitter()
	c := newTestCoordinator(t, db, trig, emitter)
	reg := seedRegistration(t, db)
	ctx := context.Background()

	require.NoError(t, c.Enable(ctx, reg.ID))
	require.NoError(t, c.store.CommitWatermark(ctx, reg.ID, "999999999999999"))
	require.NoError(t, c.Disable(ctx, reg.ID))

	got, err := c.store.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, "999999999999999", got.Watermark)

	status, err := c.Status(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDisabled, status.State)

	// Re-enable must not flood old items.
	require.NoError(t, c.Enable(ctx, reg.ID))
	got, err = c.store.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "999999999999999", got.Watermark)
}

func TestCoordinatorPollSkipsDisabledRegistration(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	trig := &fakeTrigger{items: items("99999999999999")}
	emitter := newFakeEmitter()
	c := newTestCoordinator(t, db, trig, emitter)
	reg := seedRegistration(t, db)
	ctx := context.Background()

	require.NoError(t, c.Enable(ctx, reg.ID))

	c.mu.Lock()
	rt := c.runtimes[reg.ID]
	c.mu.Unlock()

	require.NoError(t, c.store.SetEnabled(ctx, reg.ID, false, ""))
	require.NoError(t, c.poll(ctx, rt))

	assert.Empty(t, emitter.emitted)
}

func TestCoordinatorDegradesAfterConsecutiveFetchFailures(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	trig := &fakeTrigger{err: errors.New("source unreachable")}
	c := newTestCoordinator(t, db, trig, newFakeEmitter())
	reg := seedRegistration(t, db)
	ctx := context.Background()

	require.NoError(t, c.Enable(ctx, reg.ID))

	c.mu.Lock()
	rt := c.runtimes[reg.ID]
	c.mu.Unlock()

	require.Error(t, c.poll(ctx, rt))

	status, err := c.Status(ctx, reg.ID)
	require.NoError(t, err)
	assert.False(t, status.Degraded)
	assert.Equal(t, 1, status.FailureCount)

	require.Error(t, c.poll(ctx, rt))

	status, err = c.Status(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, status.Degraded)
	assert.Equal(t, 2, status.FailureCount)

	// A successful cycle clears the flag.
	trig.err = nil
	c.mu.Lock()
	rt.inflight = true
	rt.state = StatePolling
	c.mu.Unlock()
	c.tick(ctx, rt)

	status, err = c.Status(ctx, reg.ID)
	require.NoError(t, err)
	assert.False(t, status.Degraded)
	assert.Zero(t, status.FailureCount)
}

func TestCoordinatorDispatchSkipsInflightTrigger(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	trig := &fakeTrigger{}
	c := newTestCoordinator(t, db, trig, newFakeEmitter())
	reg := seedRegistration(t, db)
	ctx := context.Background()

	require.NoError(t, c.Enable(ctx, reg.ID))

	c.mu.Lock()
	rt := c.runtimes[reg.ID]
	rt.inflight = true
	rt.nextRun = time.Now().Add(-time.Second)
	c.mu.Unlock()

	pool := newWorkerPool(1)
	c.dispatch(ctx, pool)
	pool.wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	// Still marked in flight by the original poll: the overlapping
	// tick was skipped rather than queued.
	assert.True(t, rt.inflight)
	assert.Equal(t, StateEnabled, rt.state)
}

func TestCoordinatorResumeSchedulesPersistedTriggers(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	c := newTestCoordinator(t, db, &fakeTrigger{}, newFakeEmitter())
	reg := seedRegistration(t, db)
	ctx := context.Background()

	require.NoError(t, c.store.SetEnabled(ctx, reg.ID, true, "1234"))
	require.NoError(t, c.Resume(ctx))

	status, err := c.Status(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StateEnabled, status.State)
	assert.Equal(t, "1234", status.Watermark)
}
