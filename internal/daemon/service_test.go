package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/larder/internal/calendar"
	"git.home.luguber.info/inful/larder/internal/events"
	"git.home.luguber.info/inful/larder/internal/freshness"
	"git.home.luguber.info/inful/larder/internal/ingredient"
	"git.home.luguber.info/inful/larder/internal/stats"
	"git.home.luguber.info/inful/larder/internal/store"
)

var serviceNow = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC) // a Wednesday

func newTestService(t *testing.T, bus *events.Bus) (*Service, store.Store) {
	t.Helper()

	st := store.NewMemoryStore(nil, func() time.Time { return serviceNow })
	svc, err := NewService(ServiceConfig{
		Store:      st,
		Bus:        bus,
		Aggregator: stats.New(freshness.DefaultProfile{}),
		Now:        func() time.Time { return serviceNow },
	})
	require.NoError(t, err)
	return svc, st
}

func testItem(name string, daysUntilExpiry int) *ingredient.Ingredient {
	return ingredient.New(name, "dairy", "fridge", 1, "l",
		serviceNow.AddDate(0, 0, -2), serviceNow.AddDate(0, 0, daysUntilExpiry))
}

func TestService_AddPublishesEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	refreshCh, unsubR := events.Subscribe[events.RefreshRequested](bus, 4)
	defer unsubR()
	changedCh, unsubC := events.Subscribe[events.CollectionChanged](bus, 4)
	defer unsubC()

	svc, _ := newTestService(t, bus)

	added, err := svc.Add(context.Background(), testItem("milk", 10))
	require.NoError(t, err)
	assert.Equal(t, ingredient.StatusFresh, added.Status)

	refresh := <-refreshCh
	assert.Equal(t, "add", refresh.Reason)
	assert.Equal(t, added.ID, refresh.ItemID)

	changed := <-changedCh
	assert.Equal(t, added.ID, changed.ItemID)
}

func TestService_UpdateDoesNotSignalShapeChange(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	changedCh, unsub := events.Subscribe[events.CollectionChanged](bus, 4)
	defer unsub()

	svc, _ := newTestService(t, bus)
	added, err := svc.Add(context.Background(), testItem("milk", 10))
	require.NoError(t, err)
	<-changedCh // add

	added.Quantity = 2
	_, err = svc.Update(context.Background(), added)
	require.NoError(t, err)

	select {
	case evt := <-changedCh:
		t.Fatalf("update should not change collection shape: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

type trackedSpy struct {
	calls [][]*ingredient.Ingredient
}

func (s *trackedSpy) UpdateTracked(items []*ingredient.Ingredient) {
	s.calls = append(s.calls, items)
}

func TestService_MutationsSyncTrackedSet(t *testing.T) {
	svc, _ := newTestService(t, nil)
	spy := &trackedSpy{}
	svc.SetTracked(spy)

	added, err := svc.Add(context.Background(), testItem("milk", 10))
	require.NoError(t, err)
	require.Len(t, spy.calls, 1)
	assert.Len(t, spy.calls[0], 1)

	require.NoError(t, svc.Delete(context.Background(), added.ID))
	require.Len(t, spy.calls, 2)
	assert.Empty(t, spy.calls[1])
}

func TestService_SweepDeletesStaleUsedItems(t *testing.T) {
	// Mutable clock: the item is marked used last week, the sweep runs now.
	current := calendar.WeekStart(serviceNow).Add(-48 * time.Hour)
	clock := func() time.Time { return current }

	st := store.NewMemoryStore(nil, clock)
	svc, err := NewService(ServiceConfig{Store: st, Now: clock})
	require.NoError(t, err)
	ctx := context.Background()

	stale, err := svc.Add(ctx, testItem("old cheese", 30))
	require.NoError(t, err)
	_, err = svc.SetUsed(ctx, stale.ID, true)
	require.NoError(t, err)

	current = serviceNow

	keep, err := svc.Add(ctx, testItem("fresh milk", 10))
	require.NoError(t, err)

	deleted, err := svc.Sweep(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = svc.Get(ctx, stale.ID)
	assert.True(t, store.NotFound(err))
	_, err = svc.Get(ctx, keep.ID)
	assert.NoError(t, err)
}

func TestService_CheckStoredSurfacesOfflineTransitions(t *testing.T) {
	current := serviceNow
	clock := func() time.Time { return current }

	st := store.NewMemoryStore(nil, clock)
	svc, err := NewService(ServiceConfig{Store: st, Now: clock})
	require.NoError(t, err)
	ctx := context.Background()

	added, err := svc.Add(ctx, testItem("milk", 10))
	require.NoError(t, err)
	require.Equal(t, ingredient.StatusFresh, added.Status)

	used, err := svc.Add(ctx, testItem("stock", 10))
	require.NoError(t, err)
	_, err = svc.SetUsed(ctx, used.ID, true)
	require.NoError(t, err)

	// Nine days pass with no daemon running.
	current = serviceNow.AddDate(0, 0, 9)

	changes, err := svc.CheckStored(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, added.ID, changes[0].ItemID)
	assert.Equal(t, ingredient.StatusFresh, changes[0].OldStatus)
	assert.Equal(t, ingredient.StatusNearExpiry, changes[0].NewStatus)

	// The recomputed status was persisted.
	got, err := svc.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, ingredient.StatusNearExpiry, got.Status)

	// The used item keeps its override.
	gotUsed, err := svc.Get(ctx, used.ID)
	require.NoError(t, err)
	assert.Equal(t, ingredient.StatusUsed, gotUsed.Status)

	// A second pass is quiet.
	changes, err = svc.CheckStored(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestService_StatsCacheRefresh(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, testItem("milk", 10))
	require.NoError(t, err)
	_, err = svc.Add(ctx, testItem("yoghurt", -1))
	require.NoError(t, err)

	require.NoError(t, svc.RefreshStats(ctx))

	summary, err := svc.Stats(ctx, calendar.TimeframeAll)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Fresh)
	assert.Equal(t, 1, summary.Expired)
	assert.InDelta(t, 50.0, summary.FreshnessScore, 0.01)
	assert.InDelta(t, 50.0, summary.WastePercentage, 0.01)
}

func TestService_StatsColdCacheComputesDirectly(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, testItem("milk", 10))
	require.NoError(t, err)

	summary, err := svc.Stats(ctx, calendar.TimeframeWeek)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
}

func TestService_Trend(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, testItem("milk", 10))
	require.NoError(t, err)

	points, err := svc.Trend(ctx, calendar.TimeframeWeek)
	require.NoError(t, err)
	assert.Len(t, points, stats.TrendPoints)
	// Only the current window contains the item.
	assert.Equal(t, 1, points[len(points)-1].Items)
	assert.Zero(t, points[0].Items)
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	assert.Error(t, err)
}
