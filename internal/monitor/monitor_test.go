package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/larder/internal/ingredient"
)

var baseTime = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func expiringIn(days int) time.Time {
	return time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}

type fakeSource struct {
	mu    sync.Mutex
	items []*ingredient.Ingredient
	err   error
}

func (f *fakeSource) List(context.Context) ([]*ingredient.Ingredient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*ingredient.Ingredient, len(f.items))
	for i, it := range f.items {
		out[i] = it.Clone()
	}
	return out, nil
}

func (f *fakeSource) set(items ...*ingredient.Ingredient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []StatusChangeEvent
	err    error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, evt StatusChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeDispatcher) dispatched() []StatusChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StatusChangeEvent(nil), f.events...)
}

func testItem(id string, expiry time.Time) *ingredient.Ingredient {
	return &ingredient.Ingredient{ID: id, Name: "item-" + id, ExpirationDate: expiry}
}

func newTestMonitor(t *testing.T, source *fakeSource, dispatcher *fakeDispatcher) *Monitor {
	t.Helper()
	m, err := New(source, dispatcher, nil, nil, Config{
		Alerts: AlertClasses{NearExpiry: true, Expired: true},
		Now:    func() time.Time { return baseTime },
	})
	require.NoError(t, err)
	return m
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ChangeFreshToNearExpiry, Classify(ingredient.StatusFresh, ingredient.StatusNearExpiry))
	assert.Equal(t, ChangeNearExpiryToExpired, Classify(ingredient.StatusNearExpiry, ingredient.StatusExpired))
	assert.Equal(t, ChangeExpiredToFresh, Classify(ingredient.StatusExpired, ingredient.StatusFresh))
	assert.Equal(t, ChangeOther, Classify(ingredient.StatusFresh, ingredient.StatusExpired))
	assert.Equal(t, ChangeType(""), Classify(ingredient.StatusFresh, ingredient.StatusFresh))
}

func TestMonitor_RequiresSource(t *testing.T) {
	_, err := New(nil, nil, nil, nil, Config{})
	assert.Error(t, err)
}

func TestMonitor_FreshToNearExpiry_ExactlyOnce(t *testing.T) {
	item := testItem("a1", expiringIn(10)) // fresh
	source := &fakeSource{}
	source.set(item)
	dispatcher := &fakeDispatcher{}
	m := newTestMonitor(t, source, dispatcher)

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, 1, m.Tracked())

	// Expiration edited so the item is now inside the near-expiry window.
	edited := item.Clone()
	edited.ExpirationDate = expiringIn(2)
	source.set(edited)

	events, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ChangeFreshToNearExpiry, events[0].ChangeType)
	assert.Equal(t, "a1", events[0].ItemID)
	assert.Equal(t, ingredient.StatusFresh, events[0].OldStatus)
	assert.Equal(t, ingredient.StatusNearExpiry, events[0].NewStatus)

	// No further changes: the second check is quiescent.
	events, err = m.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)

	assert.Len(t, dispatcher.dispatched(), 1)
}

func TestMonitor_AlertClassGating(t *testing.T) {
	item := testItem("b1", expiringIn(1)) // near expiry
	source := &fakeSource{}
	source.set(item)
	dispatcher := &fakeDispatcher{}

	m, err := New(source, dispatcher, nil, nil, Config{
		Alerts: AlertClasses{NearExpiry: true, Expired: false},
		Now:    func() time.Time { return baseTime },
	})
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))

	edited := item.Clone()
	edited.ExpirationDate = expiringIn(-2)
	source.set(edited)

	events, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ChangeNearExpiryToExpired, events[0].ChangeType)

	// Transition observed and snapshot updated, but nothing dispatched.
	assert.Empty(t, dispatcher.dispatched())
}

func TestMonitor_ExpiredToFresh_Silent(t *testing.T) {
	item := testItem("c1", expiringIn(-5)) // expired
	source := &fakeSource{}
	source.set(item)
	dispatcher := &fakeDispatcher{}
	m := newTestMonitor(t, source, dispatcher)
	require.NoError(t, m.Start(context.Background()))

	// Expiration date pushed forward: the only path back to fresh.
	edited := item.Clone()
	edited.ExpirationDate = expiringIn(30)
	source.set(edited)

	events, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ChangeExpiredToFresh, events[0].ChangeType)
	assert.Empty(t, dispatcher.dispatched())
}

func TestMonitor_UsedItemsExcluded(t *testing.T) {
	used := testItem("d1", expiringIn(1))
	used.Status = ingredient.StatusUsed
	source := &fakeSource{}
	source.set(used)
	m := newTestMonitor(t, source, &fakeDispatcher{})

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, 0, m.Tracked())

	// Un-marking re-enters monitoring with a clean computed status and no
	// transition event.
	unmarked := used.Clone()
	unmarked.Status = ingredient.StatusNearExpiry
	source.set(unmarked)

	events, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 1, m.Tracked())
}

func TestMonitor_UpdateTracked(t *testing.T) {
	a := testItem("e1", expiringIn(10))
	source := &fakeSource{}
	source.set(a)
	m := newTestMonitor(t, source, &fakeDispatcher{})
	require.NoError(t, m.Start(context.Background()))

	b := testItem("e2", expiringIn(10))
	m.UpdateTracked([]*ingredient.Ingredient{a, b})
	assert.Equal(t, 2, m.Tracked())

	m.UpdateTracked([]*ingredient.Ingredient{b})
	assert.Equal(t, 1, m.Tracked())

	// Dropped ids never resurface as transitions.
	source.set(b)
	events, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMonitor_StopPreventsChecksAndEvents(t *testing.T) {
	item := testItem("f1", expiringIn(10))
	source := &fakeSource{}
	source.set(item)
	dispatcher := &fakeDispatcher{}
	m := newTestMonitor(t, source, dispatcher)
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))

	_, err := m.CheckNow(context.Background())
	assert.Error(t, err)
	assert.Empty(t, dispatcher.dispatched())
	assert.Equal(t, 0, m.Tracked())

	// Stop is idempotent.
	require.NoError(t, m.Stop(context.Background()))
}

func TestMonitor_RestartRebaselines(t *testing.T) {
	item := testItem("g1", expiringIn(10))
	source := &fakeSource{}
	source.set(item)
	m := newTestMonitor(t, source, &fakeDispatcher{})
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))

	// Status drifts while stopped; restart must baseline the new status
	// rather than reporting a transition.
	edited := item.Clone()
	edited.ExpirationDate = expiringIn(1)
	source.set(edited)

	require.NoError(t, m.Start(context.Background()))
	events, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMonitor_DispatchFailureDoesNotBlockSnapshot(t *testing.T) {
	item := testItem("h1", expiringIn(10))
	source := &fakeSource{}
	source.set(item)
	dispatcher := &fakeDispatcher{err: errors.New("broker down")}
	m := newTestMonitor(t, source, dispatcher)
	require.NoError(t, m.Start(context.Background()))

	edited := item.Clone()
	edited.ExpirationDate = expiringIn(2)
	source.set(edited)

	events, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)

	// Snapshot advanced despite delivery failure: no repeat event.
	events, err = m.CheckNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMonitor_SourceErrorSurfaces(t *testing.T) {
	source := &fakeSource{}
	m := newTestMonitor(t, source, &fakeDispatcher{})
	require.NoError(t, m.Start(context.Background()))

	source.mu.Lock()
	source.err = errors.New("db locked")
	source.mu.Unlock()

	_, err := m.CheckNow(context.Background())
	assert.Error(t, err)
}
