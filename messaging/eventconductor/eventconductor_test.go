package eventconductor

import (
	"context"
	"errors"
	"testing"

	"github.com/sasha-s/go-deadlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustmesh/engine/library"
	"trustmesh/messaging/mirror"
	"trustmesh/state/recognition"
	"trustmesh/state/signals"
)

type fakeSource struct {
	mu           deadlock.Mutex
	backfill     []mirror.Decoded
	backfillErr  error
	subscribeErr error
	backfills    int
	live         []func(mirror.Decoded)
	disposed     int
	lastLimit    int
	lastOrder    mirror.Order
	entered      chan struct{}
	release      chan struct{}
}

// Backfill closes entered and waits for release first when release is set.
func (f *fakeSource) Backfill(_ context.Context, _ library.TopicID, limit int, order mirror.Order) ([]mirror.Decoded, error) {
	if f.release != nil {
		close(f.entered)
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backfills++
	f.lastLimit = limit
	f.lastOrder = order
	return f.backfill, f.backfillErr
}

func (f *fakeSource) Subscribe(_ context.Context, _ library.TopicID, onDecoded func(mirror.Decoded)) (mirror.Disposer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.live = append(f.live, onDecoded)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.disposed++
	}, nil
}

// push delivers d the way the live stream would.
func (f *fakeSource) push(d mirror.Decoded) {
	f.mu.Lock()
	live := append([]func(mirror.Decoded){}, f.live...)
	f.mu.Unlock()
	for _, fn := range live {
		fn(d)
	}
}

func defMsg(id, slug string, seq string, ts recognition.Timestamp) mirror.Decoded {
	hrl := "hcs://11/0.0.4610/" + seq
	return mirror.Decoded{
		Kind: mirror.KindDefinition, HRL: hrl, Timestamp: ts,
		Definition: recognition.Definition{ID: id, Slug: slug, Name: "Kind Helper", HRL: hrl, Timestamp: ts},
	}
}

func instMsg(defID, defSlug, owner, issuer, seq string, ts recognition.Timestamp) mirror.Decoded {
	hrl := "hcs://11/0.0.4610/" + seq
	return mirror.Decoded{
		Kind: mirror.KindInstance, HRL: hrl, Timestamp: ts,
		Instance: recognition.Instance{Owner: owner, Issuer: issuer, DefinitionID: defID, DefinitionSlug: defSlug, HRL: hrl, Timestamp: ts},
	}
}

func newTestConductor(src *fakeSource) (*Conductor, *signals.Store) {
	store := signals.NewStore()
	return New(src, store, Options{Topic: "0.0.4610"}, nil), store
}

func TestInitialize_BackfillResolves(t *testing.T) {
	src := &fakeSource{backfill: []mirror.Decoded{
		instMsg("kind-helper", "", "alice", "bob", "2", "2"),
		defMsg("kind-helper", "", "1", "1"),
	}}
	c, store := newTestConductor(src)

	require.NoError(t, c.Initialize(context.Background()))

	assert.True(t, c.IsInitialized())
	assert.Equal(t, 200, src.lastLimit)
	assert.Equal(t, mirror.OrderAsc, src.lastOrder)
	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, signals.Actors{From: "bob", To: "alice"}, events[0].Actors)
	assert.Equal(t, "kind-helper", events[0].Payload.DefinitionID)
	assert.Empty(t, c.Pending())
}

func TestInitialize_PendingResolvedByLaterDefinition(t *testing.T) {
	src := &fakeSource{backfill: []mirror.Decoded{
		instMsg("", "helper", "alice", "", "1", "1"),
	}}
	c, store := newTestConductor(src)
	require.NoError(t, c.Initialize(context.Background()))

	assert.Equal(t, 0, store.Len())
	require.Len(t, c.Pending(), 1)

	src.push(defMsg("kind-helper", "helper", "2", "2"))

	assert.Equal(t, 1, store.Len())
	assert.Empty(t, c.Pending())
}

func TestInitialize_LiveReplayIsIdempotent(t *testing.T) {
	inst := instMsg("kind-helper", "", "alice", "bob", "2", "2")
	src := &fakeSource{backfill: []mirror.Decoded{defMsg("kind-helper", "", "1", "1"), inst}}
	c, store := newTestConductor(src)
	require.NoError(t, c.Initialize(context.Background()))

	src.push(inst)

	assert.Equal(t, 1, store.Len())
}

func TestInitialize_IsGuarded(t *testing.T) {
	src := &fakeSource{}
	c, _ := newTestConductor(src)

	require.NoError(t, c.Initialize(context.Background()))
	require.NoError(t, c.Initialize(context.Background()))

	assert.Equal(t, 1, src.backfills)
	assert.Len(t, src.live, 1)
}

func TestInitialize_BackfillErrorPropagates(t *testing.T) {
	fetchErr := &mirror.FetchError{URL: "http://mirror/api", StatusCode: 500}
	src := &fakeSource{backfillErr: fetchErr}
	c, _ := newTestConductor(src)

	err := c.Initialize(context.Background())
	require.Error(t, err)
	var fe *mirror.FetchError
	assert.True(t, errors.As(err, &fe))
	assert.Empty(t, src.live, "no subscription after a failed backfill")

	// the guard holds until Dispose
	require.NoError(t, c.Initialize(context.Background()))
	assert.Equal(t, 1, src.backfills)

	c.Dispose()
	src.backfillErr = nil
	require.NoError(t, c.Initialize(context.Background()))
	assert.Equal(t, 2, src.backfills)
}

func TestInitialize_SubscribeErrorPropagates(t *testing.T) {
	boom := errors.New("dial failed")
	src := &fakeSource{subscribeErr: boom}
	c, _ := newTestConductor(src)

	err := c.Initialize(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDispose_ClosesSubscriptionsKeepsCache(t *testing.T) {
	src := &fakeSource{backfill: []mirror.Decoded{defMsg("kind-helper", "helper", "1", "1")}}
	c, _ := newTestConductor(src)
	require.NoError(t, c.Initialize(context.Background()))

	c.Dispose()

	assert.Equal(t, 1, src.disposed)
	assert.False(t, c.IsInitialized())
	_, ok := c.GetDefinition("helper")
	assert.True(t, ok, "dispose keeps caches")

	c.Dispose()
	assert.Equal(t, 1, src.disposed, "nothing left to dispose")
}

func TestDispose_DuringBackfillClosesLateSubscription(t *testing.T) {
	src := &fakeSource{
		backfill: []mirror.Decoded{defMsg("kind-helper", "", "1", "1")},
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	c, _ := newTestConductor(src)

	errs := make(chan error, 1)
	go func() { errs <- c.Initialize(context.Background()) }()
	<-src.entered
	c.Dispose()
	close(src.release)
	require.NoError(t, <-errs)

	src.mu.Lock()
	opened, disposed := len(src.live), src.disposed
	src.mu.Unlock()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, disposed, "subscription opened after Dispose must be closed")
	assert.False(t, c.IsInitialized())
	c.mu.Lock()
	assert.Empty(t, c.disposers)
	c.mu.Unlock()

	// backfilled definitions are kept like any other cache entry
	_, ok := c.GetDefinition("kind-helper")
	assert.True(t, ok)

	// a fresh Initialize holds exactly one live subscription
	src.release = nil
	require.NoError(t, c.Initialize(context.Background()))
	c.mu.Lock()
	assert.Len(t, c.disposers, 1)
	c.mu.Unlock()
	c.Dispose()
	src.mu.Lock()
	assert.Equal(t, 2, src.disposed)
	src.mu.Unlock()
}

func TestClearCache(t *testing.T) {
	src := &fakeSource{backfill: []mirror.Decoded{
		defMsg("kind-helper", "helper", "1", "1"),
		instMsg("unknown", "", "alice", "", "2", "2"),
	}}
	c, store := newTestConductor(src)
	require.NoError(t, c.Initialize(context.Background()))
	require.Len(t, c.Pending(), 1)

	c.ClearCache()

	assert.Empty(t, c.GetAllDefinitions())
	assert.Empty(t, c.Pending())
	assert.Equal(t, 0, store.Len())
	assert.True(t, c.IsInitialized(), "clearing the cache leaves the guard alone")
	assert.Equal(t, 0, src.disposed)
}

func TestQueries(t *testing.T) {
	c, _ := newTestConductor(&fakeSource{})
	c.IngestDefinitions([]recognition.Definition{
		{ID: "kind-helper", Slug: "helper", Timestamp: "1"},
		{ID: "mentor", Timestamp: "1"},
	})
	c.IngestInstances([]recognition.Instance{{DefinitionSlug: "missing", HRL: "hcs://11/0.0.4610/9"}})

	got, ok := c.GetDefinition("kind-helper")
	require.True(t, ok)
	assert.Equal(t, "helper", got.Slug)
	got, ok = c.GetDefinition("helper")
	require.True(t, ok)
	assert.Equal(t, "kind-helper", got.ID)
	_, ok = c.GetDefinition("nobody")
	assert.False(t, ok)
	assert.Len(t, c.GetAllDefinitions(), 2)

	info := c.DebugInfo()
	assert.Equal(t, 2, info.DefinitionsCount)
	assert.Equal(t, []string{"kind-helper", "mentor"}, info.DefinitionIDs)
	assert.Equal(t, []string{"helper"}, info.DefinitionSlugs)
	assert.Equal(t, 1, info.PendingInstancesCount)
	assert.Equal(t, []string{"missing"}, info.PendingInstancesDefIDs)
	assert.Equal(t, "0.0.4610", info.Topic)
}
