package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mito-gallery-service/internal/core/domain"
	"mito-gallery-service/internal/core/ports/output"
	"mito-gallery-service/internal/testutil"
)

// countingRenderer returns a fixed image after an optional delay and counts
// its calls. When release is set, every call blocks until it is closed.
type countingRenderer struct {
	calls   atomic.Int32
	delay   time.Duration
	started chan struct{}
	release chan struct{}
}

func (r *countingRenderer) Render(ctx context.Context, _ domain.Entity, _ domain.ViewAngle) ([]byte, error) {
	r.calls.Add(1)
	if r.started != nil {
		select {
		case r.started <- struct{}{}:
		default:
		}
	}
	if r.release != nil {
		<-r.release
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return []byte("png"), nil
}

func newCache(store *testutil.MemoryStore, r ports.Renderer, step int) *ArtifactCache {
	return NewArtifactCache(store, r, ArtifactCacheConfig{
		Angles:               domain.ViewAngles(step),
		MaxConcurrentRenders: 4,
	})
}

// ============================================================================
// Status Tests
// ============================================================================

func TestArtifactCache_StatusMissing(t *testing.T) {
	cache := newCache(testutil.NewMemoryStore(), new(testutil.MockRenderer), 45)

	set := cache.Status(context.Background(), 1)

	assert.Equal(t, domain.ArtifactStatusMissing, set.Status)
	assert.Len(t, set.Refs, 8)
	for i, ref := range set.Refs {
		assert.Equal(t, i*45, ref.Angle.Degrees)
		assert.False(t, ref.Present)
		assert.Empty(t, ref.URL)
	}
}

func TestArtifactCache_StatusPartial(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Seed(1, 0, 90)
	cache := newCache(store, new(testutil.MockRenderer), 45)

	set := cache.Status(context.Background(), 1)

	assert.Equal(t, domain.ArtifactStatusPartial, set.Status)
	assert.True(t, set.Refs[0].Present)
	assert.Equal(t, "/static/screenshots/1/0.png", set.Refs[0].URL)
	assert.True(t, set.Refs[2].Present)
	assert.Len(t, set.Missing(), 6)
}

func TestArtifactCache_StatusStoreErrorIsAbsent(t *testing.T) {
	store := new(testutil.MockArtifactStore)
	store.On("Exists", mock.Anything, mock.Anything).Return(false, domain.ErrCacheIO)
	cache := NewArtifactCache(store, new(testutil.MockRenderer), ArtifactCacheConfig{Angles: domain.ViewAngles(180)})

	set := cache.Status(context.Background(), 5)

	assert.Equal(t, domain.ArtifactStatusMissing, set.Status)
	store.AssertNumberOfCalls(t, "Exists", 2)
	store.AssertNotCalled(t, "URL", mock.Anything)
}

// ============================================================================
// Ensure Tests
// ============================================================================

func TestArtifactCache_EnsureRendersOnce(t *testing.T) {
	store := testutil.NewMemoryStore()
	renderer := new(testutil.MockRenderer)
	renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return([]byte("png"), nil)
	cache := newCache(store, renderer, 45)

	set, err := cache.Ensure(context.Background(), entity(1, 1))
	require.NoError(t, err)
	assert.Equal(t, domain.ArtifactStatusComplete, set.Status)
	renderer.AssertNumberOfCalls(t, "Render", 8)

	set, err = cache.Ensure(context.Background(), entity(1, 1))
	require.NoError(t, err)
	assert.Equal(t, domain.ArtifactStatusComplete, set.Status)
	renderer.AssertNumberOfCalls(t, "Render", 8)
}

func TestArtifactCache_EnsureOnlyRendersMissing(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Seed(1, 0, 45, 90, 135)
	renderer := new(testutil.MockRenderer)
	renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return([]byte("png"), nil)
	cache := newCache(store, renderer, 45)

	_, err := cache.Ensure(context.Background(), entity(1, 1))

	require.NoError(t, err)
	renderer.AssertNumberOfCalls(t, "Render", 4)
	renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, domain.ViewAngle{Index: 0, Degrees: 0})
}

func TestArtifactCache_EnsurePartialFailure(t *testing.T) {
	store := testutil.NewMemoryStore()
	renderer := new(testutil.MockRenderer)
	renderErr := errors.New("mesh fetch failed")
	renderer.On("Render", mock.Anything, mock.Anything, mock.MatchedBy(func(a domain.ViewAngle) bool {
		return a.Degrees == 120
	})).Return(nil, renderErr)
	renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return([]byte("png"), nil)
	cache := newCache(store, renderer, 120)

	set, err := cache.Ensure(context.Background(), entity(1, 1))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRenderFailed)
	assert.ErrorIs(t, err, renderErr)
	assert.NotErrorIs(t, err, domain.ErrRenderTimeout)

	var re *domain.RenderError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, int64(1), re.EntityID)
	assert.Equal(t, []int{120}, re.Angles)

	assert.Equal(t, domain.ArtifactStatusPartial, set.Status)
	assert.Equal(t, []domain.ViewAngle{{Index: 1, Degrees: 120}}, set.Missing())
	assert.Equal(t, 2, store.Puts())
}

func TestArtifactCache_EnsureStoreFailure(t *testing.T) {
	store := new(testutil.MockArtifactStore)
	store.On("Exists", mock.Anything, mock.Anything).Return(false, nil)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(domain.ErrCacheIO)
	renderer := new(testutil.MockRenderer)
	renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return([]byte("png"), nil)
	cache := NewArtifactCache(store, renderer, ArtifactCacheConfig{Angles: domain.ViewAngles(180)})

	set, err := cache.Ensure(context.Background(), entity(2, 1))

	assert.ErrorIs(t, err, domain.ErrCacheIO)
	assert.ErrorIs(t, err, domain.ErrRenderFailed)
	assert.Equal(t, domain.ArtifactStatusMissing, set.Status)
}

func TestArtifactCache_EnsureTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	renderer := &countingRenderer{release: release}
	cache := NewArtifactCache(testutil.NewMemoryStore(), renderer, ArtifactCacheConfig{
		Angles:               domain.ViewAngles(360),
		RenderTimeout:        20 * time.Millisecond,
		MaxConcurrentRenders: 1,
	})

	set, err := cache.Ensure(context.Background(), entity(3, 1))

	assert.ErrorIs(t, err, domain.ErrRenderTimeout)
	assert.ErrorIs(t, err, domain.ErrRenderFailed)
	assert.Equal(t, domain.ArtifactStatusMissing, set.Status)
}

func TestArtifactCache_EnsureTimeoutCoversSlotWait(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	renderer := &countingRenderer{release: release}
	cache := NewArtifactCache(testutil.NewMemoryStore(), renderer, ArtifactCacheConfig{
		Angles:               domain.ViewAngles(180),
		RenderTimeout:        20 * time.Millisecond,
		MaxConcurrentRenders: 1,
	})

	type result struct {
		set domain.ArtifactSet
		err error
	}
	ensured := make(chan result, 1)
	go func() {
		set, err := cache.Ensure(context.Background(), entity(6, 1))
		ensured <- result{set: set, err: err}
	}()

	var res result
	select {
	case res = <-ensured:
	case <-time.After(time.Second):
		t.Fatal("ensure blocked on a render slot held by an abandoned render")
	}
	assert.ErrorIs(t, res.err, domain.ErrRenderTimeout)
	var re *domain.RenderError
	require.True(t, errors.As(res.err, &re))
	assert.Equal(t, []int{0, 180}, re.Angles)
	assert.True(t, re.Timeout)
	assert.Equal(t, domain.ArtifactStatusMissing, res.set.Status)
	// the second angle never reached the renderer
	assert.Equal(t, int32(1), renderer.calls.Load())

	cleared := make(chan error, 1)
	go func() {
		_, err := cache.ClearAll(context.Background())
		cleared <- err
	}()
	select {
	case err := <-cleared:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("clear blocked behind a timed out fill")
	}
}

func TestArtifactCache_ConcurrentEnsureRendersEachAngleOnce(t *testing.T) {
	store := testutil.NewMemoryStore()
	renderer := &countingRenderer{delay: 5 * time.Millisecond}
	cache := newCache(store, renderer, 45)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set, err := cache.Ensure(context.Background(), entity(7, 1))
			assert.NoError(t, err)
			assert.Equal(t, domain.ArtifactStatusComplete, set.Status)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), renderer.calls.Load())
	assert.Equal(t, 8, store.Puts())
}

func TestArtifactCache_EnsureSurvivesCallerCancel(t *testing.T) {
	store := testutil.NewMemoryStore()
	release := make(chan struct{})
	renderer := &countingRenderer{started: make(chan struct{}, 1), release: release}
	cache := newCache(store, renderer, 180)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cache.Ensure(ctx, entity(4, 1))
	}()

	<-renderer.started
	cancel()
	close(release)
	<-done

	assert.Equal(t, domain.ArtifactStatusComplete, cache.Status(context.Background(), 4).Status)
}

// ============================================================================
// ClearAll Tests
// ============================================================================

func TestArtifactCache_ClearAll(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.Seed(1, 0, 45, 90)
	store.Seed(2, 0)
	cache := newCache(store, new(testutil.MockRenderer), 45)

	n, err := cache.ClearAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, domain.ArtifactStatusMissing, cache.Status(context.Background(), 1).Status)
	assert.Equal(t, domain.ArtifactStatusMissing, cache.Status(context.Background(), 2).Status)
}

func TestArtifactCache_ClearAllError(t *testing.T) {
	store := new(testutil.MockArtifactStore)
	store.On("Clear", mock.Anything).Return(2, domain.ErrCacheIO)
	cache := NewArtifactCache(store, new(testutil.MockRenderer), ArtifactCacheConfig{})

	n, err := cache.ClearAll(context.Background())

	assert.ErrorIs(t, err, domain.ErrCacheIO)
	assert.Equal(t, 2, n)
}

func TestArtifactCache_ClearAllWaitsForInFlightFill(t *testing.T) {
	store := testutil.NewMemoryStore()
	release := make(chan struct{})
	renderer := &countingRenderer{started: make(chan struct{}, 1), release: release}
	cache := NewArtifactCache(store, renderer, ArtifactCacheConfig{
		Angles:               domain.ViewAngles(180),
		MaxConcurrentRenders: 1,
	})

	filled := make(chan struct{})
	go func() {
		defer close(filled)
		_, _ = cache.Ensure(context.Background(), entity(9, 1))
	}()
	<-renderer.started

	cleared := make(chan int)
	go func() {
		n, _ := cache.ClearAll(context.Background())
		cleared <- n
	}()

	select {
	case <-cleared:
		t.Fatal("clear finished while a fill was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-filled
	n := <-cleared

	assert.Equal(t, 2, n)
	assert.Equal(t, domain.ArtifactStatusMissing, cache.Status(context.Background(), 9).Status)
}
