package watch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/statique/internal/classify"
	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
	"git.home.luguber.info/inful/statique/internal/mirror"
	"git.home.luguber.info/inful/statique/internal/transpile"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// stubSyncer counts passes and can block inside one until released.
type stubSyncer struct {
	passes  atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
	block   chan struct{}
	started chan struct{}
}

func (s *stubSyncer) Synchronize(ctx context.Context, source, destination string) (*mirror.Report, error) {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.active.Add(-1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	s.passes.Add(1)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return &mirror.Report{Source: source, Destination: destination}, nil
}

func (s *stubSyncer) Policy(destination string) *classify.Policy {
	return classify.NewPolicy(destination)
}

func newTestCoordinator(t *testing.T, syncer Syncer, opts ...Option) (*Coordinator, string) {
	t.Helper()
	src := t.TempDir()
	c, err := New(Config{
		Source:      src,
		Destination: filepath.Join(src, "build"),
		QuietWindow: 50 * time.Millisecond,
		MaxDelay:    time.Second,
	}, syncer, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return c, src
}

func TestCoordinator_RebuildsOnChange(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(src, "build")
	s := mirror.New(transpile.ConverterFunc(func(l string) string { return "<" + l + ">" }), mirror.WithLogger(quietLogger()))

	var reports sync.Map
	c, err := New(Config{Source: src, Destination: dst, QuietWindow: 50 * time.Millisecond, MaxDelay: time.Second}, s,
		WithLogger(quietLogger()),
		WithPassHook(func(_ context.Context, r *mirror.Report) { reports.Store(r.PassID, r) }),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	<-c.Ready()

	require.NoError(t, os.WriteFile(filepath.Join(src, "page.md"), []byte("---\nhello\n"), 0o644))

	assert.Eventually(t, func() bool {
		b, err := os.ReadFile(filepath.Join(dst, "page.html"))
		return err == nil && string(b) == "<hello>"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	n := 0
	reports.Range(func(_, _ any) bool { n++; return true })
	assert.GreaterOrEqual(t, n, 1)
}

func TestCoordinator_CoalescesBurst(t *testing.T) {
	syncer := &stubSyncer{}
	src := t.TempDir()
	c, err := New(Config{
		Source:      src,
		Destination: filepath.Join(src, "build"),
		QuietWindow: 500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}, syncer, WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	<-c.Ready()

	for i := range 20 {
		name := filepath.Join(src, "f"+string(rune('a'+i))+".md")
		require.NoError(t, os.WriteFile(name, []byte("---\nx\n"), 0o644))
	}

	assert.Eventually(t, func() bool { return syncer.passes.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(time.Second)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), syncer.passes.Load())
	assert.False(t, syncer.overlap.Load())
}

func TestCoordinator_NotificationBurstSetsSignalOnce(t *testing.T) {
	syncer := &stubSyncer{}
	c, src := newTestCoordinator(t, syncer)

	events := make(chan fsnotify.Event, 50)
	for range 50 {
		events <- fsnotify.Event{Name: filepath.Join(src, "page.md"), Op: fsnotify.Write}
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := make(chan error, 3)
	go func() { g <- c.produce(ctx, events, make(chan error), func(string) error { return nil }) }()
	go func() { g <- c.debouncer.Run(ctx) }()
	go func() { g <- c.consume(ctx) }()

	assert.Eventually(t, func() bool { return syncer.passes.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	cancel()
	for range 3 {
		require.NoError(t, <-g)
	}
	assert.Equal(t, int32(1), syncer.passes.Load())
}

func TestCoordinator_RebuildsOnEveryCopiedFile(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(src, "build")
	s := mirror.New(transpile.ConverterFunc(func(l string) string { return l }), mirror.WithLogger(quietLogger()))
	c, err := New(Config{Source: src, Destination: dst, QuietWindow: 50 * time.Millisecond, MaxDelay: time.Second}, s,
		WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(src, "sub"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	<-c.Ready()

	for _, rel := range []string{".htaccess", "data.tmp", "notes~", "sub/.well.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, filepath.FromSlash(rel)), []byte(rel), 0o644))
		assert.Eventually(t, func() bool {
			b, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(rel)))
			return err == nil && string(b) == rel
		}, 5*time.Second, 20*time.Millisecond, rel)
	}

	cancel()
	require.NoError(t, <-done)
}

func TestCoordinator_RunTwiceFails(t *testing.T) {
	c, _ := newTestCoordinator(t, &stubSyncer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	<-c.Ready()

	err := c.Run(ctx)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))

	cancel()
	require.NoError(t, <-done)
}

func TestCoordinator_InFlightPassCompletesOnCancel(t *testing.T) {
	syncer := &stubSyncer{block: make(chan struct{}), started: make(chan struct{}, 1)}
	c, _ := newTestCoordinator(t, syncer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	<-c.Ready()

	c.Trigger("test")
	<-syncer.started
	assert.Equal(t, Rebuilding, c.State())

	cancel()
	select {
	case <-done:
		t.Fatal("Run returned while a pass was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(syncer.block)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the pass completed")
	}
	assert.Equal(t, int32(1), syncer.passes.Load())
	assert.Equal(t, Idle, c.State())
}

func TestCoordinator_TriggerDuringPassRunsOneFollowUp(t *testing.T) {
	syncer := &stubSyncer{block: make(chan struct{}), started: make(chan struct{}, 4)}
	c, _ := newTestCoordinator(t, syncer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	<-c.Ready()

	c.Trigger("first")
	<-syncer.started
	for range 5 {
		c.Trigger("again")
	}
	assert.Equal(t, PendingRebuild, c.State())

	close(syncer.block)
	assert.Eventually(t, func() bool { return syncer.passes.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), syncer.passes.Load())
	assert.False(t, syncer.overlap.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestCoordinator_ProducerFailureIsWatchError(t *testing.T) {
	c, _ := newTestCoordinator(t, &stubSyncer{})
	noAdd := func(string) error { return nil }

	events := make(chan fsnotify.Event)
	close(events)
	err := c.produce(context.Background(), events, make(chan error), noAdd)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryWatch))

	errs := make(chan error, 1)
	errs <- errors.New("queue overflow")
	err = c.produce(context.Background(), make(chan fsnotify.Event), errs, noAdd)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryWatch))
}

func TestCoordinator_ProducerIgnoresOwnedPaths(t *testing.T) {
	c, src := newTestCoordinator(t, &stubSyncer{})

	events := make(chan fsnotify.Event, 2)
	events <- fsnotify.Event{Name: filepath.Join(src, "build", "index.html"), Op: fsnotify.Create}
	events <- fsnotify.Event{Name: filepath.Join(src, ".build.prev"), Op: fsnotify.Create}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.produce(ctx, events, make(chan error), func(string) error { return nil }) }()

	assert.Eventually(t, func() bool { return len(events) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.False(t, c.debouncer.Pending())
}

func TestCoordinator_CanceledBeforeSignalRunsNothing(t *testing.T) {
	syncer := &stubSyncer{}
	c, _ := newTestCoordinator(t, syncer)
	c.signal.Set()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.consume(ctx))
	assert.Equal(t, int32(0), syncer.passes.Load())
}

func TestNew_RequiresSyncer(t *testing.T) {
	_, err := New(Config{Source: t.TempDir()}, nil)
	require.Error(t, err)
}
