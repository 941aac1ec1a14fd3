package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/statique/internal/classify"
	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
	"git.home.luguber.info/inful/statique/internal/logfields"
	"git.home.luguber.info/inful/statique/internal/metrics"
	"git.home.luguber.info/inful/statique/internal/mirror"
)

// State is the coordinator's rebuild state.
type State int32

const (
	Idle State = iota
	PendingRebuild
	Rebuilding
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingRebuild:
		return "pending_rebuild"
	case Rebuilding:
		return "rebuilding"
	default:
		return "unknown"
	}
}

// Syncer runs one synchronization pass.
type Syncer interface {
	Synchronize(ctx context.Context, source, destination string) (*mirror.Report, error)
	Policy(destination string) *classify.Policy
}

// PassHook receives the report of every pass the coordinator runs.
type PassHook func(ctx context.Context, report *mirror.Report)

type Config struct {
	Source      string
	Destination string

	QuietWindow    time.Duration
	MaxDelay       time.Duration
	RescanInterval time.Duration // 0 disables periodic rescans
}

// Coordinator watches Source and keeps Destination synchronized with it.
type Coordinator struct {
	cfg       Config
	syncer    Syncer
	policy    *classify.Policy
	signal    *Signal
	debouncer *Debouncer
	logger    *slog.Logger
	recorder  metrics.Recorder
	hooks     []PassHook

	started atomic.Bool
	running atomic.Bool
	passes  atomic.Int64
	ready   chan struct{}
}

type Option func(*Coordinator)

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

func WithPassHook(h PassHook) Option {
	return func(c *Coordinator) { c.hooks = append(c.hooks, h) }
}

func New(cfg Config, syncer Syncer, opts ...Option) (*Coordinator, error) {
	if syncer == nil {
		return nil, ferrors.ValidationError("synchronizer is required").Build()
	}
	src, err := filepath.Abs(cfg.Source)
	if err != nil {
		return nil, ferrors.ValidationError("invalid source path").WithCause(err).Build()
	}
	dst, err := filepath.Abs(cfg.Destination)
	if err != nil {
		return nil, ferrors.ValidationError("invalid destination path").WithCause(err).Build()
	}
	cfg.Source, cfg.Destination = src, dst
	if cfg.QuietWindow <= 0 {
		cfg.QuietWindow = DefaultQuietWindow
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}

	c := &Coordinator{
		cfg:      cfg,
		syncer:   syncer,
		policy:   syncer.Policy(dst),
		signal:   NewSignal(),
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.debouncer, err = NewDebouncer(c.signal, DebouncerConfig{
		QuietWindow: cfg.QuietWindow,
		MaxDelay:    cfg.MaxDelay,
		OnFire: func(cause string, count int) {
			c.recorder.IncRebuildTrigger(cause)
			c.logger.Debug("Rebuild signaled", logfields.Trigger(cause), logfields.Count(count))
		},
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// State reports whether a rebuild is pending, running, or neither. A notification
// arriving during a pass reports PendingRebuild until the follow-up pass starts.
func (c *Coordinator) State() State {
	switch {
	case c.signal.Pending() || c.debouncer.Pending():
		return PendingRebuild
	case c.running.Load():
		return Rebuilding
	default:
		return Idle
	}
}

// Passes returns the number of passes run so far.
func (c *Coordinator) Passes() int64 { return c.passes.Load() }

// Ready is closed once the watches are established.
func (c *Coordinator) Ready() <-chan struct{} { return c.ready }

// Trigger requests a rebuild outside of filesystem notifications.
func (c *Coordinator) Trigger(cause string) {
	if c.signal.Set() {
		c.recorder.IncRebuildTrigger(cause)
		c.logger.Debug("Rebuild signaled", logfields.Trigger(cause))
	}
}

// Run watches until ctx is canceled or the notification mechanism fails. On
// cancellation it stops accepting notifications, lets an in-flight pass complete and
// returns nil. A watcher failure is returned as a watch error. Run may be called
// once per Coordinator; later calls fail without watching.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ferrors.RuntimeError("coordinator already started").Build()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WatchError("create filesystem watcher").WithCause(err).Build()
	}
	defer func() { _ = watcher.Close() }()

	if err := addDirsRecursive(watcher.Add, c.cfg.Source, c.policy); err != nil {
		return ferrors.WatchError("watch source tree").WithCause(err).
			WithContext("path", c.cfg.Source).Build()
	}

	if c.cfg.RescanInterval > 0 {
		sched, err := c.startRescan()
		if err != nil {
			return err
		}
		defer func() { _ = sched.Shutdown() }()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.produce(gctx, watcher.Events, watcher.Errors, watcher.Add) })
	g.Go(func() error { return c.debouncer.Run(gctx) })
	g.Go(func() error { return c.consume(gctx) })

	c.logger.Info("Watching for changes",
		logfields.Source(c.cfg.Source),
		logfields.Destination(c.cfg.Destination),
		slog.Duration("debounce", c.cfg.QuietWindow))
	close(c.ready)

	err = g.Wait()
	c.logger.Info("Watch stopped", slog.Int64("passes", c.passes.Load()))
	return err
}

func (c *Coordinator) startRescan() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.RuntimeError("failed to create gocron scheduler").WithCause(err).Build()
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(c.cfg.RescanInterval),
		gocron.NewTask(c.Trigger, "rescan"),
		gocron.WithName("rescan"),
	); err != nil {
		_ = sched.Shutdown()
		return nil, ferrors.RuntimeError("failed to create rescan job").WithCause(err).Build()
	}
	sched.Start()
	return sched, nil
}

// produce forwards relevant notifications to the debouncer and extends the watch set
// when directories appear.
func (c *Coordinator) produce(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, add func(string) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return ferrors.WatchError("watcher event channel closed").Build()
			}
			if !relevant(ev, c.cfg.Source, c.policy) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addDirsRecursive(add, ev.Name, c.policy); err != nil {
						c.logger.Warn("watch add failed", logfields.Path(ev.Name), logfields.Error(err))
					}
				}
			}
			c.recorder.IncWatchEvent()
			c.logger.Debug("Change detected", logfields.Path(ev.Name), logfields.Op(ev.Op.String()))
			c.debouncer.Notify()
		case err, ok := <-errs:
			if !ok {
				return ferrors.WatchError("watcher error channel closed").Build()
			}
			return ferrors.WatchError("filesystem watcher failed").WithCause(err).Build()
		}
	}
}

// consume blocks until a rebuild is pending and runs one pass at a time. Passes run
// on a context detached from cancellation so an in-flight pass always completes.
func (c *Coordinator) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.signal.C():
		}
		if ctx.Err() != nil {
			return nil
		}
		c.runPass(context.WithoutCancel(ctx))
	}
}

func (c *Coordinator) runPass(ctx context.Context) {
	c.running.Store(true)
	defer c.running.Store(false)

	report, err := c.syncer.Synchronize(ctx, c.cfg.Source, c.cfg.Destination)
	c.passes.Add(1)
	if err != nil {
		c.logger.Error("Rebuild failed", logfields.Error(err))
	}
	if report == nil {
		return
	}
	for _, h := range c.hooks {
		h(ctx, report)
	}
}
