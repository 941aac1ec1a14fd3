package watch

import (
	"context"
	"sync/atomic"
	"time"

	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
)

const (
	DefaultQuietWindow = 100 * time.Millisecond
	DefaultMaxDelay    = 2 * time.Second
)

type DebouncerConfig struct {
	QuietWindow time.Duration
	MaxDelay    time.Duration

	// OnFire is called after the Signal is set, with the cause ("quiet" or
	// "max_delay") and the number of notifications coalesced.
	OnFire func(cause string, count int)
}

// Debouncer coalesces bursts of notifications into one Signal.Set.
//
// It fires once no notification arrived for QuietWindow, or MaxDelay after the first
// notification of a burst, whichever comes first, so a continuous stream of changes
// cannot postpone a rebuild indefinitely. If a pass is running when it fires, the
// Signal stays pending and the consumer runs exactly one follow-up pass.
type Debouncer struct {
	cfg     DebouncerConfig
	signal  *Signal
	notify  chan struct{}
	pending atomic.Bool
}

func NewDebouncer(signal *Signal, cfg DebouncerConfig) (*Debouncer, error) {
	if signal == nil {
		return nil, ferrors.ValidationError("signal is required").Build()
	}
	if cfg.QuietWindow <= 0 {
		return nil, ferrors.ValidationError("quiet window must be > 0").Build()
	}
	if cfg.MaxDelay <= 0 {
		return nil, ferrors.ValidationError("max delay must be > 0").Build()
	}
	if cfg.OnFire == nil {
		cfg.OnFire = func(string, int) {}
	}
	return &Debouncer{cfg: cfg, signal: signal, notify: make(chan struct{}, 1)}, nil
}

// Notify records one change notification. It never blocks: a notification that
// finds another one queued is absorbed by it.
func (d *Debouncer) Notify() {
	d.pending.Store(true)
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Pending reports whether notifications are waiting for the window to close.
func (d *Debouncer) Pending() bool { return d.pending.Load() }

// Run processes notifications until ctx is canceled.
func (d *Debouncer) Run(ctx context.Context) error {
	quietTimer := time.NewTimer(time.Hour)
	quietTimer.Stop()
	maxTimer := time.NewTimer(time.Hour)
	maxTimer.Stop()
	defer quietTimer.Stop()
	defer maxTimer.Stop()

	var (
		quietC <-chan time.Time
		maxC   <-chan time.Time
		count  int
	)

	fire := func(cause string) {
		quietTimer.Stop()
		maxTimer.Stop()
		quietC, maxC = nil, nil
		n := count
		count = 0
		d.pending.Store(false)
		d.signal.Set()
		d.cfg.OnFire(cause, n)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.notify:
			d.pending.Store(true)
			count++
			quietTimer.Reset(d.cfg.QuietWindow)
			quietC = quietTimer.C
			if maxC == nil {
				maxTimer.Reset(d.cfg.MaxDelay)
				maxC = maxTimer.C
			}
		case <-quietC:
			fire("quiet")
		case <-maxC:
			fire("max_delay")
		}
	}
}
