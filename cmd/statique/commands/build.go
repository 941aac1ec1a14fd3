package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/statique/internal/config"
	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
	"git.home.luguber.info/inful/statique/internal/logfields"
	"git.home.luguber.info/inful/statique/internal/manifest"
	"git.home.luguber.info/inful/statique/internal/metrics"
	"git.home.luguber.info/inful/statique/internal/mirror"
	"git.home.luguber.info/inful/statique/internal/observability"
	"git.home.luguber.info/inful/statique/internal/revision"
	"git.home.luguber.info/inful/statique/internal/transpile"
	"git.home.luguber.info/inful/statique/internal/watch"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Path        string        `arg:"" default:"." help:"Project directory."`
	Watch       bool          `short:"w" help:"Keep running and rebuild when the project changes."`
	Debounce    time.Duration `help:"Quiet window before a rebuild in watch mode (overrides statique.yaml)."`
	Rescan      time.Duration `help:"Also rebuild periodically in watch mode; 0 disables (overrides statique.yaml)."`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address in watch mode (e.g. :9090)."`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return b.run(observability.WithCommand(ctx, "build"), g, root)
}

func (b *BuildCmd) run(ctx context.Context, g *Global, root *CLI) error {
	project, err := projectDir(b.Path)
	if err != nil {
		return err
	}
	cfg, err := config.Load(project)
	if err != nil {
		return err
	}
	root.configureLogging(cfg)
	b.applyOverrides(cfg)

	site := ""
	if m, err := manifest.Load(project); err == nil {
		site = m.Title
		slog.Debug("Loaded project manifest", "title", m.Title, "lang", m.Lang, "charset", m.CanonicalCharset())
	} else if !ferrors.HasCategory(err, ferrors.CategoryNotFound) {
		return err
	}

	conv, err := transpile.NewGoldmarkConverter(transpile.DefaultCacheSize)
	if err != nil {
		return ferrors.InternalError("failed to create markdown converter").WithCause(err).Build()
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if b.Watch && b.MetricsAddr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		go func() {
			if err := metrics.Serve(ctx, b.MetricsAddr, reg); err != nil {
				slog.Error("Metrics endpoint failed", logfields.Error(err))
			}
		}()
	}

	syncer := mirror.New(conv,
		mirror.WithPolicy(policyOptions(cfg, project)...),
		mirror.WithLogger(slog.Default()),
		mirror.WithRecorder(recorder),
		mirror.WithRevision(revision.Func(slog.Default())),
	)

	sinks, err := openSinks(cfg, project, site)
	if err != nil {
		return err
	}
	defer sinks.Close()

	destination := cfg.OutputPath(project)
	report, err := syncer.Synchronize(ctx, project, destination)
	if err != nil {
		return err
	}
	sinks.Handle(ctx, report)
	printSummary(g, report)

	if !b.Watch {
		return nil
	}

	coord, err := watch.New(watch.Config{
		Source:         project,
		Destination:    destination,
		QuietWindow:    cfg.Watch.Debounce,
		MaxDelay:       cfg.Watch.MaxDelay,
		RescanInterval: cfg.Watch.RescanInterval,
	}, syncer,
		watch.WithLogger(slog.Default()),
		watch.WithRecorder(recorder),
		watch.WithPassHook(sinks.Handle),
		watch.WithPassHook(func(_ context.Context, r *mirror.Report) { printSummary(g, r) }),
	)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.out(), "Watching for changes, press Ctrl+C to stop")
	return coord.Run(ctx)
}

func (b *BuildCmd) applyOverrides(cfg *config.Config) {
	if b.Debounce > 0 {
		cfg.Watch.Debounce = b.Debounce
		if cfg.Watch.MaxDelay < b.Debounce {
			cfg.Watch.MaxDelay = b.Debounce
		}
	}
	if b.Rescan > 0 {
		cfg.Watch.RescanInterval = b.Rescan
	}
}

func printSummary(g *Global, r *mirror.Report) {
	_, _ = fmt.Fprintf(g.out(), "Built %s: %d rendered, %d copied, %d skipped in %s\n",
		r.Destination, r.Transpiled, r.Copied, r.Skipped, r.Duration().Round(time.Millisecond))
	for _, f := range r.Failures {
		_, _ = fmt.Fprintf(g.out(), "  skipped %s (%s)\n", f.Path, f.Kind)
	}
}
