package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/statique/internal/classify"
	"git.home.luguber.info/inful/statique/internal/config"
	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
	"git.home.luguber.info/inful/statique/internal/journal"
	"git.home.luguber.info/inful/statique/internal/logfields"
	"git.home.luguber.info/inful/statique/internal/mirror"
	"git.home.luguber.info/inful/statique/internal/notify"
	"git.home.luguber.info/inful/statique/internal/observability"
)

// Global is shared by every subcommand.
type Global struct {
	// Out receives user-facing output; nil means stdout.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format (text or json); overrides statique.yaml"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init  InitCmd  `cmd:"" help:"Create a new statique project"`
	Build BuildCmd `cmd:"" help:"Build the site, optionally watching for changes"`
	Clean CleanCmd `cmd:"" help:"Remove the build directory"`
}

// AfterApply runs after flag parsing; setup logging once. Commands that load
// statique.yaml refine it with configureLogging.
func (c *CLI) AfterApply() error {
	format, err := config.ParseLogFormat(c.LogFormat)
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(observability.NewLogger(os.Stderr, level, format == config.LogFormatJSON))
	return nil
}

// configureLogging applies the project's logging settings. Flags win over the file.
func (c *CLI) configureLogging(cfg *config.Config) {
	level := cfg.Logging.Level.Slog()
	if c.Verbose {
		level = slog.LevelDebug
	}
	format := cfg.Logging.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	slog.SetDefault(observability.NewLogger(os.Stderr, level, format == config.LogFormatJSON))
}

// projectDir resolves and checks the project directory argument.
func projectDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ferrors.ValidationError("invalid project path").WithCause(err).WithContext("path", path).Build()
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", ferrors.ValidationError("project directory does not exist").WithCause(err).WithContext("path", abs).Build()
	}
	if !info.IsDir() {
		return "", ferrors.ValidationError("project path is not a directory").WithContext("path", abs).Build()
	}
	return abs, nil
}

func policyOptions(cfg *config.Config, project string) []classify.Option {
	return []classify.Option{
		classify.WithMarkupExtension(cfg.Build.MarkupExtension),
		classify.WithRenderedExtension(cfg.Build.RenderedExtension),
		classify.WithExcludedExtensions(cfg.Build.ExcludeExtensions...),
		classify.WithExcludedDirs(cfg.Build.ExcludeDirs...),
		classify.WithOwnedPaths(cfg.JournalPath(project)),
	}
}

// passSinks receives every finished pass: the journal and the event publisher.
type passSinks struct {
	journal   *journal.Journal
	publisher notify.Publisher
	site      string
}

func openSinks(cfg *config.Config, project, site string) (*passSinks, error) {
	s := &passSinks{publisher: notify.Noop{}, site: site}
	if path := cfg.JournalPath(project); path != "" {
		j, err := journal.Open(path)
		if err != nil {
			return nil, ferrors.RuntimeError("failed to open journal").WithCause(err).WithContext("path", path).Build()
		}
		s.journal = j
	}
	if cfg.Notify.URL != "" {
		p, err := notify.NewNATSPublisher(cfg.Notify.URL, cfg.Notify.Subject)
		if err != nil {
			s.Close()
			return nil, ferrors.RuntimeError("failed to connect pass notifier").WithCause(err).Build()
		}
		s.publisher = p
	}
	return s, nil
}

// Handle journals and publishes report. Sink failures are logged, never fatal.
func (s *passSinks) Handle(ctx context.Context, report *mirror.Report) {
	ctx = observability.WithPassID(ctx, report.PassID)
	if s.journal != nil {
		changed, err := s.journal.Record(ctx, report)
		if err != nil {
			slog.WarnContext(ctx, "Failed to journal pass", logfields.Error(err))
		} else {
			slog.InfoContext(ctx, "Pass journaled", slog.Int("changed_documents", changed))
		}
	}
	if err := s.publisher.Publish(ctx, notify.NewPassEvent(report, s.site)); err != nil {
		slog.WarnContext(ctx, "Failed to publish pass event", logfields.Error(err))
	}
}

func (s *passSinks) Close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			slog.Warn("Failed to close journal", logfields.Error(err))
		}
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
}
