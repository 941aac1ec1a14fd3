package mirror

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/statique/internal/classify"
	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
	"git.home.luguber.info/inful/statique/internal/logfields"
	"git.home.luguber.info/inful/statique/internal/metrics"
	"git.home.luguber.info/inful/statique/internal/transpile"
)

// RevisionFunc reports the revision of a source tree; empty when unknown.
type RevisionFunc func(source string) string

// Synchronizer runs synchronization passes. At most one pass runs at a time.
type Synchronizer struct {
	mu         sync.Mutex
	conv       transpile.Converter
	policyOpts []classify.Option
	logger     *slog.Logger
	recorder   metrics.Recorder
	revision   RevisionFunc
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithPolicy sets the classification options applied to every pass.
func WithPolicy(opts ...classify.Option) Option {
	return func(s *Synchronizer) { s.policyOpts = append(s.policyOpts, opts...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *Synchronizer) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithRevision stamps each Report with the revision reported by fn.
func WithRevision(fn RevisionFunc) Option {
	return func(s *Synchronizer) { s.revision = fn }
}

// New creates a Synchronizer rendering markup documents with conv.
func New(conv transpile.Converter, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		conv:     conv,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the classification policy a pass into destination uses.
func (s *Synchronizer) Policy(destination string) *classify.Policy {
	return classify.NewPolicy(destination, s.policyOpts...)
}

// Synchronize mirrors source into destination. Per-entry failures are logged and
// recorded on the Report; only invalid roots, cancellation and promotion failures
// return an error, and in those cases the previous destination is left untouched.
func (s *Synchronizer) Synchronize(ctx context.Context, source, destination string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, dst, err := resolveRoots(source, destination)
	if err != nil {
		return nil, err
	}

	p := &pass{
		Synchronizer: s,
		policy:       s.Policy(dst),
		report: &Report{
			PassID:      uuid.NewString(),
			Source:      src,
			Destination: dst,
			Start:       time.Now(),
		},
	}
	if s.revision != nil {
		p.report.Revision = s.revision(src)
	}
	p.log = s.logger.With(logfields.PassID(p.report.PassID))
	p.log.Info("Synchronization pass started", logfields.Source(src), logfields.Destination(dst))

	stage, err := beginStaging(dst)
	if err != nil {
		s.recorder.IncPassOutcome(metrics.OutcomeFailed)
		return nil, err
	}
	p.stage = stage

	if err := p.walk(ctx); err != nil {
		abortStaging(stage, p.log)
		p.finish(outcomeFor(err))
		return p.report, err
	}
	if err := ctx.Err(); err != nil {
		abortStaging(stage, p.log)
		p.finish(metrics.OutcomeCanceled)
		return p.report, ferrors.WrapError(err, ferrors.CategoryBuild, "synchronization canceled").Build()
	}
	if err := promote(stage, dst, p.log); err != nil {
		abortStaging(stage, p.log)
		p.finish(metrics.OutcomeFailed)
		return p.report, err
	}

	p.finish(p.report.Outcome())
	return p.report, nil
}

func resolveRoots(source, destination string) (string, string, error) {
	src, err := filepath.Abs(source)
	if err != nil {
		return "", "", ferrors.ValidationError("invalid source path").WithCause(err).WithContext("path", source).Build()
	}
	dst, err := filepath.Abs(destination)
	if err != nil {
		return "", "", ferrors.ValidationError("invalid destination path").WithCause(err).WithContext("path", destination).Build()
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", "", ferrors.ValidationError("source tree does not exist").WithCause(err).WithContext("path", src).Build()
	}
	if !info.IsDir() {
		return "", "", ferrors.ValidationError("source is not a directory").WithContext("path", src).Build()
	}
	if src == dst {
		return "", "", ferrors.ValidationError("destination must differ from source").WithContext("path", src).Build()
	}
	if rel, err := filepath.Rel(dst, src); err == nil && !escapes(rel) {
		return "", "", ferrors.ValidationError("destination must not contain the source").
			WithContext("path", dst).WithContext("source", src).Build()
	}
	if info, err := os.Stat(dst); err == nil && !info.IsDir() {
		return "", "", ferrors.FileSystemError("destination exists and is not a directory").
			WithContext("path", dst).Fatal().Build()
	}
	return src, dst, nil
}

// escapes reports whether a relative path leaves its base directory.
func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func outcomeFor(err error) metrics.PassOutcome {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return metrics.OutcomeCanceled
	}
	return metrics.OutcomeFailed
}

// pass holds the state of one Synchronize call.
type pass struct {
	*Synchronizer
	policy *classify.Policy
	report *Report
	stage  string
	log    *slog.Logger
}

func (p *pass) walk(ctx context.Context) error {
	src := p.report.Source
	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == src {
				return err
			}
			p.fail(path, EntryIOFailure, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			p.fail(path, EntryIOFailure, err)
			return nil
		}

		if d.IsDir() {
			return p.visitDir(path, rel)
		}
		p.visitFile(path, rel)
		return nil
	})

	if walkErr == nil {
		return nil
	}
	if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
		return ferrors.WrapError(walkErr, ferrors.CategoryBuild, "synchronization canceled").Build()
	}
	return ferrors.WrapError(walkErr, ferrors.CategoryBuild, "walk source tree").
		WithContext("path", src).Build()
}

// visitDir creates the mirror directory before any child is visited.
func (p *pass) visitDir(path, rel string) error {
	if rel == "." {
		p.report.Directories++
		return nil
	}
	if p.policy.SkipDir(path) {
		p.log.Debug("Skipping directory", logfields.Path(rel))
		return fs.SkipDir
	}
	if err := os.Mkdir(filepath.Join(p.stage, rel), 0o755); err != nil {
		p.fail(rel, StructuralConflict, err)
		return fs.SkipDir
	}
	p.report.Directories++
	return nil
}

func (p *pass) visitFile(path, rel string) {
	if p.policy.IsOwned(path) {
		return
	}
	action := p.policy.Classify(rel)
	switch action {
	case classify.Skip:
		p.report.Skipped++
		p.recorder.IncEntry(action.String())
		return
	case classify.Transpile:
		if err := p.transpile(path, rel); err != nil {
			return
		}
		p.report.Transpiled++
	default:
		if err := p.copy(path, rel); err != nil {
			return
		}
		p.report.Copied++
	}
	p.recorder.IncEntry(action.String())
}

func (p *pass) copy(path, rel string) error {
	info, err := os.Stat(path)
	if err != nil {
		p.fail(rel, EntryIOFailure, err)
		return err
	}
	if !info.Mode().IsRegular() {
		err := ferrors.FileSystemError("not a regular file").Build()
		p.fail(rel, EntryIOFailure, err)
		return err
	}
	in, err := os.Open(path)
	if err != nil {
		p.fail(rel, EntryIOFailure, err)
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := p.create(rel, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		p.fail(rel, EntryIOFailure, err)
		return err
	}
	if err := out.Close(); err != nil {
		p.fail(rel, EntryIOFailure, err)
		return err
	}
	return nil
}

func (p *pass) transpile(path, rel string) error {
	in, err := os.Open(path)
	if err != nil {
		p.fail(rel, EntryIOFailure, err)
		return err
	}
	defer func() { _ = in.Close() }()

	doc, err := transpile.RenderDocument(in, p.conv)
	if err != nil {
		p.fail(rel, EntryIOFailure, err)
		return err
	}
	if !doc.HasDelimiter {
		p.log.Debug("Document has no front matter delimiter; rendering empty output", logfields.Path(rel))
	}

	outRel := p.policy.OutputName(rel)
	out, err := p.create(outRel, 0o644)
	if err != nil {
		return err
	}
	if _, err := out.Write(doc.Body); err != nil {
		_ = out.Close()
		p.fail(outRel, EntryIOFailure, err)
		return err
	}
	if err := out.Close(); err != nil {
		p.fail(outRel, EntryIOFailure, err)
		return err
	}
	p.report.Documents = append(p.report.Documents, Document{Path: filepath.ToSlash(rel), Fingerprint: doc.Fingerprint})
	return nil
}

// create opens rel inside staging for writing. Output paths are never overwritten
// within a pass: an existing target is a structural conflict.
func (p *pass) create(rel string, perm fs.FileMode) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(p.stage, rel), os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		kind := EntryIOFailure
		if errors.Is(err, fs.ErrExist) {
			kind = StructuralConflict
		}
		p.fail(rel, kind, err)
		return nil, err
	}
	return f, nil
}

func (p *pass) fail(rel string, kind FailureKind, cause error) {
	err := ferrors.FileSystemError("entry skipped").
		WithCause(cause).
		WithContext("kind", string(kind)).
		WithContext("path", rel).
		Warning().
		Build()
	p.report.Failures = append(p.report.Failures, Failure{Path: rel, Kind: kind, Err: err})
	p.recorder.IncEntryFailure(string(kind))
	p.log.Warn("Entry skipped", logfields.Path(rel), slog.String("kind", string(kind)), logfields.Error(cause))
}

func (p *pass) finish(outcome metrics.PassOutcome) {
	r := p.report
	r.End = time.Now()
	p.recorder.ObservePassDuration(r.Duration())
	p.recorder.IncPassOutcome(outcome)

	attrs := []any{
		slog.String("outcome", string(outcome)),
		slog.Int("directories", r.Directories),
		slog.Int("copied", r.Copied),
		slog.Int("transpiled", r.Transpiled),
		slog.Int("skipped", r.Skipped),
		slog.Int("failures", len(r.Failures)),
		logfields.Duration(r.Duration()),
	}
	if r.Revision != "" {
		attrs = append(attrs, logfields.Revision(r.Revision))
	}
	switch outcome {
	case metrics.OutcomeSuccess:
		p.log.Info("Synchronization pass completed", attrs...)
	case metrics.OutcomeWarning:
		p.log.Warn("Synchronization pass completed with skipped entries", attrs...)
	default:
		p.log.Error("Synchronization pass aborted", attrs...)
	}
}
