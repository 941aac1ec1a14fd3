// Package classify decides how each source entry is handled by a synchronization pass.
package classify

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/statique/internal/util/sets"
)

// Action is the handling decision for a single file.
type Action int

const (
	// CopyVerbatim copies the file byte for byte.
	CopyVerbatim Action = iota
	// Transpile renders the document body into the rendered extension.
	Transpile
	// Skip leaves the file out of the output entirely.
	Skip
)

func (a Action) String() string {
	switch a {
	case CopyVerbatim:
		return "copy"
	case Transpile:
		return "transpile"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

const (
	DefaultMarkupExtension   = "md"
	DefaultRenderedExtension = "html"
)

// ManifestExtension is the format of the project manifest and settings. It is
// excluded from every pass whatever else is configured.
const ManifestExtension = "yaml"

// DefaultExcludedExtensions keeps the project manifest and settings out of the output.
var DefaultExcludedExtensions = []string{ManifestExtension}

// Policy is the exclusion policy of one project. It is immutable after construction.
type Policy struct {
	outputRoot   string
	markupExt    string
	renderedExt  string
	excludedExts sets.Set[string]
	excludedDirs sets.Set[string]
	ownedPaths   []string
}

// Option configures a Policy.
type Option func(*Policy)

// WithMarkupExtension sets the extension of documents that get transpiled.
func WithMarkupExtension(ext string) Option {
	return func(p *Policy) {
		if e := normalizeExt(ext); e != "" {
			p.markupExt = e
		}
	}
}

// WithRenderedExtension sets the extension written for transpiled documents.
func WithRenderedExtension(ext string) Option {
	return func(p *Policy) {
		if e := normalizeExt(ext); e != "" {
			p.renderedExt = e
		}
	}
}

// WithExcludedExtensions replaces the set of extensions that are never copied.
// ManifestExtension stays in the set.
func WithExcludedExtensions(exts ...string) Option {
	return func(p *Policy) {
		p.excludedExts = sets.Normalized(exts, normalizeExt)
		p.excludedExts.Add(ManifestExtension)
	}
}

// WithExcludedDirs sets directory base names that are never descended into.
func WithExcludedDirs(names ...string) Option {
	return func(p *Policy) {
		p.excludedDirs = sets.Normalized(names, filepath.Clean)
	}
}

// WithOwnedPaths marks files the tool itself maintains inside the source tree, such
// as the pass journal. Any path starting with one of them is owned, which also covers
// SQLite's -wal and -journal companions.
func WithOwnedPaths(paths ...string) Option {
	return func(p *Policy) {
		for _, path := range paths {
			if path == "" {
				continue
			}
			if abs, err := filepath.Abs(path); err == nil {
				p.ownedPaths = append(p.ownedPaths, abs)
			}
		}
	}
}

// NewPolicy returns the policy for a pass writing into outputRoot.
func NewPolicy(outputRoot string, opts ...Option) *Policy {
	root, err := filepath.Abs(outputRoot)
	if err != nil {
		root = filepath.Clean(outputRoot)
	}
	p := &Policy{
		outputRoot:   root,
		markupExt:    DefaultMarkupExtension,
		renderedExt:  DefaultRenderedExtension,
		excludedExts: sets.New(DefaultExcludedExtensions...),
		excludedDirs: sets.New[string](),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OutputRoot returns the absolute output root guarded by this policy.
func (p *Policy) OutputRoot() string { return p.outputRoot }

// MarkupExtension returns the transpiled source extension, without dot.
func (p *Policy) MarkupExtension() string { return p.markupExt }

// RenderedExtension returns the transpiled output extension, without dot.
func (p *Policy) RenderedExtension() string { return p.renderedExt }

// ExcludedExtensions returns the excluded extensions in lexical order.
func (p *Policy) ExcludedExtensions() []string { return sets.Sorted(p.excludedExts) }

// ExcludedDirs returns the excluded directory names in lexical order.
func (p *Policy) ExcludedDirs() []string { return sets.Sorted(p.excludedDirs) }

// Classify maps a file path to its handling action. Exclusion wins over transpilation.
func (p *Policy) Classify(path string) Action {
	ext := Extension(path)
	switch {
	case p.excludedExts.Has(ext):
		return Skip
	case ext == p.markupExt:
		return Transpile
	default:
		return CopyVerbatim
	}
}

// IsOwned reports whether path is the output root, lies beneath it, or belongs to one
// of the synchronizer's staging or backup siblings. Owned paths are never source entries.
func (p *Policy) IsOwned(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, owned := range p.ownedPaths {
		if strings.HasPrefix(abs, owned) {
			return true
		}
	}
	parent := filepath.Dir(p.outputRoot)
	rel, err := filepath.Rel(parent, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	first, _, _ := strings.Cut(rel, string(filepath.Separator))
	base := filepath.Base(p.outputRoot)
	return first == base ||
		strings.HasPrefix(first, StagingPrefix(p.outputRoot)) ||
		first == filepath.Base(PrevPath(p.outputRoot))
}

// SkipDir reports whether a directory must not be walked as a source entry.
func (p *Policy) SkipDir(path string) bool {
	return p.IsOwned(path) || p.excludedDirs.Has(filepath.Base(path))
}

// OutputName maps a source-relative path to its output-relative path.
func (p *Policy) OutputName(rel string) string {
	if p.Classify(rel) != Transpile {
		return rel
	}
	return strings.TrimSuffix(rel, "."+p.markupExt) + "." + p.renderedExt
}

// StagingPrefix is the base-name prefix of staging directories created next to outputRoot.
func StagingPrefix(outputRoot string) string {
	return "." + filepath.Base(outputRoot) + ".staging-"
}

// PrevPath is where the previous output is parked while a new one is promoted.
func PrevPath(outputRoot string) string {
	return filepath.Join(filepath.Dir(outputRoot), "."+filepath.Base(outputRoot)+".prev")
}

// Extension returns the file extension of path without the leading dot.
func Extension(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.TrimSpace(ext), ".")
}
