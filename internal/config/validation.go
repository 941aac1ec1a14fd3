package config

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/statique/internal/classify"
	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
	"git.home.luguber.info/inful/statique/internal/util/sets"
)

// normalize trims extensions of their leading dots, folds enum values and fills
// zero durations with defaults.
func (c *Config) normalize() {
	trimExt := func(s string) string { return strings.TrimPrefix(s, ".") }
	c.Build.OutputDir = strings.TrimSpace(c.Build.OutputDir)
	c.Build.MarkupExtension = trimExt(strings.TrimSpace(c.Build.MarkupExtension))
	c.Build.RenderedExtension = trimExt(strings.TrimSpace(c.Build.RenderedExtension))
	excluded := sets.Normalized(c.Build.ExcludeExtensions, trimExt)
	excluded.Add(classify.ManifestExtension)
	c.Build.ExcludeExtensions = sets.Sorted(excluded)
	c.Build.ExcludeDirs = sets.Sorted(sets.Normalized(c.Build.ExcludeDirs, func(s string) string { return s }))

	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))

	def := Default()
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = def.Watch.Debounce
	}
	if c.Watch.MaxDelay == 0 {
		c.Watch.MaxDelay = def.Watch.MaxDelay
	}
	if strings.TrimSpace(c.Notify.Subject) == "" {
		c.Notify.Subject = def.Notify.Subject
	}
}

// Validate checks invariants that normalization cannot repair.
func (c *Config) Validate() error {
	b := c.Build
	switch {
	case b.OutputDir == "" || filepath.Clean(b.OutputDir) == ".":
		return ferrors.ConfigError("build.output_dir must name a directory").Build()
	case b.MarkupExtension == "":
		return ferrors.ConfigError("build.markup_extension must not be empty").Build()
	case b.RenderedExtension == "":
		return ferrors.ConfigError("build.rendered_extension must not be empty").Build()
	case b.MarkupExtension == b.RenderedExtension:
		return ferrors.ConfigError("build.markup_extension and build.rendered_extension must differ").
			WithContext("extension", b.MarkupExtension).Build()
	case b.MarkupExtension == classify.ManifestExtension:
		return ferrors.ConfigError("build.markup_extension must not be the manifest extension").
			WithContext("extension", b.MarkupExtension).Build()
	case isParentOnly(b.OutputDir):
		return ferrors.ConfigError("build.output_dir must not contain the project directory").
			WithContext("value", b.OutputDir).Build()
	}
	for _, d := range b.ExcludeDirs {
		if strings.ContainsAny(d, `/\`) {
			return ferrors.ConfigError("build.exclude_dirs entries are directory names, not paths").
				WithContext("value", d).Build()
		}
	}

	w := c.Watch
	switch {
	case w.Debounce < 0:
		return ferrors.ConfigError("watch.debounce must be positive").Build()
	case w.MaxDelay < w.Debounce:
		return ferrors.ConfigError("watch.max_delay must not be shorter than watch.debounce").Build()
	case w.RescanInterval < 0:
		return ferrors.ConfigError("watch.rescan_interval must not be negative").Build()
	}
	return nil
}

// validateOutputFor rejects an output directory that resolves to projectDir or one
// of its ancestors. A pass replaces the whole output tree, so such a value would
// replace the project itself.
func (c *Config) validateOutputFor(projectDir string) error {
	project, err := filepath.Abs(projectDir)
	if err != nil {
		return ferrors.ConfigError("invalid project path").WithCause(err).WithContext("path", projectDir).Build()
	}
	out, err := filepath.Abs(c.OutputPath(project))
	if err != nil {
		return ferrors.ConfigError("invalid build.output_dir").WithCause(err).WithContext("value", c.Build.OutputDir).Build()
	}
	rel, err := filepath.Rel(out, project)
	if err != nil {
		return nil
	}
	if rel != "." && !isDescendant(rel) {
		return nil
	}
	return ferrors.ConfigError("build.output_dir must not contain the project directory").
		WithContext("value", c.Build.OutputDir).
		WithContext("path", out).Build()
}

// isDescendant reports whether the cleaned relative path rel stays below its base.
func isDescendant(rel string) bool {
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// isParentOnly reports whether a relative dir is made of ".." elements only.
func isParentOnly(dir string) bool {
	if filepath.IsAbs(dir) {
		return false
	}
	for _, elem := range strings.Split(filepath.ToSlash(filepath.Clean(dir)), "/") {
		if elem != ".." {
			return false
		}
	}
	return true
}
