package mirror

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/statique/internal/classify"
	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
	"git.home.luguber.info/inful/statique/internal/logfields"
)

// beginStaging creates a fresh staging directory next to destination, never inside it.
func beginStaging(destination string) (string, error) {
	parent := filepath.Dir(destination)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", ferrors.FileSystemError("create destination parent").
			WithCause(err).WithContext("path", parent).Fatal().Build()
	}
	stage := filepath.Join(parent, classify.StagingPrefix(destination)+uuid.NewString())
	if err := os.Mkdir(stage, 0o755); err != nil {
		return "", ferrors.FileSystemError("create staging directory").
			WithCause(err).WithContext("path", stage).Fatal().Build()
	}
	slog.Debug("Initialized staging directory", "staging", stage, "final", destination)
	return stage, nil
}

func abortStaging(stage string, log *slog.Logger) {
	if err := os.RemoveAll(stage); err != nil {
		log.Warn("Failed to remove staging directory after abort", "staging", stage, logfields.Error(err))
		return
	}
	log.Debug("Removed staging directory after abort", "staging", stage)
}

// promote moves stage into destination's place.
func promote(stage, destination string, log *slog.Logger) error {
	if _, err := os.Lstat(destination); errors.Is(err, fs.ErrNotExist) {
		if err := os.Rename(stage, destination); err != nil {
			return promotionError(err, destination)
		}
		return nil
	}
	return swap(stage, destination, log)
}

// renameViaPrev parks the current destination at its .prev sibling, renames stage into
// place and then drops the backup. If the second rename fails the backup is restored.
func renameViaPrev(stage, destination string, log *slog.Logger) error {
	prev := classify.PrevPath(destination)
	if err := os.RemoveAll(prev); err != nil {
		return promotionError(err, destination)
	}
	if err := os.Rename(destination, prev); err != nil {
		return promotionError(err, destination)
	}
	if err := os.Rename(stage, destination); err != nil {
		if rerr := os.Rename(prev, destination); rerr != nil {
			log.Error("Failed to restore previous output", logfields.Path(prev), logfields.Error(rerr))
		}
		return promotionError(err, destination)
	}
	if err := os.RemoveAll(prev); err != nil {
		log.Warn("Failed to remove previous output", logfields.Path(prev), logfields.Error(err))
	}
	return nil
}

func promotionError(err error, destination string) error {
	return ferrors.FileSystemError("promote staging directory").
		WithCause(err).WithContext("path", destination).Fatal().Build()
}

// Clean removes destination together with any staging or backup siblings left behind
// by an interrupted pass. It returns the removed paths.
func Clean(destination string) ([]string, error) {
	dst, err := filepath.Abs(destination)
	if err != nil {
		return nil, ferrors.ValidationError("invalid destination path").WithCause(err).Build()
	}
	targets := []string{dst, classify.PrevPath(dst)}
	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, ferrors.FileSystemError("read destination parent").WithCause(err).Build()
	}
	prefix := classify.StagingPrefix(dst)
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			targets = append(targets, filepath.Join(filepath.Dir(dst), e.Name()))
		}
	}

	var removed []string
	for _, t := range targets {
		if _, err := os.Lstat(t); err != nil {
			continue
		}
		if err := os.RemoveAll(t); err != nil {
			return removed, ferrors.FileSystemError("remove output").
				WithCause(err).WithContext("path", t).Build()
		}
		removed = append(removed, t)
	}
	return removed, nil
}
