// Package revision identifies the version-control revision of a source tree.
package revision

import (
	"errors"
	"log/slog"

	ggit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ShortLen is the number of hash characters Detect returns.
const ShortLen = 12

// Detect returns the abbreviated HEAD commit of the git repository containing path.
// A path outside any repository, or a repository without commits, yields "" and no error.
func Detect(path string) (string, error) {
	repo, err := ggit.PlainOpenWithOptions(path, &ggit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, ggit.ErrRepositoryNotExists) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	hash := ref.Hash().String()
	if len(hash) > ShortLen {
		hash = hash[:ShortLen]
	}
	return hash, nil
}

// Func adapts Detect for callers that only want a best-effort label. Errors are
// logged at debug level and produce "".
func Func(log *slog.Logger) func(string) string {
	if log == nil {
		log = slog.Default()
	}
	return func(path string) string {
		rev, err := Detect(path)
		if err != nil {
			log.Debug("Revision detection failed", "path", path, "error", err)
			return ""
		}
		return rev
	}
}
