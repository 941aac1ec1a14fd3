package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/statique/internal/classify"
	"git.home.luguber.info/inful/statique/internal/logfields"
)

// addDirsRecursive watches root and every directory beneath it that a pass would walk.
func addDirsRecursive(add func(string) error, root string, policy *classify.Policy) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && policy.SkipDir(path) {
			return filepath.SkipDir
		}
		if err := add(path); err != nil {
			slog.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// relevant reports whether an event under source can change the output. It applies
// the decisions a pass makes for the same path: owned paths and excluded directories
// are never walked, and files classified Skip never reach the output.
func relevant(ev fsnotify.Event, source string, policy *classify.Policy) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if policy.IsOwned(ev.Name) {
		return false
	}
	for dir := filepath.Dir(ev.Name); dir != source && strings.HasPrefix(dir, source); dir = filepath.Dir(dir) {
		if policy.SkipDir(dir) {
			return false
		}
	}
	// A removed or renamed path can no longer be inspected and may have been
	// either kind of entry.
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		return true
	}
	info, err := os.Stat(ev.Name)
	if err == nil && info.IsDir() {
		return !policy.SkipDir(ev.Name)
	}
	return policy.Classify(ev.Name) != classify.Skip
}
