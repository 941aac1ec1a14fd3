//go:build linux

package mirror

import (
	"errors"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"git.home.luguber.info/inful/statique/internal/logfields"
)

// swap exchanges stage and destination in one renameat2 call so readers never observe
// a missing destination. Filesystems without RENAME_EXCHANGE fall back to renameViaPrev.
func swap(stage, destination string, log *slog.Logger) error {
	err := unix.Renameat2(unix.AT_FDCWD, stage, unix.AT_FDCWD, destination, unix.RENAME_EXCHANGE)
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EPERM) {
		log.Debug("Atomic exchange unsupported; promoting via backup", logfields.Error(err))
		return renameViaPrev(stage, destination, log)
	}
	if err != nil {
		return promotionError(err, destination)
	}
	// stage now holds the previous output.
	if err := os.RemoveAll(stage); err != nil {
		log.Warn("Failed to remove previous output", logfields.Path(stage), logfields.Error(err))
	}
	return nil
}
