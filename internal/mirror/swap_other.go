//go:build !linux

package mirror

import "log/slog"

func swap(stage, destination string, log *slog.Logger) error {
	return renameViaPrev(stage, destination, log)
}
