// Package skeleton writes the starter project created by `statique init`.
package skeleton

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
)

//go:embed all:files
var files embed.FS

// Result lists what Write did, as project-relative slash paths.
type Result struct {
	Written   []string
	Conflicts []string
}

// Files returns the project-relative paths of every skeleton file in walk order.
func Files() []string {
	var out []string
	_ = fs.WalkDir(files, "files", func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			out = append(out, strings.TrimPrefix(path, "files/"))
		}
		return nil
	})
	return out
}

// Write copies the skeleton into dir, creating dir if needed. Without force it first
// lists every target that already exists and, if any does, writes nothing and returns
// an already-exists error together with the conflicts.
func Write(dir string, force bool) (*Result, error) {
	res := &Result{}
	targets := Files()

	for _, rel := range targets {
		if _, err := os.Lstat(filepath.Join(dir, filepath.FromSlash(rel))); err == nil {
			res.Conflicts = append(res.Conflicts, rel)
		}
	}
	if len(res.Conflicts) > 0 && !force {
		return res, ferrors.AlreadyExistsError("files already exist in destination; use --force to overwrite them").
			WithContext("path", dir).
			WithContext("conflicts", strings.Join(res.Conflicts, ", ")).
			Build()
	}

	for _, rel := range targets {
		if err := writeFile(dir, rel); err != nil {
			return res, err
		}
		res.Written = append(res.Written, rel)
	}
	return res, nil
}

func writeFile(dir, rel string) error {
	data, err := files.ReadFile("files/" + rel)
	if err != nil {
		return ferrors.InternalError("embedded skeleton file missing").WithCause(err).WithContext("path", rel).Build()
	}
	target := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return ferrors.FileSystemError("failed to create directory").
			WithCause(err).WithContext("path", filepath.Dir(target)).Build()
	}
	if info, err := os.Lstat(target); err == nil && info.IsDir() {
		return ferrors.FileSystemError("target is a directory").WithContext("path", target).Build()
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ferrors.FileSystemError("failed to inspect target").WithCause(err).WithContext("path", target).Build()
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return ferrors.FileSystemError("failed to write skeleton file").
			WithCause(err).WithContext("path", target).Build()
	}
	return nil
}
