package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/statique/internal/manifest"
	"git.home.luguber.info/inful/statique/internal/skeleton"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Path  string `arg:"" help:"Directory to initialize (created if missing)."`
	Force bool   `short:"f" help:"Overwrite existing files"`
}

func (i *InitCmd) Run(g *Global, _ *CLI) error {
	dir, err := filepath.Abs(i.Path)
	if err != nil {
		return err
	}
	out := g.out()
	_, _ = fmt.Fprintf(out, "Initializing statique project in %s\n", dir)

	res, err := skeleton.Write(dir, i.Force)
	for _, c := range res.Conflicts {
		_, _ = fmt.Fprintf(out, "File %q already exists\n", c)
	}
	if err != nil {
		if len(res.Conflicts) > 0 {
			_, _ = fmt.Fprintln(out, "Files already exist in destination folder. To overwrite them use:")
			_, _ = fmt.Fprintf(out, "  statique init %s --force\n", i.Path)
		}
		return err
	}

	// The written manifest must load back cleanly.
	if _, err := manifest.Load(dir); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, "initialized successfully")
	return nil
}
