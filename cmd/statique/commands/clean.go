package commands

import (
	"fmt"

	"git.home.luguber.info/inful/statique/internal/config"
	"git.home.luguber.info/inful/statique/internal/mirror"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Path string `arg:"" default:"." help:"Project directory."`
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	project, err := projectDir(c.Path)
	if err != nil {
		return err
	}
	cfg, err := config.Load(project)
	if err != nil {
		return err
	}
	root.configureLogging(cfg)

	removed, err := mirror.Clean(cfg.OutputPath(project))
	if err != nil {
		return err
	}
	for _, p := range removed {
		_, _ = fmt.Fprintf(g.out(), "Removed %s\n", p)
	}
	_, _ = fmt.Fprintln(g.out(), "Build directory cleaned")
	return nil
}
