package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/statique/cmd/statique/commands"
	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
	"git.home.luguber.info/inful/statique/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{Out: os.Stdout}

	parser := kong.Parse(&cli,
		kong.Name("statique"),
		kong.Description("Static site generator: mirrors a project tree into a site, rendering markdown documents."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(global, &cli)
	if err == nil {
		return
	}
	adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	os.Exit(adapter.Report(err))
}
