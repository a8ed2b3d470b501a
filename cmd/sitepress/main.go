// Command sitepress generates a static site from content directories.
package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitepress/cmd/sitepress/commands"
	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("sitepress"),
		kong.Description("Static site generator with paginated listings and a preview server."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	global := &commands.Global{Logger: slog.Default()}
	if err := parser.Run(global, &cli); err != nil {
		serrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
