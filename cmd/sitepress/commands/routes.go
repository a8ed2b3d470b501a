package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepress/internal/metrics"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

// RoutesCmd implements the 'routes' command.
type RoutesCmd struct {
	Format string `short:"f" enum:"text,json,yaml" default:"text" help:"Output format (text|json|yaml)"`
}

func (r *RoutesCmd) Run(_ *Global, root *CLI) error {
	e, err := setup(root)
	if err != nil {
		return err
	}
	defer e.close()

	gen := site.NewGenerator(e.cfg, site.WithLogger(e.logger), site.WithRecorder(metrics.NoopRecorder{}))
	ctx, stop := signalContext()
	defer stop()

	routes, err := gen.Routes(ctx)
	if err != nil {
		return err
	}
	return writeRoutes(os.Stdout, r.Format, routes)
}

func writeRoutes(w io.Writer, format string, routes []site.Route) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(routes)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(routes); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "PATH\tURL\tKIND\tOWNER")
		for _, rt := range routes {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rt.Path, rt.URL, rt.Kind, rt.Owner)
		}
		return tw.Flush()
	}
}
