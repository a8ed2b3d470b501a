package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/sitepress/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output  string `short:"o" help:"Override paths.output"`
	Workers int    `short:"w" help:"Override render.workers"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	e, err := setup(root)
	if err != nil {
		return err
	}
	defer e.close()

	if b.Output != "" {
		abs, err := filepath.Abs(b.Output)
		if err != nil {
			return fmt.Errorf("resolve output: %w", err)
		}
		e.cfg.Paths.Output = abs
	}
	if b.Workers > 0 {
		e.cfg.Render.Workers = b.Workers
	}

	gen, err := e.generator(metrics.NoopRecorder{})
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	report, err := gen.Generate(ctx)
	if report != nil {
		fmt.Println(report.Summary())
	}
	return err
}
