package commands

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitepress/internal/metrics"
	"git.home.luguber.info/inful/sitepress/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr string `short:"a" help:"Override serve.addr"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	e, err := setup(root)
	if err != nil {
		return err
	}
	defer e.close()
	if s.Addr != "" {
		e.cfg.Serve.Addr = s.Addr
	}

	var (
		reg      *prom.Registry
		recorder metrics.Recorder = metrics.NoopRecorder{}
	)
	if e.cfg.Serve.Metrics {
		reg = metrics.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
	}

	gen, err := e.generator(recorder)
	if err != nil {
		return err
	}
	svc, err := newWatchService(e, gen, recorder)
	if err != nil {
		return err
	}
	srv := server.New(server.Options{
		Addr:     e.cfg.Serve.Addr,
		Root:     e.cfg.Paths.Output,
		Registry: reg,
		Reports:  gen,
		Busy:     svc.Worker.Running,
		Logger:   e.logger,
	})

	ctx, stop := signalContext()
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })
	return g.Wait()
}
