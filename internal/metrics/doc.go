// Package metrics provides generation metrics for sitepress.
//
// Components receive a Recorder through dependency injection. NoopRecorder
// is the default so callers never check for nil; the Prometheus recorder
// is swapped in by the watch and serve commands, which expose /metrics.
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	gen := site.NewGenerator(cfg, site.WithRecorder(recorder))
package metrics
