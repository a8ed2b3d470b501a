package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitepress"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration      *prom.HistogramVec
	generationDuration prom.Histogram
	stageResults       *prom.CounterVec
	outcomes           *prom.CounterVec
	engineUnits        *prom.GaugeVec
	outputs            prom.Gauge
	regenerations      *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual generation stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		generationDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Total generation duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		outcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "generation_outcomes_total",
			Help:      "Generation outcomes by final status",
		}, []string{"outcome"}),
		engineUnits: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_units",
			Help:      "Units loaded by each engine in the last generation",
		}, []string{"engine"}),
		outputs: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "outputs",
			Help:      "Files written by the last generation",
		}),
		regenerations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "regeneration_requests_total",
			Help:      "Regeneration requests by reason",
		}, []string{"reason"}),
	}
	reg.MustRegister(pr.stageDuration, pr.generationDuration, pr.stageResults, pr.outcomes, pr.engineUnits, pr.outputs, pr.regenerations)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveGenerationDuration(d time.Duration) {
	p.generationDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncGenerationOutcome(outcome string) {
	p.outcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetEngineUnits(engine string, n int) {
	p.engineUnits.WithLabelValues(engine).Set(float64(n))
}

func (p *PrometheusRecorder) SetOutputs(n int) { p.outputs.Set(float64(n)) }

func (p *PrometheusRecorder) IncRegenerationRequest(reason string) {
	p.regenerations.WithLabelValues(reason).Inc()
}
