package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "assetflow"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry     *prom.Registry
	taskDuration *prom.HistogramVec
	taskResults  *prom.CounterVec
	planDuration *prom.HistogramVec
	planOutcome  *prom.CounterVec
	outputBytes  *prom.CounterVec
	reloads      *prom.CounterVec
	liveClients  prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg. A nil reg
// gets a fresh registry, available through Registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of individual build tasks",
			Buckets:   prom.DefBuckets,
		}, []string{"task"}),
		taskResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_results_total",
			Help:      "Task result counts by outcome",
		}, []string{"task", "result"}),
		planDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_duration_seconds",
			Help:      "Total duration of plan executions",
			Buckets:   prom.DefBuckets,
		}, []string{"plan"}),
		planOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "plan_outcomes_total",
			Help:      "Plan executions by final status",
		}, []string{"plan", "result"}),
		outputBytes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "output_bytes_total",
			Help:      "Bytes written by each task",
		}, []string{"task"}),
		reloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_broadcasts_total",
			Help:      "Live reload messages sent to browsers by kind",
		}, []string{"kind"}),
		liveClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Connected live reload clients",
		}),
	}
	reg.MustRegister(pr.taskDuration, pr.taskResults, pr.planDuration, pr.planOutcome, pr.outputBytes, pr.reloads, pr.liveClients)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(task string, result ResultLabel) {
	p.taskResults.WithLabelValues(task, string(result)).Inc()
}

func (p *PrometheusRecorder) ObservePlanDuration(plan string, d time.Duration) {
	p.planDuration.WithLabelValues(plan).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPlanOutcome(plan string, result ResultLabel) {
	p.planOutcome.WithLabelValues(plan, string(result)).Inc()
}

func (p *PrometheusRecorder) AddOutputBytes(task string, n int64) {
	if n <= 0 {
		return
	}
	p.outputBytes.WithLabelValues(task).Add(float64(n))
}

func (p *PrometheusRecorder) IncReload(kind string) {
	p.reloads.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetLiveClients(n int) {
	p.liveClients.Set(float64(n))
}
