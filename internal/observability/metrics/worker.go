package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

// OrchestratorMetrics covers the worker binary: event routing outcomes,
// pipeline executions, and session actor activity.
type OrchestratorMetrics struct {
	registry *prometheus.Registry

	eventsRoutedTotal   *prometheus.CounterVec
	eventsRejectedTotal *prometheus.CounterVec
	pipelineRunsTotal   *prometheus.CounterVec
	pipelineDuration    *prometheus.HistogramVec
	pipelinesInFlight   prometheus.Gauge
	sessionSignalsTotal *prometheus.CounterVec
	activeSessions      prometheus.Gauge
	workflowLaunchTotal *prometheus.CounterVec
}

func NewOrchestratorMetrics(service string) *OrchestratorMetrics {
	registry := prometheus.NewRegistry()

	eventsRoutedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eo",
			Subsystem: "router",
			Name:      "events_routed_total",
			Help:      "Total routed events by target workflow and match rule.",
		},
		[]string{"service", "workflow", "matched_by"},
	)
	eventsRejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eo",
			Subsystem: "router",
			Name:      "events_rejected_total",
			Help:      "Total events rejected before launch, by reason.",
		},
		[]string{"service", "reason"},
	)
	pipelineRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eo",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total pipeline runs by outcome and failing stage.",
		},
		[]string{"service", "outcome", "stage"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eo",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds by outcome.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "outcome"},
	)
	pipelinesInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "eo",
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of pipeline runs currently executing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	sessionSignalsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eo",
			Subsystem: "session",
			Name:      "signals_total",
			Help:      "Total session signals applied by kind.",
		},
		[]string{"service", "kind"},
	)
	activeSessions := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "eo",
			Subsystem: "session",
			Name:      "active_sessions",
			Help:      "Number of live session actors.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	workflowLaunchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eo",
			Subsystem: "router",
			Name:      "workflow_launches_total",
			Help:      "Total child workflow launches by kind.",
		},
		[]string{"service", "workflow"},
	)

	registry.MustRegister(
		eventsRoutedTotal,
		eventsRejectedTotal,
		pipelineRunsTotal,
		pipelineDuration,
		pipelinesInFlight,
		sessionSignalsTotal,
		activeSessions,
		workflowLaunchTotal,
	)

	return &OrchestratorMetrics{
		registry:            registry,
		eventsRoutedTotal:   eventsRoutedTotal,
		eventsRejectedTotal: eventsRejectedTotal,
		pipelineRunsTotal:   pipelineRunsTotal,
		pipelineDuration:    pipelineDuration,
		pipelinesInFlight:   pipelinesInFlight,
		sessionSignalsTotal: sessionSignalsTotal,
		activeSessions:      activeSessions,
		workflowLaunchTotal: workflowLaunchTotal,
	}
}

func (m *OrchestratorMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *OrchestratorMetrics) RecordRoutedEvent(service string, decision domain.RoutingDecision) {
	m.eventsRoutedTotal.WithLabelValues(service, string(decision.Workflow.Kind), decision.MatchedBy).Inc()
}

func (m *OrchestratorMetrics) RecordRejectedEvent(service, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.eventsRejectedTotal.WithLabelValues(service, reason).Inc()
}

func (m *OrchestratorMetrics) StartPipeline() {
	m.pipelinesInFlight.Inc()
}

func (m *OrchestratorMetrics) FinishPipeline(service string, result domain.PipelineResult, duration time.Duration) {
	m.pipelinesInFlight.Dec()

	outcome := "success"
	stage := ""
	if !result.Success {
		outcome = "failure"
		stage = string(result.FailedStage)
	}
	m.pipelineRunsTotal.WithLabelValues(service, outcome, stage).Inc()
	m.pipelineDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

func (m *OrchestratorMetrics) RecordSessionSignal(service, kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.sessionSignalsTotal.WithLabelValues(service, kind).Inc()
}

func (m *OrchestratorMetrics) SetActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
}

func (m *OrchestratorMetrics) RecordWorkflowLaunch(service string, workflow domain.WorkflowKind) {
	m.workflowLaunchTotal.WithLabelValues(service, string(workflow)).Inc()
}
