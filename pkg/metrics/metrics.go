// Package metrics exposes Prometheus collectors for tool calls, capability
// listings, generations and the MCP connection state. A nil *Recorder is a
// valid no-op recorder.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wakalat"

type Recorder struct {
	registry *prometheus.Registry

	toolCalls   *prometheus.CounterVec
	listings    *prometheus.CounterVec
	generations *prometheus.CounterVec
	genDuration prometheus.Histogram
	connected   prometheus.Gauge
}

// New creates a recorder with its own registry, including the Go runtime and
// process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations forwarded to the MCP server.",
		}, []string{"tool", "outcome"}),
		listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_listings_total",
			Help:      "Capability listings requested from the MCP server.",
		}, []string{"outcome"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Model generations by outcome.",
		}, []string{"outcome"}),
		genDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of model generations including tool calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mcp_connected",
			Help:      "1 while an MCP session is established.",
		}),
	}
	r.registry.MustRegister(
		r.toolCalls, r.listings, r.generations, r.genDuration, r.connected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (r *Recorder) ToolCall(tool string, err error) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(tool, outcome(err)).Inc()
}

func (r *Recorder) CapabilityListing(err error) {
	if r == nil {
		return
	}
	r.listings.WithLabelValues(outcome(err)).Inc()
}

func (r *Recorder) Generation(d time.Duration, err error) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(outcome(err)).Inc()
	r.genDuration.Observe(d.Seconds())
}

func (r *Recorder) SetConnected(connected bool) {
	if r == nil {
		return
	}
	if connected {
		r.connected.Set(1)
	} else {
		r.connected.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
