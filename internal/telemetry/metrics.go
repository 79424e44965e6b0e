// Package telemetry keeps process-level counters for upstream requests and
// tool invocations, exposed in the Prometheus text format, plus the tracer
// used to span tool calls.
package telemetry

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// durationBuckets are upper bounds in seconds.
var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

type requestKey struct {
	integration string
	status      string
}

type toolKey struct {
	tool    string
	outcome string
}

type histogram struct {
	counts []uint64 // per bucket, not cumulative
	count  uint64
	sum    float64
}

func (h *histogram) observe(v float64) {
	h.count++
	h.sum += v
	for i, ub := range durationBuckets {
		if v <= ub {
			h.counts[i]++
			return
		}
	}
}

// Registry accumulates counters. It is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	requests  map[requestKey]uint64
	durations map[string]*histogram
	tools     map[toolKey]uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		requests:  make(map[requestKey]uint64),
		durations: make(map[string]*histogram),
		tools:     make(map[toolKey]uint64),
	}
}

// Default is the process registry used by the HTTP transport and tools.
var Default = NewRegistry()

// ObserveRequest records one upstream HTTP round trip. status 0 means the
// request failed before a response arrived.
func (r *Registry) ObserveRequest(integration string, status int, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests[requestKey{integration, statusLabel(status)}]++
	h, ok := r.durations[integration]
	if !ok {
		h = &histogram{counts: make([]uint64, len(durationBuckets))}
		r.durations[integration] = h
	}
	h.observe(d.Seconds())
}

// ObserveTool records one tool invocation and its outcome (ok or an error kind).
func (r *Registry) ObserveTool(tool, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[toolKey{tool, outcome}]++
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}

// Gather snapshots the registry as metric families in a stable order.
func (r *Registry) Gather() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	requests := &dto.MetricFamily{
		Name: ptr("devpulse_upstream_requests_total"),
		Help: ptr("Upstream API requests by integration and HTTP status."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for k, v := range r.requests {
		requests.Metric = append(requests.Metric, &dto.Metric{
			Label:   labels("integration", k.integration, "status", k.status),
			Counter: &dto.Counter{Value: ptr(float64(v))},
		})
	}
	sortMetrics(requests.Metric)

	durations := &dto.MetricFamily{
		Name: ptr("devpulse_upstream_request_duration_seconds"),
		Help: ptr("Upstream API request latency."),
		Type: dto.MetricType_HISTOGRAM.Enum(),
	}
	for integration, h := range r.durations {
		hist := &dto.Histogram{
			SampleCount: ptr(h.count),
			SampleSum:   ptr(h.sum),
		}
		var cumulative uint64
		for i, ub := range durationBuckets {
			cumulative += h.counts[i]
			hist.Bucket = append(hist.Bucket, &dto.Bucket{
				CumulativeCount: ptr(cumulative),
				UpperBound:      ptr(ub),
			})
		}
		durations.Metric = append(durations.Metric, &dto.Metric{
			Label:     labels("integration", integration),
			Histogram: hist,
		})
	}
	sortMetrics(durations.Metric)

	tools := &dto.MetricFamily{
		Name: ptr("devpulse_tool_calls_total"),
		Help: ptr("Tool invocations by tool and outcome."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for k, v := range r.tools {
		tools.Metric = append(tools.Metric, &dto.Metric{
			Label:   labels("outcome", k.outcome, "tool", k.tool),
			Counter: &dto.Counter{Value: ptr(float64(v))},
		})
	}
	sortMetrics(tools.Metric)

	var out []*dto.MetricFamily
	for _, mf := range []*dto.MetricFamily{requests, durations, tools} {
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	return out
}

// Write encodes every family in the given exposition format.
func (r *Registry) Write(w io.Writer, format expfmt.Format) error {
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range r.Gather() {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the registry, negotiating the format from Accept.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		format := expfmt.Negotiate(req.Header)
		w.Header().Set("Content-Type", string(format))
		_ = r.Write(w, format)
	})
}

func labels(kv ...string) []*dto.LabelPair {
	pairs := make([]*dto.LabelPair, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, &dto.LabelPair{Name: ptr(kv[i]), Value: ptr(kv[i+1])})
	}
	return pairs
}

func sortMetrics(ms []*dto.Metric) {
	sort.Slice(ms, func(i, j int) bool {
		return labelKey(ms[i]) < labelKey(ms[j])
	})
}

func labelKey(m *dto.Metric) string {
	var s string
	for _, lp := range m.Label {
		s += lp.GetName() + "=" + lp.GetValue() + ","
	}
	return s
}

func ptr[T any](v T) *T { return &v }
