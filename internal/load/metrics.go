package load

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Outcome and result label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	CheckPass      = "pass"
	CheckFail      = "fail"
)

// Metrics records one load run on its own registry, so runs in the same
// process do not share counters.
type Metrics struct {
	registry   *prometheus.Registry
	duration   *prometheus.HistogramVec
	requests   *prometheus.CounterVec
	checks     *prometheus.CounterVec
	iterations prometheus.Counter
}

// NewMetrics creates the load metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "receiptcheck_load_request_duration_seconds",
			Help:    "Latency of requests issued by virtual users, labelled by request.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"request"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receiptcheck_load_requests_total",
			Help: "Requests issued by virtual users, labelled by request and outcome.",
		}, []string{"request", "outcome"}),
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receiptcheck_load_checks_total",
			Help: "Check evaluations, labelled by check name and result.",
		}, []string{"check", "result"}),
		iterations: factory.NewCounter(prometheus.CounterOpts{
			Name: "receiptcheck_load_iterations_total",
			Help: "Completed iterations across all virtual users.",
		}),
	}
}

// Registry exposes the registry, for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRequest(request string, elapsed time.Duration, ok bool) {
	m.duration.WithLabelValues(request).Observe(elapsed.Seconds())
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeFailure
	}
	m.requests.WithLabelValues(request, outcome).Inc()
}

func (m *Metrics) observeCheck(name string, ok bool) {
	result := CheckPass
	if !ok {
		result = CheckFail
	}
	m.checks.WithLabelValues(name, result).Inc()
}

// Latency holds estimated latency percentiles of one request.
type Latency struct {
	Request string        `json:"request"`
	Count   uint64        `json:"count"`
	P50     time.Duration `json:"p50"`
	P95     time.Duration `json:"p95"`
	P99     time.Duration `json:"p99"`
}

// CheckResult aggregates one named check.
type CheckResult struct {
	Name   string  `json:"name"`
	Passes int     `json:"passes"`
	Fails  int     `json:"fails"`
	Rate   float64 `json:"rate"`
}

// Summary is the aggregate outcome of a load run.
type Summary struct {
	Scenario   string        `json:"scenario"`
	Elapsed    time.Duration `json:"elapsed"`
	Iterations int           `json:"iterations"`
	Requests   int           `json:"requests"`
	Failed     int           `json:"failed"`
	ErrorRate  float64       `json:"error_rate"`
	Latencies  []Latency     `json:"latencies"`
	Checks     []CheckResult `json:"checks"`
}

// ChecksPassed reports whether every check evaluation passed.
func (s *Summary) ChecksPassed() bool {
	for _, c := range s.Checks {
		if c.Fails > 0 {
			return false
		}
	}
	return true
}

// Summarize reads the registry back into a Summary.
func (m *Metrics) Summarize(scenario string, elapsed time.Duration) (*Summary, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	s := &Summary{Scenario: scenario, Elapsed: elapsed}
	checks := map[string]*CheckResult{}

	for _, mf := range families {
		switch mf.GetName() {
		case "receiptcheck_load_iterations_total":
			for _, metric := range mf.GetMetric() {
				s.Iterations += int(metric.GetCounter().GetValue())
			}
		case "receiptcheck_load_requests_total":
			for _, metric := range mf.GetMetric() {
				n := int(metric.GetCounter().GetValue())
				s.Requests += n
				if label(metric, "outcome") == OutcomeFailure {
					s.Failed += n
				}
			}
		case "receiptcheck_load_checks_total":
			for _, metric := range mf.GetMetric() {
				name := label(metric, "check")
				c, ok := checks[name]
				if !ok {
					c = &CheckResult{Name: name}
					checks[name] = c
				}
				n := int(metric.GetCounter().GetValue())
				if label(metric, "result") == CheckPass {
					c.Passes += n
				} else {
					c.Fails += n
				}
			}
		case "receiptcheck_load_request_duration_seconds":
			for _, metric := range mf.GetMetric() {
				h := metric.GetHistogram()
				s.Latencies = append(s.Latencies, Latency{
					Request: label(metric, "request"),
					Count:   h.GetSampleCount(),
					P50:     seconds(quantile(0.50, h)),
					P95:     seconds(quantile(0.95, h)),
					P99:     seconds(quantile(0.99, h)),
				})
			}
		}
	}

	if s.Requests > 0 {
		s.ErrorRate = float64(s.Failed) / float64(s.Requests)
	}
	for _, c := range checks {
		if total := c.Passes + c.Fails; total > 0 {
			c.Rate = float64(c.Passes) / float64(total)
		}
		s.Checks = append(s.Checks, *c)
	}
	sort.Slice(s.Checks, func(i, j int) bool { return s.Checks[i].Name < s.Checks[j].Name })
	sort.Slice(s.Latencies, func(i, j int) bool { return s.Latencies[i].Request < s.Latencies[j].Request })
	return s, nil
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// quantile estimates the q-quantile of a histogram by linear interpolation
// inside the bucket holding the target rank, as histogram_quantile does.
// Ranks past the last finite bucket return its upper bound.
func quantile(q float64, h *dto.Histogram) float64 {
	count := h.GetSampleCount()
	buckets := h.GetBucket()
	if count == 0 || len(buckets) == 0 {
		return 0
	}

	rank := q * float64(count)
	var lower float64
	var prev uint64
	for _, b := range buckets {
		upper := b.GetUpperBound()
		if math.IsInf(upper, +1) {
			break
		}
		cum := b.GetCumulativeCount()
		if float64(cum) >= rank {
			if cum == prev {
				return upper
			}
			return lower + (upper-lower)*(rank-float64(prev))/float64(cum-prev)
		}
		lower, prev = upper, cum
	}
	return lower
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
