package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chaperon",
		Name:      "runs_total",
		Help:      "Total supervised runs, labelled by terminal outcome.",
	}, []string{"outcome"})

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chaperon",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of supervised runs in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	})

	treeTerminations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chaperon",
		Name:      "tree_terminations_total",
		Help:      "Total process-tree terminations issued by the watchdog or supervisor.",
	})

	outputBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chaperon",
		Name:      "output_bytes_total",
		Help:      "Bytes of child output collected, labelled by stream.",
	}, []string{"stream"})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chaperon",
		Name:      "build_info",
		Help:      "Build metadata for the running chaperon binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(runsTotal, runDuration, treeTerminations, outputBytes, buildInfo)
}

// Registry returns the Prometheus registry containing all chaperon metrics.
func Registry() *prometheus.Registry {
	return registry
}

// ObserveRun records a completed run and its duration.
func ObserveRun(outcome string, d time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.Observe(d.Seconds())
}

// IncTreeTermination counts one process-tree termination.
func IncTreeTermination() {
	treeTerminations.Inc()
}

// AddOutputBytes records collected output volume for a stream.
func AddOutputBytes(stream string, n int) {
	if n <= 0 {
		return
	}
	outputBytes.WithLabelValues(stream).Add(float64(n))
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
