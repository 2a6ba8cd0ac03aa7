package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	tokensGeneratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "llmworker",
		Subsystem: "engine",
		Name:      "tokens_generated_total",
		Help:      "Total number of tokens streamed by the engine",
	})

	tokensPerSecond = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "llmworker",
		Subsystem: "engine",
		Name:      "tokens_per_second",
		Help:      "Decode throughput per completed generation",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
	})

	generationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "llmworker",
		Subsystem: "engine",
		Name:      "generations_total",
		Help:      "Completed generation calls by mode and result",
	}, []string{"mode", "result"})
)

func init() {
	prometheus.MustRegister(tokensGeneratedTotal, tokensPerSecond, generationsTotal)
}
