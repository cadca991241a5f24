package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teachgen_pipeline_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teachgen_requests_total",
			Help: "Total API requests processed",
		},
		[]string{"operation", "status"},
	)

	ChunksIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "teachgen_chunks_ingested_total",
			Help: "Total chunks ingested into the vector index",
		},
	)

	DocumentsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teachgen_documents_ingested_total",
			Help: "Total documents ingested",
		},
		[]string{"kind"},
	)

	RetrievalResultsCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "teachgen_retrieval_results_count",
			Help:    "Fused evidence chunks per retrieval run",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 12, 15},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teachgen_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"type"},
	)

	PlanRegenerations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "teachgen_plan_regenerations_total",
			Help: "Total plan revisions requested via reviewer feedback",
		},
	)

	GenerationRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "teachgen_generation_retries_total",
			Help: "Total content generations retried after schema rejection",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teachgen_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teachgen_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DecksAssembled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "teachgen_decks_assembled_total",
			Help: "Total slide decks assembled",
		},
	)
)

func Init() {
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(RequestTotal)
	prometheus.MustRegister(ChunksIngested)
	prometheus.MustRegister(DocumentsIngested)
	prometheus.MustRegister(RetrievalResultsCount)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(PlanRegenerations)
	prometheus.MustRegister(GenerationRetries)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(DecksAssembled)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
