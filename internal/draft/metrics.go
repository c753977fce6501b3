package draft

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the draft pipeline.
type Metrics struct {
	DraftsTotal       *prometheus.CounterVec
	DraftDuration     *prometheus.HistogramVec
	AutoSendTotal     *prometheus.CounterVec
	GovernanceTotal   *prometheus.CounterVec
	VerdictDisagree   prometheus.Counter
	AcceptanceFails   *prometheus.CounterVec
	LLMDuration       prometheus.Histogram
	LLMFailures       prometheus.Counter
	KnowledgeDuration prometheus.Histogram
	KnowledgeCoverage *prometheus.CounterVec
	StoreFailures     prometheus.Counter
}

// NewMetrics registers and returns draft-pipeline metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DraftsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_drafts_total",
			Help: "Total drafts produced by strategy and intent.",
		}, []string{"strategy", "intent"}),
		DraftDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_draft_duration_seconds",
			Help:    "End-to-end draft pipeline duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~40s
		}, []string{"strategy"}),
		AutoSendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_auto_send_total",
			Help: "Rule-based auto-send verdicts by outcome.",
		}, []string{"outcome"}),
		GovernanceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_governance_total",
			Help: "Governance verdicts by outcome and confidence bucket.",
		}, []string{"outcome", "bucket"}),
		VerdictDisagree: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribe_verdict_disagreements_total",
			Help: "Drafts where the rule-based and governance verdicts differed.",
		}),
		AcceptanceFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_acceptance_failures_total",
			Help: "Draft acceptance-gate failures by rule.",
		}, []string{"rule"}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_llm_call_duration_seconds",
			Help:    "Duration of LLM draft calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		LLMFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribe_llm_failures_total",
			Help: "LLM calls that failed or returned empty content.",
		}),
		KnowledgeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_knowledge_duration_seconds",
			Help:    "Duration of knowledge retrieval calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms .. ~6.4s
		}),
		KnowledgeCoverage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_knowledge_coverage_total",
			Help: "Knowledge retrievals by coverage grade.",
		}, []string{"coverage"}),
		StoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribe_store_failures_total",
			Help: "Decision-record persistence failures.",
		}),
	}

	reg.MustRegister(
		m.DraftsTotal,
		m.DraftDuration,
		m.AutoSendTotal,
		m.GovernanceTotal,
		m.VerdictDisagree,
		m.AcceptanceFails,
		m.LLMDuration,
		m.LLMFailures,
		m.KnowledgeDuration,
		m.KnowledgeCoverage,
		m.StoreFailures,
	)

	return m
}
