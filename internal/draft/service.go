package draft

import (
	"context"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/scribe/internal/autosend"
	"github.com/linnemanlabs/scribe/internal/canned"
	"github.com/linnemanlabs/scribe/internal/classify"
	"github.com/linnemanlabs/scribe/internal/governance"
	"github.com/linnemanlabs/scribe/internal/knowledge"
	"github.com/linnemanlabs/scribe/internal/missinginfo"
	"github.com/linnemanlabs/scribe/internal/strategy"
)

// LLM generates draft text. Implementations must error on empty content so
// the pipeline can fall back to its deterministic baseline.
type LLM interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// KnowledgeRetriever fetches supporting documentation. Implementations never
// error; they degrade to an empty result.
type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, intent, message string, meta map[string]any) knowledge.Result
}

// Notifier receives records worth surfacing to operators.
type Notifier interface {
	Notify(ctx context.Context, rec *Record) error
}

// Deps wires the service's collaborators. Store, AutoSend, Catalog, and
// Logger are required; LLM, Knowledge, Notifier, and Metrics may be nil, in
// which case the corresponding feature is disabled.
type Deps struct {
	Store     Store
	AutoSend  *autosend.Classifier
	Catalog   *canned.Catalog
	LLM       LLM
	Knowledge KnowledgeRetriever
	Notifier  Notifier
	Metrics   *Metrics
	Logger    log.Logger
}

// Service runs the draft pipeline.
type Service struct {
	store     Store
	auto      *autosend.Classifier
	catalog   *canned.Catalog
	llm       LLM
	retriever KnowledgeRetriever
	notifier  Notifier
	metrics   *Metrics
	logger    log.Logger
}

// NewService creates the pipeline service.
func NewService(d Deps) *Service {
	return &Service{
		store:     d.Store,
		auto:      d.AutoSend,
		catalog:   d.Catalog,
		llm:       d.LLM,
		retriever: d.Knowledge,
		notifier:  d.Notifier,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
}

// Draft runs the full pipeline for one request. Collaborator failures (LLM,
// knowledge, persistence, notification) degrade deterministically and never
// propagate: the caller always gets a response with both send verdicts.
func (s *Service) Draft(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	id := ulid.Make().String()
	L := s.logger.With("draft_id", id)

	c := classify.Classify(req.Subject, req.LatestMessage)
	mode := deriveMode(c.PrimaryIntent)

	messages := make([]string, 0, len(req.ConversationHistory)+1)
	for _, m := range req.ConversationHistory {
		messages = append(messages, m.Text)
	}
	messages = append(messages, req.LatestMessage)

	missing := missinginfo.Detect(messages, c.PrimaryIntent, c.Confidence, missingInfoMode(mode), req.Metadata)

	strat := strategy.Select(c.PrimaryIntent, c.Confidence, c.SafetyMode, missing, c.AmbiguityDetected)

	kr := s.retrieveKnowledge(ctx, c, req)

	body, verification := s.produceDraft(ctx, req, c, strat, mode)

	if strat.Strategy == strategy.AutoTemplate || strat.Strategy == strategy.ProactiveDraft {
		var injected bool
		body.ResponseText, injected = injectKnowledge(body.ResponseText, c.PrimaryIntent, mode, c.Confidence, kr)
		body.QualityMetrics.KnowledgeInjected = injected
	}

	fails := acceptanceFailures(body.ResponseText, c.PrimaryIntent, mode)
	body.QualityMetrics.AcceptanceFailure = fails
	if len(fails) > 0 {
		body.QualityMetrics.FallbackUsed = true
	}

	asd := s.auto.Classify(autosend.Input{
		Message:     req.LatestMessage,
		Intent:      c.PrimaryIntent,
		Confidence:  c.Confidence,
		SafetyMode:  c.SafetyMode,
		MissingInfo: missing,
	})

	hasRequiredMissing := missing.Summary.BlockingCount > 0
	if verification != nil && verification.HasRequiredMissing {
		hasRequiredMissing = true
	}
	gov := governance.Evaluate(governance.Input{
		Intent:             c.PrimaryIntent,
		Confidence:         c.Confidence,
		RiskLevel:          string(governance.RiskFor(c.SafetyMode)),
		SafetyMode:         c.SafetyMode,
		SensitiveFlag:      metaSensitive(req.Metadata),
		AmbiguityDetected:  c.AmbiguityDetected,
		HasRequiredMissing: hasRequiredMissing,
		DeltaPassed:        len(fails) == 0,
	})

	// Eligibility shown to the agent requires both verdicts plus a clean
	// acceptance gate; the raw verdicts are still returned individually.
	eligible := asd.AutoSend && gov.AutoSendAllowed && len(fails) == 0

	rec := &Record{
		ID:                   id,
		CreatedAt:            time.Now().UTC(),
		Subject:              req.Subject,
		LatestMessage:        req.LatestMessage,
		Intent:               c.PrimaryIntent,
		Confidence:           c.Confidence,
		SafetyMode:           c.SafetyMode,
		Tone:                 c.ToneModifier,
		AmbiguityDetected:    c.AmbiguityDetected,
		Strategy:             strat.Strategy,
		TemplateID:           strat.TemplateID,
		DraftType:            body.Type,
		DraftText:            body.ResponseText,
		AutoSend:             asd.AutoSend,
		AutoSendReason:       asd.Reason,
		GovernanceAllowed:    gov.AutoSendAllowed,
		GovernanceReasons:    gov.Reasons,
		ConfidenceBucket:     gov.ConfidenceBucket,
		RiskCategory:         gov.RiskCategory,
		BlockingMissingCount: missing.Summary.BlockingCount,
	}

	// Persistence is best-effort: an audit-trail outage must not block the
	// customer-facing draft.
	if err := s.store.Put(ctx, rec); err != nil {
		L.Error(ctx, err, "failed to persist decision record")
		if s.metrics != nil {
			s.metrics.StoreFailures.Inc()
		}
	}

	if s.notifier != nil && (rec.VerdictsDisagree() || eligible) {
		go func() {
			nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
			defer cancel()
			if err := s.notifier.Notify(nctx, rec); err != nil {
				L.Error(nctx, err, "failed to send notification")
			}
		}()
	}

	s.observe(c, strat, asd, gov, rec, fails, kr, time.Since(start))

	L.Info(ctx, "draft produced",
		"intent", c.PrimaryIntent,
		"confidence", c.Confidence,
		"strategy", strat.Strategy,
		"auto_send", asd.AutoSend,
		"governance_allowed", gov.AutoSendAllowed,
		"duration", time.Since(start).Seconds(),
	)

	return &Response{
		ID:                   id,
		Timestamp:            rec.CreatedAt,
		IntentClassification: c,
		MissingInformation:   missing,
		Strategy:             strat,
		Draft:                body,
		AgentGuidance: AgentGuidance{
			RequiresReview:   !eligible,
			AutoSendEligible: eligible,
			Reason:           buildReason(c, eligible),
			Recommendation:   buildRecommendation(c),
			SuggestedActions: buildSuggestedActions(c.PrimaryIntent),
			CannedResponses:  buildCannedSuggestions(c.PrimaryIntent),
		},
		AutoSend:             asd,
		Governance:           gov,
		Knowledge:            kr,
		TemplateVerification: verification,
	}, nil
}

// Get retrieves a persisted decision record.
func (s *Service) Get(ctx context.Context, id string) (*Record, bool, error) {
	return s.store.Get(ctx, id)
}

// GovernanceRollup aggregates governance verdicts for the insights endpoint.
func (s *Service) GovernanceRollup(ctx context.Context) ([]RollupRow, error) {
	return s.store.GovernanceRollup(ctx)
}

// produceDraft renders the draft text for the selected strategy. The
// verification result is non-nil only when a catalog template was used.
func (s *Service) produceDraft(ctx context.Context, req Request, c classify.Classification,
	strat strategy.Decision, mode string) (DraftBody, *canned.Verification) {

	switch strat.Strategy {
	case strategy.AutoTemplate:
		prep := s.catalog.Prepare(strat.TemplateID, extractedData(req))
		if prep.TemplateUsed {
			return DraftBody{
				Type:         "full",
				ResponseText: prep.DraftText,
				QualityMetrics: QualityMetrics{
					Mode:         mode,
					TemplateUsed: true,
				},
			}, &prep.Verification
		}
		// Template vanished from the catalog; draft proactively instead.
		fallthrough

	case strategy.ProactiveDraft:
		text := baselineDraft(c.PrimaryIntent, req.Subject)
		qm := QualityMetrics{Mode: mode}
		if s.llm != nil {
			llmStart := time.Now()
			llmText, err := s.llm.Generate(ctx, systemPrompt, req.LatestMessage)
			if s.metrics != nil {
				s.metrics.LLMDuration.Observe(time.Since(llmStart).Seconds())
			}
			if err != nil {
				s.logger.Error(ctx, err, "llm draft failed, using baseline", "intent", c.PrimaryIntent)
				if s.metrics != nil {
					s.metrics.LLMFailures.Inc()
				}
				qm.FallbackUsed = true
			} else {
				text = llmText
				qm.LLMUsed = true
			}
		}
		return DraftBody{Type: "full", ResponseText: text, QualityMetrics: qm}, nil

	case strategy.Scaffold:
		return DraftBody{
			Type:           "partial",
			ResponseText:   scaffoldDraft(req.Subject),
			QualityMetrics: QualityMetrics{Mode: mode},
		}, nil

	default: // strategy.AdvisoryOnly
		return DraftBody{
			Type:           "partial",
			ResponseText:   baselineDraft(c.PrimaryIntent, req.Subject),
			QualityMetrics: QualityMetrics{Mode: mode},
		}, nil
	}
}

func (s *Service) retrieveKnowledge(ctx context.Context, c classify.Classification, req Request) knowledge.Result {
	if s.retriever == nil {
		return knowledge.Empty(0)
	}
	start := time.Now()
	kr := s.retriever.Retrieve(ctx, string(c.PrimaryIntent), req.LatestMessage, req.Metadata)
	if s.metrics != nil {
		s.metrics.KnowledgeDuration.Observe(time.Since(start).Seconds())
		s.metrics.KnowledgeCoverage.WithLabelValues(string(kr.Coverage)).Inc()
	}
	return kr
}

func (s *Service) observe(c classify.Classification, strat strategy.Decision,
	asd autosend.Decision, gov governance.Decision, rec *Record,
	fails []string, kr knowledge.Result, elapsed time.Duration) {

	if s.metrics == nil {
		return
	}
	s.metrics.DraftsTotal.WithLabelValues(string(strat.Strategy), string(c.PrimaryIntent)).Inc()
	s.metrics.DraftDuration.WithLabelValues(string(strat.Strategy)).Observe(elapsed.Seconds())
	s.metrics.AutoSendTotal.WithLabelValues(outcome(asd.AutoSend)).Inc()
	s.metrics.GovernanceTotal.WithLabelValues(outcome(gov.AutoSendAllowed), string(gov.ConfidenceBucket)).Inc()
	if rec.VerdictsDisagree() {
		s.metrics.VerdictDisagree.Inc()
	}
	for _, f := range fails {
		s.metrics.AcceptanceFails.WithLabelValues(f).Inc()
	}
}

func outcome(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "blocked"
}

// missingInfoMode maps the reply mode onto the detector's routing mode.
func missingInfoMode(mode string) string {
	if mode == ModeDiagnostic {
		return missinginfo.ModeDiagnostic
	}
	return ""
}

// extractedData flattens string-valued metadata plus the customer name into
// the template variable map.
func extractedData(req Request) map[string]string {
	out := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out[k] = s
		}
	}
	if name := strings.TrimSpace(req.CustomerName); name != "" {
		out["customer_name"] = name
	}
	return out
}

func metaSensitive(meta map[string]any) bool {
	if meta == nil {
		return false
	}
	switch v := meta["sensitive"].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return false
}
