// Package draft orchestrates the triage pipeline for one inbound support
// message: classification, missing-information detection, strategy selection,
// the two independent send verdicts, and draft text production.
package draft

import (
	"time"

	"github.com/linnemanlabs/scribe/internal/autosend"
	"github.com/linnemanlabs/scribe/internal/canned"
	"github.com/linnemanlabs/scribe/internal/classify"
	"github.com/linnemanlabs/scribe/internal/governance"
	"github.com/linnemanlabs/scribe/internal/knowledge"
	"github.com/linnemanlabs/scribe/internal/missinginfo"
	"github.com/linnemanlabs/scribe/internal/strategy"
)

// HistoryMessage is one prior turn in the ticket conversation.
type HistoryMessage struct {
	Role string `json:"role"` // "customer" or "agent"
	Text string `json:"text"`
}

// Request is the input to the draft pipeline, already validated at the API
// boundary.
type Request struct {
	Subject             string           `json:"subject"`
	LatestMessage       string           `json:"latest_message"`
	ConversationHistory []HistoryMessage `json:"conversation_history"`
	CustomerName        string           `json:"customer_name,omitempty"`
	Metadata            map[string]any   `json:"metadata,omitempty"`
}

// DraftBody is the produced draft with its quality markers.
type DraftBody struct {
	Type           string         `json:"type"` // "full" or "partial"
	ResponseText   string         `json:"response_text"`
	QualityMetrics QualityMetrics `json:"quality_metrics"`
}

// QualityMetrics annotates how the draft was produced.
type QualityMetrics struct {
	Mode              string   `json:"mode"`
	TemplateUsed      bool     `json:"template_used"`
	LLMUsed           bool     `json:"llm_used"`
	FallbackUsed      bool     `json:"fallback_used"`
	AcceptanceFailure []string `json:"acceptance_failures,omitempty"`
	KnowledgeInjected bool     `json:"knowledge_injected"`
}

// CannedSuggestion points the agent at a relevant canned response.
type CannedSuggestion struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// AgentGuidance tells the human agent what to do with the draft.
type AgentGuidance struct {
	RequiresReview   bool               `json:"requires_review"`
	AutoSendEligible bool               `json:"auto_send_eligible"`
	Reason           string             `json:"reason"`
	Recommendation   string             `json:"recommendation"`
	SuggestedActions []string           `json:"suggested_actions"`
	CannedResponses  []CannedSuggestion `json:"canned_responses"`
}

// Response is the full pipeline output returned to the caller.
type Response struct {
	ID                   string                  `json:"id"`
	Timestamp            time.Time               `json:"timestamp"`
	IntentClassification classify.Classification `json:"intent_classification"`
	MissingInformation   missinginfo.Result      `json:"missing_information"`
	Strategy             strategy.Decision       `json:"strategy"`
	Draft                DraftBody               `json:"draft"`
	AgentGuidance        AgentGuidance           `json:"agent_guidance"`
	AutoSend             autosend.Decision       `json:"auto_send"`
	Governance           governance.Decision     `json:"governance"`
	Knowledge            knowledge.Result        `json:"knowledge"`
	TemplateVerification *canned.Verification    `json:"template_verification,omitempty"`
}

// Record is the persisted decision trail for one pipeline run. It contains
// everything needed to audit why a draft was or was not auto-sendable.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Subject       string `json:"subject"`
	LatestMessage string `json:"latest_message"`

	Intent            classify.Intent     `json:"intent"`
	Confidence        float64             `json:"confidence"`
	SafetyMode        classify.SafetyMode `json:"safety_mode"`
	Tone              classify.Tone       `json:"tone"`
	AmbiguityDetected bool                `json:"ambiguity_detected"`

	Strategy   strategy.Strategy `json:"strategy"`
	TemplateID string            `json:"template_id,omitempty"`

	DraftType string `json:"draft_type"`
	DraftText string `json:"draft_text"`

	AutoSend       bool   `json:"auto_send"`
	AutoSendReason string `json:"auto_send_reason"`

	GovernanceAllowed bool                        `json:"governance_allowed"`
	GovernanceReasons []string                    `json:"governance_reasons"`
	ConfidenceBucket  governance.ConfidenceBucket `json:"confidence_bucket"`
	RiskCategory      governance.RiskCategory     `json:"risk_category"`

	BlockingMissingCount int `json:"blocking_missing_count"`
}

// VerdictsDisagree reports whether the rule-based and governance evaluators
// reached different conclusions for this record.
func (r *Record) VerdictsDisagree() bool {
	return r.AutoSend != r.GovernanceAllowed
}
