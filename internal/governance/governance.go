// Package governance is the second, independent send-readiness evaluator. It
// is stricter than the rule-based auto-send classifier and the two verdicts
// are computed and persisted separately; a disagreement between them is an
// operational signal, not an error.
package governance

import (
	"fmt"
	"strings"

	"github.com/linnemanlabs/scribe/internal/classify"
)

// confidenceThreshold is governance's own bar, distinct from the auto-send
// rule thresholds.
const confidenceThreshold = 0.80

// ConfidenceBucket labels a confidence value for reporting.
type ConfidenceBucket string

const (
	BucketHigh   ConfidenceBucket = "high"
	BucketMedium ConfidenceBucket = "medium"
	BucketLow    ConfidenceBucket = "low"
)

// RiskCategory is derived from the classifier's safety mode.
type RiskCategory string

const (
	RiskLow    RiskCategory = "low"
	RiskMedium RiskCategory = "medium"
	RiskHigh   RiskCategory = "high"
)

// allowedIntents is the hard governance allowlist. Everything else is blocked
// regardless of confidence.
var allowedIntents = map[classify.Intent]bool{
	classify.IntentShippingStatus: true,
	classify.IntentFirmwareUpdate: true,
	"firmware_update_info":        true,
	"factory_reset":               true,
}

// Input is everything the governance gates inspect.
type Input struct {
	Intent             classify.Intent
	Confidence         float64
	RiskLevel          string
	SafetyMode         classify.SafetyMode
	SensitiveFlag      bool
	AmbiguityDetected  bool
	HasRequiredMissing bool
	DeltaPassed        bool
}

// Decision is the governance verdict. Unlike the auto-send classifier it
// carries every failing reason, not just the first.
type Decision struct {
	AutoSendAllowed  bool             `json:"auto_send_allowed"`
	Reasons          []string         `json:"reasons"`
	ConfidenceBucket ConfidenceBucket `json:"confidence_bucket"`
	RiskCategory     RiskCategory     `json:"risk_category"`
}

// Evaluate runs all seven gates. Gates do not short-circuit: every failing
// gate appends its reason so the audit trail shows the full picture.
func Evaluate(in Input) Decision {
	var reasons []string
	allowed := true

	if in.SensitiveFlag {
		allowed = false
		reasons = append(reasons, "blocked: sensitive content detected")
	}
	if strings.ToLower(in.RiskLevel) != string(RiskLow) {
		allowed = false
		reasons = append(reasons, fmt.Sprintf("blocked: risk_level %q (must be %q)", in.RiskLevel, RiskLow))
	}
	if in.Confidence < confidenceThreshold {
		allowed = false
		reasons = append(reasons, fmt.Sprintf("blocked: confidence %.2f < %.2f", in.Confidence, confidenceThreshold))
	}
	if !allowedIntents[in.Intent] {
		allowed = false
		reasons = append(reasons, fmt.Sprintf("blocked: intent %q not in governance allowlist", in.Intent))
	}
	if in.AmbiguityDetected {
		allowed = false
		reasons = append(reasons, "blocked: ambiguity detected in classification")
	}
	if in.HasRequiredMissing {
		allowed = false
		reasons = append(reasons, "blocked: required variables are missing")
	}
	if !in.DeltaPassed {
		allowed = false
		reasons = append(reasons, "blocked: delta validation failed")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("allowed: intent %q, confidence %.2f, risk %q",
			in.Intent, in.Confidence, in.RiskLevel))
	}

	return Decision{
		AutoSendAllowed:  allowed,
		Reasons:          reasons,
		ConfidenceBucket: BucketFor(in.Confidence),
		RiskCategory:     RiskFor(in.SafetyMode),
	}
}

// BucketFor maps a confidence value to its reporting bucket.
func BucketFor(confidence float64) ConfidenceBucket {
	switch {
	case confidence >= 0.80:
		return BucketHigh
	case confidence >= 0.50:
		return BucketMedium
	default:
		return BucketLow
	}
}

// RiskFor maps the classifier safety mode to a risk category. Unknown modes
// land in the middle rather than the safe end.
func RiskFor(mode classify.SafetyMode) RiskCategory {
	switch classify.SafetyMode(strings.ToLower(string(mode))) {
	case classify.SafetySafe:
		return RiskLow
	case "review_required":
		return RiskMedium
	case classify.SafetyUnsafe:
		return RiskHigh
	default:
		return RiskMedium
	}
}
