// Package strategy selects exactly one draft-production strategy per ticket.
package strategy

import (
	"fmt"

	"github.com/linnemanlabs/scribe/internal/classify"
	"github.com/linnemanlabs/scribe/internal/missinginfo"
)

// Strategy is the single draft-production mode chosen for a ticket.
type Strategy string

const (
	// AutoTemplate: high confidence, safe intent, template match. No LLM.
	AutoTemplate Strategy = "AUTO_TEMPLATE"
	// ProactiveDraft: moderate-plus confidence; LLM or rule-based draft.
	ProactiveDraft Strategy = "PROACTIVE_DRAFT"
	// AdvisoryOnly: guidance for the agent, no sendable draft.
	AdvisoryOnly Strategy = "ADVISORY_ONLY"
	// Scaffold: skeleton for the agent to complete.
	Scaffold Strategy = "SCAFFOLD"
)

// Confidence thresholds for the strategy gates.
const (
	highConfidence     = 0.85
	moderateConfidence = 0.60
	lowConfidence      = 0.40
)

// templateIntentMap ties intents to catalog template ids. Ids must match the
// canned-response catalog.
var templateIntentMap = map[classify.Intent]string{
	classify.IntentShippingStatus: "4",  // shipping status / delays
	classify.IntentFirmwareUpdate: "1",  // firmware update instructions
	classify.IntentSetupHelp:      "11", // pool configuration / setup
	classify.IntentSyncDelay:      "2",  // node sync behavior
	classify.IntentNotHashing:     "7",  // low or zero hashrate
	classify.IntentWarrantyRMA:    "3",  // warranty claim information
	"purchase_inquiry":            "9",  // payment verification
}

// autoTemplateIntents may produce a template-only draft at high confidence.
var autoTemplateIntents = map[classify.Intent]bool{
	classify.IntentShippingStatus: true,
	classify.IntentFirmwareUpdate: true,
	"firmware_update_info":        true,
	classify.IntentSetupHelp:      true,
	"purchase_inquiry":            true,
}

// advisoryOnlyIntents never produce a sendable draft without review.
var advisoryOnlyIntents = map[classify.Intent]bool{
	classify.IntentPerformanceIssue: true,
}

// Decision is the selected strategy with its audit reason. TemplateID is set
// when a catalog template backs the draft.
type Decision struct {
	Strategy   Strategy `json:"strategy"`
	Reason     string   `json:"reason"`
	TemplateID string   `json:"template_id,omitempty"`
}

// TemplateFor exposes the intent→template mapping to the draft generator.
func TemplateFor(intent classify.Intent) (string, bool) {
	id, ok := templateIntentMap[intent]
	return id, ok
}

// Select runs the ordered strategy gates; the first match wins.
func Select(intent classify.Intent, confidence float64, safety classify.SafetyMode,
	missing missinginfo.Result, ambiguity bool) Decision {

	blockingCount := missing.Summary.BlockingCount

	// Gate 1: vague or unknown intent.
	if intent == classify.IntentUnknownVague || intent == "" {
		return Decision{
			Strategy: Scaffold,
			Reason:   fmt.Sprintf("intent %q is vague or unknown; providing scaffold for agent", intent),
		}
	}

	// Gate 2: advisory-only intents.
	if advisoryOnlyIntents[intent] {
		return Decision{
			Strategy: AdvisoryOnly,
			Reason:   fmt.Sprintf("intent %q requires manual agent review", intent),
		}
	}

	// Gate 3: low confidence.
	if confidence < lowConfidence {
		return Decision{
			Strategy: Scaffold,
			Reason:   fmt.Sprintf("confidence %.2f below threshold %.2f", confidence, lowConfidence),
		}
	}

	// Gate 4: unsafe with blocking missing info.
	if safety != classify.SafetySafe && blockingCount > 0 {
		return Decision{
			Strategy: AdvisoryOnly,
			Reason:   fmt.Sprintf("safety mode %q with %d blocking missing field(s)", safety, blockingCount),
		}
	}

	// Gate 5: high confidence, safe, template available, unambiguous.
	if confidence >= highConfidence &&
		safety == classify.SafetySafe &&
		autoTemplateIntents[intent] &&
		!ambiguity {
		if id, ok := templateIntentMap[intent]; ok {
			return Decision{
				Strategy:   AutoTemplate,
				Reason:     fmt.Sprintf("high confidence (%.2f), safe, template available for %q", confidence, intent),
				TemplateID: id,
			}
		}
	}

	// Gate 6: moderate-plus confidence.
	if confidence >= moderateConfidence {
		return Decision{
			Strategy:   ProactiveDraft,
			Reason:     fmt.Sprintf("moderate confidence (%.2f), generating proactive draft", confidence),
			TemplateID: templateIntentMap[intent],
		}
	}

	// Gate 7: ambiguity.
	if ambiguity {
		return Decision{
			Strategy: Scaffold,
			Reason:   "ambiguity detected in customer intent",
		}
	}

	return Decision{
		Strategy: AdvisoryOnly,
		Reason:   fmt.Sprintf("no strategy gates matched; defaulting to advisory (confidence %.2f)", confidence),
	}
}
