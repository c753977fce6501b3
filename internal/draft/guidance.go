package draft

import (
	"fmt"

	"github.com/linnemanlabs/scribe/internal/classify"
)

func buildReason(c classify.Classification, autoSendEligible bool) string {
	switch {
	case autoSendEligible:
		return fmt.Sprintf("High-confidence inquiry (%s). Auto-send eligible.", c.PrimaryIntent)
	case c.SafetyMode == classify.SafetyUnsafe:
		return fmt.Sprintf("Diagnostic issue detected (%s). Request data before troubleshooting.", c.PrimaryIntent)
	case c.PrimaryIntent == classify.IntentUnknownVague:
		return "Intent unclear. Request clarification from customer."
	case c.Confidence < 0.85:
		return fmt.Sprintf("Intent is %s but confidence is below threshold. Manual review recommended.", c.PrimaryIntent)
	default:
		return "Informational request. Provide accurate information from knowledge base."
	}
}

func buildRecommendation(c classify.Classification) string {
	switch {
	case c.SafetyMode == classify.SafetyUnsafe:
		return fmt.Sprintf("Diagnostic issue detected (%s). Request data before troubleshooting.", c.PrimaryIntent)
	case c.PrimaryIntent == classify.IntentUnknownVague:
		return "Intent unclear. Request clarification from customer."
	default:
		return "Informational request. Provide accurate information from knowledge base."
	}
}

var suggestedActionsMap = map[classify.Intent][]string{
	classify.IntentNotHashing: {
		"Request debug.log and getblockchaininfo output",
		"Review logs for error patterns",
		"Consider: Node Not Hashing Troubleshooting canned response",
	},
	classify.IntentShippingStatus: {
		"Look up order in admin system",
		"Provide accurate tracking information",
		"Set realistic delivery expectations",
	},
	classify.IntentGeneralQuestion: {
		"Provide educational explanation",
		"Use neutral, informative tone",
		"Reference documentation if available",
	},
}

func buildSuggestedActions(intent classify.Intent) []string {
	if actions, ok := suggestedActionsMap[intent]; ok {
		return actions
	}
	return []string{"Review customer message", "Provide appropriate response"}
}

var cannedSuggestionsMap = map[classify.Intent][]CannedSuggestion{
	classify.IntentNotHashing: {{
		ID:     "apollo_not_hashing_v1",
		Title:  "Apollo Not Hashing - Initial Checks",
		Reason: "Common first-response checklist for mining issues",
	}},
	classify.IntentSyncDelay: {{
		ID:     "node_initial_sync_v1",
		Title:  "Node Initial Sync - What's Normal",
		Reason: "Explains expected sync behavior and timelines",
	}},
	classify.IntentShippingStatus: {{
		ID:     "shipping_status_v1",
		Title:  "Order Shipping Status & Tracking",
		Reason: "Standard response for shipment inquiries",
	}},
	classify.IntentSetupHelp: {{
		ID:     "apollo_setup_network_v1",
		Title:  "Apollo Setup & Network Access",
		Reason: "Helps users access dashboard and verify connectivity",
	}},
}

func buildCannedSuggestions(intent classify.Intent) []CannedSuggestion {
	return cannedSuggestionsMap[intent]
}
