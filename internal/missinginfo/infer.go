package missinginfo

import (
	"strings"

	"github.com/linnemanlabs/scribe/internal/classify"
)

// inferBlockingThreshold: inferred items are held to a stricter confidence
// bar than metadata-derived ones before they may block.
const inferBlockingThreshold = 0.7

// infer derives missing-information items from message text alone. It never
// overrides the metadata layer; Detect merges its output add-only.
func infer(messages []string, intent classify.Intent, confidence float64, mode string) []Item {
	text := joinLower(messages)

	var items []Item
	if mode == ModeDiagnostic {
		items = append(items, inferDiagnostic(text, confidence)...)
	}
	if intent == classify.IntentShippingStatus {
		items = append(items, inferShipping(text, confidence)...)
	}
	return items
}

func inferDiagnostic(text string, confidence float64) []Item {
	mentionsStatus := containsAny(text,
		"miner is on", "powered on", "powered off", "device is on", "device is off")
	mentionsUptime := containsAny(text,
		"rebooted", "restarted", "power cycled", "uptime", "yesterday")

	var items []Item

	// Stopped or zero hashrate without a stated device status.
	if containsAny(text, "stopped hashing", "not hashing", "hash rate zero") && !mentionsStatus {
		items = append(items, inferredItem("device_status", inferSeverityFor(confidence)))
	}

	// Instability reports need both status and recency.
	if containsAny(text, "keeps dropping", "drops to zero", "fluctuating", "restarting") {
		if !mentionsStatus {
			items = append(items, inferredItem("device_status", inferSeverityFor(confidence)))
		}
		if !mentionsUptime {
			items = append(items, inferredItem("uptime_or_last_reboot", SeverityNonBlocking))
		}
	}

	// Status + recency + firmware version mentioned: nothing to ask for.
	if mentionsStatus && mentionsUptime && containsAny(text, "firmware", "version") {
		return nil
	}
	return items
}

func inferShipping(text string, confidence float64) []Item {
	mentionsOrder := orderNumberRe.MatchString(text)
	mentionsLookup := containsAny(text,
		"shipping help", "where is my order", "order status", "tracking")
	mentionsContact := containsAny(text,
		"can you check", "please look up", "help me find", "check for me")

	var items []Item
	if mentionsLookup && !mentionsOrder {
		items = append(items, inferredItem("order_number", inferSeverityFor(confidence)))
	}
	if mentionsLookup && mentionsContact {
		items = append(items, inferredItem("email", SeverityNonBlocking))
	}
	return items
}

func inferSeverityFor(confidence float64) Severity {
	if confidence >= inferBlockingThreshold {
		return SeverityBlocking
	}
	return SeverityNonBlocking
}

func inferredItem(key string, sev Severity) Item {
	return Item{Key: key, Reason: "inferred_from_text", Evidence: "message_text", Severity: sev}
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
