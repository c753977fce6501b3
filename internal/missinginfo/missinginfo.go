// Package missinginfo detects information the support agent still needs from
// the customer before a draft can be sent. Detection is metadata-first: ticket
// metadata is authoritative, and text inference (infer.go) only ever adds keys
// the metadata layer did not produce.
package missinginfo

import (
	"regexp"
	"strings"

	"github.com/linnemanlabs/scribe/internal/classify"
)

// Severity of a missing item. Blocking items gate auto-send.
type Severity string

const (
	SeverityBlocking    Severity = "blocking"
	SeverityNonBlocking Severity = "non_blocking"
)

// blockingThreshold: metadata-derived items are blocking when classification
// confidence is at or above this.
const blockingThreshold = 0.6

// Item is one piece of missing information.
type Item struct {
	Key      string   `json:"key"`
	Reason   string   `json:"reason"`
	Evidence string   `json:"evidence"`
	Severity Severity `json:"severity"`
}

// Summary counts items by severity.
type Summary struct {
	BlockingCount    int `json:"blocking_count"`
	NonBlockingCount int `json:"non_blocking_count"`
}

// Result is the detector output for one ticket.
type Result struct {
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
	Items      []Item  `json:"items"`
	Summary    Summary `json:"summary"`
}

// BlockingKeys returns the keys of all blocking items, in detection order.
func (r Result) BlockingKeys() []string {
	var keys []string
	for _, it := range r.Items {
		if it.Severity == SeverityBlocking {
			keys = append(keys, it.Key)
		}
	}
	return keys
}

// ModeDiagnostic routes the ticket through the diagnostic branches even when
// the classified intent alone would not.
const ModeDiagnostic = "diagnostic"

var orderNumberRe = regexp.MustCompile(`(order\s*#|#\w+|fb\d+)`)

// Detect runs metadata-authoritative detection followed by add-only text
// inference. Malformed or absent metadata detects nothing rather than guessing.
func Detect(messages []string, intent classify.Intent, confidence float64, mode string, meta map[string]any) Result {
	if meta == nil {
		meta = map[string]any{}
	}
	text := joinLower(messages)
	missingFields := metaMissingFields(meta)

	var items []Item

	switch {
	case intent == classify.IntentShippingStatus:
		items = detectShipping(text, confidence, meta, missingFields)
		inferred := infer(messages, intent, confidence, mode)
		// Metadata that affirmatively answers the order-number question
		// bars inference from re-asking for it.
		if orderResolvedByMeta(meta) {
			inferred = dropKey(inferred, "order_number")
		}
		return finalize(mergeInferred(items, inferred), confidence)

	case intent == classify.IntentSetupHelp:
		// Setup is fully metadata-resolved: the first gap found is the
		// only one reported, and text inference never runs.
		return finalize(detectSetup(text, confidence, meta, missingFields), confidence)

	case isDiagnostic(intent, mode):
		items, done := detectDiagnostic(confidence, meta, missingFields)
		if done {
			return finalize(items, confidence)
		}
		return finalize(mergeInferred(items, infer(messages, intent, confidence, mode)), confidence)
	}

	return finalize(mergeInferred(items, infer(messages, intent, confidence, mode)), confidence)
}

func isDiagnostic(intent classify.Intent, mode string) bool {
	if mode == ModeDiagnostic {
		return true
	}
	switch intent {
	case classify.IntentNotHashing, classify.IntentSyncDelay:
		return true
	}
	return false
}

func detectShipping(text string, confidence float64, meta map[string]any, missingFields []string) []Item {
	hasOrder, known := metaBool(meta, "has_order_number")
	if !known {
		// A supplied order number implies has_order_number.
		if s, ok := meta["order_number"].(string); ok && strings.TrimSpace(s) != "" {
			hasOrder, known = true, true
		}
	}
	if !known {
		hasOrder = orderNumberRe.MatchString(text)
	}
	if hasOrder {
		return nil
	}

	items := []Item{metaItem("order_number", severityFor(confidence))}

	emailMissing := containsString(missingFields, "email")
	if !emailMissing {
		if v, ok := metaBool(meta, "missing_email", "email_missing", "needs_email"); ok && v {
			emailMissing = true
		}
	}
	if emailMissing {
		items = append(items, metaItem("email", SeverityNonBlocking))
	}
	return items
}

// detectSetup checks connection_type, then device_model, then the has-model
// default; the first gap wins.
func detectSetup(text string, confidence float64, meta map[string]any, missingFields []string) []Item {
	if containsString(missingFields, "connection_type") {
		return []Item{metaItem("connection_type", severityFor(confidence))}
	}
	if containsString(missingFields, "device_model") {
		return []Item{metaItem("device_model", severityFor(confidence))}
	}

	hasModel, known := metaBool(meta, "has_device_model")
	if !known {
		hasModel = strings.Contains(text, "apollo")
	}
	if !hasModel {
		return []Item{metaItem("device_model", severityFor(confidence))}
	}
	return nil
}

// detectDiagnostic returns (items, true) when metadata fully answers the
// branch and inference must be skipped.
func detectDiagnostic(confidence float64, meta map[string]any, missingFields []string) ([]Item, bool) {
	if allInfoPresent(meta) {
		return nil, true
	}

	hasStatus, known := metaHasField(meta, "device_status")
	if known && hasStatus && !containsString(missingFields, "uptime_or_last_reboot") {
		return nil, true
	}

	var items []Item
	if containsString(missingFields, "device_status") {
		items = append(items, metaItem("device_status", severityFor(confidence)))
		wantUptime := containsString(missingFields, "uptime_or_last_reboot")
		if !wantUptime {
			if v, ok := metaBool(meta, "request_uptime", "needs_uptime"); ok && v {
				wantUptime = true
			}
		}
		if wantUptime {
			items = append(items, metaItem("uptime_or_last_reboot", SeverityNonBlocking))
		}
	} else if containsString(missingFields, "uptime_or_last_reboot") {
		items = append(items, metaItem("uptime_or_last_reboot", SeverityNonBlocking))
	}
	return items, false
}

// orderResolvedByMeta reports whether ticket metadata affirmatively answered
// the order-number question, either via the explicit flag or by supplying the
// number itself.
func orderResolvedByMeta(meta map[string]any) bool {
	if v, known := metaBool(meta, "has_order_number"); known {
		return v
	}
	s, ok := meta["order_number"].(string)
	return ok && strings.TrimSpace(s) != ""
}

func dropKey(items []Item, key string) []Item {
	out := items[:0]
	for _, it := range items {
		if it.Key != key {
			out = append(out, it)
		}
	}
	return out
}

// mergeInferred adds inferred items whose keys the metadata layer did not
// already claim. Metadata always wins.
func mergeInferred(items, inferred []Item) []Item {
	existing := make(map[string]bool, len(items))
	for _, it := range items {
		existing[it.Key] = true
	}
	for _, it := range inferred {
		if !existing[it.Key] {
			existing[it.Key] = true
			items = append(items, it)
		}
	}
	return items
}

func finalize(items []Item, confidence float64) Result {
	r := Result{
		Detected:   len(items) > 0,
		Confidence: confidence,
		Items:      items,
	}
	for _, it := range items {
		if it.Severity == SeverityBlocking {
			r.Summary.BlockingCount++
		} else {
			r.Summary.NonBlockingCount++
		}
	}
	return r
}

func severityFor(confidence float64) Severity {
	if confidence >= blockingThreshold {
		return SeverityBlocking
	}
	return SeverityNonBlocking
}

func metaItem(key string, sev Severity) Item {
	return Item{Key: key, Reason: "required_by_rules", Evidence: "metadata_or_rules", Severity: sev}
}

func joinLower(messages []string) string {
	return strings.ToLower(strings.Join(messages, " "))
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// metaBool reads the first present key as a tri-state boolean. Accepted
// encodings: bool, numeric (non-zero true), and the usual string spellings.
// Returns (value, true) only when a key decodes cleanly.
func metaBool(meta map[string]any, keys ...string) (bool, bool) {
	for _, k := range keys {
		v, present := meta[k]
		if !present {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t, true
		case int:
			return t != 0, true
		case float64:
			return t != 0, true
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true", "yes", "1":
				return true, true
			case "false", "no", "0":
				return false, true
			}
		}
	}
	return false, false
}

// metaHasField checks the conventional spellings for "field X was provided".
func metaHasField(meta map[string]any, field string) (bool, bool) {
	return metaBool(meta,
		"has_"+field,
		field+"_present",
		field+"_provided",
		"provided_"+field,
	)
}

func allInfoPresent(meta map[string]any) bool {
	v, ok := metaBool(meta, "all_info_present", "allInfoPresent", "info_complete")
	return ok && v
}

// metaMissingFields collects explicitly-declared missing fields from the
// supported metadata shapes, deduplicated in first-seen order.
func metaMissingFields(meta map[string]any) []string {
	var out []string

	if s, ok := meta["missing_field"].(string); ok {
		out = append(out, s)
	}
	if list, ok := meta["missing_fields"].([]any); ok {
		for _, x := range list {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
	}
	if list, ok := meta["missing_fields"].([]string); ok {
		out = append(out, list...)
	}
	switch m := meta["missing"].(type) {
	case map[string]any:
		for k, v := range m {
			if b, ok := v.(bool); ok && b {
				out = append(out, k)
			}
		}
	case []any:
		for _, x := range m {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, m...)
	}

	seen := make(map[string]bool, len(out))
	var result []string
	for _, x := range out {
		if !seen[x] {
			seen[x] = true
			result = append(result, x)
		}
	}
	return result
}
