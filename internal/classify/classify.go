// Package classify implements deterministic, rule-based intent classification
// for inbound support messages. It is a pure function of the message text and
// the static keyword tables in keywords.go; it never errors and never consults
// external state.
package classify

import (
	"sort"
	"strings"
)

// Intent is the classified category of a customer's request.
type Intent string

const (
	IntentShippingStatus   Intent = "shipping_status"
	IntentSetupHelp        Intent = "setup_help"
	IntentNotHashing       Intent = "not_hashing"
	IntentSyncDelay        Intent = "sync_delay"
	IntentFirmwareIssue    Intent = "firmware_issue"
	IntentFirmwareUpdate   Intent = "firmware_update"
	IntentPerformanceIssue Intent = "performance_issue"
	IntentWarrantyRMA      Intent = "warranty_rma"
	IntentGeneralQuestion  Intent = "general_question"
	IntentUnknownVague     Intent = "unknown_vague"
)

// SafetyMode says whether an intent may ever be handled without human review.
type SafetyMode string

const (
	SafetySafe   SafetyMode = "safe"
	SafetyUnsafe SafetyMode = "unsafe"
)

// Tone is the detected emotional register of the message.
type Tone string

const (
	TonePanic       Tone = "panic"
	ToneFrustration Tone = "frustration"
	ToneConfusion   Tone = "confusion"
	ToneNeutral     Tone = "neutral"
)

// Action is a troubleshooting step the customer reports having already tried.
type Action string

const (
	ActionRestart        Action = "restart"
	ActionFirmwareUpdate Action = "firmware_update"
	ActionPoolChange     Action = "pool_change"
	ActionCheckLogs      Action = "check_logs"
)

// Scoring weights and thresholds. Trigger phrases dominate, strong signals
// carry real weight, weak signals only nudge.
const (
	triggerWeight = 4.0
	strongWeight  = 2.0
	weakWeight    = 1.0

	// scoreFloor is the minimum winning score; below it the message is
	// classified unknown_vague with unknownConfidence exactly.
	scoreFloor        = 2.0
	unknownConfidence = 0.2

	// maxScoreFloor guards the confidence denominator for intents with
	// few configured keywords.
	maxScoreFloor = 10.0

	// secondaryMin is the score an intent needs to appear as a secondary.
	secondaryMin = 3.0

	// ambiguityMargin: a runner-up within this margin of the winner marks
	// the classification ambiguous.
	ambiguityMargin = 1.0
)

// Classification is the immutable result of classifying one inbound message.
// It is constructed once per message and consumed by every downstream stage.
type Classification struct {
	PrimaryIntent     Intent             `json:"primary_intent"`
	SecondaryIntents  []Intent           `json:"secondary_intents"`
	Confidence        float64            `json:"confidence"`
	AmbiguityDetected bool               `json:"ambiguity_detected"`
	ToneModifier      Tone               `json:"tone_modifier"`
	SafetyMode        SafetyMode         `json:"safety_mode"`
	AttemptedActions  []Action           `json:"attempted_actions"`
	RawScores         map[Intent]float64 `json:"raw_scores"`
}

// Classify scores subject+message against the keyword tables and returns the
// full classification. Absent or empty text classifies to unknown_vague.
func Classify(subject, message string) Classification {
	text := Normalize(subject + " " + message)

	scores := make(map[Intent]float64, len(intentRules))
	for _, r := range intentRules {
		scores[r.intent] = scoreIntent(text, r)
	}

	// Winner is the highest score; ties break by declaration order of
	// intentRules (first listed wins). This tie-break is deliberate, not
	// incidental: the rule table is ordered by triage priority.
	var primary Intent
	var best float64 = -1
	for _, r := range intentRules {
		if scores[r.intent] > best {
			best = scores[r.intent]
			primary = r.intent
		}
	}

	c := Classification{
		ToneModifier:     detectTone(text),
		AttemptedActions: detectAttemptedActions(text),
		RawScores:        scores,
	}

	if best < scoreFloor {
		c.PrimaryIntent = IntentUnknownVague
		c.Confidence = unknownConfidence
		c.AmbiguityDetected = false
		c.SafetyMode = safetyFor(IntentUnknownVague)
		return c
	}

	c.PrimaryIntent = primary
	c.Confidence = confidenceFor(primary, best)
	c.SafetyMode = safetyFor(primary)
	c.SecondaryIntents = secondaryIntents(scores, primary)

	// Ambiguity: a different intent scored within ambiguityMargin of the
	// winner. The tie-break above still picks a single primary.
	for _, r := range intentRules {
		if r.intent != primary && best-scores[r.intent] < ambiguityMargin {
			c.AmbiguityDetected = true
			break
		}
	}

	return c
}

// Normalize lowercases, unifies smart quote characters, and trims the text.
// Exposed because the auto-send phrase gate must match against the same
// normalized form the classifier scored.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return quoteReplacer.Replace(text)
}

var quoteReplacer = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"“", `"`,
	"”", `"`,
)

func scoreIntent(text string, r intentRule) float64 {
	var score float64
	for _, p := range r.triggerPhrases {
		if strings.Contains(text, p) {
			score += triggerWeight
		}
	}
	for _, s := range r.strongSignals {
		if strings.Contains(text, s) {
			score += strongWeight
		}
	}
	for _, w := range r.weakSignals {
		if strings.Contains(text, w) {
			score += weakWeight
		}
	}
	return score
}

// confidenceFor divides the winning score by the theoretical maximum for that
// intent, clamped to 1.0.
func confidenceFor(intent Intent, score float64) float64 {
	max := maxScoreFloor
	for _, r := range intentRules {
		if r.intent != intent {
			continue
		}
		m := triggerWeight*float64(len(r.triggerPhrases)) +
			strongWeight*float64(len(r.strongSignals)) +
			weakWeight*float64(len(r.weakSignals))
		if m > 0 {
			max = m
		}
		break
	}
	conf := score / max
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

// secondaryIntents returns up to two other intents scoring at least
// secondaryMin, highest first. Equal scores keep declaration order.
func secondaryIntents(scores map[Intent]float64, primary Intent) []Intent {
	type scored struct {
		intent Intent
		score  float64
	}
	var candidates []scored
	for _, r := range intentRules {
		if r.intent == primary {
			continue
		}
		if s := scores[r.intent]; s >= secondaryMin {
			candidates = append(candidates, scored{r.intent, s})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > 2 {
		candidates = candidates[:2]
	}
	out := make([]Intent, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.intent)
	}
	return out
}

func safetyFor(intent Intent) SafetyMode {
	if safetyTable[intent] == SafetyUnsafe {
		return SafetyUnsafe
	}
	return SafetySafe
}

// detectTone checks the tone buckets in fixed precedence order; first match
// wins, no scoring. Panic also fires on three or more exclamation marks.
func detectTone(text string) Tone {
	if containsAny(text, panicKeywords) || strings.Count(text, "!") >= 3 {
		return TonePanic
	}
	if containsAny(text, frustrationKeywords) {
		return ToneFrustration
	}
	if containsAny(text, confusionKeywords) {
		return ToneConfusion
	}
	return ToneNeutral
}

// detectAttemptedActions scans for the fixed already-tried phrase groups and
// returns matched categories in pattern-table order.
func detectAttemptedActions(text string) []Action {
	var actions []Action
	for _, g := range attemptedActionPatterns {
		if containsAny(text, g.patterns) {
			actions = append(actions, g.action)
		}
	}
	return actions
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
