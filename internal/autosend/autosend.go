// Package autosend decides whether a drafted reply may go out without human
// review. The classifier is deny-by-default: no rules, no matching intent
// entry, or a disabled entry all block.
package autosend

import (
	"fmt"
	"strings"

	"github.com/linnemanlabs/scribe/internal/classify"
	"github.com/linnemanlabs/scribe/internal/missinginfo"
)

// Decision is the rule-based auto-send verdict. It is a distinct type from
// the governance verdict and the two are never conflated; a ticket event
// carries both.
type Decision struct {
	AutoSend bool   `json:"auto_send"`
	Reason   string `json:"auto_send_reason"`
}

// Classifier evaluates the auto-send gates against a loaded rule set.
// A nil rule set blocks everything.
type Classifier struct {
	rules *Rules
}

// New returns a classifier over the given rules. Passing nil is valid and
// yields a classifier that always blocks.
func New(rules *Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Input carries everything the gates inspect for one evaluation.
type Input struct {
	Message     string
	Intent      classify.Intent
	Confidence  float64
	SafetyMode  classify.SafetyMode
	MissingInfo missinginfo.Result
}

// gate inspects the input and either returns a terminal decision or nil to
// pass control to the next gate.
type gate struct {
	name string
	eval func(r *Rules, in evalInput) *Decision
}

type evalInput struct {
	Input
	normalized string
	rule       IntentRule
	ruleFound  bool
}

// gates run in this exact order; it is load-bearing. The blocking-missing
// check deliberately precedes the phrase override: required data being absent
// blocks no matter how clear the customer's phrasing is. A phrase match
// approves immediately and the confidence gate is never consulted.
var gates = []gate{
	{name: "safety_mode", eval: gateSafetyMode},
	{name: "intent_enabled", eval: gateIntentEnabled},
	{name: "blocking_missing", eval: gateBlockingMissing},
	{name: "phrase_override", eval: gatePhraseOverride},
	{name: "confidence", eval: gateConfidence},
}

// Classify runs the ordered gates and returns the first terminal decision.
func (c *Classifier) Classify(in Input) Decision {
	if c.rules == nil {
		return Decision{AutoSend: false, Reason: "blocked: no auto-send rules loaded"}
	}

	rule, found := c.rules.Intents[string(in.Intent)]
	ev := evalInput{
		Input:      in,
		normalized: classify.Normalize(in.Message),
		rule:       rule,
		ruleFound:  found,
	}

	for _, g := range gates {
		if d := g.eval(c.rules, ev); d != nil {
			return *d
		}
	}

	// Every gate passed without a terminal decision; the confidence gate
	// always terminates, so this is unreachable with the current table.
	return Decision{AutoSend: false, Reason: "blocked: no gate produced a decision"}
}

func gateSafetyMode(r *Rules, in evalInput) *Decision {
	for _, m := range r.AllowedSafetyModes {
		if classify.SafetyMode(m) == in.SafetyMode {
			return nil
		}
	}
	return &Decision{
		AutoSend: false,
		Reason:   fmt.Sprintf("blocked: safety_mode %q not allowed for auto-send", in.SafetyMode),
	}
}

func gateIntentEnabled(_ *Rules, in evalInput) *Decision {
	if !in.ruleFound || !in.rule.Enabled {
		return &Decision{
			AutoSend: false,
			Reason:   fmt.Sprintf("blocked: intent %q not eligible for auto-send", in.Intent),
		}
	}
	return nil
}

func gateBlockingMissing(_ *Rules, in evalInput) *Decision {
	missing := make(map[string]bool)
	for _, it := range in.MissingInfo.Items {
		missing[it.Key] = true
	}
	for _, key := range in.rule.RequiredMissingKeysBlocking {
		if missing[key] {
			return &Decision{
				AutoSend: false,
				Reason:   fmt.Sprintf("blocked: required information %q is missing", key),
			}
		}
	}
	return nil
}

func gatePhraseOverride(_ *Rules, in evalInput) *Decision {
	for _, p := range in.rule.Phrases {
		if p != "" && containsPhrase(in.normalized, p) {
			return &Decision{
				AutoSend: true,
				Reason:   fmt.Sprintf("approved: phrase match %q for intent %q", p, in.Intent),
			}
		}
	}
	return nil
}

func gateConfidence(r *Rules, in evalInput) *Decision {
	min := r.MinConfidence
	if in.rule.MinConfidence != nil {
		min = *in.rule.MinConfidence
	}
	if in.Confidence < min {
		return &Decision{
			AutoSend: false,
			Reason:   fmt.Sprintf("blocked: confidence %.2f below threshold %.2f", in.Confidence, min),
		}
	}
	return &Decision{
		AutoSend: true,
		Reason:   fmt.Sprintf("approved: intent %q at confidence %.2f", in.Intent, in.Confidence),
	}
}

func containsPhrase(normalized, phrase string) bool {
	return strings.Contains(normalized, classify.Normalize(phrase))
}
