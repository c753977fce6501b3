package autosend

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// IntentRule is the auto-send policy for one intent.
type IntentRule struct {
	Enabled bool `json:"enabled"`

	// MinConfidence overrides the global threshold when set.
	MinConfidence *float64 `json:"min_confidence,omitempty"`

	// Phrases approve immediately on a normalized substring match,
	// bypassing the confidence gate.
	Phrases []string `json:"phrases"`

	// RequiredMissingKeysBlocking are missing-info keys that block
	// auto-send for this intent when detected.
	RequiredMissingKeysBlocking []string `json:"required_missing_keys_blocking"`
}

// Rules is the full auto-send policy. It is loaded once at startup and
// read-only at evaluation time.
type Rules struct {
	AllowedSafetyModes []string              `json:"allowed_safety_modes"`
	MinConfidence      float64               `json:"min_confidence"`
	Intents            map[string]IntentRule `json:"intents"`
}

//go:embed rules_default.json
var defaultRulesJSON []byte

// DefaultRules parses the embedded policy shipped with the binary.
func DefaultRules() (*Rules, error) {
	return parseRules(defaultRulesJSON)
}

// LoadRules reads and validates a policy file. Any error means the caller
// must fail closed: run the classifier with nil rules, which blocks all
// auto-send, rather than guessing at a policy.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("autosend: read rules %s: %w", path, err)
	}
	r, err := parseRules(data)
	if err != nil {
		return nil, fmt.Errorf("autosend: parse rules %s: %w", path, err)
	}
	return r, nil
}

func parseRules(data []byte) (*Rules, error) {
	var r Rules
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks structural requirements. All failures are joined so a bad
// file reports everything wrong with it at once.
func (r *Rules) Validate() error {
	var errs []error

	if len(r.AllowedSafetyModes) == 0 {
		errs = append(errs, errors.New("allowed_safety_modes must not be empty"))
	}
	if r.MinConfidence < 0 || r.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("min_confidence %v out of range [0, 1]", r.MinConfidence))
	}
	if len(r.Intents) == 0 {
		errs = append(errs, errors.New("intents must not be empty"))
	}
	for name, rule := range r.Intents {
		if name == "" {
			errs = append(errs, errors.New("intent name must not be empty"))
		}
		if rule.MinConfidence != nil && (*rule.MinConfidence < 0 || *rule.MinConfidence > 1) {
			errs = append(errs, fmt.Errorf("intent %q: min_confidence %v out of range [0, 1]", name, *rule.MinConfidence))
		}
	}

	return errors.Join(errs...)
}
