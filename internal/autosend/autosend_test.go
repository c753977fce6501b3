package autosend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linnemanlabs/scribe/internal/classify"
	"github.com/linnemanlabs/scribe/internal/missinginfo"
)

func testRules() *Rules {
	min93 := 0.93
	return &Rules{
		AllowedSafetyModes: []string{"safe"},
		MinConfidence:      0.85,
		Intents: map[string]IntentRule{
			"shipping_status": {
				Enabled:                     true,
				Phrases:                     []string{"where is my order"},
				RequiredMissingKeysBlocking: []string{"order_number"},
			},
			"firmware_update": {
				Enabled:       true,
				MinConfidence: &min93,
			},
			"setup_help": {Enabled: false},
		},
	}
}

func TestClassifyUnsafeBlocks(t *testing.T) {
	t.Parallel()

	c := New(testRules())
	d := c.Classify(Input{
		Intent:     classify.IntentNotHashing,
		Confidence: 0.99,
		SafetyMode: classify.SafetyUnsafe,
	})

	if d.AutoSend {
		t.Errorf("AutoSend = true, want false for unsafe safety mode")
	}
	if !strings.Contains(d.Reason, "safety_mode") {
		t.Errorf("Reason = %q, want safety-mode block", d.Reason)
	}
}

func TestClassifyDisabledIntentBlocks(t *testing.T) {
	t.Parallel()

	c := New(testRules())
	d := c.Classify(Input{
		Intent:     classify.IntentSetupHelp,
		Confidence: 0.99,
		SafetyMode: classify.SafetySafe,
	})

	if d.AutoSend {
		t.Error("AutoSend = true, want false for disabled intent")
	}
}

func TestClassifyUnknownIntentBlocks(t *testing.T) {
	t.Parallel()

	c := New(testRules())
	d := c.Classify(Input{
		Intent:     classify.IntentGeneralQuestion,
		Confidence: 0.99,
		SafetyMode: classify.SafetySafe,
	})

	if d.AutoSend {
		t.Error("AutoSend = true, want false for intent absent from rules")
	}
}

func TestClassifyBlockingKeyBeatsPhrase(t *testing.T) {
	t.Parallel()

	c := New(testRules())
	d := c.Classify(Input{
		Message:    "where is my order?",
		Intent:     classify.IntentShippingStatus,
		Confidence: 0.99,
		SafetyMode: classify.SafetySafe,
		MissingInfo: missinginfo.Result{
			Detected: true,
			Items: []missinginfo.Item{
				{Key: "order_number", Severity: missinginfo.SeverityBlocking},
			},
		},
	})

	if d.AutoSend {
		t.Error("AutoSend = true, want false: missing required key outranks phrase match")
	}
	if !strings.Contains(d.Reason, "order_number") {
		t.Errorf("Reason = %q, want missing order_number block", d.Reason)
	}
}

func TestClassifyPhraseBypassesConfidence(t *testing.T) {
	t.Parallel()

	c := New(testRules())
	d := c.Classify(Input{
		Message:    "Hi, where is my order please?",
		Intent:     classify.IntentShippingStatus,
		Confidence: 0.0,
		SafetyMode: classify.SafetySafe,
	})

	if !d.AutoSend {
		t.Errorf("AutoSend = false (%q), want true: phrase match bypasses confidence", d.Reason)
	}
}

func TestClassifyConfidenceGate(t *testing.T) {
	t.Parallel()

	c := New(testRules())

	tests := []struct {
		name       string
		intent     classify.Intent
		confidence float64
		want       bool
	}{
		{"global threshold pass", classify.IntentShippingStatus, 0.90, true},
		{"global threshold fail", classify.IntentShippingStatus, 0.80, false},
		{"intent override pass", classify.IntentFirmwareUpdate, 0.95, true},
		{"intent override fail", classify.IntentFirmwareUpdate, 0.90, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := c.Classify(Input{
				Message:    "no configured phrase here",
				Intent:     tt.intent,
				Confidence: tt.confidence,
				SafetyMode: classify.SafetySafe,
			})
			if d.AutoSend != tt.want {
				t.Errorf("AutoSend = %v (%q), want %v", d.AutoSend, d.Reason, tt.want)
			}
		})
	}
}

func TestClassifyNilRulesFailsClosed(t *testing.T) {
	t.Parallel()

	c := New(nil)
	d := c.Classify(Input{
		Message:    "where is my order",
		Intent:     classify.IntentShippingStatus,
		Confidence: 1.0,
		SafetyMode: classify.SafetySafe,
	})

	if d.AutoSend {
		t.Error("AutoSend = true, want false with no rules loaded")
	}
}

func TestDefaultRules(t *testing.T) {
	t.Parallel()

	r, err := DefaultRules()
	if err != nil {
		t.Fatalf("DefaultRules() error: %v", err)
	}
	if _, ok := r.Intents["shipping_status"]; !ok {
		t.Error("default rules missing shipping_status intent")
	}
	if r.MinConfidence != 0.85 {
		t.Errorf("MinConfidence = %v, want 0.85", r.MinConfidence)
	}
}

func TestLoadRules(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(path, defaultRulesJSON, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(path); err != nil {
		t.Errorf("LoadRules(valid) error: %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"allowed_safety_modes": []}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(bad); err == nil {
		t.Error("LoadRules(invalid) = nil error, want validation failure")
	}

	if _, err := LoadRules(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadRules(missing file) = nil error, want read failure")
	}
}

func TestLoadRulesRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	data := []byte(`{"allowed_safety_modes":["safe"],"min_confidence":0.85,"intents":{"x":{"enabled":true}},"surprise":1}`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Error("LoadRules with unknown field = nil error, want failure")
	}
}
