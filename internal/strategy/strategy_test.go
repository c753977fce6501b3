package strategy

import (
	"testing"

	"github.com/linnemanlabs/scribe/internal/classify"
	"github.com/linnemanlabs/scribe/internal/missinginfo"
)

func blockingMissing(n int) missinginfo.Result {
	return missinginfo.Result{Summary: missinginfo.Summary{BlockingCount: n}}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		intent     classify.Intent
		confidence float64
		safety     classify.SafetyMode
		missing    missinginfo.Result
		ambiguity  bool
		want       Strategy
		wantTmpl   string
	}{
		{
			name:   "unknown intent scaffolds even at full confidence",
			intent: classify.IntentUnknownVague, confidence: 1.0, safety: classify.SafetySafe,
			want: Scaffold,
		},
		{
			name:   "empty intent scaffolds",
			intent: "", confidence: 1.0, safety: classify.SafetySafe,
			want: Scaffold,
		},
		{
			name:   "advisory-only intent",
			intent: classify.IntentPerformanceIssue, confidence: 0.95, safety: classify.SafetyUnsafe,
			want: AdvisoryOnly,
		},
		{
			name:   "low confidence scaffolds",
			intent: classify.IntentShippingStatus, confidence: 0.39, safety: classify.SafetySafe,
			want: Scaffold,
		},
		{
			name:   "unsafe with blocking info is advisory",
			intent: classify.IntentNotHashing, confidence: 0.90, safety: classify.SafetyUnsafe,
			missing: blockingMissing(1),
			want:    AdvisoryOnly,
		},
		{
			name:   "high confidence safe templated intent",
			intent: classify.IntentShippingStatus, confidence: 0.90, safety: classify.SafetySafe,
			want: AutoTemplate, wantTmpl: "4",
		},
		{
			name:   "ambiguity blocks auto-template",
			intent: classify.IntentShippingStatus, confidence: 0.90, safety: classify.SafetySafe,
			ambiguity: true,
			want:      ProactiveDraft, wantTmpl: "4",
		},
		{
			name:   "auto-template intent without mapped template drafts proactively",
			intent: "firmware_update_info", confidence: 0.95, safety: classify.SafetySafe,
			want: ProactiveDraft, wantTmpl: "",
		},
		{
			name:   "moderate confidence drafts proactively",
			intent: classify.IntentWarrantyRMA, confidence: 0.70, safety: classify.SafetySafe,
			want: ProactiveDraft, wantTmpl: "3",
		},
		{
			name:   "unsafe diagnostic at moderate confidence still drafts",
			intent: classify.IntentNotHashing, confidence: 0.70, safety: classify.SafetyUnsafe,
			want: ProactiveDraft, wantTmpl: "7",
		},
		{
			name:   "ambiguous low-moderate confidence scaffolds",
			intent: classify.IntentWarrantyRMA, confidence: 0.50, safety: classify.SafetySafe,
			ambiguity: true,
			want:      Scaffold,
		},
		{
			name:   "nothing matched defaults to advisory",
			intent: classify.IntentWarrantyRMA, confidence: 0.50, safety: classify.SafetySafe,
			want: AdvisoryOnly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := Select(tt.intent, tt.confidence, tt.safety, tt.missing, tt.ambiguity)
			if d.Strategy != tt.want {
				t.Errorf("Strategy = %q (%s), want %q", d.Strategy, d.Reason, tt.want)
			}
			if d.TemplateID != tt.wantTmpl {
				t.Errorf("TemplateID = %q, want %q", d.TemplateID, tt.wantTmpl)
			}
			if d.Reason == "" {
				t.Error("Reason is empty, want audit reason")
			}
		})
	}
}

func TestTemplateFor(t *testing.T) {
	t.Parallel()

	if id, ok := TemplateFor(classify.IntentShippingStatus); !ok || id != "4" {
		t.Errorf("TemplateFor(shipping_status) = (%q, %v), want (\"4\", true)", id, ok)
	}
	if _, ok := TemplateFor(classify.IntentGeneralQuestion); ok {
		t.Error("TemplateFor(general_question) found a template, want none")
	}
}
