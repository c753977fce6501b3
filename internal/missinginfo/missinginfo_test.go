package missinginfo

import (
	"testing"

	"github.com/linnemanlabs/scribe/internal/classify"
)

func TestDetectShippingOrderPresent(t *testing.T) {
	t.Parallel()

	meta := map[string]any{"has_order_number": true}
	r := Detect([]string{"where is my order"}, classify.IntentShippingStatus, 0.8, "", meta)

	if r.Detected {
		t.Errorf("Detected = true, want false; items = %v", r.Items)
	}
	if r.Summary.BlockingCount != 0 {
		t.Errorf("BlockingCount = %d, want 0", r.Summary.BlockingCount)
	}
}

func TestDetectShippingOrderMissing(t *testing.T) {
	t.Parallel()

	meta := map[string]any{
		"has_order_number": false,
		"missing_fields":   []string{"email"},
	}
	r := Detect([]string{"can you check the status for me"}, classify.IntentShippingStatus, 0.8, "", meta)

	if !r.Detected {
		t.Fatal("Detected = false, want true")
	}
	if len(r.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2; items = %v", len(r.Items), r.Items)
	}
	if r.Items[0].Key != "order_number" || r.Items[0].Severity != SeverityBlocking {
		t.Errorf("Items[0] = %+v, want blocking order_number", r.Items[0])
	}
	if r.Items[1].Key != "email" || r.Items[1].Severity != SeverityNonBlocking {
		t.Errorf("Items[1] = %+v, want non_blocking email", r.Items[1])
	}
}

func TestDetectShippingLowConfidenceNonBlocking(t *testing.T) {
	t.Parallel()

	meta := map[string]any{"has_order_number": false}
	r := Detect([]string{"shipping question"}, classify.IntentShippingStatus, 0.4, "", meta)

	if len(r.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(r.Items))
	}
	if r.Items[0].Severity != SeverityNonBlocking {
		t.Errorf("Severity = %q, want %q below the 0.6 threshold", r.Items[0].Severity, SeverityNonBlocking)
	}
}

func TestDetectShippingOrderNumberInMetadata(t *testing.T) {
	t.Parallel()

	// No has_order_number flag, and the text alone carries no order
	// reference; the metadata-supplied order number implies it is present.
	meta := map[string]any{"order_number": "FBT-2024-1234"}
	r := Detect([]string{"Where is my order? I ordered last week."}, classify.IntentShippingStatus, 0.9, "", meta)

	if r.Detected {
		t.Errorf("Detected = true, want false; items = %v", r.Items)
	}
	if len(r.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0; items = %v", len(r.Items), r.Items)
	}
}

func TestDetectShippingBlankOrderNumberIgnored(t *testing.T) {
	t.Parallel()

	meta := map[string]any{"order_number": "   "}
	r := Detect([]string{"can you check the status for me"}, classify.IntentShippingStatus, 0.9, "", meta)

	if !r.Detected {
		t.Fatal("Detected = false, want true; blank order_number must not count as present")
	}
	if len(r.Items) != 1 || r.Items[0].Key != "order_number" {
		t.Errorf("items = %v, want single blocking order_number", r.Items)
	}
}

func TestDetectShippingOrderNumberInText(t *testing.T) {
	t.Parallel()

	// No metadata; the order reference in the text counts as present.
	r := Detect([]string{"where is my order #FB1234"}, classify.IntentShippingStatus, 0.9, "", nil)

	if r.Detected {
		t.Errorf("Detected = true, want false; items = %v", r.Items)
	}
}

func TestDetectSetupShortCircuit(t *testing.T) {
	t.Parallel()

	meta := map[string]any{"missing_fields": []string{"connection_type", "device_model"}}
	r := Detect([]string{"help with setup"}, classify.IntentSetupHelp, 0.9, "", meta)

	if len(r.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1 (first gap only); items = %v", len(r.Items), r.Items)
	}
	if r.Items[0].Key != "connection_type" {
		t.Errorf("Items[0].Key = %q, want %q", r.Items[0].Key, "connection_type")
	}
}

func TestDetectSetupModelFromText(t *testing.T) {
	t.Parallel()

	r := Detect([]string{"setting up my apollo for the first time"}, classify.IntentSetupHelp, 0.9, "", nil)

	if r.Detected {
		t.Errorf("Detected = true, want false; items = %v", r.Items)
	}
}

func TestDetectSetupModelUnknown(t *testing.T) {
	t.Parallel()

	r := Detect([]string{"setting up my new miner"}, classify.IntentSetupHelp, 0.9, "", nil)

	if len(r.Items) != 1 || r.Items[0].Key != "device_model" {
		t.Fatalf("Items = %v, want single device_model item", r.Items)
	}
}

func TestDetectDiagnosticAllInfoPresent(t *testing.T) {
	t.Parallel()

	meta := map[string]any{"all_info_present": true}
	r := Detect([]string{"miner stopped hashing"}, classify.IntentNotHashing, 0.9, ModeDiagnostic, meta)

	if r.Detected {
		t.Errorf("Detected = true, want false; items = %v", r.Items)
	}
}

func TestDetectDiagnosticFromMetadata(t *testing.T) {
	t.Parallel()

	meta := map[string]any{
		"missing_fields": []string{"device_status"},
		"needs_uptime":   true,
	}
	r := Detect([]string{"it is acting up"}, classify.IntentNotHashing, 0.8, "", meta)

	if len(r.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2; items = %v", len(r.Items), r.Items)
	}
	if r.Items[0].Key != "device_status" || r.Items[0].Severity != SeverityBlocking {
		t.Errorf("Items[0] = %+v, want blocking device_status", r.Items[0])
	}
	if r.Items[1].Key != "uptime_or_last_reboot" || r.Items[1].Severity != SeverityNonBlocking {
		t.Errorf("Items[1] = %+v, want non_blocking uptime_or_last_reboot", r.Items[1])
	}
}

func TestDetectDiagnosticInference(t *testing.T) {
	t.Parallel()

	r := Detect([]string{"my miner stopped hashing overnight"}, classify.IntentNotHashing, 0.8, ModeDiagnostic, nil)

	if len(r.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1; items = %v", len(r.Items), r.Items)
	}
	it := r.Items[0]
	if it.Key != "device_status" || it.Evidence != "message_text" {
		t.Errorf("item = %+v, want inferred device_status", it)
	}
	if it.Severity != SeverityBlocking {
		t.Errorf("Severity = %q, want blocking at confidence 0.8", it.Severity)
	}
}

func TestDetectMetadataWinsOverInference(t *testing.T) {
	t.Parallel()

	meta := map[string]any{"missing_fields": []string{"device_status"}}
	r := Detect([]string{"stopped hashing"}, classify.IntentNotHashing, 0.9, ModeDiagnostic, meta)

	if len(r.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1 (merge is add-only); items = %v", len(r.Items), r.Items)
	}
	if r.Items[0].Evidence != "metadata_or_rules" {
		t.Errorf("Evidence = %q, want metadata to win over inference", r.Items[0].Evidence)
	}
}

func TestDetectUnrelatedIntent(t *testing.T) {
	t.Parallel()

	r := Detect([]string{"what is the warranty period"}, classify.IntentGeneralQuestion, 0.9, "", nil)

	if r.Detected {
		t.Errorf("Detected = true, want false; items = %v", r.Items)
	}
}

func TestBlockingKeys(t *testing.T) {
	t.Parallel()

	r := Result{Items: []Item{
		{Key: "order_number", Severity: SeverityBlocking},
		{Key: "email", Severity: SeverityNonBlocking},
		{Key: "device_status", Severity: SeverityBlocking},
	}}

	got := r.BlockingKeys()
	want := []string{"order_number", "device_status"}
	if len(got) != len(want) {
		t.Fatalf("BlockingKeys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BlockingKeys[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMetaBoolEncodings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		meta  map[string]any
		want  bool
		known bool
	}{
		{"bool", map[string]any{"has_order_number": true}, true, true},
		{"string yes", map[string]any{"has_order_number": "yes"}, true, true},
		{"string zero", map[string]any{"has_order_number": "0"}, false, true},
		{"float from json", map[string]any{"has_order_number": float64(1)}, true, true},
		{"garbage string", map[string]any{"has_order_number": "maybe"}, false, false},
		{"absent", map[string]any{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, known := metaBool(tt.meta, "has_order_number")
			if got != tt.want || known != tt.known {
				t.Errorf("metaBool = (%v, %v), want (%v, %v)", got, known, tt.want, tt.known)
			}
		})
	}
}
