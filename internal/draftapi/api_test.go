package draftapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/scribe/internal/classify"
	"github.com/linnemanlabs/scribe/internal/draft"
	"github.com/linnemanlabs/scribe/internal/strategy"
)

type fakeService struct {
	draftResp  *draft.Response
	draftErr   error
	gotRequest draft.Request

	records map[string]*draft.Record
	rollup  []draft.RollupRow
}

func (f *fakeService) Draft(_ context.Context, req draft.Request) (*draft.Response, error) {
	f.gotRequest = req
	if f.draftErr != nil {
		return nil, f.draftErr
	}
	return f.draftResp, nil
}

func (f *fakeService) Get(_ context.Context, id string) (*draft.Record, bool, error) {
	rec, ok := f.records[id]
	return rec, ok, nil
}

func (f *fakeService) GovernanceRollup(_ context.Context) ([]draft.RollupRow, error) {
	return f.rollup, nil
}

func newTestRouter(t *testing.T, svc *fakeService) chi.Router {
	t.Helper()
	if svc.draftResp == nil {
		svc.draftResp = &draft.Response{
			ID: "01TEST",
			IntentClassification: classify.Classification{
				PrimaryIntent: classify.IntentGeneralQuestion,
			},
			Strategy: strategy.Decision{Strategy: strategy.ProactiveDraft},
		}
	}
	api := New(nil, svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r
}

func postDraft(t *testing.T, r chi.Router, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/draft", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (code string, details map[string]any) {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Success {
		t.Error("error response has success=true")
	}
	return body.Error.Code, body.Error.Details
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil) did not panic; expected panic for nil service")
		}
	}()
	New(nil, nil)
}

func TestCreateDraft_Success(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	r := newTestRouter(t, svc)

	w := postDraft(t, r, `{
		"subject": "Solo mining question",
		"latest_message": "What is solo mining?",
		"conversation_history": [],
		"customer_name": "Sam",
		"metadata": {"order_number": "FB-1"}
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var body struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success {
		t.Error("success = false, want true")
	}
	if body.ID != "01TEST" {
		t.Errorf("id = %q, want 01TEST", body.ID)
	}

	if svc.gotRequest.Subject != "Solo mining question" {
		t.Errorf("service got subject %q", svc.gotRequest.Subject)
	}
	if svc.gotRequest.CustomerName != "Sam" {
		t.Errorf("service got customer name %q", svc.gotRequest.CustomerName)
	}
	if svc.gotRequest.Metadata["order_number"] != "FB-1" {
		t.Errorf("service got metadata %v", svc.gotRequest.Metadata)
	}
}

func TestCreateDraft_MalformedJSON(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeService{})
	w := postDraft(t, r, `{not json`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code, _ := decodeError(t, w); code != "malformed_json" {
		t.Errorf("error code = %q, want malformed_json", code)
	}
}

func TestCreateDraft_MissingRequiredFields(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeService{})
	w := postDraft(t, r, `{"subject": "hi"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	code, details := decodeError(t, w)
	if code != "invalid_input" {
		t.Errorf("error code = %q, want invalid_input", code)
	}
	missing, _ := details["missing_fields"].([]any)
	if len(missing) != 2 {
		t.Errorf("missing_fields = %v, want latest_message and conversation_history", missing)
	}
}

func TestCreateDraft_FieldLimits(t *testing.T) {
	t.Parallel()

	longSubject := strings.Repeat("s", maxSubjectLength+1)
	longMessage := strings.Repeat("m", maxMessageLength+1)
	longName := strings.Repeat("n", maxCustomerNameLength+1)

	var manyMessages []string
	for i := 0; i < maxConversationLength+1; i++ {
		manyMessages = append(manyMessages, `{"role":"customer","text":"hi"}`)
	}

	var manyAttachments []string
	for i := 0; i < maxAttachments+1; i++ {
		manyAttachments = append(manyAttachments, `"file.png"`)
	}

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "subject too long",
			body:     `{"subject":"` + longSubject + `","latest_message":"hi","conversation_history":[]}`,
			wantCode: "payload_too_large",
		},
		{
			name:     "message too long",
			body:     `{"subject":"hi","latest_message":"` + longMessage + `","conversation_history":[]}`,
			wantCode: "payload_too_large",
		},
		{
			name:     "history too long",
			body:     `{"subject":"hi","latest_message":"hi","conversation_history":[` + strings.Join(manyMessages, ",") + `]}`,
			wantCode: "payload_too_large",
		},
		{
			name:     "history item too long",
			body:     `{"subject":"hi","latest_message":"hi","conversation_history":[{"role":"customer","text":"` + longMessage + `"}]}`,
			wantCode: "payload_too_large",
		},
		{
			name:     "bad role",
			body:     `{"subject":"hi","latest_message":"hi","conversation_history":[{"role":"bot","text":"hi"}]}`,
			wantCode: "invalid_input",
		},
		{
			name:     "history item without text",
			body:     `{"subject":"hi","latest_message":"hi","conversation_history":[{"role":"customer"}]}`,
			wantCode: "invalid_input",
		},
		{
			name:     "customer name too long",
			body:     `{"subject":"hi","latest_message":"hi","conversation_history":[],"customer_name":"` + longName + `"}`,
			wantCode: "payload_too_large",
		},
		{
			name:     "too many attachments",
			body:     `{"subject":"hi","latest_message":"hi","conversation_history":[],"metadata":{"attachments":[` + strings.Join(manyAttachments, ",") + `]}}`,
			wantCode: "payload_too_large",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newTestRouter(t, &fakeService{})
			w := postDraft(t, r, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
			}
			if code, _ := decodeError(t, w); code != tt.wantCode {
				t.Errorf("error code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestCreateDraft_ServiceError(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeService{draftErr: errors.New("boom")})
	w := postDraft(t, r, `{"subject":"hi","latest_message":"hi","conversation_history":[]}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if code, _ := decodeError(t, w); code != "internal_error" {
		t.Errorf("error code = %q, want internal_error", code)
	}
}

func TestGetDecision(t *testing.T) {
	t.Parallel()

	svc := &fakeService{records: map[string]*draft.Record{
		"01ABC": {ID: "01ABC", Intent: classify.IntentShippingStatus},
	}}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions/01ABC", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Success  bool         `json:"success"`
		Decision draft.Record `json:"decision"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Decision.ID != "01ABC" {
		t.Errorf("body = %+v", body)
	}
}

func TestGetDecision_NotFound(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeService{records: map[string]*draft.Record{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if code, _ := decodeError(t, w); code != "not_found" {
		t.Errorf("error code = %q, want not_found", code)
	}
}

func TestGovernanceInsights(t *testing.T) {
	t.Parallel()

	svc := &fakeService{rollup: []draft.RollupRow{
		{ConfidenceBucket: "high", RiskCategory: "low", Allowed: true, Count: 7},
	}}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/insights/governance", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Success bool              `json:"success"`
		Rollup  []draft.RollupRow `json:"rollup"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Rollup) != 1 || body.Rollup[0].Count != 7 {
		t.Errorf("body = %+v", body)
	}
}

func TestGovernanceInsights_EmptyRollupIsList(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/insights/governance", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"rollup":[]`) {
		t.Errorf("empty rollup should serialize as [], got %s", w.Body.String())
	}
}
