package draftapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/scribe/internal/classify"
	"github.com/linnemanlabs/scribe/internal/draft"
)

func TestCreateDraft_AnnotatesSpan(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	r := newTestRouter(t, &fakeService{})

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "http.server")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/draft", strings.NewReader(
		`{"subject":"hi","latest_message":"hi","conversation_history":[{"role":"customer","text":"earlier"}]}`,
	)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	span.End()

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}

	attrs := make(map[string]any)
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.AsInterface()
	}
	if v, ok := attrs["scribe.history.len"]; !ok || v != int64(1) {
		t.Errorf("scribe.history.len = %v, want 1", v)
	}
	if v, ok := attrs["scribe.intent"]; !ok || v != "general_question" {
		t.Errorf("scribe.intent = %v, want general_question", v)
	}
	if v, ok := attrs["scribe.strategy"]; !ok || v != "PROACTIVE_DRAFT" {
		t.Errorf("scribe.strategy = %v, want PROACTIVE_DRAFT", v)
	}
}

func TestGetDecision_AnnotatesSpan(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	r := newTestRouter(t, &fakeService{records: map[string]*draft.Record{
		"01ABC": {ID: "01ABC", Intent: classify.IntentShippingStatus},
	}})

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "http.server")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/decisions/01ABC", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	span.End()

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	attrs := make(map[string]any)
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.AsInterface()
	}
	if v, ok := attrs["scribe.decision.id"]; !ok || v != "01ABC" {
		t.Errorf("scribe.decision.id = %v, want 01ABC", v)
	}
	if v, ok := attrs["scribe.decision.intent"]; !ok || v != "shipping_status" {
		t.Errorf("scribe.decision.intent = %v, want shipping_status", v)
	}
}
