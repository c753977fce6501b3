package draftapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/scribe/internal/draft"
)

// Inbound payload limits. Oversized payloads are a client error, never a
// truncation.
const (
	maxPayloadBytes       = 1 << 20 // 1MB
	maxSubjectLength      = 500
	maxMessageLength      = 10000
	maxConversationLength = 50
	maxCustomerNameLength = 100
	maxAttachments        = 10
)

type draftRequest struct {
	Subject             string                 `json:"subject"`
	LatestMessage       string                 `json:"latest_message"`
	ConversationHistory []draft.HistoryMessage `json:"conversation_history"`
	CustomerName        string                 `json:"customer_name"`
	Metadata            map[string]any         `json:"metadata"`
}

func (a *API) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)

	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_json", "request body must be valid JSON", nil)
		return
	}

	if code, msg, details := validateDraftRequest(&req); code != "" {
		writeError(w, http.StatusBadRequest, code, msg, details)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Int("scribe.history.len", len(req.ConversationHistory)))

	resp, err := a.svc.Draft(r.Context(), draft.Request{
		Subject:             req.Subject,
		LatestMessage:       req.LatestMessage,
		ConversationHistory: req.ConversationHistory,
		CustomerName:        req.CustomerName,
		Metadata:            req.Metadata,
	})
	if err != nil {
		a.logger.Error(r.Context(), err, "draft pipeline failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to produce draft", nil)
		return
	}

	span.SetAttributes(
		attribute.String("scribe.intent", string(resp.IntentClassification.PrimaryIntent)),
		attribute.String("scribe.strategy", string(resp.Strategy.Strategy)),
	)

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*draft.Response
	}{Success: true, Response: resp})
}

// validateDraftRequest returns an empty code when the request is acceptable.
func validateDraftRequest(req *draftRequest) (code, message string, details map[string]any) {
	var missing []string
	if strings.TrimSpace(req.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(req.LatestMessage) == "" {
		missing = append(missing, "latest_message")
	}
	if req.ConversationHistory == nil {
		missing = append(missing, "conversation_history")
	}
	if len(missing) > 0 {
		return "invalid_input",
			"missing or invalid required fields: " + strings.Join(missing, ", "),
			map[string]any{"missing_fields": missing}
	}

	if len(req.Subject) > maxSubjectLength {
		return "payload_too_large",
			fmt.Sprintf("field 'subject' exceeds maximum length of %d characters", maxSubjectLength),
			map[string]any{"field": "subject", "max_length": maxSubjectLength}
	}
	if len(req.LatestMessage) > maxMessageLength {
		return "payload_too_large",
			fmt.Sprintf("field 'latest_message' exceeds maximum length of %d characters", maxMessageLength),
			map[string]any{"field": "latest_message", "max_length": maxMessageLength}
	}
	if len(req.ConversationHistory) > maxConversationLength {
		return "payload_too_large",
			fmt.Sprintf("conversation history exceeds maximum of %d messages", maxConversationLength),
			map[string]any{"message_count": len(req.ConversationHistory), "max_messages": maxConversationLength}
	}

	for i, msg := range req.ConversationHistory {
		if msg.Role != "customer" && msg.Role != "agent" {
			return "invalid_input",
				fmt.Sprintf("message at index %d must have role 'customer' or 'agent'", i),
				map[string]any{"index": i}
		}
		if msg.Text == "" {
			return "invalid_input",
				fmt.Sprintf("message at index %d must contain text", i),
				map[string]any{"index": i}
		}
		if len(msg.Text) > maxMessageLength {
			return "payload_too_large",
				fmt.Sprintf("message at index %d exceeds maximum length of %d characters", i, maxMessageLength),
				map[string]any{"index": i, "max_length": maxMessageLength}
		}
	}

	if len(req.CustomerName) > maxCustomerNameLength {
		return "payload_too_large",
			fmt.Sprintf("field 'customer_name' exceeds maximum length of %d characters", maxCustomerNameLength),
			map[string]any{"field": "customer_name", "max_length": maxCustomerNameLength}
	}

	if attachments, ok := req.Metadata["attachments"].([]any); ok && len(attachments) > maxAttachments {
		return "payload_too_large",
			fmt.Sprintf("too many attachments (maximum %d)", maxAttachments),
			map[string]any{"attachment_count": len(attachments), "max_attachments": maxAttachments}
	}

	return "", "", nil
}
