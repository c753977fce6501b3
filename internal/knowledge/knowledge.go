// Package knowledge retrieves supporting documentation for a ticket from the
// knowledge-base service. Retrieval is strictly best-effort: every failure
// degrades to an empty result with coverage "none" so the draft pipeline
// never stalls on the knowledge base.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

const (
	requestTimeout  = 5 * time.Second
	maxResponseSize = 1 << 20 // 1 MiB
)

// Coverage grades how well the knowledge base answered the query.
type Coverage string

const (
	CoverageHigh   Coverage = "high"
	CoverageMedium Coverage = "medium"
	CoverageLow    Coverage = "low"
	CoverageNone   Coverage = "none"
)

// Source is one retrieved knowledge-base article.
type Source struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	RelevanceScore float64 `json:"relevance_score"`
	Excerpt        string  `json:"excerpt"`
	LastUpdated    string  `json:"last_updated,omitempty"`
}

// Result is a retrieval outcome. The zero value is not meaningful; use Empty.
type Result struct {
	SourcesConsulted []Source `json:"sources_consulted"`
	Coverage         Coverage `json:"coverage"`
	Gaps             []string `json:"gaps"`
	RetrievalTimeMS  int64    `json:"retrieval_time_ms"`
}

// Empty is the degraded result used whenever retrieval fails or is disabled.
func Empty(elapsed time.Duration) Result {
	return Result{
		Coverage:        CoverageNone,
		Gaps:            []string{"knowledge retrieval unavailable"},
		RetrievalTimeMS: elapsed.Milliseconds(),
	}
}

// Retriever queries the knowledge service over HTTP. A nil receiver or empty
// endpoint behaves as "disabled" and always returns Empty.
type Retriever struct {
	endpoint string
	client   *http.Client
	logger   log.Logger
}

// New creates a retriever for the given endpoint. Empty endpoint disables
// retrieval without erroring.
func New(endpoint string, logger log.Logger) *Retriever {
	return &Retriever{
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
		logger:   logger,
	}
}

type query struct {
	Intent   string         `json:"intent"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Retrieve posts the query and decodes the knowledge response. It never
// returns an error: any transport, status, or decode failure is logged and
// becomes an Empty result.
func (r *Retriever) Retrieve(ctx context.Context, intent, message string, meta map[string]any) Result {
	start := time.Now()
	if r == nil || r.endpoint == "" {
		return Empty(0)
	}

	body, err := json.Marshal(query{Intent: intent, Message: message, Metadata: meta})
	if err != nil {
		r.logger.Error(ctx, err, "knowledge: marshal query")
		return Empty(time.Since(start))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		r.logger.Error(ctx, err, "knowledge: create request")
		return Empty(time.Since(start))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error(ctx, err, "knowledge: query failed", "endpoint", r.endpoint)
		return Empty(time.Since(start))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Error(ctx, fmt.Errorf("status %d", resp.StatusCode), "knowledge: non-2xx response")
		return Empty(time.Since(start))
	}

	var out Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		r.logger.Error(ctx, err, "knowledge: decode response")
		return Empty(time.Since(start))
	}

	out.RetrievalTimeMS = time.Since(start).Milliseconds()
	if out.Coverage == "" {
		out.Coverage = CoverageNone
	}
	return out
}
