// Package pgstore provides a PostgreSQL implementation of draft.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/scribe/internal/classify"
	"github.com/linnemanlabs/scribe/internal/draft"
	"github.com/linnemanlabs/scribe/internal/governance"
	"github.com/linnemanlabs/scribe/internal/strategy"
)

var tracer = otel.Tracer("github.com/linnemanlabs/scribe/internal/draft/pgstore")

//go:embed schema.sql
var schema string

// Store persists decision records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store. The
// pool remains owned by the caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const decisionColumns = `id, created_at, subject, latest_message, intent, confidence, safety_mode,
	tone, ambiguity_detected, strategy, template_id, draft_type, draft_text,
	auto_send, auto_send_reason, governance_allowed, governance_reasons,
	confidence_bucket, risk_category, blocking_missing_count`

// Get retrieves a decision record by ID.
func (s *Store) Get(ctx context.Context, id string) (*draft.Record, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE id = $1`
	r, err := scanDecisionRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// Put inserts or updates a decision record (upsert on id).
func (s *Store) Put(ctx context.Context, r *draft.Record) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	reasonsJSON, err := json.Marshal(r.GovernanceReasons)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("marshal governance reasons: %w", err)
	}

	query := `INSERT INTO decisions (
		id, created_at, subject, latest_message, intent, confidence, safety_mode,
		tone, ambiguity_detected, strategy, template_id, draft_type, draft_text,
		auto_send, auto_send_reason, governance_allowed, governance_reasons,
		confidence_bucket, risk_category, blocking_missing_count
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	ON CONFLICT (id) DO UPDATE SET
		subject                = EXCLUDED.subject,
		latest_message         = EXCLUDED.latest_message,
		intent                 = EXCLUDED.intent,
		confidence             = EXCLUDED.confidence,
		safety_mode            = EXCLUDED.safety_mode,
		tone                   = EXCLUDED.tone,
		ambiguity_detected     = EXCLUDED.ambiguity_detected,
		strategy               = EXCLUDED.strategy,
		template_id            = EXCLUDED.template_id,
		draft_type             = EXCLUDED.draft_type,
		draft_text             = EXCLUDED.draft_text,
		auto_send              = EXCLUDED.auto_send,
		auto_send_reason       = EXCLUDED.auto_send_reason,
		governance_allowed     = EXCLUDED.governance_allowed,
		governance_reasons     = EXCLUDED.governance_reasons,
		confidence_bucket      = EXCLUDED.confidence_bucket,
		risk_category          = EXCLUDED.risk_category,
		blocking_missing_count = EXCLUDED.blocking_missing_count`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.CreatedAt, r.Subject, r.LatestMessage, string(r.Intent), r.Confidence,
		string(r.SafetyMode), string(r.Tone), r.AmbiguityDetected, string(r.Strategy),
		r.TemplateID, r.DraftType, r.DraftText, r.AutoSend, r.AutoSendReason,
		r.GovernanceAllowed, reasonsJSON, string(r.ConfidenceBucket), string(r.RiskCategory),
		r.BlockingMissingCount,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert decision: %w", err)
	}
	return nil
}

// GovernanceRollup aggregates governance verdicts by confidence bucket, risk
// category, and outcome.
func (s *Store) GovernanceRollup(ctx context.Context) ([]draft.RollupRow, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GovernanceRollup", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT confidence_bucket, risk_category, governance_allowed, COUNT(*)
		 FROM decisions
		 GROUP BY confidence_bucket, risk_category, governance_allowed
		 ORDER BY confidence_bucket, risk_category, governance_allowed`,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query rollup: %w", err)
	}
	defer rows.Close()

	var out []draft.RollupRow
	for rows.Next() {
		var row draft.RollupRow
		if err := rows.Scan(&row.ConfidenceBucket, &row.RiskCategory, &row.Allowed, &row.Count); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("scan rollup row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate rollup rows: %w", err)
	}
	return out, nil
}

// scanDecisionRow scans a single row into a draft.Record. Returns (nil, nil)
// when no row is found.
func scanDecisionRow(row pgx.Row) (*draft.Record, error) {
	var (
		r           draft.Record
		intent      string
		safetyMode  string
		tone        string
		strat       string
		bucket      string
		risk        string
		reasonsJSON []byte
	)

	err := row.Scan(
		&r.ID, &r.CreatedAt, &r.Subject, &r.LatestMessage, &intent, &r.Confidence,
		&safetyMode, &tone, &r.AmbiguityDetected, &strat, &r.TemplateID,
		&r.DraftType, &r.DraftText, &r.AutoSend, &r.AutoSendReason,
		&r.GovernanceAllowed, &reasonsJSON, &bucket, &risk, &r.BlockingMissingCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Intent = classify.Intent(intent)
	r.SafetyMode = classify.SafetyMode(safetyMode)
	r.Tone = classify.Tone(tone)
	r.Strategy = strategy.Strategy(strat)
	r.ConfidenceBucket = governance.ConfidenceBucket(bucket)
	r.RiskCategory = governance.RiskCategory(risk)

	if err := json.Unmarshal(reasonsJSON, &r.GovernanceReasons); err != nil {
		return nil, fmt.Errorf("unmarshal governance reasons: %w", err)
	}

	return &r, nil
}
