// Package admin implements the Admin Mapping Workbench (spec.md §4.15):
// durable resolution of UNMAPPED/AMBIGUOUS MappingEvents via a
// transactional approve/reject/snooze state machine with an append-only
// audit log.
//
// Grounded in spec.md §4.15 (src/admin_mapping/service.py's approve_event
// flow in original_source) and the teacher's internal/storage/audit.go
// pgxExecer pattern for audit entries that must commit atomically with the
// mutation they describe, plus internal/storage.WithRetry for the
// serialization/deadlock retry around each FOR UPDATE transaction.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/covercompare/engine/internal/apperr"
	"github.com/covercompare/engine/internal/model"
	"github.com/covercompare/engine/internal/storage"
)

// retryBaseDelay and retryAttempts bound the serialization/deadlock retry
// applied to every FOR UPDATE transaction below — two concurrent admins
// resolving the same event is the one contention case expected here.
const retryAttempts = 3

var retryBaseDelay = 50 * time.Millisecond

// CanonicalValidator checks that a coverage code is a registered canonical
// (implemented by internal/canon.Registry).
type CanonicalValidator interface {
	Exists(code string) bool
}

// Workbench is the admin-write surface over mapping_event, coverage_code_alias,
// coverage_name_map and audit_log. Every operation here runs against the
// admin read-write pool (SPEC_FULL.md §D.2), never the read-only query pool.
type Workbench struct {
	pool     *pgxpool.Pool
	registry CanonicalValidator
}

func New(pool *pgxpool.Pool, registry CanonicalValidator) *Workbench {
	return &Workbench{pool: pool, registry: registry}
}

type pgxExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreateOrUpdateEvent implements spec.md §4.15: updates the matching OPEN
// event if one exists for (insurer, raw_title, detected_status), else
// inserts a new one.
func (w *Workbench) CreateOrUpdateEvent(ctx context.Context, ev model.MappingEvent) error {
	candidatesJSON, err := json.Marshal(ev.CandidateCodes)
	if err != nil {
		return fmt.Errorf("admin: marshal candidate codes: %w", err)
	}
	evidenceJSON, err := json.Marshal(ev.EvidenceRefIDs)
	if err != nil {
		return fmt.Errorf("admin: marshal evidence ref ids: %w", err)
	}

	tag, err := w.pool.Exec(ctx, `
		UPDATE mapping_event
		SET candidate_codes = $4::jsonb, evidence_ref_ids = $5::jsonb, updated_at = now()
		WHERE insurer_code = $1 AND raw_coverage_title = $2 AND detected_status = $3 AND state = 'OPEN'
	`, string(ev.Insurer), ev.RawCoverageTitle, string(ev.DetectedStatus), candidatesJSON, evidenceJSON)
	if err != nil {
		return fmt.Errorf("admin: update mapping event: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = w.pool.Exec(ctx, `
		INSERT INTO mapping_event (
			event_id, insurer_code, raw_coverage_title, query_text, normalized_query,
			detected_status, candidate_codes, evidence_ref_ids, state, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, 'OPEN', now(), now())
	`, ev.EventID, string(ev.Insurer), ev.RawCoverageTitle, ev.QueryText, ev.NormalizedQuery,
		string(ev.DetectedStatus), candidatesJSON, evidenceJSON)
	if err != nil {
		return fmt.Errorf("admin: insert mapping event: %w", err)
	}
	return nil
}

// Approve implements spec.md §4.15's full approve_event flow, all within
// one transaction: load FOR UPDATE, validate the canonical code, conflict
// check against existing bindings, upsert the resolution table, transition
// the event, and append an audit entry. Any failure rolls back the whole
// set.
func (w *Workbench) Approve(ctx context.Context, eventID, coverageCode string, resolutionType model.ResolutionType, actor, note string) error {
	if !w.registry.Exists(coverageCode) {
		return apperr.Validation("admin: unknown canonical coverage code", map[string]any{"coverage_code": coverageCode})
	}

	return storage.WithRetry(ctx, retryAttempts, retryBaseDelay, func() error {
		return w.approveOnce(ctx, eventID, coverageCode, resolutionType, actor, note)
	})
}

func (w *Workbench) approveOnce(ctx context.Context, eventID, coverageCode string, resolutionType model.ResolutionType, actor, note string) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("admin: begin approve transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ev model.MappingEvent
	var state string
	err = tx.QueryRow(ctx, `
		SELECT event_id, insurer_code, raw_coverage_title, query_text, normalized_query, state
		FROM mapping_event WHERE event_id = $1 FOR UPDATE
	`, eventID).Scan(&ev.EventID, &ev.Insurer, &ev.RawCoverageTitle, &ev.QueryText, &ev.NormalizedQuery, &state)
	if err == pgx.ErrNoRows {
		return apperr.Validation("admin: mapping event not found", map[string]any{"event_id": eventID})
	}
	if err != nil {
		return fmt.Errorf("admin: load mapping event: %w", err)
	}
	if state != string(model.EventOpen) {
		return apperr.Conflict("admin: mapping event is not OPEN", state)
	}

	bindingKey := ev.NormalizedQuery
	targetTable := "coverage_code_alias"
	if resolutionType == model.ResolutionNameMap {
		bindingKey = ev.RawCoverageTitle
		targetTable = "coverage_name_map"
	}

	var existingCode string
	err = tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT coverage_code FROM %s WHERE insurer_code = $1 AND alias_text = $2
	`, targetTable), string(ev.Insurer), bindingKey).Scan(&existingCode)
	if err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("admin: conflict check: %w", err)
	}
	if err == nil && existingCode != coverageCode {
		return apperr.Conflict("admin: alias already bound to a different coverage code", existingCode)
	}
	if err == nil {
		// existingCode == coverageCode: idempotent re-approval, nothing to upsert.
	} else {
		_, err = tx.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (insurer_code, alias_text, coverage_code) VALUES ($1, $2, $3)
		`, targetTable), string(ev.Insurer), bindingKey, coverageCode)
		if err != nil {
			return fmt.Errorf("admin: upsert resolution: %w", err)
		}
	}

	now := time.Now()
	_, err = tx.Exec(ctx, `
		UPDATE mapping_event
		SET state = 'APPROVED', resolution_type = $2, resolved_code = $3,
		    resolved_by = $4, resolved_at = $5, updated_at = $5
		WHERE event_id = $1
	`, eventID, string(resolutionType), coverageCode, actor, now)
	if err != nil {
		return fmt.Errorf("admin: transition event to approved: %w", err)
	}

	if err := appendAudit(ctx, tx, model.AuditLogEntry{
		Actor:  actor,
		Action: "approve",
		Target: eventID,
		Before: map[string]any{"state": "OPEN"},
		After:  map[string]any{"state": "APPROVED", "coverage_code": coverageCode, "resolution_type": resolutionType, "note": note},
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("admin: commit approve transaction: %w", err)
	}
	return nil
}

// Reject implements spec.md §4.15.
func (w *Workbench) Reject(ctx context.Context, eventID, actor, note string) error {
	return w.transition(ctx, eventID, model.EventRejected, "reject", actor, note)
}

// Snooze implements spec.md §4.15.
func (w *Workbench) Snooze(ctx context.Context, eventID, actor, note string) error {
	return w.transition(ctx, eventID, model.EventSnoozed, "snooze", actor, note)
}

func (w *Workbench) transition(ctx context.Context, eventID string, to model.MappingEventState, action, actor, note string) error {
	return storage.WithRetry(ctx, retryAttempts, retryBaseDelay, func() error {
		return w.transitionOnce(ctx, eventID, to, action, actor, note)
	})
}

func (w *Workbench) transitionOnce(ctx context.Context, eventID string, to model.MappingEventState, action, actor, note string) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("admin: begin %s transaction: %w", action, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var state string
	err = tx.QueryRow(ctx, `SELECT state FROM mapping_event WHERE event_id = $1 FOR UPDATE`, eventID).Scan(&state)
	if err == pgx.ErrNoRows {
		return apperr.Validation("admin: mapping event not found", map[string]any{"event_id": eventID})
	}
	if err != nil {
		return fmt.Errorf("admin: load mapping event: %w", err)
	}
	if state != string(model.EventOpen) {
		return apperr.Conflict(fmt.Sprintf("admin: mapping event is not OPEN, cannot %s", action), state)
	}

	_, err = tx.Exec(ctx, `
		UPDATE mapping_event SET state = $2, resolved_by = $3, resolved_at = now(), updated_at = now()
		WHERE event_id = $1
	`, eventID, string(to), actor)
	if err != nil {
		return fmt.Errorf("admin: transition event to %s: %w", to, err)
	}

	if err := appendAudit(ctx, tx, model.AuditLogEntry{
		Actor:  actor,
		Action: action,
		Target: eventID,
		Before: map[string]any{"state": "OPEN"},
		After:  map[string]any{"state": string(to), "note": note},
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("admin: commit %s transaction: %w", action, err)
	}
	return nil
}

func appendAudit(ctx context.Context, exec pgxExecer, e model.AuditLogEntry) error {
	beforeJSON, err := json.Marshal(e.Before)
	if err != nil {
		return fmt.Errorf("admin: marshal audit before: %w", err)
	}
	afterJSON, err := json.Marshal(e.After)
	if err != nil {
		return fmt.Errorf("admin: marshal audit after: %w", err)
	}
	evidenceJSON, err := json.Marshal(e.EvidenceRefIDs)
	if err != nil {
		return fmt.Errorf("admin: marshal audit evidence refs: %w", err)
	}

	_, err = exec.Exec(ctx, `
		INSERT INTO audit_log (actor, action, target, before_data, after_data, evidence_ref_ids, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6::jsonb, now())
	`, e.Actor, e.Action, e.Target, beforeJSON, afterJSON, evidenceJSON)
	if err != nil {
		return fmt.Errorf("admin: insert audit log entry: %w", err)
	}
	return nil
}
