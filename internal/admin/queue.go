package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/covercompare/engine/internal/model"
)

// GetQueue implements spec.md §4.15's read-only queue listing, optionally
// filtered by state and insurer, paginated.
func (w *Workbench) GetQueue(ctx context.Context, state *model.MappingEventState, insurer *model.InsurerCode, page, pageSize int) ([]model.MappingEvent, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `
		SELECT event_id, insurer_code, raw_coverage_title, query_text, normalized_query,
		       detected_status, candidate_codes, evidence_ref_ids, state,
		       resolution_type, resolved_code, resolved_by, resolved_at, created_at, updated_at
		FROM mapping_event
		WHERE ($1::text IS NULL OR state = $1) AND ($2::text IS NULL OR insurer_code = $2)
		ORDER BY created_at ASC
		LIMIT $3 OFFSET $4
	`
	var stateArg, insurerArg *string
	if state != nil {
		s := string(*state)
		stateArg = &s
	}
	if insurer != nil {
		s := string(*insurer)
		insurerArg = &s
	}

	rows, err := w.pool.Query(ctx, query, stateArg, insurerArg, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("admin: get queue: %w", err)
	}
	defer rows.Close()

	var out []model.MappingEvent
	for rows.Next() {
		ev, err := scanMappingEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("admin: iterate queue: %w", err)
	}
	return out, nil
}

// GetEventDetail implements spec.md §4.15's single-event read.
func (w *Workbench) GetEventDetail(ctx context.Context, eventID string) (model.MappingEvent, bool, error) {
	row := w.pool.QueryRow(ctx, `
		SELECT event_id, insurer_code, raw_coverage_title, query_text, normalized_query,
		       detected_status, candidate_codes, evidence_ref_ids, state,
		       resolution_type, resolved_code, resolved_by, resolved_at, created_at, updated_at
		FROM mapping_event WHERE event_id = $1
	`, eventID)

	ev, err := scanMappingEvent(row)
	if err == pgx.ErrNoRows {
		return model.MappingEvent{}, false, nil
	}
	if err != nil {
		return model.MappingEvent{}, false, fmt.Errorf("admin: get event detail: %w", err)
	}
	return ev, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMappingEvent(row rowScanner) (model.MappingEvent, error) {
	var ev model.MappingEvent
	var candidatesJSON, evidenceJSON []byte
	var resolutionType, resolvedCode, resolvedBy *string

	err := row.Scan(
		&ev.EventID, &ev.Insurer, &ev.RawCoverageTitle, &ev.QueryText, &ev.NormalizedQuery,
		&ev.DetectedStatus, &candidatesJSON, &evidenceJSON, &ev.State,
		&resolutionType, &resolvedCode, &resolvedBy, &ev.ResolvedAt, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return model.MappingEvent{}, err
	}

	if len(candidatesJSON) > 0 {
		if err := json.Unmarshal(candidatesJSON, &ev.CandidateCodes); err != nil {
			return model.MappingEvent{}, fmt.Errorf("admin: unmarshal candidate codes: %w", err)
		}
	}
	if len(evidenceJSON) > 0 {
		if err := json.Unmarshal(evidenceJSON, &ev.EvidenceRefIDs); err != nil {
			return model.MappingEvent{}, fmt.Errorf("admin: unmarshal evidence ref ids: %w", err)
		}
	}
	if resolutionType != nil {
		rt := model.ResolutionType(*resolutionType)
		ev.ResolutionType = &rt
	}
	ev.ResolvedCode = resolvedCode
	ev.ResolvedBy = resolvedBy

	return ev, nil
}
