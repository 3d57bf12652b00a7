package admin_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/covercompare/engine/internal/admin"
	"github.com/covercompare/engine/internal/apperr"
	"github.com/covercompare/engine/internal/model"
)

var testPool *pgxpool.Pool

type fakeRegistry struct{ codes map[string]bool }

func (f fakeRegistry) Exists(code string) bool { return f.codes[code] }

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "covercompare",
			"POSTGRES_PASSWORD": "covercompare",
			"POSTGRES_DB":       "covercompare",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
	dsn := fmt.Sprintf("postgres://covercompare:covercompare@%s:%s/covercompare?sslmode=disable", host, port.Port())

	testPool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}

	if _, err := testPool.Exec(ctx, `
		CREATE TABLE mapping_event (
			event_id           text PRIMARY KEY,
			insurer_code       text NOT NULL,
			raw_coverage_title text NOT NULL,
			query_text         text NOT NULL,
			normalized_query   text NOT NULL,
			detected_status    text NOT NULL,
			candidate_codes    jsonb,
			evidence_ref_ids   jsonb,
			state              text NOT NULL,
			resolution_type    text,
			resolved_code      text,
			resolved_by        text,
			resolved_at        timestamptz,
			created_at         timestamptz NOT NULL DEFAULT now(),
			updated_at         timestamptz NOT NULL DEFAULT now()
		);
		CREATE TABLE coverage_code_alias (
			insurer_code  text NOT NULL,
			alias_text    text NOT NULL,
			coverage_code text NOT NULL,
			PRIMARY KEY (insurer_code, alias_text)
		);
		CREATE TABLE coverage_name_map (
			insurer_code  text NOT NULL,
			alias_text    text NOT NULL,
			coverage_code text NOT NULL,
			PRIMARY KEY (insurer_code, alias_text)
		);
		CREATE TABLE audit_log (
			id               bigserial PRIMARY KEY,
			actor            text NOT NULL,
			action           text NOT NULL,
			target           text NOT NULL,
			before_data      jsonb,
			after_data       jsonb,
			evidence_ref_ids jsonb,
			created_at       timestamptz NOT NULL DEFAULT now()
		);
	`); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create schema: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	testPool.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func insertOpenEvent(t *testing.T, eventID string) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `
		INSERT INTO mapping_event (event_id, insurer_code, raw_coverage_title, query_text, normalized_query, detected_status, state)
		VALUES ($1, 'DB', '일반암진단특약', '일반암진단특약', '일반암진단', 'UNMAPPED', 'OPEN')
	`, eventID)
	require.NoError(t, err)
}

func TestApproveHappyPathUpsertsAliasTransitionsEventAndAudits(t *testing.T) {
	ctx := context.Background()
	_, err := testPool.Exec(ctx, `TRUNCATE mapping_event, coverage_code_alias, coverage_name_map, audit_log`)
	require.NoError(t, err)
	insertOpenEvent(t, "evt-1")

	w := admin.New(testPool, fakeRegistry{codes: map[string]bool{"CA_DIAG_GENERAL": true}})
	err = w.Approve(ctx, "evt-1", "CA_DIAG_GENERAL", model.ResolutionAlias, "admin-1", "looks right")
	require.NoError(t, err)

	ev, found, err := w.GetEventDetail(ctx, "evt-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.EventApproved, ev.State)
	require.NotNil(t, ev.ResolvedCode)
	assert.Equal(t, "CA_DIAG_GENERAL", *ev.ResolvedCode)

	var aliasCount int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT count(*) FROM coverage_code_alias`).Scan(&aliasCount))
	assert.Equal(t, 1, aliasCount)

	var auditCount int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT count(*) FROM audit_log WHERE action = 'approve'`).Scan(&auditCount))
	assert.Equal(t, 1, auditCount)
}

func TestApproveRefusesUnknownCanonicalCode(t *testing.T) {
	ctx := context.Background()
	_, err := testPool.Exec(ctx, `TRUNCATE mapping_event, coverage_code_alias, coverage_name_map, audit_log`)
	require.NoError(t, err)
	insertOpenEvent(t, "evt-2")

	w := admin.New(testPool, fakeRegistry{codes: map[string]bool{}})
	err = w.Approve(ctx, "evt-2", "CA_DIAG_GENERAL", model.ResolutionAlias, "admin-1", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestApproveRefusesWhenEventNotOpen(t *testing.T) {
	ctx := context.Background()
	_, err := testPool.Exec(ctx, `TRUNCATE mapping_event, coverage_code_alias, coverage_name_map, audit_log`)
	require.NoError(t, err)
	insertOpenEvent(t, "evt-3")

	w := admin.New(testPool, fakeRegistry{codes: map[string]bool{"CA_DIAG_GENERAL": true}})
	require.NoError(t, w.Approve(ctx, "evt-3", "CA_DIAG_GENERAL", model.ResolutionAlias, "admin-1", ""))

	err = w.Approve(ctx, "evt-3", "CA_DIAG_GENERAL", model.ResolutionAlias, "admin-1", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestApproveRefusesConflictingAliasBinding(t *testing.T) {
	ctx := context.Background()
	_, err := testPool.Exec(ctx, `TRUNCATE mapping_event, coverage_code_alias, coverage_name_map, audit_log`)
	require.NoError(t, err)
	insertOpenEvent(t, "evt-4")
	_, err = testPool.Exec(ctx, `INSERT INTO coverage_code_alias (insurer_code, alias_text, coverage_code) VALUES ('DB', '일반암진단', 'CA_DIAG_SIMILAR')`)
	require.NoError(t, err)

	w := admin.New(testPool, fakeRegistry{codes: map[string]bool{"CA_DIAG_GENERAL": true, "CA_DIAG_SIMILAR": true}})
	err = w.Approve(ctx, "evt-4", "CA_DIAG_GENERAL", model.ResolutionAlias, "admin-1", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestRejectAndSnoozeTransitionState(t *testing.T) {
	ctx := context.Background()
	_, err := testPool.Exec(ctx, `TRUNCATE mapping_event, coverage_code_alias, coverage_name_map, audit_log`)
	require.NoError(t, err)
	insertOpenEvent(t, "evt-5")
	insertOpenEvent(t, "evt-6")

	w := admin.New(testPool, fakeRegistry{})
	require.NoError(t, w.Reject(ctx, "evt-5", "admin-1", "not a cancer coverage"))
	require.NoError(t, w.Snooze(ctx, "evt-6", "admin-1", "need more info"))

	ev5, _, err := w.GetEventDetail(ctx, "evt-5")
	require.NoError(t, err)
	assert.Equal(t, model.EventRejected, ev5.State)

	ev6, _, err := w.GetEventDetail(ctx, "evt-6")
	require.NoError(t, err)
	assert.Equal(t, model.EventSnoozed, ev6.State)
}

func TestGetQueueFiltersByState(t *testing.T) {
	ctx := context.Background()
	_, err := testPool.Exec(ctx, `TRUNCATE mapping_event, coverage_code_alias, coverage_name_map, audit_log`)
	require.NoError(t, err)
	insertOpenEvent(t, "evt-7")
	insertOpenEvent(t, "evt-8")

	w := admin.New(testPool, fakeRegistry{codes: map[string]bool{"CA_DIAG_GENERAL": true}})
	require.NoError(t, w.Approve(ctx, "evt-7", "CA_DIAG_GENERAL", model.ResolutionAlias, "admin-1", ""))

	open := model.EventOpen
	queue, err := w.GetQueue(ctx, &open, nil, 1, 10)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "evt-8", queue[0].EventID)
}

func TestCreateOrUpdateEventInsertsThenUpdatesOpenEvent(t *testing.T) {
	ctx := context.Background()
	_, err := testPool.Exec(ctx, `TRUNCATE mapping_event, coverage_code_alias, coverage_name_map, audit_log`)
	require.NoError(t, err)

	w := admin.New(testPool, fakeRegistry{})
	ev := model.MappingEvent{
		EventID: "evt-9", Insurer: model.InsurerDB, RawCoverageTitle: "일반암진단특약",
		QueryText: "일반암진단특약", NormalizedQuery: "일반암진단", DetectedStatus: model.MappingUnmapped,
		CandidateCodes: []string{"CA_DIAG_GENERAL"},
	}
	require.NoError(t, w.CreateOrUpdateEvent(ctx, ev))

	ev.CandidateCodes = []string{"CA_DIAG_GENERAL", "CA_DIAG_SIMILAR"}
	require.NoError(t, w.CreateOrUpdateEvent(ctx, ev))

	var count int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT count(*) FROM mapping_event`).Scan(&count))
	assert.Equal(t, 1, count, "second call updates the existing OPEN event instead of inserting")

	got, found, err := w.GetEventDetail(ctx, "evt-9")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"CA_DIAG_GENERAL", "CA_DIAG_SIMILAR"}, got.CandidateCodes)
}
