package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covercompare/engine/internal/admin/suggest"
	"github.com/covercompare/engine/internal/apperr"
	"github.com/covercompare/engine/internal/auth"
	"github.com/covercompare/engine/internal/compare"
	"github.com/covercompare/engine/internal/ctxutil"
	"github.com/covercompare/engine/internal/model"
	"github.com/covercompare/engine/internal/viewmodel"
)

// fakeUniverseReader serves a fixed set of FullCoverage rows keyed by insurer,
// standing in for internal/universe.Store in handler tests.
type fakeUniverseReader struct {
	byInsurer map[model.InsurerCode]*model.FullCoverage
}

func (f *fakeUniverseReader) GetProposalCoverage(ctx context.Context, insurer model.InsurerCode, canonicalCode, rawName *string) (*model.FullCoverage, bool, error) {
	fc, ok := f.byInsurer[insurer]
	if !ok {
		return nil, false, nil
	}
	return fc, true, nil
}

type fakeEvidenceReader struct{}

func (fakeEvidenceReader) GetCoverageEvidence(ctx context.Context, insurer model.InsurerCode, canonicalCode string) ([]model.CoverageEvidence, error) {
	return []model.CoverageEvidence{{
		InsurerCode:   insurer,
		SourceDocType: model.DocProposal,
		SourceDocID:   "proposal-doc",
		SourcePage:    1,
		Excerpt:       "일반암진단비 3,000만원",
	}}, nil
}

func mappedCoverage(insurer model.InsurerCode, canonicalCode string) *model.FullCoverage {
	code := canonicalCode
	return &model.FullCoverage{
		Universe: model.ProposalCoverage{
			Insurer:         insurer,
			RawCoverageName: "일반암진단비",
			AmountValue:     30_000_000,
		},
		Mapping: model.CoverageMapping{
			Status:                model.MappingMapped,
			CanonicalCoverageCode: &code,
		},
	}
}

func newTestHandlers(t *testing.T, wb workbenchAPI) *Handlers {
	t.Helper()

	universe := &fakeUniverseReader{byInsurer: map[model.InsurerCode]*model.FullCoverage{
		model.InsurerSamsung: mappedCoverage(model.InsurerSamsung, string(model.CancerGeneral)),
		model.InsurerHanwha:  mappedCoverage(model.InsurerHanwha, string(model.CancerGeneral)),
	}}
	orchestrator := compare.New(universe, fakeEvidenceReader{})
	assembler := viewmodel.NewAssembler(nil)

	mgr, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	hash, err := auth.HashAPIKey("test-admin-key")
	require.NoError(t, err)

	return NewHandlers(HandlersDeps{
		Orchestrator:    orchestrator,
		Assembler:       assembler,
		Workbench:       wb,
		JWTMgr:          mgr,
		AdminAPIKeyHash: hash,
		Logger:          discardLogger(),
		Version:         "test",
		MaxRequestBody:  1 << 20,
	})
}

// fakeSuggester is an in-memory stand-in for *suggest.Index.
type fakeSuggester struct {
	suggestions []suggest.Suggestion
	err         error
}

func (f *fakeSuggester) Suggest(ctx context.Context, rawCoverageTitle string, limit int) ([]suggest.Suggestion, error) {
	return f.suggestions, f.err
}

func newTestHandlersWithSuggester(t *testing.T, wb workbenchAPI, sug suggesterAPI) *Handlers {
	t.Helper()

	universe := &fakeUniverseReader{byInsurer: map[model.InsurerCode]*model.FullCoverage{
		model.InsurerSamsung: mappedCoverage(model.InsurerSamsung, string(model.CancerGeneral)),
	}}
	orchestrator := compare.New(universe, fakeEvidenceReader{})
	assembler := viewmodel.NewAssembler(nil)

	mgr, err := auth.NewJWTManager("", "", time.Hour)
	require.NoError(t, err)

	hash, err := auth.HashAPIKey("test-admin-key")
	require.NoError(t, err)

	return NewHandlers(HandlersDeps{
		Orchestrator:    orchestrator,
		Assembler:       assembler,
		Workbench:       wb,
		Suggester:       sug,
		JWTMgr:          mgr,
		AdminAPIKeyHash: hash,
		Logger:          discardLogger(),
		Version:         "test",
		MaxRequestBody:  1 << 20,
	})
}

func doJSON(t *testing.T, h http.HandlerFunc, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleCompileReturnsCompiledRequest(t *testing.T) {
	h := newTestHandlers(t, nil)

	rec := doJSON(t, h.HandleCompile, http.MethodPost, "/compile", map[string]any{
		"user_query":        "일반암진단비",
		"selected_insurers":  []string{"SAMSUNG"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "compiled_request")
}

func TestHandleCompileRejectsMalformedBody(t *testing.T) {
	h := newTestHandlers(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/compile", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.HandleCompile(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCompareHappyPath(t *testing.T) {
	h := newTestHandlers(t, nil)

	rec := doJSON(t, h.HandleCompare, http.MethodPost, "/compare", compareRequestBody{
		Query:    "일반암진단비",
		InsurerA: model.InsurerSamsung,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fact_table")
}

func TestHandleCompareRequiresQueryAndInsurer(t *testing.T) {
	h := newTestHandlers(t, nil)

	rec := doJSON(t, h.HandleCompare, http.MethodPost, "/compare", compareRequestBody{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCompareUnknownInsurerIsOutOfUniverse(t *testing.T) {
	h := newTestHandlers(t, nil)

	rec := doJSON(t, h.HandleCompare, http.MethodPost, "/compare", compareRequestBody{
		Query:    "일반암진단비",
		InsurerA: model.InsurerCode("UNKNOWN_INSURER_NOT_IN_FIXTURE"),
	})

	// Unknown insurer simply has no universe row → StateOutOfUniverse, not an
	// error. This exercises the out-of-universe branch end to end.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fact_table")
}

func TestHandleAuthTokenIssuesTokenForValidKey(t *testing.T) {
	h := newTestHandlers(t, nil)

	rec := doJSON(t, h.HandleAuthToken, http.MethodPost, "/auth/token", authTokenRequestBody{
		APIKey: "test-admin-key",
		Actor:  "reviewer-kim",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "token")
}

func TestHandleAuthTokenRejectsInvalidKey(t *testing.T) {
	h := newTestHandlers(t, nil)

	rec := doJSON(t, h.HandleAuthToken, http.MethodPost, "/auth/token", authTokenRequestBody{
		APIKey: "wrong-key",
		Actor:  "reviewer-kim",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleAuthTokenRequiresActor(t *testing.T) {
	h := newTestHandlers(t, nil)

	rec := doJSON(t, h.HandleAuthToken, http.MethodPost, "/auth/token", authTokenRequestBody{
		APIKey: "test-admin-key",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandlers(t, nil)

	rec := doJSON(t, h.HandleHealth, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleConfig(t *testing.T) {
	h := newTestHandlers(t, nil)

	rec := doJSON(t, h.HandleConfig, http.MethodGet, "/config", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "insurers")
}

// fakeWorkbench is an in-memory stand-in for *admin.Workbench.
type fakeWorkbench struct {
	queue       []model.MappingEvent
	event       model.MappingEvent
	eventFound  bool
	approveErr  error
	rejectErr   error
	snoozeErr   error
	lastActor   string
	lastNote    string
}

func (f *fakeWorkbench) GetQueue(ctx context.Context, state *model.MappingEventState, insurer *model.InsurerCode, page, pageSize int) ([]model.MappingEvent, error) {
	return f.queue, nil
}

func (f *fakeWorkbench) GetEventDetail(ctx context.Context, eventID string) (model.MappingEvent, bool, error) {
	return f.event, f.eventFound, nil
}

func (f *fakeWorkbench) Approve(ctx context.Context, eventID, coverageCode string, resolutionType model.ResolutionType, actor, note string) error {
	f.lastActor = actor
	f.lastNote = note
	return f.approveErr
}

func (f *fakeWorkbench) Reject(ctx context.Context, eventID, actor, note string) error {
	f.lastActor = actor
	f.lastNote = note
	return f.rejectErr
}

func (f *fakeWorkbench) Snooze(ctx context.Context, eventID, actor, note string) error {
	f.lastActor = actor
	f.lastNote = note
	return f.snoozeErr
}

func TestHandleAdminQueueReturnsWorkbenchResult(t *testing.T) {
	wb := &fakeWorkbench{queue: []model.MappingEvent{{EventID: "evt-1"}}}
	h := newTestHandlers(t, wb)

	rec := doJSON(t, h.HandleAdminQueue, http.MethodGet, "/admin/events", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "evt-1")
}

func TestHandleAdminEventDetailNotFound(t *testing.T) {
	wb := &fakeWorkbench{eventFound: false}
	h := newTestHandlers(t, wb)

	req := httptest.NewRequest(http.MethodGet, "/admin/events/evt-missing", nil)
	req.SetPathValue("event_id", "evt-missing")
	rec := httptest.NewRecorder()
	h.HandleAdminEventDetail(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAdminEventDetailAttachesSuggestionsWhenConfigured(t *testing.T) {
	wb := &fakeWorkbench{event: model.MappingEvent{EventID: "evt-1", RawCoverageTitle: "유사암진단비"}, eventFound: true}
	sug := &fakeSuggester{suggestions: []suggest.Suggestion{{CoverageCode: "CA_DIAG_SIMILAR", CoverageName: "유사암진단비", Score: 0.92}}}
	h := newTestHandlersWithSuggester(t, wb, sug)

	req := httptest.NewRequest(http.MethodGet, "/admin/events/evt-1", nil)
	req.SetPathValue("event_id", "evt-1")
	rec := httptest.NewRecorder()
	h.HandleAdminEventDetail(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CA_DIAG_SIMILAR")
}

func TestHandleAdminEventDetailOmitsSuggestionsWhenNotConfigured(t *testing.T) {
	wb := &fakeWorkbench{event: model.MappingEvent{EventID: "evt-1"}, eventFound: true}
	h := newTestHandlers(t, wb)

	req := httptest.NewRequest(http.MethodGet, "/admin/events/evt-1", nil)
	req.SetPathValue("event_id", "evt-1")
	rec := httptest.NewRecorder()
	h.HandleAdminEventDetail(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "suggestions")
}

func TestHandleAdminEventDetailToleratesSuggesterError(t *testing.T) {
	wb := &fakeWorkbench{event: model.MappingEvent{EventID: "evt-1"}, eventFound: true}
	sug := &fakeSuggester{err: errors.New("qdrant unreachable")}
	h := newTestHandlersWithSuggester(t, wb, sug)

	req := httptest.NewRequest(http.MethodGet, "/admin/events/evt-1", nil)
	req.SetPathValue("event_id", "evt-1")
	rec := httptest.NewRecorder()
	h.HandleAdminEventDetail(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "a failing suggester must not fail the event detail read")
}

func TestHandleAdminApproveUsesContextActor(t *testing.T) {
	wb := &fakeWorkbench{}
	h := newTestHandlers(t, wb)

	body, err := json.Marshal(approveRequestBody{CoverageCode: "CA_DIAG_GENERAL", ResolutionType: model.ResolutionAlias})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/admin/events/evt-1/approve", bytes.NewReader(body))
	req.SetPathValue("event_id", "evt-1")
	req = req.WithContext(ctxutil.WithClaims(req.Context(), &auth.Claims{Actor: "reviewer-kim"}))
	rec := httptest.NewRecorder()
	h.HandleAdminApprove(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reviewer-kim", wb.lastActor)
}

func TestHandleAdminRejectPropagatesWorkbenchError(t *testing.T) {
	wb := &fakeWorkbench{rejectErr: apperr.Conflict("already resolved", "CA_DIAG_GENERAL")}
	h := newTestHandlers(t, wb)

	req := httptest.NewRequest(http.MethodPost, "/admin/events/evt-1/reject", bytes.NewReader([]byte(`{}`)))
	req.SetPathValue("event_id", "evt-1")
	rec := httptest.NewRecorder()
	h.HandleAdminReject(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
