package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/covercompare/engine/internal/admin/suggest"
	"github.com/covercompare/engine/internal/apperr"
	"github.com/covercompare/engine/internal/auth"
	"github.com/covercompare/engine/internal/compare"
	"github.com/covercompare/engine/internal/compiler"
	"github.com/covercompare/engine/internal/model"
	"github.com/covercompare/engine/internal/viewmodel"
)

// workbenchAPI is the subset of *admin.Workbench the HTTP layer calls.
// Kept as an interface (rather than depending on *admin.Workbench directly)
// so handler tests can exercise routing and error-mapping against a fake,
// the same way internal/compare accepts UniverseReader/EvidenceReader.
type workbenchAPI interface {
	GetQueue(ctx context.Context, state *model.MappingEventState, insurer *model.InsurerCode, page, pageSize int) ([]model.MappingEvent, error)
	GetEventDetail(ctx context.Context, eventID string) (model.MappingEvent, bool, error)
	Approve(ctx context.Context, eventID, coverageCode string, resolutionType model.ResolutionType, actor, note string) error
	Reject(ctx context.Context, eventID, actor, note string) error
	Snooze(ctx context.Context, eventID, actor, note string) error
}

// suggesterAPI is the subset of *suggest.Index the HTTP layer calls. Nil
// when no embedding/Qdrant backend is configured, in which case event
// detail responses simply omit suggestions.
type suggesterAPI interface {
	Suggest(ctx context.Context, rawCoverageTitle string, limit int) ([]suggest.Suggestion, error)
}

// Handlers holds the dependencies every HTTP handler needs.
type Handlers struct {
	orchestrator    *compare.Orchestrator
	assembler       *viewmodel.Assembler
	workbench       workbenchAPI
	suggester       suggesterAPI
	jwtMgr          *auth.JWTManager
	adminAPIKeyHash string
	logger          *slog.Logger
	version         string
	maxRequestBody  int64
}

// HandlersDeps configures NewHandlers.
type HandlersDeps struct {
	Orchestrator    *compare.Orchestrator
	Assembler       *viewmodel.Assembler
	Workbench       workbenchAPI
	Suggester       suggesterAPI
	JWTMgr          *auth.JWTManager
	AdminAPIKeyHash string
	Logger          *slog.Logger
	Version         string
	MaxRequestBody  int64
}

func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		orchestrator:    d.Orchestrator,
		assembler:       d.Assembler,
		workbench:       d.Workbench,
		suggester:       d.Suggester,
		jwtMgr:          d.JWTMgr,
		adminAPIKeyHash: d.AdminAPIKeyHash,
		logger:          d.Logger,
		version:         d.Version,
		maxRequestBody:  d.MaxRequestBody,
	}
}

// compileRequestBody is the wire shape of POST /compile.
type compileRequestBody struct {
	UserQuery               string                 `json:"user_query"`
	SelectedInsurers        []model.InsurerCode    `json:"selected_insurers"`
	SelectedComparisonBasis string                 `json:"selected_comparison_basis"`
	Options                 compiler.Options       `json:"options"`
}

type compileResponseBody struct {
	CompiledRequest    compiler.CompiledRequest    `json:"compiled_request"`
	CompilerDebug      compiler.CompilerDebug      `json:"compiler_debug"`
	RequiredSelections []compiler.RequiredSelection `json:"required_selections"`
}

// HandleCompile implements POST /compile (spec.md §4.9): turns a free-text
// request into a deterministic compiled comparison request plus decision
// trace. No persistence, no I/O.
func (h *Handlers) HandleCompile(w http.ResponseWriter, r *http.Request) {
	var body compileRequestBody
	if err := decodeJSON(r, &body, h.maxRequestBody); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid request body: "+err.Error())
		return
	}

	result := compiler.Compile(compiler.Request{
		UserQuery:               body.UserQuery,
		SelectedInsurers:        body.SelectedInsurers,
		SelectedComparisonBasis: body.SelectedComparisonBasis,
		Options:                 body.Options,
	})
	required := compiler.DetectClarificationNeeded(body.UserQuery, body.SelectedInsurers)

	writeJSON(w, r, http.StatusOK, compileResponseBody{
		CompiledRequest:    result.CompiledRequest,
		CompilerDebug:      result.CompilerDebug,
		RequiredSelections: required,
	})
}

// compareRequestBody is the wire shape of POST /compare. Callers normally
// compile first and pass the compiled query/insurer pair straight through;
// user_query/normalized_query/template_id are carried only for the view
// model header and comparison-detail lookup (spec.md §4.13), not re-parsed.
type compareRequestBody struct {
	Query           string             `json:"query"`
	UserQuery       string             `json:"user_query"`
	NormalizedQuery string             `json:"normalized_query"`
	TemplateID      string             `json:"template_id"`
	InsurerA        model.InsurerCode  `json:"insurer_a"`
	InsurerB        *model.InsurerCode `json:"insurer_b,omitempty"`
}

// HandleCompare implements POST /compare (spec.md §4.10-§4.13): runs the
// Compare Orchestrator and assembles its result into a presentable view
// model.
func (h *Handlers) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var body compareRequestBody
	if err := decodeJSON(r, &body, h.maxRequestBody); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid request body: "+err.Error())
		return
	}
	if body.Query == "" || body.InsurerA == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "query and insurer_a are required")
		return
	}

	result, err := h.orchestrator.Compare(r.Context(), body.Query, body.InsurerA, body.InsurerB)
	if err != nil {
		writeAppError(w, r, h.logger, "compare: orchestrator failed", err)
		return
	}

	vm, err := h.assembler.Assemble(body.UserQuery, body.NormalizedQuery, body.TemplateID, result)
	if err != nil {
		writeAppError(w, r, h.logger, "compare: assemble view model failed", err)
		return
	}

	writeJSON(w, r, http.StatusOK, vm)
}

// authTokenRequestBody is the wire shape of POST /auth/token.
type authTokenRequestBody struct {
	APIKey string `json:"api_key"`
	Actor  string `json:"actor"`
}

type authTokenResponseBody struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// HandleAuthToken exchanges the bootstrap admin API key for a short-lived
// JWT attributing subsequent workbench actions to Actor.
func (h *Handlers) HandleAuthToken(w http.ResponseWriter, r *http.Request) {
	var body authTokenRequestBody
	if err := decodeJSON(r, &body, h.maxRequestBody); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid request body: "+err.Error())
		return
	}
	if body.Actor == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "actor is required")
		return
	}

	valid, err := auth.VerifyAPIKey(body.APIKey, h.adminAPIKeyHash)
	if err != nil || !valid {
		if err != nil {
			auth.DummyVerify()
		}
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid api key")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueToken(body.Actor)
	if err != nil {
		writeAppError(w, r, h.logger, "auth: issue token failed", apperr.Internal("issue token", err))
		return
	}

	writeJSON(w, r, http.StatusOK, authTokenResponseBody{
		Token:     token,
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// HandleHealth reports liveness (no auth, no dependency checks — readiness
// is the orchestrator's Compare erroring out, which callers already handle).
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

// HandleConfig returns the handful of non-secret settings a caller needs to
// know before issuing requests.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"version":   h.version,
		"insurers":  model.AllInsurers(),
		"canonical": model.AllCancerCanonicals(),
	})
}
