package server

import (
	"net/http"
	"strconv"

	"github.com/covercompare/engine/internal/admin/suggest"
	"github.com/covercompare/engine/internal/ctxutil"
	"github.com/covercompare/engine/internal/model"
)

// suggestionLimit bounds how many candidate canonical codes accompany an
// event detail response.
const suggestionLimit = 5

// HandleAdminQueue implements GET /admin/events (spec.md §4.15's read-only
// queue listing), filterable by ?state= and ?insurer=, paginated via
// ?page=&page_size=.
func (h *Handlers) HandleAdminQueue(w http.ResponseWriter, r *http.Request) {
	var state *model.MappingEventState
	if s := r.URL.Query().Get("state"); s != "" {
		st := model.MappingEventState(s)
		state = &st
	}
	var insurer *model.InsurerCode
	if ins := r.URL.Query().Get("insurer"); ins != "" {
		code := model.InsurerCode(ins)
		insurer = &code
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	events, err := h.workbench.GetQueue(r.Context(), state, insurer, page, pageSize)
	if err != nil {
		writeAppError(w, r, h.logger, "admin: get queue failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

// eventDetailResponseBody is the wire shape of GET /admin/events/{event_id}:
// the mapping event plus, when a suggestion backend is configured, a ranked
// list of candidate canonical codes for the reviewing admin to consider.
// Suggestions are advisory only — nothing here is ever auto-applied.
type eventDetailResponseBody struct {
	model.MappingEvent
	Suggestions []suggest.Suggestion `json:"suggestions,omitempty"`
}

// HandleAdminEventDetail implements GET /admin/events/{event_id}.
func (h *Handlers) HandleAdminEventDetail(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("event_id")
	ev, found, err := h.workbench.GetEventDetail(r.Context(), eventID)
	if err != nil {
		writeAppError(w, r, h.logger, "admin: get event detail failed", err)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, model.ErrCodeValidation, "mapping event not found")
		return
	}

	resp := eventDetailResponseBody{MappingEvent: ev}
	if h.suggester != nil {
		suggestions, err := h.suggester.Suggest(r.Context(), ev.RawCoverageTitle, suggestionLimit)
		if err != nil {
			h.logger.Warn("admin: suggest lookup failed", "event_id", eventID, "error", err)
		} else {
			resp.Suggestions = suggestions
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

type approveRequestBody struct {
	CoverageCode   string                `json:"coverage_code"`
	ResolutionType model.ResolutionType `json:"resolution_type"`
	Note           string                `json:"note"`
}

// HandleAdminApprove implements POST /admin/events/{event_id}/approve.
func (h *Handlers) HandleAdminApprove(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("event_id")
	var body approveRequestBody
	if err := decodeJSON(r, &body, h.maxRequestBody); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid request body: "+err.Error())
		return
	}

	actor := ctxutil.ActorFromContext(r.Context())
	if err := h.workbench.Approve(r.Context(), eventID, body.CoverageCode, body.ResolutionType, actor, body.Note); err != nil {
		writeAppError(w, r, h.logger, "admin: approve failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"event_id": eventID, "state": "APPROVED"})
}

type noteRequestBody struct {
	Note string `json:"note"`
}

// HandleAdminReject implements POST /admin/events/{event_id}/reject.
func (h *Handlers) HandleAdminReject(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("event_id")
	var body noteRequestBody
	if err := decodeJSON(r, &body, h.maxRequestBody); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid request body: "+err.Error())
		return
	}

	actor := ctxutil.ActorFromContext(r.Context())
	if err := h.workbench.Reject(r.Context(), eventID, actor, body.Note); err != nil {
		writeAppError(w, r, h.logger, "admin: reject failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"event_id": eventID, "state": "REJECTED"})
}

// HandleAdminSnooze implements POST /admin/events/{event_id}/snooze.
func (h *Handlers) HandleAdminSnooze(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("event_id")
	var body noteRequestBody
	if err := decodeJSON(r, &body, h.maxRequestBody); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid request body: "+err.Error())
		return
	}

	actor := ctxutil.ActorFromContext(r.Context())
	if err := h.workbench.Snooze(r.Context(), eventID, actor, body.Note); err != nil {
		writeAppError(w, r, h.logger, "admin: snooze failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"event_id": eventID, "state": "SNOOZED"})
}
