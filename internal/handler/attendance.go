package handler

import (
	"net/http"
	"strconv"
	"strings"

	"shiftlog/internal/i18n"
	"shiftlog/internal/logging"
	"shiftlog/internal/service"
)

type AttendanceHandler struct {
	svc *service.AttendanceService
	log logging.Logger
}

func NewAttendanceHandler(svc *service.AttendanceService, log logging.Logger) *AttendanceHandler {
	return &AttendanceHandler{svc: svc, log: log}
}

// StartSessionRequest selects the user a new session is opened for.
type StartSessionRequest struct {
	User string `json:"user" validate:"required,max=100"`
}

type activeUsersResponse struct {
	Users   []string `json:"users"`
	Message string   `json:"message,omitempty"`
}

// HandleActiveUsers lists the users who can start a session.
func (h *AttendanceHandler) HandleActiveUsers(w http.ResponseWriter, r *http.Request) {
	resp := activeUsersResponse{Users: h.svc.ActiveUsers()}
	if len(resp.Users) == 0 {
		resp.Message = i18n.T(r.Context(), "attendance.no_active_users")
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleStartSession opens a new session on the current shift day.
func (h *AttendanceHandler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	res, err := h.svc.StartSession(r.Context(), req.User)
	if err != nil {
		writeServiceError(w, r, h.log, err, map[string]any{"User": req.User})
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleCurrentSession returns today's sessions of ?user=.
func (h *AttendanceHandler) HandleCurrentSession(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		writeError(w, r, http.StatusBadRequest, "error.invalid_request", map[string]any{"Detail": "user is required"})
		return
	}
	day, err := h.svc.CurrentSession(user)
	if err != nil {
		writeServiceError(w, r, h.log, err, map[string]any{"User": user})
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func (h *AttendanceHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CheckIn(r.Context(), r.PathValue("id"))
	h.writeResult(w, r, res, err)
}

func (h *AttendanceHandler) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CheckOut(r.Context(), r.PathValue("id"))
	h.writeResult(w, r, res, err)
}

func (h *AttendanceHandler) HandleBreakStart(w http.ResponseWriter, r *http.Request) {
	n, ok := h.breakNumber(w, r)
	if !ok {
		return
	}
	res, err := h.svc.StartBreak(r.Context(), r.PathValue("id"), n)
	h.writeResult(w, r, res, err)
}

func (h *AttendanceHandler) HandleBreakEnd(w http.ResponseWriter, r *http.Request) {
	n, ok := h.breakNumber(w, r)
	if !ok {
		return
	}
	res, err := h.svc.EndBreak(r.Context(), r.PathValue("id"), n)
	h.writeResult(w, r, res, err)
}

func (h *AttendanceHandler) breakNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "attendance.reject.invalid_break", nil)
		return 0, false
	}
	return n, true
}

// writeResult replies 200 for accepted transitions and 409 for rejected ones;
// both carry the localized message and the record as it now stands.
func (h *AttendanceHandler) writeResult(w http.ResponseWriter, r *http.Request, res *service.Result, err error) {
	if err != nil {
		writeServiceError(w, r, h.log, err, nil)
		return
	}
	status := http.StatusOK
	if !res.Accepted {
		status = http.StatusConflict
	}
	writeJSON(w, status, res)
}

// RegisterRoutes registers all user portal routes on the given mux.
func (h *AttendanceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users/active", h.HandleActiveUsers)
	mux.HandleFunc("POST /api/sessions", h.HandleStartSession)
	mux.HandleFunc("GET /api/sessions/current", h.HandleCurrentSession)
	mux.HandleFunc("POST /api/sessions/{id}/checkin", h.HandleCheckIn)
	mux.HandleFunc("POST /api/sessions/{id}/checkout", h.HandleCheckOut)
	mux.HandleFunc("POST /api/sessions/{id}/breaks/{n}/start", h.HandleBreakStart)
	mux.HandleFunc("POST /api/sessions/{id}/breaks/{n}/end", h.HandleBreakEnd)
}
