package handler

import (
	"bytes"
	"crypto/subtle"
	"net/http"
	"strings"

	"shiftlog/internal/i18n"
	"shiftlog/internal/logging"
	"shiftlog/internal/model"
	"shiftlog/internal/service"
	"shiftlog/internal/sheet"
	"shiftlog/internal/store"
)

// AdminSecretHeader carries the shared admin secret.
const AdminSecretHeader = "X-Admin-Secret"

// maxUploadSize bounds an import upload.
const maxUploadSize = 32 << 20

type AdminHandler struct {
	svc    *service.AdminService
	secret string
	log    logging.Logger
}

func NewAdminHandler(svc *service.AdminService, secret string, log logging.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, secret: secret, log: log}
}

// SaveRecordsRequest is the edited record table.
type SaveRecordsRequest struct {
	Records []*model.AttendanceRecord `json:"records" validate:"required"`
}

// AddUserRequest names a user to register.
type AddUserRequest struct {
	User string `json:"user" validate:"required,max=100"`
}

type listResponse struct {
	Items []string `json:"items"`
}

type recordsResponse struct {
	Records []*model.AttendanceRecord `json:"records"`
}

func filterFrom(r *http.Request) store.Filter {
	q := r.URL.Query()
	return store.Filter{User: strings.TrimSpace(q.Get("user")), Date: strings.TrimSpace(q.Get("date"))}
}

func (h *AdminHandler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, recordsResponse{Records: h.svc.Records(filterFrom(r))})
}

func (h *AdminHandler) HandleSaveRecords(w http.ResponseWriter, r *http.Request) {
	var req SaveRecordsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	out, err := h.svc.SaveRecords(r.Context(), req.Records)
	if err != nil {
		writeServiceError(w, r, h.log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: i18n.T(r.Context(), "admin.records_saved", map[string]any{"Count": len(out)}),
		Count:   len(out),
		Data:    out,
	})
}

func (h *AdminHandler) HandleEditSession(w http.ResponseWriter, r *http.Request) {
	var req service.SessionEdit
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	data := map[string]any{"User": req.User, "Date": req.Date}
	rec, err := h.svc.EditSession(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err, data)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: i18n.T(r.Context(), "admin.session_updated", data),
		Data:    rec,
	})
}

func (h *AdminHandler) HandleAddUser(w http.ResponseWriter, r *http.Request) {
	var req AddUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	data := map[string]any{"User": req.User}
	rec, err := h.svc.AddUser(r.Context(), req.User)
	if err != nil {
		writeServiceError(w, r, h.log, err, data)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{
		Message: i18n.T(r.Context(), "admin.user_added", data),
		Data:    rec,
	})
}

func (h *AdminHandler) HandleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	data := map[string]any{"User": user}
	n, err := h.svc.DeactivateUser(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, h.log, err, data)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: i18n.T(r.Context(), "admin.user_deactivated", data),
		Count:   n,
	})
}

func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	data := map[string]any{"User": user}
	n, err := h.svc.DeleteUser(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, h.log, err, data)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: i18n.T(r.Context(), "admin.user_deleted", data),
		Count:   n,
	})
}

func (h *AdminHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listResponse{Items: h.svc.Users()})
}

func (h *AdminHandler) HandleDates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listResponse{Items: h.svc.Dates()})
}

// HandleExport downloads the (optionally filtered) records as CSV or XLSX.
func (h *AdminHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format, err := sheet.ParseFormat(r.URL.Query().Get("format"))
	if err != nil || format == sheet.FormatXLS {
		writeError(w, r, http.StatusBadRequest, "error.invalid_request", map[string]any{"Detail": "format must be csv or xlsx"})
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), &buf, format, filterFrom(r)); err != nil {
		writeServiceError(w, r, h.log, err, nil)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="attendance.`+string(format)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HandleImport merges an uploaded CSV, XLSX or XLS file (form field "file").
func (h *AdminHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	defer file.Close()

	n, err := h.svc.Import(r.Context(), file, header.Filename)
	if err != nil {
		writeServiceError(w, r, h.log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: i18n.T(r.Context(), "admin.imported", map[string]any{"Count": n}),
		Count:   n,
	})
}

// requireSecret rejects requests whose admin secret header does not match.
// An empty configured secret locks the admin API.
func (h *AdminHandler) requireSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(AdminSecretHeader)
		if h.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.log.Warn(r.Context(), "admin access denied", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeError(w, r, http.StatusUnauthorized, "error.unauthorized", nil)
			return
		}
		next(w, r)
	}
}

// RegisterRoutes registers all admin routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/admin/records", h.requireSecret(h.HandleRecords))
	mux.HandleFunc("PUT /api/admin/records", h.requireSecret(h.HandleSaveRecords))
	mux.HandleFunc("PUT /api/admin/sessions", h.requireSecret(h.HandleEditSession))
	mux.HandleFunc("GET /api/admin/users", h.requireSecret(h.HandleUsers))
	mux.HandleFunc("POST /api/admin/users", h.requireSecret(h.HandleAddUser))
	mux.HandleFunc("POST /api/admin/users/{user}/deactivate", h.requireSecret(h.HandleDeactivateUser))
	mux.HandleFunc("DELETE /api/admin/users/{user}", h.requireSecret(h.HandleDeleteUser))
	mux.HandleFunc("GET /api/admin/dates", h.requireSecret(h.HandleDates))
	mux.HandleFunc("GET /api/admin/export", h.requireSecret(h.HandleExport))
	mux.HandleFunc("POST /api/admin/import", h.requireSecret(h.HandleImport))
}
