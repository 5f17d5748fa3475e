package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftlog/internal/i18n"
	"shiftlog/internal/logging"
	"shiftlog/internal/model"
	"shiftlog/internal/service"
	"shiftlog/internal/shift"
	"shiftlog/internal/store"
)

const testSecret = "s3cret"

func TestMain(m *testing.M) {
	if _, err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type nopPersister struct{}

func (nopPersister) Save(context.Context, []*model.AttendanceRecord) error { return nil }

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	loc := shift.FixedZone(2)
	clock := shift.NewClock(loc).WithNow(func() time.Time {
		return time.Date(2024, 1, 10, 16, 0, 0, 0, loc)
	})
	st := store.NewAttendanceStore(nopPersister{}, loc, logging.Discard())

	mux := http.NewServeMux()
	NewAttendanceHandler(service.NewAttendanceService(st, clock, nil, logging.Discard()), logging.Discard()).RegisterRoutes(mux)
	NewAdminHandler(service.NewAdminService(st, clock, logging.Discard()), testSecret, logging.Discard()).RegisterRoutes(mux)

	srv := httptest.NewServer(LoggingMiddleware(logging.Discard(), LocaleMiddleware(mux)))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, header map[string]string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

var admin = map[string]string{AdminSecretHeader: testSecret}

func TestSessionEndpoints(t *testing.T) {
	srv := newServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/sessions", StartSessionRequest{User: "bob"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var started service.Result
	require.NoError(t, json.Unmarshal(body, &started))
	id := started.Record.ID

	resp, body = do(t, srv, http.MethodPost, "/api/sessions/"+id+"/checkin", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res service.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Accepted)
	assert.Equal(t, "4:00 PM", *res.Record.CheckIn)

	resp, body = do(t, srv, http.MethodPost, "/api/sessions/"+id+"/breaks/2/start", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	res = service.Result{}
	require.NoError(t, json.Unmarshal(body, &res))
	assert.False(t, res.Accepted)
	assert.Equal(t, model.ReasonPreviousBreakOpen, res.Reason)
	assert.Equal(t, "End the previous break first.", res.Message)

	resp, _ = do(t, srv, http.MethodPost, "/api/sessions/"+id+"/breaks/x/start", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/api/sessions/missing/checkout", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/sessions/current?user=bob", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var day service.Day
	require.NoError(t, json.Unmarshal(body, &day))
	assert.Equal(t, "2024-01-10", day.Date)
	assert.Equal(t, id, day.Current.ID)

	resp, body = do(t, srv, http.MethodGet, "/api/users/active", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"users":["bob"]}`, string(body))
}

func TestStartSessionValidation(t *testing.T) {
	srv := newServer(t)

	resp, _ := do(t, srv, http.MethodPost, "/api/sessions", `{"user":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/api/sessions", `{"name":"bob"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInactiveUserForbidden(t *testing.T) {
	srv := newServer(t)

	resp, _ := do(t, srv, http.MethodPost, "/api/admin/users", AddUserRequest{User: "carol"}, admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodPost, "/api/admin/users/carol/deactivate", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, srv, http.MethodPost, "/api/sessions", StartSessionRequest{User: "carol"}, map[string]string{"Accept-Language": "ar"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.JSONEq(t, `{"error":"تم رفض الوصول: تم حذف حساب المستخدم."}`, string(body))
}

func TestAdminRequiresSecret(t *testing.T) {
	srv := newServer(t)

	for _, h := range []map[string]string{nil, {AdminSecretHeader: "wrong"}} {
		resp, _ := do(t, srv, http.MethodGet, "/api/admin/records", nil, h)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, body := do(t, srv, http.MethodGet, "/api/admin/records", nil, admin)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"records":[]}`, string(body))
}

func TestAdminUserEndpoints(t *testing.T) {
	srv := newServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/admin/users", AddUserRequest{User: "carol"}, admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, string(body), "User carol authorized.")

	resp, body = do(t, srv, http.MethodPost, "/api/admin/users", AddUserRequest{User: "carol"}, admin)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "already exists and is active")

	resp, body = do(t, srv, http.MethodGet, "/api/admin/users", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"items":["carol"]}`, string(body))

	resp, body = do(t, srv, http.MethodGet, "/api/admin/dates", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"items":["2024-01-10"]}`, string(body))

	resp, _ = do(t, srv, http.MethodDelete, "/api/admin/users/carol", nil, admin)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, srv, http.MethodDelete, "/api/admin/users/carol", nil, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"User carol not found."}`, string(body))
}

func TestAdminEditSession(t *testing.T) {
	srv := newServer(t)
	resp, _ := do(t, srv, http.MethodPost, "/api/sessions", StartSessionRequest{User: "bob"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, srv, http.MethodPut, "/api/admin/sessions",
		`{"user":"bob","date":"2024-01-10","check_in":"4:00 PM","check_out":"1:00 AM"}`, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"total_hours":9`)

	resp, body = do(t, srv, http.MethodPut, "/api/admin/sessions",
		`{"user":"bob","date":"2024-01-10","check_in":"16:00"}`, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Invalid time format for CheckIn")

	resp, _ = do(t, srv, http.MethodPut, "/api/admin/sessions", `{"user":"bob","date":"10/01/2024"}`, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminSaveRecords(t *testing.T) {
	srv := newServer(t)

	resp, body := do(t, srv, http.MethodPut, "/api/admin/records",
		`{"records":[{"user":"dave","date":"2024-01-10","check_in":"5:00 PM","check_out":"7:30 PM","active":true}]}`, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"total_hours":2.5`)

	resp, _ = do(t, srv, http.MethodPut, "/api/admin/records", `{"records":[{"user":"","date":"2024-01-10"}]}`, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, srv, http.MethodPut, "/api/admin/records", `{"records":[null]}`, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "empty record")
}

func TestExportImport(t *testing.T) {
	srv := newServer(t)
	resp, _ := do(t, srv, http.MethodPost, "/api/admin/users", AddUserRequest{User: "carol"}, admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, srv, http.MethodGet, "/api/admin/export?format=csv", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attendance.csv")
	assert.True(t, strings.HasPrefix(string(body), "User,Date,CheckIn"))

	resp, _ = do(t, srv, http.MethodGet, "/api/admin/export?format=pdf", nil, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	other := newServer(t)
	resp, body = upload(t, other, "backup.csv", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"count":1`)

	resp, body = upload(t, other, "broken.csv", []byte("Name\nx\n"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Error restoring data")
}

func upload(t *testing.T, srv *httptest.Server, filename string, content []byte) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/admin/import", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(AdminSecretHeader, testSecret)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}
