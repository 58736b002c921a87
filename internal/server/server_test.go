package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fieldline/internal/app"
	"fieldline/internal/server"
)

const testSecret = "test-secret"

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	a, err := app.Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	h, err := server.New(server.Config{Engine: a.Engine, BasePath: "/v0", Auth: server.AuthConfig{JWTSecret: testSecret}})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return testServer{ts}
}

func signToken(t *testing.T, subject, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (ts testServer) request(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if out != nil {
		_ = json.NewDecoder(res.Body).Decode(out)
	}
	return res.StatusCode
}

func TestHealthNoAuth(t *testing.T) {
	ts := newTestServer(t)
	res, err := http.Get(ts.URL + "/v0/health")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
}

func TestRequestsRequireAuth(t *testing.T) {
	ts := newTestServer(t)
	status := ts.request(t, http.MethodGet, "/v0/tasks", "", nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
}

func TestLoginIssuesUsableToken(t *testing.T) {
	ts := newTestServer(t)
	var login struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	status := ts.request(t, http.MethodPost, "/v0/auth/login", "", map[string]any{"login": "dispatcher"}, &login)
	if status != http.StatusOK {
		t.Fatalf("login status = %d", status)
	}
	if login.Role != "dispatcher" || login.Token == "" {
		t.Fatalf("login = %+v", login)
	}
	if got := ts.request(t, http.MethodGet, "/v0/tasks", login.Token, nil, nil); got != http.StatusOK {
		t.Fatalf("list with minted token = %d", got)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	ts := newTestServer(t)
	status := ts.request(t, http.MethodPost, "/v0/auth/login", "", map[string]any{"login": "stranger"}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
}

func TestCreateTaskRoleGate(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]any{"address": "Lenina 1", "work_type": "house-wiring"}

	status := ts.request(t, http.MethodPost, "/v0/tasks", signToken(t, "brigade1", "brigade"), body, nil)
	if status != http.StatusForbidden {
		t.Fatalf("brigade create = %d, want 403", status)
	}
	var task struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	status = ts.request(t, http.MethodPost, "/v0/tasks", signToken(t, "dispatcher", "dispatcher"), body, &task)
	if status != http.StatusCreated {
		t.Fatalf("dispatcher create = %d, want 201", status)
	}
	if task.ID == 0 || task.Status != "new" {
		t.Fatalf("task = %+v", task)
	}
}

func TestTaskVisibilityByRole(t *testing.T) {
	ts := newTestServer(t)
	dispatcher := signToken(t, "dispatcher", "dispatcher")

	mk := func(body map[string]any) {
		if status := ts.request(t, http.MethodPost, "/v0/tasks", dispatcher, body, nil); status != http.StatusCreated {
			t.Fatalf("create = %d", status)
		}
	}
	mk(map[string]any{"address": "A", "work_type": "house-wiring"})
	mk(map[string]any{"address": "B", "work_type": "house-wiring", "assigned_brigade": "brigade1"})
	mk(map[string]any{"address": "C", "work_type": "house-wiring", "assigned_admin": "admin1"})

	var tasks []map[string]any
	if status := ts.request(t, http.MethodGet, "/v0/tasks", dispatcher, nil, &tasks); status != http.StatusOK {
		t.Fatal("dispatcher list failed")
	}
	if len(tasks) != 3 {
		t.Fatalf("dispatcher sees %d, want 3", len(tasks))
	}

	ts.request(t, http.MethodGet, "/v0/tasks", signToken(t, "brigade1", "brigade"), nil, &tasks)
	if len(tasks) != 1 || tasks[0]["address"] != "B" {
		t.Fatalf("brigade sees %+v, want only B", tasks)
	}

	// A task routed to an admin is hidden from every admin, admin1 included.
	ts.request(t, http.MethodGet, "/v0/tasks", signToken(t, "admin1", "admin"), nil, &tasks)
	if len(tasks) != 2 {
		t.Fatalf("admin sees %d, want 2", len(tasks))
	}
	for _, task := range tasks {
		if task["address"] == "C" {
			t.Fatal("routed task leaked into admin list")
		}
	}
}

func TestHiddenTaskReadsAsNotFound(t *testing.T) {
	ts := newTestServer(t)
	dispatcher := signToken(t, "dispatcher", "dispatcher")
	var task struct {
		ID int64 `json:"id"`
	}
	ts.request(t, http.MethodPost, "/v0/tasks", dispatcher, map[string]any{
		"address": "Hidden", "work_type": "house-wiring", "assigned_brigade": "brigade2",
	}, &task)

	status := ts.request(t, http.MethodGet, fmt.Sprintf("/v0/tasks/%d", task.ID), signToken(t, "brigade1", "brigade"), nil, nil)
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
}

func TestMapViewOnlyInProgress(t *testing.T) {
	ts := newTestServer(t)
	dispatcher := signToken(t, "dispatcher", "dispatcher")
	var task struct {
		ID int64 `json:"id"`
	}
	ts.request(t, http.MethodPost, "/v0/tasks", dispatcher, map[string]any{
		"address": "Active", "work_type": "house-wiring", "assigned_brigade": "brigade1",
	}, &task)
	ts.request(t, http.MethodPost, "/v0/tasks", dispatcher, map[string]any{
		"address": "Done", "work_type": "house-wiring", "assigned_brigade": "brigade1",
	}, &task)
	if status := ts.request(t, http.MethodPost, fmt.Sprintf("/v0/tasks/%d/complete", task.ID), dispatcher, nil, nil); status != http.StatusOK {
		t.Fatalf("complete = %d", status)
	}

	var tasks []map[string]any
	ts.request(t, http.MethodGet, "/v0/tasks/map", signToken(t, "brigade1", "brigade"), nil, &tasks)
	if len(tasks) != 1 || tasks[0]["address"] != "Active" {
		t.Fatalf("map view = %+v, want only the in_progress task", tasks)
	}
}

func TestSubmitReportOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	dispatcher := signToken(t, "dispatcher", "dispatcher")
	var task struct {
		ID int64 `json:"id"`
	}
	ts.request(t, http.MethodPost, "/v0/tasks", dispatcher, map[string]any{
		"address": "Lenina 9", "work_type": "house-wiring", "assigned_brigade": "brigade1",
	}, &task)

	var result struct {
		Complete bool   `json:"complete"`
		Status   string `json:"status"`
	}
	status := ts.request(t, http.MethodPost, fmt.Sprintf("/v0/tasks/%d/reports", task.ID), signToken(t, "brigade1", "brigade"), map[string]any{
		"comment":   "done",
		"access":    "code 1234",
		"photos":    []string{"a.jpg"},
		"materials": []map[string]any{{"name": "Putty", "quantity": 2}},
	}, &result)
	if status != http.StatusCreated {
		t.Fatalf("submit = %d, want 201", status)
	}
	if !result.Complete || result.Status != "completed" {
		t.Fatalf("result = %+v", result)
	}
}

func TestSubmitPartialReportKeepsTaskOpen(t *testing.T) {
	ts := newTestServer(t)
	dispatcher := signToken(t, "dispatcher", "dispatcher")
	var task struct {
		ID int64 `json:"id"`
	}
	ts.request(t, http.MethodPost, "/v0/tasks", dispatcher, map[string]any{
		"address": "Lenina 10", "work_type": "house-wiring", "assigned_brigade": "brigade1",
	}, &task)

	var result struct {
		Complete bool   `json:"complete"`
		Status   string `json:"status"`
	}
	status := ts.request(t, http.MethodPost, fmt.Sprintf("/v0/tasks/%d/reports", task.ID), signToken(t, "brigade1", "brigade"), map[string]any{
		"comment": "still working",
	}, &result)
	if status != http.StatusCreated {
		t.Fatalf("submit = %d, want 201", status)
	}
	if result.Complete || result.Status != "in_progress" {
		t.Fatalf("result = %+v", result)
	}
}

func TestSubmitReportWrongBrigadeForbidden(t *testing.T) {
	ts := newTestServer(t)
	dispatcher := signToken(t, "dispatcher", "dispatcher")
	var task struct {
		ID int64 `json:"id"`
	}
	ts.request(t, http.MethodPost, "/v0/tasks", dispatcher, map[string]any{
		"address": "Lenina 11", "work_type": "house-wiring", "assigned_brigade": "brigade2",
	}, &task)

	status := ts.request(t, http.MethodPost, fmt.Sprintf("/v0/tasks/%d/reports", task.ID), signToken(t, "brigade1", "brigade"), map[string]any{
		"comment": "mine now",
	}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
}

func TestTransferAndLogOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	warehouse := signToken(t, "warehouse", "warehouse")

	// Opening stock comes from the seeded catalog.
	var stock struct {
		Item     string  `json:"item"`
		Quantity float64 `json:"quantity"`
	}
	status := ts.request(t, http.MethodPost, "/v0/stock/transfer", warehouse, map[string]any{
		"brigade": "brigade1", "item": "Putty", "kind": "material", "quantity": 50,
	}, &stock)
	if status != http.StatusOK {
		t.Fatalf("transfer = %d", status)
	}
	if stock.Quantity != 150 {
		t.Fatalf("warehouse quantity = %v, want 150 after issuing 50 of 200", stock.Quantity)
	}

	var entries []map[string]any
	if status := ts.request(t, http.MethodGet, "/v0/stock/log", warehouse, nil, &entries); status != http.StatusOK {
		t.Fatalf("log = %d", status)
	}
	if len(entries) != 1 || entries[0]["operation"] != "issue to brigade" {
		t.Fatalf("log entries = %+v", entries)
	}

	// Brigades cannot issue stock.
	status = ts.request(t, http.MethodPost, "/v0/stock/transfer", signToken(t, "brigade1", "brigade"), map[string]any{
		"brigade": "brigade1", "item": "Putty", "kind": "material", "quantity": 1,
	}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("brigade transfer = %d, want 403", status)
	}
}

func TestBrigadeStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)
	brigade := signToken(t, "brigade1", "brigade")

	status := ts.request(t, http.MethodPut, "/v0/brigades/brigade1/status", brigade, map[string]any{"status": "sick leave"}, nil)
	if status != http.StatusOK {
		t.Fatalf("own status = %d", status)
	}
	status = ts.request(t, http.MethodPut, "/v0/brigades/brigade2/status", brigade, map[string]any{"status": "sick leave"}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("other brigade = %d, want 403", status)
	}
	status = ts.request(t, http.MethodPut, "/v0/brigades/brigade1/status", brigade, map[string]any{"status": "moonlighting"}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("unknown status = %d, want 400", status)
	}
}

func TestEventsDispatcherOnly(t *testing.T) {
	ts := newTestServer(t)
	status := ts.request(t, http.MethodGet, "/v0/events", signToken(t, "brigade1", "brigade"), nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("brigade events = %d, want 403", status)
	}
	if status := ts.request(t, http.MethodGet, "/v0/events", signToken(t, "dispatcher", "dispatcher"), nil, nil); status != http.StatusOK {
		t.Fatalf("dispatcher events = %d, want 200", status)
	}
}
