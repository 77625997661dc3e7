package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/user/taskchat/internal/db"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "backend-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return NewRouter(db.NewTaskRepo(database.SQL()), nil)
}

func doRequest(t *testing.T, router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v (body=%s)", err, rec.Body.String())
	}
	return out
}

func TestCreateTaskForcesPending(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/tasks", `{"title":"Buy milk","description":"2%"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	task := decodeTask(t, rec)
	if task["status"] != "pending" {
		t.Errorf("status=%v", task["status"])
	}
	if task["title"] != "Buy milk" {
		t.Errorf("title=%v", task["title"])
	}
	if task["id"] == nil {
		t.Error("id missing")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing title", `{}`, "Title is required"},
		{"blank title", `{"title":"   "}`, "Title is required"},
		{"long title", `{"title":"` + strings.Repeat("a", 256) + `"}`, "Title must be at most 255 characters"},
		{"long description", `{"title":"x","description":"` + strings.Repeat("d", 2001) + `"}`, "Description must be at most 2000 characters"},
		{"invalid json", `{broken`, "Invalid JSON body"},
	}
	for _, tc := range cases {
		rec := doRequest(t, router, http.MethodPost, "/tasks", tc.body, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d", tc.name, rec.Code)
			continue
		}
		body := decodeTask(t, rec)
		if body["detail"] != tc.want {
			t.Errorf("%s: detail=%v want %q", tc.name, body["detail"], tc.want)
		}
	}
}

func TestGetTaskNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/tasks/42", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	if body := decodeTask(t, rec); body["detail"] != "Task not found" {
		t.Errorf("detail=%v", body["detail"])
	}
}

func TestTaskLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/tasks", `{"title":"Ship release"}`, "tok")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status=%d", rec.Code)
	}
	id := int64(decodeTask(t, rec)["id"].(float64))

	rec = doRequest(t, router, http.MethodPatch, "/tasks/"+itoa(id), `{"status":"in_progress"}`, "tok")
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status=%d body=%s", rec.Code, rec.Body.String())
	}
	task := decodeTask(t, rec)
	if task["status"] != "in_progress" || task["title"] != "Ship release" {
		t.Errorf("task=%v", task)
	}

	rec = doRequest(t, router, http.MethodGet, "/tasks/"+itoa(id), "", "tok")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status=%d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodDelete, "/tasks/"+itoa(id), "", "tok")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/tasks/"+itoa(id), "", "tok")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", rec.Code)
	}
}

func TestUpdateTaskValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/tasks", `{"title":"x"}`, "")
	id := itoa(int64(decodeTask(t, rec)["id"].(float64)))

	rec = doRequest(t, router, http.MethodPatch, "/tasks/"+id, `{}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty patch status=%d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodPatch, "/tasks/"+id, `{"status":"done"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status patch status=%d", rec.Code)
	}
	if body := decodeTask(t, rec); body["detail"] != "Invalid status: done" {
		t.Errorf("detail=%v", body["detail"])
	}
}

func TestListTasksStatusFilter(t *testing.T) {
	router := newTestRouter(t)

	for _, body := range []string{`{"title":"a"}`, `{"title":"b"}`} {
		if rec := doRequest(t, router, http.MethodPost, "/tasks", body, ""); rec.Code != http.StatusCreated {
			t.Fatalf("create status=%d", rec.Code)
		}
	}

	rec := doRequest(t, router, http.MethodGet, "/tasks?status=pending", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var tasks []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("len=%d", len(tasks))
	}

	rec = doRequest(t, router, http.MethodGet, "/tasks?status=bogus", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus filter status=%d", rec.Code)
	}
}

func TestOwnerScoping(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/tasks", `{"title":"alice's"}`, "alice-token")
	id := itoa(int64(decodeTask(t, rec)["id"].(float64)))

	rec = doRequest(t, router, http.MethodGet, "/tasks/"+id, "", "bob-token")
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-owner get status=%d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/tasks", "", "bob-token")
	var tasks []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("bob sees %d tasks", len(tasks))
	}

	// Unauthenticated requests share the local owner.
	rec = doRequest(t, router, http.MethodPost, "/tasks", `{"title":"shared"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status=%d", rec.Code)
	}
	rec = doRequest(t, router, http.MethodGet, "/tasks", "", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("local sees %d tasks", len(tasks))
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if body := decodeTask(t, rec); body["status"] != "healthy" {
		t.Errorf("body=%v", body)
	}
}

func TestInvalidTaskID(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{"/tasks/abc", "/tasks/0", "/tasks/-1"} {
		rec := doRequest(t, router, http.MethodGet, path, "", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d", path, rec.Code)
		}
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
