package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/user/taskchat/internal/taskstore"
)

func newTestExecutor(t *testing.T, rt roundTripFunc) *Executor {
	t.Helper()
	client := taskstore.NewClient("http://backend.test", &http.Client{Transport: rt})
	return NewExecutor(NewRegistry(), client)
}

func execute(t *testing.T, e *Executor, name string, args map[string]any) CallResult {
	t.Helper()
	return e.Execute(context.Background(), CallRequest{Name: name, Arguments: args}, "tok-1")
}

func resultText(t *testing.T, res CallResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content len=%d want 1", len(res.Content))
	}
	return res.Content[0].Text
}

func TestExecuteUnknownTool(t *testing.T) {
	e := newTestExecutor(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("backend should not be called")
		return nil, nil
	})

	res := execute(t, e, "launch_rocket", nil)
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if got := resultText(t, res); got != "Unknown tool: launch_rocket" {
		t.Errorf("text=%q", got)
	}
}

func TestAddTask(t *testing.T) {
	e := newTestExecutor(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.URL.Path != "/tasks" {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization=%q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["status"] != "pending" {
			t.Errorf("status=%q want pending", body["status"])
		}
		return jsonResponse(http.StatusCreated, map[string]any{
			"id": 7, "title": body["title"], "description": body["description"], "status": "pending",
		}), nil
	})

	res := execute(t, e, "add_task", map[string]any{"title": "Buy milk", "description": "2%"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, res))
	}
	if got := resultText(t, res); got != `✓ Task created successfully: "Buy milk" (ID: 7)` {
		t.Errorf("text=%q", got)
	}
}

func TestAddTaskMissingTitle(t *testing.T) {
	e := newTestExecutor(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("backend should not be called")
		return nil, nil
	})

	res := execute(t, e, "add_task", map[string]any{"description": "orphan"})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if got := resultText(t, res); got != "✗ Error creating task: title is required" {
		t.Errorf("text=%q", got)
	}
}

func TestAddTaskBackendError(t *testing.T) {
	e := newTestExecutor(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, map[string]string{"detail": "Title is required"}), nil
	})

	res := execute(t, e, "add_task", map[string]any{"title": "x"})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if got := resultText(t, res); got != "✗ Error creating task: Title is required" {
		t.Errorf("text=%q", got)
	}
}

func TestListTasksRendering(t *testing.T) {
	e := newTestExecutor(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/tasks" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, []map[string]any{
			{"id": 1, "title": "Ship release", "description": "v2.0", "status": "in_progress"},
			{"id": 2, "title": "Write docs", "description": "", "status": "complete"},
			{"id": 3, "title": "Plan sprint", "description": "", "status": "pending"},
		}), nil
	})

	got := resultText(t, execute(t, e, "list_tasks", nil))
	want := "Found 3 task(s):\n\n" +
		"1. [→] Ship release - v2.0 (ID: 1, Status: in_progress)\n" +
		"2. [✓] Write docs (ID: 2, Status: complete)\n" +
		"3. [ ] Plan sprint (ID: 3, Status: pending)"
	if got != want {
		t.Errorf("text=%q want %q", got, want)
	}
}

func TestListTasksEmpty(t *testing.T) {
	e := newTestExecutor(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, []any{}), nil
	})

	if got := resultText(t, execute(t, e, "list_tasks", nil)); got != "No tasks found." {
		t.Errorf("text=%q", got)
	}
}

func TestListTasksStatusFilterAndLimit(t *testing.T) {
	e := newTestExecutor(t, func(req *http.Request) (*http.Response, error) {
		if got := req.URL.Query().Get("status"); got != "pending" {
			t.Errorf("status query=%q", got)
		}
		return jsonResponse(http.StatusOK, []map[string]any{
			{"id": 1, "title": "a", "status": "pending"},
			{"id": 2, "title": "b", "status": "pending"},
			{"id": 3, "title": "c", "status": "pending"},
		}), nil
	})

	got := resultText(t, execute(t, e, "list_tasks", map[string]any{"status": "pending", "limit": float64(2)}))
	if !strings.HasPrefix(got, "Found 2 task(s):") {
		t.Errorf("text=%q", got)
	}
	if strings.Contains(got, "(ID: 3,") {
		t.Errorf("limit not applied: %q", got)
	}
}

func TestGetTaskRendering(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	e := newTestExecutor(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/tasks/5" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, map[string]any{
			"id": 5, "title": "Review PR", "description": "", "status": "pending",
			"created_at": created.Format(time.RFC3339), "updated_at": created.Format(time.RFC3339),
		}), nil
	})

	got := resultText(t, execute(t, e, "get_task", map[string]any{"task_id": float64(5)}))
	want := "Task Details:\nTitle: Review PR\nDescription: (none)\nStatus: pending\n" +
		"Created: 2024-03-01 09:30:00\nUpdated: 2024-03-01 09:30:00\nID: 5"
	if got != want {
		t.Errorf("text=%q want %q", got, want)
	}
}

func TestGetTaskMissingID(t *testing.T) {
	e := newTestExecutor(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("backend should not be called")
		return nil, nil
	})

	res := execute(t, e, "get_task", nil)
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if got := resultText(t, res); got != "✗ Error getting task: task_id is required" {
		t.Errorf("text=%q", got)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	e := newTestExecutor(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, map[string]string{"detail": "Task not found"}), nil
	})

	res := execute(t, e, "get_task", map[string]any{"task_id": float64(99)})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if got := resultText(t, res); got != "✗ Error getting task: Task not found" {
		t.Errorf("text=%q", got)
	}
}

func TestUpdateTaskRendersChanges(t *testing.T) {
	e := newTestExecutor(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPatch || req.URL.Path != "/tasks/4" {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		var patch map[string]any
		if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
			t.Fatalf("decode patch: %v", err)
		}
		if _, ok := patch["description"]; ok {
			t.Error("description should be omitted from patch")
		}
		return jsonResponse(http.StatusOK, map[string]any{
			"id": 4, "title": "Ship it", "status": "complete",
		}), nil
	})

	got := resultText(t, execute(t, e, "update_task", map[string]any{
		"task_id": float64(4), "title": "Ship it", "status": "complete",
	}))
	want := `✓ Task updated successfully: "Ship it" - Updated title to "Ship it", status to complete`
	if got != want {
		t.Errorf("text=%q want %q", got, want)
	}
}

func TestDeleteTask(t *testing.T) {
	e := newTestExecutor(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodDelete || req.URL.Path != "/tasks/9" {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		return &http.Response{StatusCode: http.StatusNoContent, Body: io.NopCloser(strings.NewReader(""))}, nil
	})

	got := resultText(t, execute(t, e, "delete_task", map[string]any{"task_id": float64(9)}))
	if got != "✓ Task deleted successfully (ID: 9)" {
		t.Errorf("text=%q", got)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, v any) *http.Response {
	buf, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(string(buf))),
	}
}
