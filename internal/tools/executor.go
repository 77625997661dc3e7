package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/user/taskchat/internal/taskstore"
)

const defaultListLimit = 50

// CallRequest is a tool invocation as issued by the model (or any caller of
// POST /tools/execute): a tool name plus an untyped argument map.
type CallRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallResult is always well-formed: failures are carried inside the result
// with IsError set, never as an error return.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Executor dispatches validated tool calls against the task backend and
// renders human-readable summaries for the model to fold into its answer.
type Executor struct {
	registry *Registry
	client   *taskstore.Client
}

func NewExecutor(registry *Registry, client *taskstore.Client) *Executor {
	return &Executor{registry: registry, client: client}
}

// Execute never returns an error: unknown tools, bad arguments and backend
// failures all come back as CallResult{IsError: true}.
func (e *Executor) Execute(ctx context.Context, req CallRequest, token string) CallResult {
	if _, ok := e.registry.Get(req.Name); !ok {
		return errorResult("Unknown tool: " + req.Name)
	}

	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}

	switch req.Name {
	case "add_task":
		return e.addTask(ctx, token, args)
	case "list_tasks":
		return e.listTasks(ctx, token, args)
	case "get_task":
		return e.getTask(ctx, token, args)
	case "update_task":
		return e.updateTask(ctx, token, args)
	case "delete_task":
		return e.deleteTask(ctx, token, args)
	default:
		return errorResult("Unknown tool: " + req.Name)
	}
}

func (e *Executor) addTask(ctx context.Context, token string, args map[string]any) CallResult {
	title, ok := stringArg(args, "title")
	if !ok || strings.TrimSpace(title) == "" {
		return errorResult("✗ Error creating task: title is required")
	}
	description, _ := stringArg(args, "description")

	task, err := e.client.Create(ctx, token, title, description)
	if err != nil {
		return errorResult("✗ Error creating task: " + err.Error())
	}
	return textResult(fmt.Sprintf("✓ Task created successfully: %q (ID: %d)", task.Title, task.ID))
}

func (e *Executor) listTasks(ctx context.Context, token string, args map[string]any) CallResult {
	status, _ := stringArg(args, "status")
	limit := defaultListLimit
	if n, ok := numberArg(args, "limit"); ok && n > 0 {
		limit = int(n)
	}

	tasks, err := e.client.List(ctx, token, taskstore.Filter{Status: status})
	if err != nil {
		return errorResult("✗ Error listing tasks: " + err.Error())
	}
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	if len(tasks) == 0 {
		return textResult("No tasks found.")
	}

	lines := make([]string, 0, len(tasks))
	for i, task := range tasks {
		line := fmt.Sprintf("%d. [%s] %s", i+1, statusGlyph(task.Status), task.Title)
		if task.Description != "" {
			line += " - " + task.Description
		}
		line += fmt.Sprintf(" (ID: %d, Status: %s)", task.ID, task.Status)
		lines = append(lines, line)
	}
	return textResult(fmt.Sprintf("Found %d task(s):\n\n%s", len(tasks), strings.Join(lines, "\n")))
}

func (e *Executor) getTask(ctx context.Context, token string, args map[string]any) CallResult {
	id, ok := numberArg(args, "task_id")
	if !ok {
		return errorResult("✗ Error getting task: task_id is required")
	}

	task, err := e.client.Get(ctx, token, id)
	if err != nil {
		return errorResult("✗ Error getting task: " + err.Error())
	}

	description := task.Description
	if description == "" {
		description = "(none)"
	}
	text := fmt.Sprintf("Task Details:\nTitle: %s\nDescription: %s\nStatus: %s\nCreated: %s\nUpdated: %s\nID: %d",
		task.Title,
		description,
		task.Status,
		task.CreatedAt.Format("2006-01-02 15:04:05"),
		task.UpdatedAt.Format("2006-01-02 15:04:05"),
		task.ID,
	)
	return textResult(text)
}

func (e *Executor) updateTask(ctx context.Context, token string, args map[string]any) CallResult {
	id, ok := numberArg(args, "task_id")
	if !ok {
		return errorResult("✗ Error updating task: task_id is required")
	}

	var patch taskstore.Patch
	updates := []string{}
	if title, ok := stringArg(args, "title"); ok && title != "" {
		patch.Title = &title
		updates = append(updates, fmt.Sprintf("title to %q", title))
	}
	if description, ok := stringArg(args, "description"); ok {
		patch.Description = &description
		updates = append(updates, "description")
	}
	if status, ok := stringArg(args, "status"); ok {
		patch.Status = &status
		updates = append(updates, "status to "+status)
	}

	task, err := e.client.Update(ctx, token, id, patch)
	if err != nil {
		return errorResult("✗ Error updating task: " + err.Error())
	}
	return textResult(fmt.Sprintf("✓ Task updated successfully: %q - Updated %s", task.Title, strings.Join(updates, ", ")))
}

func (e *Executor) deleteTask(ctx context.Context, token string, args map[string]any) CallResult {
	id, ok := numberArg(args, "task_id")
	if !ok {
		return errorResult("✗ Error deleting task: task_id is required")
	}

	if err := e.client.Delete(ctx, token, id); err != nil {
		return errorResult("✗ Error deleting task: " + err.Error())
	}
	return textResult(fmt.Sprintf("✓ Task deleted successfully (ID: %d)", id))
}

func statusGlyph(status string) string {
	switch status {
	case "complete":
		return "✓"
	case "in_progress":
		return "→"
	default:
		return " "
	}
}

func textResult(text string) CallResult {
	return CallResult{Content: []Content{{Type: "text", Text: text}}}
}

func errorResult(text string) CallResult {
	return CallResult{Content: []Content{{Type: "text", Text: text}}, IsError: true}
}

func stringArg(args map[string]any, key string) (string, bool) {
	raw, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

func numberArg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
