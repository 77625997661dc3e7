package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/taskchat/internal/tools"
)

const (
	defaultModel   = "openai/gpt-3.5-turbo"
	defaultBaseURL = "https://openrouter.ai/api/v1"

	// History beyond this many messages is silently dropped before the
	// conversation is replayed to the model.
	maxHistoryMessages = 10

	noToolsFallback    = "I'm here to help with your tasks!"
	afterToolsFallback = "Task completed."
)

const systemPrompt = `You are a helpful AI assistant for task management. You can help users create, list, update, and delete tasks using natural language commands.

Available tools:
- add_task: Create a new task
- list_tasks: List all tasks (optionally filter by status)
- get_task: Get details of a specific task
- update_task: Update a task's title, description, or status
- delete_task: Delete a task

Be friendly, concise, and helpful. When users ask to create tasks, extract the task title and description from their message. When they ask about their tasks, use list_tasks. When they want to mark tasks as complete or update them, use update_task.`

// ToolSource is the orchestrator's view of the tool server: a catalog to
// advertise to the model and an execution endpoint for the calls it makes.
type ToolSource interface {
	Tools(ctx context.Context) ([]tools.Definition, error)
	Execute(ctx context.Context, call tools.CallRequest, token string) (tools.CallResult, error)
}

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	ToolSource ToolSource
}

// Orchestrator runs one chat turn: propose (first completion, tools
// offered), execute any requested tool calls in order, then resolve
// (second completion folding the results back in). It holds no per-turn
// state; concurrent turns are independent.
type Orchestrator struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	toolSource ToolSource
}

func New(opts Options) *Orchestrator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Orchestrator{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      model,
		baseURL:    baseURL,
		httpClient: httpClient,
		toolSource: opts.ToolSource,
	}
}

// Respond executes one turn for the given user message. The supplied
// history is replayed to the model (truncated to the most recent
// maxHistoryMessages entries); the bearer token is forwarded to every tool
// execution. A completion failure or undecodable tool arguments abort the
// turn; a failure inside a single tool is folded into the model's context
// instead.
func (o *Orchestrator) Respond(ctx context.Context, userMessage string, history []Message, token string) (*Result, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, fmt.Errorf("message is required")
	}

	catalog := o.loadCatalog(ctx)

	messages := make([]wireMessage, 0, len(history)+2)
	messages = append(messages, wireMessage{Role: "system", Content: systemPrompt})
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	for _, msg := range history {
		messages = append(messages, wireMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCalls:  msg.ToolCalls,
			ToolCallID: msg.ToolCallID,
		})
	}
	messages = append(messages, wireMessage{Role: "user", Content: userMessage})

	assistant, err := o.createChatCompletion(ctx, messages, catalog)
	if err != nil {
		return nil, err
	}

	if len(assistant.ToolCalls) == 0 {
		content := assistant.Content
		if content == "" {
			content = noToolsFallback
		}
		return &Result{
			Message:        newAssistantMessage(content, nil),
			ConversationID: "conv_" + uuid.NewString(),
		}, nil
	}

	// Tool calls run sequentially in the order the model emitted them:
	// later calls may depend on earlier side effects, and result ordering
	// must mirror call ordering when replayed.
	executed := make([]string, 0, len(assistant.ToolCalls))
	toolMessages := make([]wireMessage, 0, len(assistant.ToolCalls))
	for _, call := range assistant.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("parse arguments for tool %s: %w", call.Function.Name, err)
		}

		executed = append(executed, call.Function.Name)
		toolMessages = append(toolMessages, wireMessage{
			Role:       "tool",
			Content:    o.executeTool(ctx, call.Function.Name, args, token),
			Name:       call.Function.Name,
			ToolCallID: call.ID,
		})
	}

	resolveMessages := append(messages, wireMessage{
		Role:      "assistant",
		Content:   assistant.Content,
		ToolCalls: assistant.ToolCalls,
	})
	resolveMessages = append(resolveMessages, toolMessages...)

	final, err := o.createChatCompletion(ctx, resolveMessages, catalog)
	if err != nil {
		return nil, err
	}
	content := final.Content
	if content == "" {
		content = afterToolsFallback
	}
	return &Result{
		Message:        newAssistantMessage(content, assistant.ToolCalls),
		ConversationID: "conv_" + uuid.NewString(),
		ToolsExecuted:  executed,
	}, nil
}

// loadCatalog degrades to an empty tool list when the tool server is
// unreachable; the model then answers without tools.
func (o *Orchestrator) loadCatalog(ctx context.Context) []tools.Definition {
	if o.toolSource == nil {
		return nil
	}
	catalog, err := o.toolSource.Tools(ctx)
	if err != nil {
		slog.Warn("failed to fetch tool catalog, proceeding without tools", "error", err)
		return nil
	}
	return catalog
}

// executeTool contains tool-server transport failures as a legible result
// string so the resolution round can explain them to the user.
func (o *Orchestrator) executeTool(ctx context.Context, name string, args map[string]any, token string) string {
	result, err := o.toolSource.Execute(ctx, tools.CallRequest{Name: name, Arguments: args}, token)
	if err != nil {
		return "Error executing tool: " + err.Error()
	}
	if len(result.Content) > 0 && result.Content[0].Text != "" {
		return result.Content[0].Text
	}
	return "Tool executed"
}

func newAssistantMessage(content string, toolCalls []ToolCall) Message {
	return Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      "assistant",
		Content:   content,
		Timestamp: time.Now().UTC(),
		ToolCalls: toolCalls,
	}
}

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []wireMessage `json:"messages"`
	Tools      []wireTool    `json:"tools,omitempty"`
	ToolChoice string        `json:"tool_choice,omitempty"`
}

type wireMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Parameters  tools.Schema `json:"parameters"`
}

type chatResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
}

// toWireTools re-keys provider-agnostic definitions into the OpenAI
// function-calling wrapper. Pure mapping, no state.
func toWireTools(defs []tools.Definition) []wireTool {
	out := make([]wireTool, 0, len(defs))
	for _, def := range defs {
		out = append(out, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.InputSchema,
			},
		})
	}
	return out
}

func (o *Orchestrator) createChatCompletion(ctx context.Context, messages []wireMessage, catalog []tools.Definition) (*wireMessage, error) {
	req := chatRequest{
		Model:    o.model,
		Messages: messages,
	}
	if len(catalog) > 0 {
		req.Tools = toWireTools(catalog)
		req.ToolChoice = "auto"
	}

	buf, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, fmt.Errorf("chat completion status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}
	return &out.Choices[0].Message, nil
}
