package toolserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/user/taskchat/internal/tools"
)

type handler struct {
	registry *tools.Registry
	executor *tools.Executor
}

// NewRouter builds the tool server's HTTP surface: the tool catalog, the
// execution endpoint and a health probe.
func NewRouter(registry *tools.Registry, executor *tools.Executor) http.Handler {
	h := &handler{registry: registry, executor: executor}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /tools", h.listTools)
	mux.HandleFunc("POST /tools/execute", h.executeTool)

	return jsonMiddleware(corsMiddleware(mux))
}

type healthResponse struct {
	Status string `json:"status"`
	Tools  int    `json:"tools"`
}

type toolsResponse struct {
	Tools []tools.Definition `json:"tools"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, healthResponse{Status: "healthy", Tools: h.registry.Len()})
}

func (h *handler) listTools(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, toolsResponse{Tools: h.registry.Definitions()})
}

func (h *handler) executeTool(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req tools.CallRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		jsonResponse(w, http.StatusInternalServerError, tools.CallResult{
			Content: []tools.Content{{Type: "text", Text: "Server error: " + err.Error()}},
			IsError: true,
		})
		return
	}

	result := h.executor.Execute(r.Context(), req, bearerToken(r))
	jsonResponse(w, http.StatusOK, result)
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if data == nil || status == http.StatusNoContent {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
