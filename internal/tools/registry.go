package tools

// Property describes one parameter of a tool's input schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Schema is a JSON-Schema object fragment describing a tool's arguments.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Definition is a provider-agnostic tool descriptor. The same shape is
// served on GET /tools and converted into the model provider's function
// wrapper by the chat gateway.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"inputSchema"`
}

// Registry is the fixed catalog of task tools. It is built once and never
// mutated at runtime.
type Registry struct {
	defs   []Definition
	byName map[string]Definition
}

func NewRegistry() *Registry {
	defs := []Definition{
		{
			Name:        "add_task",
			Description: "Create a new task for the user",
			InputSchema: Schema{
				Type: "object",
				Properties: map[string]Property{
					"title":       {Type: "string", Description: "The task title"},
					"description": {Type: "string", Description: "Optional task description"},
				},
				Required: []string{"title"},
			},
		},
		{
			Name:        "list_tasks",
			Description: "List all tasks for the user with optional filtering",
			InputSchema: Schema{
				Type: "object",
				Properties: map[string]Property{
					"status": {Type: "string", Description: "Filter by status: pending, in_progress, or complete"},
					"limit":  {Type: "number", Description: "Maximum number of tasks to return (default: 50)"},
				},
			},
		},
		{
			Name:        "get_task",
			Description: "Get details of a specific task by ID",
			InputSchema: Schema{
				Type: "object",
				Properties: map[string]Property{
					"task_id": {Type: "number", Description: "The unique identifier of the task"},
				},
				Required: []string{"task_id"},
			},
		},
		{
			Name:        "update_task",
			Description: "Update an existing task's title, description, or status",
			InputSchema: Schema{
				Type: "object",
				Properties: map[string]Property{
					"task_id":     {Type: "number", Description: "The unique identifier of the task to update"},
					"title":       {Type: "string", Description: "New task title"},
					"description": {Type: "string", Description: "New task description"},
					"status":      {Type: "string", Description: "New status: pending, in_progress, or complete"},
				},
				Required: []string{"task_id"},
			},
		},
		{
			Name:        "delete_task",
			Description: "Permanently delete a task",
			InputSchema: Schema{
				Type: "object",
				Properties: map[string]Property{
					"task_id": {Type: "number", Description: "The unique identifier of the task to delete"},
				},
				Required: []string{"task_id"},
			},
		},
	}

	byName := make(map[string]Definition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}
	return &Registry{defs: defs, byName: byName}
}

// Definitions returns the catalog in its fixed declaration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

func (r *Registry) Len() int {
	return len(r.defs)
}
