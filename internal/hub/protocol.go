package hub

// Task event actions pushed to connected clients.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

type TaskEventMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	ID     int64  `json:"id"`
	Task   any    `json:"task,omitempty"`
	Ts     int64  `json:"ts"`
}

type ClientMessage struct {
	Type string `json:"type"`
}

type PongMessage struct {
	Type string `json:"type"`
	Ts   int64  `json:"ts"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
