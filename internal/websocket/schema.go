package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect    Action = "select"
	ActionNavigate  Action = "navigate"
	ActionTabSwitch Action = "tab_switch"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// Request is the single message shape clients send. Fields beyond Action
// are used depending on the action.
type Request struct {
	Action Action `json:"action"`
	// QID and Option drive "select": Option is toggled for multi-answer
	// questions and replaces the selection for single-answer ones.
	QID    string `json:"q_id,omitempty"`
	Option string `json:"option,omitempty"`
	// Direction drives "navigate": "next" or "prev".
	Direction string `json:"direction,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventState     Event = "state"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

// StateResponse reflects the session after an accepted action.
type StateResponse struct {
	Event            Event    `json:"event"`
	CurrentIndex     int      `json:"current_index"`
	RemainingSeconds int      `json:"remaining_seconds"`
	Selected         []string `json:"selected,omitempty"`
	TabSwitchCount   int      `json:"tab_switch_count"`
}

// SubmittedResponse closes the attempt with its scored outcome.
type SubmittedResponse struct {
	Event      Event  `json:"event"`
	Status     string `json:"status"`
	Score      int    `json:"score"`
	TotalScore int    `json:"total_score"`
	Percentage int    `json:"percentage"`
	Passed     bool   `json:"passed"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
