package dto

type ChatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionId string `json:"session_id"`
}

type ChatResponse struct {
	Response          string `json:"response"`
	Mode              string `json:"mode"`
	NeedsConfirmation bool   `json:"needs_confirmation"`
	SessionId         string `json:"session_id"`
	ConfirmationId    string `json:"confirmation_id,omitempty"`
	Error             string `json:"error,omitempty"`
}

type ServiceStatusResponse struct {
	Status            string `json:"status"`
	Provider          string `json:"provider"`
	ProviderReachable bool   `json:"provider_reachable"`
	ProviderError     string `json:"provider_error,omitempty"`
}

type SessionStatusResponse struct {
	SessionId      string `json:"session_id"`
	WorkflowStep   string `json:"workflow_step"`
	PendingEvents  int    `json:"pending_events"`
	ConfirmationId string `json:"confirmation_id,omitempty"`
	Language       string `json:"language"`
}

type HistoryMessage struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ToolName string `json:"tool_name,omitempty"`
}

type HistoryResponse struct {
	SessionId string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
}
