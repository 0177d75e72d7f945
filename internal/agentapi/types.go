package agentapi

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Skill     string `json:"skill"` // always "chat" from this client
}

// ChatResponse is the body returned by POST /chat
type ChatResponse struct {
	Response  string     `json:"response"`
	SessionID string     `json:"session_id"`
	SkillUsed string     `json:"skill_used"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Artifact is a server-produced attachment, currently always an image
// carried as a base64 data URL.
type Artifact struct {
	Type     string `json:"type"` // "image"
	Name     string `json:"name"`
	Data     string `json:"data"` // data:image/png;base64,...
	MimeType string `json:"mime_type"`
}

// Video render states reported by the visuals endpoints.
const (
	VideoPending = "pending"
	VideoReady   = "ready"
	VideoFailed  = "failed"
)

// VisualizeResult is returned by POST /api/trips/{id}/visualize
type VisualizeResult struct {
	ImageURL    string `json:"image_url"`
	VideoStatus string `json:"video_status"`
	VideoURL    string `json:"video_url,omitempty"`
}

// Visual is one entry of GET /api/trips/{id}/visuals
type Visual struct {
	UserID      string `json:"user_id"`
	TripID      string `json:"trip_id"`
	Prompt      string `json:"prompt"`
	ImageURL    string `json:"image_url"`
	VideoStatus string `json:"video_status"`
	VideoURL    string `json:"video_url,omitempty"`
	VideoError  string `json:"video_error,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// Transaction is one entry of GET /api/users/{id}/transactions
type Transaction struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"` // "debit" or "credit"
}

// HealthStatus is the body of GET /health
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}
