package transcript

import (
	"time"
)

// Archive is the on-disk file: every saved transcript, oldest first
type Archive struct {
	Transcripts []Transcript `json:"transcripts"`
}

// Transcript is one exported conversation
type Transcript struct {
	SessionID string    `json:"session_id"`
	Agent     string    `json:"agent"`
	StartedAt time.Time `json:"started_at"`
	SavedAt   time.Time `json:"saved_at"`
	Messages  []Entry   `json:"messages"`
}

// Entry is a single message in a transcript
type Entry struct {
	Sender    string    `json:"sender"` // "user" or "agent"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Artifacts []string  `json:"artifacts,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
}

// Summary describes a saved transcript for listing
type Summary struct {
	SessionID string
	Agent     string
	SavedAt   time.Time
	Messages  int
	Preview   string
}
