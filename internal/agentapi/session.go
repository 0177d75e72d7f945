package agentapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session carries the conversation id for one chat controller. It is a
// value: Send takes the caller's current session and returns the next one.
type Session struct {
	ID string `json:"id"`
}

// IsZero reports whether no id has been assigned yet.
func (s Session) IsZero() bool {
	return s.ID == ""
}

// NewSessionID returns "session_<unix millis>_<8 hex chars>".
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}
