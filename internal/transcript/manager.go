// Package transcript exports chat logs to disk on request. Saved
// transcripts are never loaded back into a conversation.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"cymbal-assist/internal/chat"
)

// ErrEmpty is returned when there is nothing to save
var ErrEmpty = errors.New("conversation is empty")

// Manager handles transcript persistence
type Manager struct {
	filePath    string
	mu          sync.RWMutex
	archive     *Archive
	maxSessions int
	now         func() time.Time
}

// NewManager creates a new transcript manager
func NewManager(filePath string, maxSessions int) *Manager {
	return &Manager{
		filePath:    filePath,
		archive:     &Archive{Transcripts: []Transcript{}},
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Load loads saved transcripts from disk
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(m.filePath), 0o700); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}

	data, err := os.ReadFile(m.filePath)
	if errors.Is(err, os.ErrNotExist) {
		m.archive = &Archive{Transcripts: []Transcript{}}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read transcript file: %w", err)
	}

	archive := &Archive{}
	if err := json.Unmarshal(data, archive); err != nil {
		// Corrupted file - backup and start fresh
		_ = os.Rename(m.filePath, m.filePath+".backup")
		archive = &Archive{Transcripts: []Transcript{}}
	}
	m.archive = archive

	return nil
}

// SaveConversation exports a controller's log. Saving the same session
// again replaces the earlier copy.
func (m *Manager) SaveConversation(agent, sessionID string, messages []chat.Message) (Transcript, error) {
	if len(messages) == 0 {
		return Transcript{}, ErrEmpty
	}

	if sessionID == "" {
		// Nothing reached the service, so there is no server session
		sessionID = "local-" + uuid.NewString()
	}

	t := Transcript{
		SessionID: sessionID,
		Agent:     agent,
		StartedAt: messages[0].Timestamp,
		SavedAt:   m.now(),
		Messages:  make([]Entry, 0, len(messages)),
	}
	for _, msg := range messages {
		entry := Entry{
			Sender:    msg.Sender,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
			Failed:    msg.Err != nil,
		}
		for _, a := range msg.Artifacts {
			entry.Artifacts = append(entry.Artifacts, a.Name)
		}
		t.Messages = append(t.Messages, entry)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.archive.Transcripts[:0]
	for _, existing := range m.archive.Transcripts {
		if existing.SessionID != sessionID {
			kept = append(kept, existing)
		}
	}
	m.archive.Transcripts = append(kept, t)

	if err := m.saveUnlocked(); err != nil {
		return Transcript{}, err
	}
	return t, nil
}

// List returns summaries, newest first
func (m *Manager) List() []Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Summary, 0, len(m.archive.Transcripts))
	for i := len(m.archive.Transcripts) - 1; i >= 0; i-- {
		t := m.archive.Transcripts[i]
		s := Summary{
			SessionID: t.SessionID,
			Agent:     t.Agent,
			SavedAt:   t.SavedAt,
			Messages:  len(t.Messages),
		}
		if len(t.Messages) > 0 {
			s.Preview = t.Messages[0].Text
		}
		out = append(out, s)
	}
	return out
}

// Get returns a saved transcript by session id
func (m *Manager) Get(sessionID string) (Transcript, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.archive.Transcripts {
		if t.SessionID == sessionID {
			return t, true
		}
	}
	return Transcript{}, false
}

// saveUnlocked saves without acquiring the lock (must be called with lock held)
func (m *Manager) saveUnlocked() error {
	// Prune old transcripts if needed
	if len(m.archive.Transcripts) > m.maxSessions {
		m.archive.Transcripts = m.archive.Transcripts[len(m.archive.Transcripts)-m.maxSessions:]
	}

	data, err := json.MarshalIndent(m.archive, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcripts: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.filePath), 0o700); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}

	// Write to temp file
	tempPath := m.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, m.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
