package transcript_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist/internal/agentapi"
	"cymbal-assist/internal/chat"
	"cymbal-assist/internal/transcript"
)

func conversation(text string) []chat.Message {
	at := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	return []chat.Message{
		{Sender: chat.FromUser, Text: text, Timestamp: at},
		{
			Sender:    chat.FromAgent,
			Text:      "Here is a chart",
			Timestamp: at.Add(time.Second),
			Artifacts: []agentapi.Artifact{{Type: "image", Name: "spending_chart.png"}},
		},
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "transcripts.json")
	m := transcript.NewManager(path, 5)
	require.NoError(t, m.Load())

	saved, err := m.SaveConversation("spending", "session_1", conversation("coffee?"))
	require.NoError(t, err)
	assert.Equal(t, "session_1", saved.SessionID)
	require.Len(t, saved.Messages, 2)
	assert.Equal(t, []string{"spending_chart.png"}, saved.Messages[1].Artifacts)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded := transcript.NewManager(path, 5)
	require.NoError(t, reloaded.Load())
	got, ok := reloaded.Get("session_1")
	require.True(t, ok)
	assert.Equal(t, "coffee?", got.Messages[0].Text)
}

func TestSaveReplacesSameSession(t *testing.T) {
	t.Parallel()

	m := transcript.NewManager(filepath.Join(t.TempDir(), "t.json"), 5)
	require.NoError(t, m.Load())

	_, err := m.SaveConversation("travel", "s", conversation("first"))
	require.NoError(t, err)
	_, err = m.SaveConversation("travel", "s", append(conversation("first"), chat.Message{Sender: chat.FromUser, Text: "more"}))
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Messages)
}

func TestSavePrunesOldest(t *testing.T) {
	t.Parallel()

	m := transcript.NewManager(filepath.Join(t.TempDir(), "t.json"), 2)
	require.NoError(t, m.Load())

	for _, id := range []string{"a", "b", "c"} {
		_, err := m.SaveConversation("spending", id, conversation("msg "+id))
		require.NoError(t, err)
	}

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].SessionID)
	assert.Equal(t, "b", list[1].SessionID)
	assert.Equal(t, "msg c", list[0].Preview)
}

func TestSaveEmptyAndLocalSession(t *testing.T) {
	t.Parallel()

	m := transcript.NewManager(filepath.Join(t.TempDir(), "t.json"), 2)
	require.NoError(t, m.Load())

	_, err := m.SaveConversation("spending", "s", nil)
	require.ErrorIs(t, err, transcript.ErrEmpty)

	failed := []chat.Message{
		{Sender: chat.FromUser, Text: "hi"},
		{Sender: chat.FromAgent, Text: chat.Apology, Err: agentapi.ErrUnauthenticated},
	}
	saved, err := m.SaveConversation("spending", "", failed)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(saved.SessionID, "local-"))
	assert.True(t, saved.Messages[1].Failed)
}

func TestLoadCorruptFileStartsFresh(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "t.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	m := transcript.NewManager(path, 2)
	require.NoError(t, m.Load())
	assert.Empty(t, m.List())
	assert.FileExists(t, path+".backup")
}
