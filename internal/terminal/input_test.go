package terminal_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist/internal/terminal"
)

func TestReadUserInput(t *testing.T) {
	t.Parallel()

	r := terminal.NewReader(strings.NewReader("  first line \nsecond\nlast without newline"))

	line, err := r.ReadUserInput()
	require.NoError(t, err)
	assert.Equal(t, "first line", line)

	line, err = r.ReadUserInput()
	require.NoError(t, err)
	assert.Equal(t, "second", line)

	line, err = r.ReadUserInput()
	require.NoError(t, err)
	assert.Equal(t, "last without newline", line)

	_, err = r.ReadUserInput()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadLines(t *testing.T) {
	t.Parallel()

	r := terminal.NewReader(strings.NewReader("hello\n\n/exit"))

	var got []terminal.Line
	for line := range r.ReadLines(context.Background()) {
		got = append(got, line)
	}

	require.Len(t, got, 4)
	assert.Equal(t, terminal.Line{Text: "hello"}, got[0])
	assert.Equal(t, terminal.Line{Text: ""}, got[1])
	assert.Equal(t, terminal.Line{Text: "/exit"}, got[2])
	require.ErrorIs(t, got[3].Err, io.EOF)
}

func TestPromptAndPasswordFromPipe(t *testing.T) {
	t.Parallel()

	r := terminal.NewReader(strings.NewReader("alex@example.com\nhunter22\n"))
	var out bytes.Buffer

	email, err := r.Prompt(&out, "Email: ")
	require.NoError(t, err)
	password, err := r.ReadPassword(&out, "Password: ")
	require.NoError(t, err)

	assert.Equal(t, "alex@example.com", email)
	assert.Equal(t, "hunter22", password)
	assert.Equal(t, "Email: Password: ", out.String())
}

func TestSplitFileRefs(t *testing.T) {
	t.Parallel()

	refs, rest := terminal.SplitFileRefs(`me on a beach @photos/me.jpg at sunset @"b.png"`)
	assert.Equal(t, []string{"photos/me.jpg", "b.png"}, refs)
	assert.Equal(t, "me on a beach at sunset", rest)

	refs, rest = terminal.SplitFileRefs("email me @ home")
	assert.Empty(t, refs)
	assert.Equal(t, "email me @ home", rest)
}

func TestFindMatchingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{
		"me.jpg",
		"notes.txt",
		"photos/beach.png",
		"photos/Paris.JPEG",
		".hidden/secret.png",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	}

	all := terminal.FindMatchingFiles(dir, "")
	assert.ElementsMatch(t, []string{"me.jpg", filepath.Join("photos", "beach.png"), filepath.Join("photos", "Paris.JPEG")}, all)

	assert.Equal(t, []string{filepath.Join("photos", "Paris.JPEG")}, terminal.FindMatchingFiles(dir, "paris"))
	assert.Equal(t, []string{filepath.Join("photos", "beach.png")}, terminal.FindMatchingFiles(dir, "photos/bea"))
}
