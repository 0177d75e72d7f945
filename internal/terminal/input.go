// Package terminal reads user input: chat lines, hidden passwords and
// @path references to local images.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

// imageExts are the files offered for @ references
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Reader reads lines from one input stream. Keep a single Reader per stream
// so buffered input is not lost between reads.
type Reader struct {
	in     io.Reader
	reader *bufio.Reader
}

// NewReader wraps in
func NewReader(in io.Reader) *Reader {
	return &Reader{in: in, reader: bufio.NewReader(in)}
}

// ReadUserInput reads a line of input from the user
func (r *Reader) ReadUserInput() (string, error) {
	input, err := r.reader.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}

	// Trim whitespace and newline
	return strings.TrimSpace(input), nil
}

// Line is one result from ReadLines. Err is set on the last one.
type Line struct {
	Text string
	Err  error
}

// ReadLines reads lines in the background so a caller can stop waiting when
// ctx is done. The channel is closed after a read error (io.EOF included) has
// been delivered or once ctx is done. Do not mix it with other reads on r.
func (r *Reader) ReadLines(ctx context.Context) <-chan Line {
	lines := make(chan Line)
	go func() {
		defer close(lines)
		for {
			text, err := r.ReadUserInput()
			select {
			case lines <- Line{Text: text, Err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return lines
}

// Prompt writes label to out and reads the answer
func (r *Reader) Prompt(out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	return r.ReadUserInput()
}

// ReadPassword reads a line without echo when the input is a terminal
func (r *Reader) ReadPassword(out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)

	if f, ok := r.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}

	return r.ReadUserInput()
}

// SplitFileRefs pulls @path tokens out of input. Quotes around a path are dropped.
func SplitFileRefs(input string) (refs []string, rest string) {
	var words []string
	for _, word := range strings.Fields(input) {
		if strings.HasPrefix(word, "@") && len(word) > 1 {
			refs = append(refs, strings.Trim(strings.TrimPrefix(word, "@"), "\"'"))
			continue
		}
		words = append(words, word)
	}
	return refs, strings.Join(words, " ")
}

// FindMatchingFiles searches for image files matching the partial path after @
func FindMatchingFiles(workingDir string, partial string) []string {
	matches := []string{}

	// Determine search directory and pattern
	searchDir := workingDir
	pattern := strings.ToLower(partial)

	if strings.Contains(partial, "/") {
		dir, file := filepath.Split(partial)
		searchDir = filepath.Join(workingDir, dir)
		pattern = strings.ToLower(file)
	}

	_ = filepath.WalkDir(searchDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		relPath, err := filepath.Rel(workingDir, path)
		if err != nil || relPath == "." {
			return nil
		}

		// Skip hidden files and directories
		if strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			// Limit depth to avoid scanning too deep
			if strings.Count(relPath, string(filepath.Separator)) >= 4 {
				return filepath.SkipDir
			}
			return nil
		}

		if !imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			return nil
		}

		relPathLower := strings.ToLower(relPath)
		isMatch := pattern == "" ||
			strings.Contains(relPathLower, pattern) ||
			strings.Contains(strings.ToLower(entry.Name()), pattern)

		if isMatch && len(matches) < 100 {
			matches = append(matches, relPath)
		}
		return nil
	})

	return matches
}
