// Package format turns agent replies into display text.
package format

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// ErrNotDataURL is returned by DecodeDataURL for input without a base64 data-URL header.
var ErrNotDataURL = errors.New("not a base64 data URL")

// ToHTML escapes text and applies the reply markup: **x** becomes bold and
// newlines become <br>.
func ToHTML(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	escaped := html.EscapeString(text)
	escaped = boldPattern.ReplaceAllString(escaped, "<strong>$1</strong>")
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

// PlainText extracts readable text from formatted HTML
func PlainText(formatted string) (string, error) {
	doc, err := html.Parse(strings.NewReader(formatted))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var buf bytes.Buffer
	writeText(&buf, doc)

	return cleanLines(buf.String()), nil
}

// writeText walks the tree, keeping text nodes and line breaks
func writeText(buf *bytes.Buffer, n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style":
			return
		case "br":
			buf.WriteByte('\n')
			return
		}
	}

	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(buf, c)
	}

	if n.Type == html.ElementNode && (n.Data == "p" || n.Data == "div" || n.Data == "li") {
		buf.WriteByte('\n')
	}
}

// cleanLines collapses runs of spaces on each line and trims the result
func cleanLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// DecodeDataURL splits "data:<mime>;base64,<payload>" and decodes the payload.
func DecodeDataURL(dataURL string) (mimeType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(dataURL), "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}

	mimeType, ok = strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URL payload: %w", err)
	}
	return mimeType, data, nil
}

// Extension returns a file extension for an image mime type.
func Extension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	default:
		return ".bin"
	}
}
