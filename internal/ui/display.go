// Package ui draws the chat shell: header, message bubbles, toasts and tables.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"golang.org/x/term"

	"cymbal-assist/internal/chat"
	"cymbal-assist/internal/format"
)

const appName = "Cymbal Assist"

var (
	accent   = color.New(color.FgCyan, color.Bold)
	dim      = color.New(color.FgHiBlack)
	userTag  = color.New(color.FgGreen, color.Bold)
	agentTag = color.New(color.FgBlue, color.Bold)
	info     = color.New(color.FgCyan)
	success  = color.New(color.FgGreen)
	warning  = color.New(color.FgYellow)
	failure  = color.New(color.FgRed)
)

// Options tunes a Display
type Options struct {
	// Width overrides the detected terminal width.
	Width int
	// Interactive enables the spinner and screen clearing.
	Interactive bool
}

// Display writes the chat UI to out
type Display struct {
	out         io.Writer
	width       int
	interactive bool
	renderer    *glamour.TermRenderer

	spinMu   sync.Mutex
	spinStop chan struct{}
	spinDone chan struct{}
}

// NewDisplay creates a display. Agent replies are rendered as markdown.
func NewDisplay(out io.Writer, opts Options) *Display {
	width := opts.Width
	if width <= 0 {
		width = terminalWidth()
	}

	style := "notty"
	if opts.Interactive {
		style = "dark"
	}
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width-6, 20)),
	)

	return &Display{
		out:         out,
		width:       width,
		interactive: opts.Interactive,
		renderer:    renderer,
	}
}

// ClearScreen clears the terminal
func (d *Display) ClearScreen() {
	if d.interactive {
		fmt.Fprint(d.out, "\033[2J\033[H")
	}
}

// PrintHeader draws the navbar: app name, active agent and signed-in user
func (d *Display) PrintHeader(agent, user string) {
	if user == "" {
		user = "not signed in"
	}
	line := strings.Repeat("─", min(d.width, 80))

	dim.Fprintln(d.out, line)
	accent.Fprintf(d.out, " %s", appName)
	dim.Fprint(d.out, "  │  ")
	fmt.Fprintf(d.out, "Agent: %s", agent)
	dim.Fprint(d.out, "  │  ")
	fmt.Fprintf(d.out, "%s\n", user)
	dim.Fprintln(d.out, line)
}

// PrintHelp lists the chat commands
func (d *Display) PrintHelp() {
	dim.Fprintln(d.out, "Commands: /agent <spending|purchases|travel|auto> | /transactions | /visualize <trip> [@image] <prompt>")
	dim.Fprintln(d.out, "          /savings <destination> <monthly> | /save | /history | /whoami | /clear | /help | /exit")
	dim.Fprintln(d.out, "Attach a reference photo to /visualize with @path (e.g. @photos/me.jpg)")
}

// PrintPrompt displays the input prompt for the active agent
func (d *Display) PrintPrompt(agent string) {
	fmt.Fprintln(d.out)
	userTag.Fprintf(d.out, "%s ❯ ", agent)
}

// PrintUserMessage displays a user bubble
func (d *Display) PrintUserMessage(msg chat.Message) {
	fmt.Fprintln(d.out)
	dim.Fprint(d.out, "┌─ ")
	userTag.Fprint(d.out, "You")
	dim.Fprintf(d.out, " · %s\n", msg.Timestamp.Format("15:04:05"))
	for _, line := range strings.Split(msg.Text, "\n") {
		dim.Fprint(d.out, "│ ")
		fmt.Fprintln(d.out, line)
	}
	dim.Fprintln(d.out, "└")
}

// PrintAgentMessage displays an agent bubble. artifactPaths are the local
// files written for msg.Artifacts, in the same order.
func (d *Display) PrintAgentMessage(title string, msg chat.Message, artifactPaths []string) {
	fmt.Fprintln(d.out)
	dim.Fprint(d.out, "┌─ ")
	agentTag.Fprint(d.out, title)
	dim.Fprintf(d.out, " · %s\n", msg.Timestamp.Format("15:04:05"))

	for _, line := range strings.Split(d.render(msg), "\n") {
		dim.Fprint(d.out, "│ ")
		fmt.Fprintln(d.out, line)
	}

	for i, a := range msg.Artifacts {
		name := a.Name
		if name == "" {
			name = a.Type
		}
		dim.Fprint(d.out, "│ ")
		if i < len(artifactPaths) && artifactPaths[i] != "" {
			info.Fprintf(d.out, "🖼  %s → %s\n", name, artifactPaths[i])
		} else {
			warning.Fprintf(d.out, "🖼  %s (could not be saved)\n", name)
		}
	}
	dim.Fprintln(d.out, "└")
}

// render turns the reply into terminal text
func (d *Display) render(msg chat.Message) string {
	if d.renderer != nil && msg.Err == nil {
		if rendered, err := d.renderer.Render(msg.Text); err == nil {
			return strings.Trim(rendered, "\n")
		}
	}
	if msg.HTML != "" {
		if text, err := format.PlainText(msg.HTML); err == nil {
			return text
		}
	}
	return msg.Text
}

// ShowSpinner displays a spinner with a message until StopSpinner is called
func (d *Display) ShowSpinner(msg string) {
	if !d.interactive {
		return
	}
	d.StopSpinner()

	d.spinMu.Lock()
	defer d.spinMu.Unlock()

	stop := make(chan struct{})
	done := make(chan struct{})
	d.spinStop, d.spinDone = stop, done

	go func() {
		defer close(done)
		spinnerChars := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i = (i + 1) % len(spinnerChars) {
			info.Fprintf(d.out, "\r%s %s", spinnerChars[i], msg)
			select {
			case <-stop:
				// Clear the spinner line
				fmt.Fprint(d.out, "\r\033[2K\r")
				return
			case <-ticker.C:
			}
		}
	}()
}

// StopSpinner stops the active spinner, if any
func (d *Display) StopSpinner() {
	d.spinMu.Lock()
	stop, done := d.spinStop, d.spinDone
	d.spinStop, d.spinDone = nil, nil
	d.spinMu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// PrintInfo displays an info toast
func (d *Display) PrintInfo(msg string) {
	info.Fprintf(d.out, "ℹ %s\n", msg)
}

// PrintSuccess displays a success toast
func (d *Display) PrintSuccess(msg string) {
	success.Fprintf(d.out, "✓ %s\n", msg)
}

// PrintWarning displays a warning toast
func (d *Display) PrintWarning(msg string) {
	warning.Fprintf(d.out, "⚠ %s\n", msg)
}

// PrintError displays an error toast
func (d *Display) PrintError(err error) {
	failure.Fprintf(d.out, "✗ Error: %v\n", err)
}

// PrintGoodbye displays goodbye message
func (d *Display) PrintGoodbye() {
	fmt.Fprintln(d.out)
	accent.Fprintf(d.out, "Thank you for banking with %s! 👋\n", appName)
}

// Cleanup ensures the display is in a good state before exit
func (d *Display) Cleanup() {
	d.StopSpinner()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// IsTerminal checks if stdout is a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
