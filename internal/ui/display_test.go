package ui_test

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"cymbal-assist/internal/agentapi"
	"cymbal-assist/internal/chat"
	"cymbal-assist/internal/format"
	"cymbal-assist/internal/transcript"
	"cymbal-assist/internal/travel"
	"cymbal-assist/internal/ui"
	"cymbal-assist/internal/visualize"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func newDisplay() (*ui.Display, *bytes.Buffer) {
	var buf bytes.Buffer
	return ui.NewDisplay(&buf, ui.Options{Width: 100}), &buf
}

func TestPrintHeader(t *testing.T) {
	d, buf := newDisplay()

	d.PrintHeader("Travel", "Alex")
	assert.Contains(t, buf.String(), "Cymbal Assist")
	assert.Contains(t, buf.String(), "Agent: Travel")
	assert.Contains(t, buf.String(), "Alex")

	buf.Reset()
	d.PrintHeader("Travel", "")
	assert.Contains(t, buf.String(), "not signed in")
}

func TestPrintMessages(t *testing.T) {
	d, buf := newDisplay()
	at := time.Date(2025, 9, 1, 14, 30, 5, 0, time.UTC)

	d.PrintUserMessage(chat.Message{Sender: chat.FromUser, Text: "how much on coffee?", Timestamp: at})
	assert.Contains(t, buf.String(), "You · 14:30:05")
	assert.Contains(t, buf.String(), "how much on coffee?")

	buf.Reset()
	reply := chat.Message{
		Sender:    chat.FromAgent,
		Text:      "You spent **$42** on coffee.",
		HTML:      format.ToHTML("You spent **$42** on coffee."),
		Timestamp: at,
		Artifacts: []agentapi.Artifact{
			{Type: "image", Name: "coffee_chart.png"},
			{Type: "image", Name: "broken.png"},
		},
	}
	d.PrintAgentMessage("Daily Spending", reply, []string{"/tmp/coffee_chart-1.png"})
	out := buf.String()
	assert.Contains(t, out, "Daily Spending · 14:30:05")
	assert.Contains(t, out, "$42")
	assert.Contains(t, out, "coffee_chart.png → /tmp/coffee_chart-1.png")
	assert.Contains(t, out, "broken.png (could not be saved)")
}

func TestPrintApology(t *testing.T) {
	d, buf := newDisplay()

	d.PrintAgentMessage("Travel", chat.Message{
		Sender: chat.FromAgent,
		Text:   chat.Apology,
		HTML:   format.ToHTML(chat.Apology),
		Err:    errors.New("boom"),
	}, nil)
	assert.Contains(t, buf.String(), chat.Apology)
	assert.NotContains(t, buf.String(), "boom")
}

func TestPrintTransactions(t *testing.T) {
	d, buf := newDisplay()

	d.PrintTransactions([]agentapi.Transaction{
		{Date: "2025-09-02", Description: "Blue Bottle Coffee", Category: "Dining", Amount: -6.5},
		{Date: "2025-09-01", Description: "Salary", Category: "Income", Amount: 4200},
	})
	out := buf.String()
	assert.Contains(t, out, "DESCRIPTION")
	assert.Contains(t, out, "Blue Bottle Coffee")
	assert.Contains(t, out, "-$6.50")
	assert.Contains(t, out, "+$4,193.50")

	buf.Reset()
	d.PrintTransactions(nil)
	assert.Contains(t, buf.String(), "No transactions yet")
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "-$6.50", ui.Amount(-6.5))
	assert.Equal(t, "+$4,200.00", ui.Amount(4200))
	assert.Equal(t, "+$1,234,567.89", ui.Amount(1234567.891))
	assert.Equal(t, "+$0.00", ui.Amount(0))
}

func TestPrintSavingsPlanAndVisualization(t *testing.T) {
	d, buf := newDisplay()

	d.PrintSavingsPlan(travel.Timeline("Paris", 500))
	assert.Contains(t, buf.String(), "Saving for Paris")
	assert.Contains(t, buf.String(), "Months to save:  6.0")

	buf.Reset()
	d.PrintVisualization(visualize.StateReady, visualize.Result{VideoURL: "https://v.example/1.mp4"}, nil)
	assert.Contains(t, buf.String(), "ready")
	assert.Contains(t, buf.String(), "https://v.example/1.mp4")

	buf.Reset()
	d.PrintVisualization(visualize.StateFailed, visualize.Result{}, visualize.ErrVisualFailed)
	assert.Contains(t, buf.String(), "visual generation failed")
}

func TestPrintTranscripts(t *testing.T) {
	d, buf := newDisplay()

	d.PrintTranscripts([]transcript.Summary{{
		SessionID: "session_1",
		Agent:     "spending",
		SavedAt:   time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC),
		Messages:  4,
		Preview:   "coffee?",
	}})
	assert.Contains(t, buf.String(), "session_1")
	assert.Contains(t, buf.String(), "2025-09-01 09:00")
}
