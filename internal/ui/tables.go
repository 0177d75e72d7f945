package ui

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"cymbal-assist/internal/agentapi"
	"cymbal-assist/internal/transcript"
	"cymbal-assist/internal/travel"
	"cymbal-assist/internal/visualize"
)

// PrintTransactions renders transactions as a table with a net total footer
func (d *Display) PrintTransactions(txs []agentapi.Transaction) {
	if len(txs) == 0 {
		d.PrintInfo("No transactions yet")
		return
	}

	table := tablewriter.NewWriter(d.out)
	table.SetHeader([]string{"Date", "Description", "Category", "Amount"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
	})

	var net float64
	for _, tx := range txs {
		net += tx.Amount
		table.Append([]string{
			tx.Date,
			truncate(tx.Description, 40),
			tx.Category,
			Amount(tx.Amount),
		})
	}
	table.SetFooter([]string{"", "", "Net", Amount(net)})
	table.Render()
}

// Amount formats a signed dollar amount, e.g. -$6.50 or +$4,200.00
func Amount(v float64) string {
	sign := "+"
	if v < 0 {
		sign = "-"
		v = -v
	}

	whole := fmt.Sprintf("%.2f", v)
	intPart, frac, _ := strings.Cut(whole, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}
	return sign + "$" + grouped.String() + "." + frac
}

// PrintSavingsPlan shows a travel savings timeline
func (d *Display) PrintSavingsPlan(plan travel.Plan) {
	fmt.Fprintln(d.out)
	accent.Fprintf(d.out, "✈  Saving for %s\n", plan.Destination)
	fmt.Fprintf(d.out, "   Estimated cost:  $%.0f\n", plan.EstimatedCost)
	fmt.Fprintf(d.out, "   Monthly savings: $%.2f\n", plan.MonthlySavings)
	if plan.MonthsToSave > 0 {
		fmt.Fprintf(d.out, "   Months to save:  %.1f\n", plan.MonthsToSave)
	}
	fmt.Fprintln(d.out)
	for _, tip := range plan.Tips {
		dim.Fprintf(d.out, "   • %s\n", tip)
	}
	fmt.Fprintln(d.out)
	success.Fprintf(d.out, "   %s\n", plan.Motivation)
}

// PrintVisualization reports the state of a trip visualization
func (d *Display) PrintVisualization(state visualize.State, result visualize.Result, err error) {
	switch state {
	case visualize.StateGenerating:
		d.PrintInfo("Generating your trip visual…")
		if result.ImageURL != "" {
			dim.Fprintf(d.out, "   image: %s\n", result.ImageURL)
		}
	case visualize.StateReady:
		d.PrintSuccess("Your trip visual is ready")
		if result.ImageURL != "" {
			fmt.Fprintf(d.out, "   image: %s\n", result.ImageURL)
		}
		if result.VideoURL != "" {
			fmt.Fprintf(d.out, "   video: %s\n", result.VideoURL)
		}
	case visualize.StateFailed:
		d.PrintError(err)
	case visualize.StateAbandoned:
		d.PrintWarning("Visualization canceled")
	default:
		d.PrintInfo("No visualization running")
	}
}

// PrintTranscripts lists saved transcripts
func (d *Display) PrintTranscripts(items []transcript.Summary) {
	if len(items) == 0 {
		d.PrintInfo("No saved conversations")
		return
	}

	table := tablewriter.NewWriter(d.out)
	table.SetHeader([]string{"Saved", "Agent", "Messages", "Session", "First message"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, item := range items {
		table.Append([]string{
			item.SavedAt.Format("2006-01-02 15:04"),
			item.Agent,
			fmt.Sprintf("%d", item.Messages),
			truncate(item.SessionID, 28),
			truncate(item.Preview, 40),
		})
	}
	table.Render()
}
