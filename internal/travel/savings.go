// Package travel estimates how long saving for a trip will take.
package travel

import (
	"fmt"
	"math"
	"strings"
)

// DefaultCost is used for destinations without an estimate.
const DefaultCost = 2500

// Rough trip costs in dollars
var estimatedCosts = map[string]float64{
	"paris": 3000,
	"tokyo": 3500,
	"bali":  2000,
	"rome":  2500,
	"dubai": 4000,
}

// Plan is a savings timeline for one destination
type Plan struct {
	Destination    string
	EstimatedCost  float64
	MonthlySavings float64
	MonthsToSave   float64
	Tips           []string
	Motivation     string
}

// Timeline builds the savings plan for destination at monthlySavings per month.
// MonthsToSave is rounded to one decimal and is 0 when monthlySavings <= 0.
func Timeline(destination string, monthlySavings float64) Plan {
	cost, ok := estimatedCosts[strings.ToLower(strings.TrimSpace(destination))]
	if !ok {
		cost = DefaultCost
	}

	var months float64
	if monthlySavings > 0 {
		months = cost / monthlySavings
	}

	plan := Plan{
		Destination:    destination,
		EstimatedCost:  cost,
		MonthlySavings: monthlySavings,
		MonthsToSave:   round1(months),
	}

	if monthlySavings <= 0 {
		plan.Tips = []string{
			fmt.Sprintf("Set aside a monthly amount to start saving toward $%s", money(cost)),
			"Consider travel rewards credit cards for additional savings",
			"Book flights 2-3 months in advance for best prices",
		}
		plan.Motivation = fmt.Sprintf("Pick a monthly savings amount and %s stops being a someday trip.", destination)
		return plan
	}

	faster := monthlySavings * 1.5
	plan.Tips = []string{
		fmt.Sprintf("Save $%s/month to reach your goal in %s months", money(monthlySavings), months1(months)),
		fmt.Sprintf("Increase savings to $%s/month to get there in %s months", money(faster), months1(months/1.5)),
		"Consider travel rewards credit cards for additional savings",
		"Book flights 2-3 months in advance for best prices",
	}

	var timeline, excitement string
	switch {
	case plan.MonthsToSave < 6:
		timeline = "just a few months"
		excitement = "Your dream trip is right around the corner!"
	case plan.MonthsToSave < 12:
		timeline = "less than a year"
		excitement = "Start saving now and you'll be there before you know it!"
	default:
		years := int(plan.MonthsToSave / 12)
		timeline = fmt.Sprintf("about %d year", years)
		if years != 1 {
			timeline += "s"
		}
		excitement = "Every journey begins with a single step. Start saving today!"
	}
	plan.Motivation = fmt.Sprintf("Picture yourself in %s. In %s, this could be you! %s", destination, timeline, excitement)

	return plan
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func months1(v float64) string {
	return fmt.Sprintf("%.1f", round1(v))
}

// money prints whole amounts without decimals
func money(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
