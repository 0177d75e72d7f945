package travel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist/internal/travel"
)

func TestTimeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		destination string
		monthly     float64
		cost        float64
		months      float64
		motivation  string
	}{
		{name: "paris quick", destination: "Paris", monthly: 1000, cost: 3000, months: 3, motivation: "just a few months"},
		{name: "tokyo under a year", destination: "tokyo", monthly: 400, cost: 3500, months: 8.8, motivation: "less than a year"},
		{name: "dubai years", destination: "Dubai", monthly: 150, cost: 4000, months: 26.7, motivation: "about 2 years"},
		{name: "one year", destination: "bali", monthly: 160, cost: 2000, months: 12.5, motivation: "about 1 year,"},
		{name: "unknown destination", destination: "Reykjavik", monthly: 500, cost: travel.DefaultCost, months: 5, motivation: "just a few months"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			plan := travel.Timeline(tt.destination, tt.monthly)
			assert.Equal(t, tt.destination, plan.Destination)
			assert.InDelta(t, tt.cost, plan.EstimatedCost, 0.001)
			assert.InDelta(t, tt.months, plan.MonthsToSave, 0.001)
			assert.Contains(t, plan.Motivation, tt.motivation)
			require.Len(t, plan.Tips, 4)
		})
	}
}

func TestTimelineTips(t *testing.T) {
	t.Parallel()

	plan := travel.Timeline("rome", 250)
	assert.Equal(t, "Save $250/month to reach your goal in 10.0 months", plan.Tips[0])
	assert.Equal(t, "Increase savings to $375/month to get there in 6.7 months", plan.Tips[1])
}

func TestTimelineWithoutSavings(t *testing.T) {
	t.Parallel()

	for _, monthly := range []float64{0, -50} {
		plan := travel.Timeline("paris", monthly)
		assert.Zero(t, plan.MonthsToSave)
		assert.InDelta(t, 3000, plan.EstimatedCost, 0.001)
		assert.NotEmpty(t, plan.Tips)
		assert.Contains(t, plan.Motivation, "Pick a monthly savings amount")
	}
}
