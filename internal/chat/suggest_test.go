package chat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cymbal-assist/internal/agentapi"
	"cymbal-assist/internal/chat"
)

func TestSuggest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  agentapi.Kind
	}{
		{query: "How much did I spend on coffee last month?", want: agentapi.KindSpending},
		{query: "Can I afford a down payment on a house?", want: agentapi.KindPurchases},
		{query: "Plan a trip to Tokyo with flights and a hotel", want: agentapi.KindTravel},
		{query: "hello there", want: agentapi.KindSpending},
		{query: "", want: agentapi.KindSpending},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()
			got := chat.Suggest(tt.query, agentapi.KindSpending)
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}

func TestSuggestTieFallsBack(t *testing.T) {
	t.Parallel()

	// One spending keyword and one travel keyword.
	got := chat.Suggest("coffee in paris", agentapi.KindPurchases)
	assert.Equal(t, agentapi.KindPurchases, got.Kind)
	assert.Zero(t, got.Confidence)
	assert.Contains(t, got.Reason, "ambiguous")
}
