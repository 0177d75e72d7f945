package chat

import (
	"strings"

	"cymbal-assist/internal/agentapi"
)

// Suggestion is the agent picked for a message in auto mode
type Suggestion struct {
	Kind       agentapi.Kind
	Confidence int
	Reason     string
}

// keyword lists per agent kind
var keywords = map[agentapi.Kind][]string{
	agentapi.KindSpending: {
		"spend", "spent", "spending", "budget", "coffee", "groceries", "grocery",
		"restaurant", "dining", "subscription", "daily", "weekly", "monthly",
		"bills", "save money", "cut back", "transactions", "expenses",
	},
	agentapi.KindPurchases: {
		"buy", "purchase", "afford", "car", "house", "home", "mortgage",
		"down payment", "loan", "laptop", "wedding", "renovation", "furniture",
		"financing", "big purchase",
	},
	agentapi.KindTravel: {
		"trip", "travel", "vacation", "holiday", "flight", "hotel", "visa",
		"itinerary", "destination", "paris", "tokyo", "bali", "rome", "dubai",
		"abroad", "visualize", "beach",
	},
}

// Suggest picks the agent kind whose keywords best match query. With no
// match, or a tie, fallback is returned with zero confidence.
func Suggest(query string, fallback agentapi.Kind) Suggestion {
	query = strings.ToLower(strings.TrimSpace(query))

	if query == "" {
		return Suggestion{Kind: fallback, Reason: "empty query"}
	}

	best := Suggestion{Kind: fallback, Reason: "no keywords matched"}
	tie := false

	for _, kind := range agentapi.Kinds {
		matched := countMatches(query, keywords[kind])
		if len(matched) == 0 {
			continue
		}

		// Each matching keyword is worth 25 points, capped at 100
		score := min(25*len(matched), 100)

		switch {
		case score > best.Confidence:
			best = Suggestion{Kind: kind, Confidence: score, Reason: strings.Join(matched, ", ")}
			tie = false
		case score == best.Confidence:
			tie = true
		}
	}

	if tie {
		return Suggestion{Kind: fallback, Reason: "ambiguous: " + best.Reason}
	}
	return best
}

// countMatches returns the patterns found in the query
func countMatches(query string, patterns []string) []string {
	var matched []string
	for _, pattern := range patterns {
		if strings.Contains(query, pattern) {
			matched = append(matched, pattern)
		}
	}
	return matched
}
