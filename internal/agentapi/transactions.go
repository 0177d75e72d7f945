package agentapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
)

// Transactions returns the signed-in user's transactions as the service orders them.
func (c *Client) Transactions(ctx context.Context) ([]Transaction, error) {
	token, userID, err := c.authorize(ctx)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/api/users/%s/transactions", url.PathEscape(userID))
	req, err := c.newRequest(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, err
	}
	return decodeList[Transaction](raw, "transactions")
}

// NewestFirst returns txs ordered by date, newest first, keeping at most
// limit entries when limit > 0. Dates compare as ISO-8601 strings.
func NewestFirst(txs []Transaction, limit int) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
