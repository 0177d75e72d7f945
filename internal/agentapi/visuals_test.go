package agentapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist/internal/agentapi"
	"cymbal-assist/internal/fakeagent"
	"cymbal-assist/internal/logging"
)

func TestVisualizeThenListSettles(t *testing.T) {
	t.Parallel()

	client, fake := newClient(t, signedIn, fakeagent.Options{ReadyAfter: 2})

	result, err := client.Visualize(context.Background(), agentapi.VisualizeInput{
		TripID:    "paris-2025",
		Prompt:    "me at the Eiffel tower",
		Image:     []byte("\x89PNG fake"),
		ImageName: "me.png",
	})
	require.NoError(t, err)
	assert.Equal(t, agentapi.VideoPending, result.VideoStatus)
	assert.Contains(t, result.ImageURL, "paris-2025")

	visuals, err := client.ListVisuals(context.Background(), "paris-2025")
	require.NoError(t, err)
	require.Len(t, visuals, 1)
	assert.Equal(t, agentapi.VideoPending, visuals[0].VideoStatus)

	visuals, err = client.ListVisuals(context.Background(), "paris-2025")
	require.NoError(t, err)
	require.Len(t, visuals, 1)
	assert.Equal(t, agentapi.VideoReady, visuals[0].VideoStatus)
	assert.NotEmpty(t, visuals[0].VideoURL)
	assert.Equal(t, 2, fake.ListCalls("paris-2025"))
}

func TestVisualsForUser(t *testing.T) {
	t.Parallel()

	client, fake := newClient(t, signedIn, fakeagent.Options{ReadyAfter: 5})
	fake.SeedVisual(agentapi.Visual{UserID: "someone-else", TripID: "t1", VideoStatus: agentapi.VideoReady})
	fake.SeedVisual(agentapi.Visual{UserID: "user-001", TripID: "t1", Prompt: "first", VideoStatus: agentapi.VideoReady})
	fake.SeedVisual(agentapi.Visual{UserID: "user-001", TripID: "t1", Prompt: "second", VideoStatus: agentapi.VideoFailed})

	visuals, err := client.ListVisuals(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, visuals, 3)

	mine := agentapi.VisualsForUser(visuals, client.UserID())
	require.Len(t, mine, 2)
	assert.Equal(t, "first", mine[0].Prompt)
	assert.Equal(t, "second", mine[1].Prompt)

	assert.Empty(t, agentapi.VisualsForUser(visuals, "nobody"))
}

func TestListVisualsAcceptsWrappedList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"visuals":[{"user_id":"user-001","trip_id":"t9","video_status":"ready"}]}`))
	}))
	t.Cleanup(srv.Close)

	client := agentapi.NewClient(srv.URL, time.Second, signedIn, logging.Discard())
	visuals, err := client.ListVisuals(context.Background(), "t9")
	require.NoError(t, err)
	require.Len(t, visuals, 1)
	assert.Equal(t, agentapi.VideoReady, visuals[0].VideoStatus)
}

func TestTransactions(t *testing.T) {
	t.Parallel()

	client, fake := newClient(t, signedIn, fakeagent.Options{})

	txs, err := client.Transactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fakeagent.SampleTransactions(), txs)

	fake.SeedTransactions("user-001", []agentapi.Transaction{
		{ID: "a", Description: "Rent", Amount: -1000, Type: "debit"},
	})
	txs, err = client.Transactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Rent", txs[0].Description)
}

func TestTransactionsBareArray(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[{"id":"x","amount":12.5,"type":"credit"}]`))
	}))
	t.Cleanup(srv.Close)

	client := agentapi.NewClient(srv.URL, time.Second, signedIn, logging.Discard())
	txs, err := client.Transactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.InDelta(t, 12.5, txs[0].Amount, 0.0001)
	assert.Equal(t, "/api/users/user-001/transactions", gotPath)
}

func TestNewestFirst(t *testing.T) {
	t.Parallel()

	txs := []agentapi.Transaction{
		{ID: "a", Date: "2025-09-01"},
		{ID: "b", Date: "2025-09-07"},
		{ID: "c", Date: "2025-09-03"},
		{ID: "d", Date: "2025-09-07"},
	}

	got := agentapi.NewestFirst(txs, 0)
	ids := make([]string, 0, len(got))
	for _, tx := range got {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids)
	assert.Equal(t, "a", txs[0].ID, "input must not be reordered")

	assert.Len(t, agentapi.NewestFirst(txs, 2), 2)
	assert.Len(t, agentapi.NewestFirst(txs, 10), 4)
}
