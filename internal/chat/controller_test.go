package chat_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist/internal/agentapi"
	"cymbal-assist/internal/chat"
	"cymbal-assist/internal/fakeagent"
	"cymbal-assist/internal/logging"
)

// blockingSender records requests and waits for release before answering.
type blockingSender struct {
	mu       sync.Mutex
	requests []agentapi.SendInput
	started  chan struct{}
	release  chan struct{}
	reply    agentapi.Reply
	err      error
}

func newBlockingSender() *blockingSender {
	return &blockingSender{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
}

func (b *blockingSender) Send(ctx context.Context, in agentapi.SendInput) (agentapi.Reply, error) {
	b.mu.Lock()
	b.requests = append(b.requests, in)
	b.mu.Unlock()

	b.started <- struct{}{}
	<-b.release

	reply := b.reply
	if reply.Session.IsZero() {
		reply.Session = in.Session
	}
	return reply, b.err
}

func (b *blockingSender) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func TestSendWhileBusyIssuesNoRequest(t *testing.T) {
	t.Parallel()

	sender := newBlockingSender()
	sender.reply = agentapi.Reply{Text: "**Done**", Session: agentapi.Session{ID: "s-1"}}
	ctrl := chat.NewController(agentapi.KindSpending, sender, logging.Discard())

	first := make(chan chat.Message, 1)
	go func() {
		msg, err := ctrl.Send(context.Background(), "first")
		assert.NoError(t, err)
		first <- msg
	}()

	select {
	case <-sender.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first send never reached the sender")
	}
	assert.True(t, ctrl.Busy())

	_, err := ctrl.Send(context.Background(), "second")
	require.ErrorIs(t, err, chat.ErrBusy)
	assert.Equal(t, 1, sender.count())

	close(sender.release)
	msg := <-first

	assert.Equal(t, chat.FromAgent, msg.Sender)
	assert.Equal(t, "<strong>Done</strong>", msg.HTML)
	assert.False(t, ctrl.Busy())

	// Only the first exchange is in the log.
	log := ctrl.Messages()
	require.Len(t, log, 2)
	assert.Equal(t, chat.FromUser, log[0].Sender)
	assert.Equal(t, "first", log[0].Text)
	assert.Equal(t, "**Done**", log[1].Text)
}

func TestSendIgnoresBlankInput(t *testing.T) {
	t.Parallel()

	sender := newBlockingSender()
	ctrl := chat.NewController(agentapi.KindTravel, sender, logging.Discard())

	msg, err := ctrl.Send(context.Background(), "   \n")
	require.NoError(t, err)
	assert.Zero(t, msg)
	assert.Empty(t, ctrl.Messages())
	assert.Zero(t, sender.count())
}

func TestSendFailureAppendsApology(t *testing.T) {
	t.Parallel()

	sender := newBlockingSender()
	sender.err = agentapi.ErrUnauthenticated
	close(sender.release)
	ctrl := chat.NewController(agentapi.KindPurchases, sender, logging.Discard())

	msg, err := ctrl.Send(context.Background(), "can I afford a car?")
	require.NoError(t, err)
	assert.Equal(t, chat.Apology, msg.Text)
	require.ErrorIs(t, msg.Err, agentapi.ErrUnauthenticated)

	log := ctrl.Messages()
	require.Len(t, log, 2)
	assert.Equal(t, "can I afford a car?", log[0].Text)
	assert.Equal(t, chat.Apology, log[1].Text)

	// Nothing is retried.
	assert.Equal(t, 1, sender.count())
}

func TestMessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	sender := newBlockingSender()
	close(sender.release)
	ctrl := chat.NewController(agentapi.KindSpending, sender, logging.Discard())

	_, err := ctrl.Send(context.Background(), "hello")
	require.NoError(t, err)

	log := ctrl.Messages()
	log[0].Text = "changed"
	assert.Equal(t, "hello", ctrl.Messages()[0].Text)
}

func TestControllerAdoptsSessions(t *testing.T) {
	t.Parallel()

	fake := fakeagent.New(fakeagent.Options{})
	srv := httptest.NewServer(fake.Router())
	t.Cleanup(srv.Close)

	identity := staticIdentity{token: "tok", uid: "user-001"}
	client := agentapi.NewClient(srv.URL, time.Second, identity, logging.Discard())
	set := chat.NewSet(client, logging.Discard())

	spending := set.For(agentapi.KindSpending)
	travel := set.For(agentapi.KindTravel)
	assert.Same(t, spending, set.For(agentapi.KindSpending))

	_, err := spending.Send(context.Background(), "coffee budget")
	require.NoError(t, err)
	_, err = spending.Send(context.Background(), "and groceries?")
	require.NoError(t, err)
	_, err = travel.Send(context.Background(), "trip to Rome")
	require.NoError(t, err)

	chats := fake.Chats()
	require.Len(t, chats, 3)
	assert.Equal(t, chats[0].SessionID, chats[1].SessionID)
	assert.NotEqual(t, chats[0].SessionID, chats[2].SessionID)
	assert.Equal(t, chats[0].SessionID, spending.Session().ID)
	assert.Equal(t, chats[2].SessionID, travel.Session().ID)

	// The server hands out a new session; only the travel controller adopts it.
	fake.SetReply(func(req agentapi.ChatRequest) (agentapi.ChatResponse, int) {
		return agentapi.ChatResponse{Response: "ok", SessionID: "server-new"}, 200
	})
	_, err = travel.Send(context.Background(), "hotels?")
	require.NoError(t, err)
	assert.Equal(t, "server-new", travel.Session().ID)
	assert.Equal(t, chats[0].SessionID, spending.Session().ID)
}

func TestControllerKeepsSessionOnFailure(t *testing.T) {
	t.Parallel()

	fake := fakeagent.New(fakeagent.Options{})
	srv := httptest.NewServer(fake.Router())
	t.Cleanup(srv.Close)

	client := agentapi.NewClient(srv.URL, time.Second, staticIdentity{token: "tok", uid: "u"}, logging.Discard())
	ctrl := chat.NewController(agentapi.KindSpending, client, logging.Discard())

	_, err := ctrl.Send(context.Background(), "one")
	require.NoError(t, err)
	before := ctrl.Session()

	fake.SetReply(func(req agentapi.ChatRequest) (agentapi.ChatResponse, int) {
		return agentapi.ChatResponse{}, 500
	})
	msg, err := ctrl.Send(context.Background(), "two")
	require.NoError(t, err)

	var reqErr *agentapi.RequestError
	require.True(t, errors.As(msg.Err, &reqErr))
	assert.Equal(t, before, ctrl.Session())
}

type staticIdentity struct {
	token string
	uid   string
}

func (s staticIdentity) Token(context.Context) (string, error) { return s.token, nil }
func (s staticIdentity) UserID() string                        { return s.uid }
