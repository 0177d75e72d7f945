// Package chat holds the per-domain chat controllers. Each controller owns
// its message log and its agent session; errors from the agent service end
// here and become a generic apology in the log.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"cymbal-assist/internal/agentapi"
	"cymbal-assist/internal/format"
)

// ErrBusy is returned when a send is attempted while another is in flight.
var ErrBusy = errors.New("a message is already being sent")

// Apology is shown in place of a reply whenever a send fails.
const Apology = "Sorry, I encountered an error. Please try again."

// Sender is the part of agentapi.Client a controller needs
type Sender interface {
	Send(ctx context.Context, in agentapi.SendInput) (agentapi.Reply, error)
}

// Sender roles
const (
	FromUser  = "user"
	FromAgent = "agent"
)

// Message is one entry of a controller's log
type Message struct {
	Sender    string
	Text      string
	HTML      string
	Artifacts []agentapi.Artifact
	Timestamp time.Time
	// Err is the cause behind an apology message.
	Err error
}

// Controller runs one domain conversation
type Controller struct {
	kind   agentapi.Kind
	sender Sender
	logger logrus.FieldLogger
	now    func() time.Time

	busy atomic.Bool

	mu       sync.Mutex
	messages []Message
	session  agentapi.Session
}

// NewController creates a controller with an empty log and no session
func NewController(kind agentapi.Kind, sender Sender, logger logrus.FieldLogger) *Controller {
	return &Controller{
		kind:   kind,
		sender: sender,
		logger: logger.WithField("agent", string(kind)),
		now:    time.Now,
	}
}

// Kind returns the controller's agent kind
func (c *Controller) Kind() agentapi.Kind {
	return c.kind
}

// Busy reports whether a send is in flight
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// Send appends the user's message, asks the agent and appends its reply or
// an apology. It returns the appended agent message. The only error is
// ErrBusy; blank input is ignored and returns a zero Message.
func (c *Controller) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, nil
	}

	if !c.busy.CompareAndSwap(false, true) {
		return Message{}, ErrBusy
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	c.messages = append(c.messages, Message{
		Sender:    FromUser,
		Text:      text,
		Timestamp: c.now(),
	})
	session := c.session
	c.mu.Unlock()

	reply, err := c.sender.Send(ctx, agentapi.SendInput{
		Message: text,
		Kind:    c.kind,
		Session: session,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = reply.Session

	var msg Message
	if err != nil {
		c.logger.WithError(err).Warn("send failed")
		msg = Message{
			Sender:    FromAgent,
			Text:      Apology,
			HTML:      format.ToHTML(Apology),
			Timestamp: c.now(),
			Err:       err,
		}
	} else {
		msg = Message{
			Sender:    FromAgent,
			Text:      reply.Text,
			HTML:      format.ToHTML(reply.Text),
			Artifacts: reply.Artifacts,
			Timestamp: c.now(),
		}
	}

	c.messages = append(c.messages, msg)
	return msg, nil
}

// Messages returns a copy of the log
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Session returns the current session
func (c *Controller) Session() agentapi.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Set keeps one controller per agent kind
type Set struct {
	sender Sender
	logger logrus.FieldLogger

	mu          sync.Mutex
	controllers map[agentapi.Kind]*Controller
}

// NewSet creates an empty set
func NewSet(sender Sender, logger logrus.FieldLogger) *Set {
	return &Set{
		sender:      sender,
		logger:      logger,
		controllers: make(map[agentapi.Kind]*Controller),
	}
}

// For returns the controller for kind, creating it on first use
func (s *Set) For(kind agentapi.Kind) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.controllers[kind]
	if !ok {
		c = NewController(kind, s.sender, s.logger)
		s.controllers[kind] = c
	}
	return c
}
