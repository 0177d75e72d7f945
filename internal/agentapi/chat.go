package agentapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Kind selects which domain agent a message is meant for.
type Kind string

const (
	KindSpending  Kind = "spending"
	KindPurchases Kind = "purchases"
	KindTravel    Kind = "travel"
)

// Kinds lists every agent kind in display order.
var Kinds = []Kind{KindSpending, KindPurchases, KindTravel}

// The service routes on message text only, so each kind prepends a fixed hint.
var hints = map[Kind]string{
	KindSpending:  "[Daily spending] Help me understand and manage my everyday spending. ",
	KindPurchases: "[Big purchases] Help me plan and afford a large purchase. ",
	KindTravel:    "[Travel] Help me plan and budget for a trip. ",
}

var titles = map[Kind]string{
	KindSpending:  "Daily Spending",
	KindPurchases: "Big Purchases",
	KindTravel:    "Travel",
}

// ParseKind maps user input to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spending", "daily", "daily-spending":
		return KindSpending, nil
	case "purchases", "purchase", "big-purchases", "big":
		return KindPurchases, nil
	case "travel", "trip", "trips":
		return KindTravel, nil
	}
	return "", fmt.Errorf("unknown agent %q (want spending, purchases or travel)", s)
}

// Hint returns the fixed prefix for this kind.
func (k Kind) Hint() string {
	return hints[k]
}

// Title returns a display name.
func (k Kind) Title() string {
	if t, ok := titles[k]; ok {
		return t
	}
	return string(k)
}

// SendInput is one chat turn.
type SendInput struct {
	Message string
	Kind    Kind
	// Session is the caller's current session; it may be zero.
	Session Session
	// SessionID, when set, overrides Session.ID for this request only.
	SessionID string
}

// Reply is the agent's answer plus the session the caller should keep.
type Reply struct {
	Text      string
	Session   Session
	SkillUsed string
	Artifacts []Artifact
}

// Send posts one message to the agent service.
//
// The request's session id is, in order: in.SessionID, in.Session.ID, or a
// fresh id. The fresh id seeds the returned session only when in.Session
// was empty. A session_id in the response replaces the returned session
// unconditionally. The returned session is valid even when err != nil.
func (c *Client) Send(ctx context.Context, in SendInput) (Reply, error) {
	session := in.Session

	token, userID, err := c.authorize(ctx)
	if err != nil {
		return Reply{Session: session}, err
	}

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = session.ID
	}
	if sessionID == "" {
		sessionID = NewSessionID(c.now())
	}
	if session.IsZero() {
		session.ID = sessionID
	}

	logger := c.logger.WithFields(logrus.Fields{
		"agent":      string(in.Kind),
		"session_id": sessionID,
	})

	req, err := c.newJSONRequest(ctx, "/chat", token, ChatRequest{
		Message:   in.Kind.Hint() + in.Message,
		UserID:    userID,
		SessionID: sessionID,
		Skill:     "chat",
	})
	if err != nil {
		return Reply{Session: session}, err
	}

	var resp ChatResponse
	if err := c.do(req, &resp); err != nil {
		logger.WithError(err).Warn("chat request failed")
		return Reply{Session: session}, err
	}

	if resp.SessionID != "" {
		session.ID = resp.SessionID
	}

	logger.WithField("artifacts", len(resp.Artifacts)).Debug("chat reply received")

	return Reply{
		Text:      resp.Response,
		Session:   session,
		SkillUsed: resp.SkillUsed,
		Artifacts: resp.Artifacts,
	}, nil
}
