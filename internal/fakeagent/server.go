// Package fakeagent is an in-process stand-in for the remote agent service.
// It speaks the same HTTP contract as the real service closely enough for
// package tests and local development (see cmd/fakeagent).
package fakeagent

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cymbal-assist/internal/agentapi"
)

// Options tunes the fake.
type Options struct {
	// Token is the only accepted bearer token. Empty accepts any token.
	Token string
	// ReadyAfter is how many list calls a pending render survives before it
	// settles. Zero settles renders immediately on creation.
	ReadyAfter int
	// FailRenders makes settled renders fail instead of becoming ready.
	FailRenders bool
	// Logger receives one line per request. Nil disables request logging.
	Logger logrus.FieldLogger
}

// ReplyFunc produces the /chat answer and status code for a request.
type ReplyFunc func(req agentapi.ChatRequest) (agentapi.ChatResponse, int)

// Server holds the fake's state.
type Server struct {
	opts Options

	mu           sync.Mutex
	reply        ReplyFunc
	chats        []agentapi.ChatRequest
	visuals      map[string][]agentapi.Visual
	listCalls    map[string]int
	renders      int
	transactions map[string][]agentapi.Transaction
}

// New creates a fake with echo replies and sample transactions.
func New(opts Options) *Server {
	return &Server{
		opts:         opts,
		reply:        EchoReply,
		visuals:      make(map[string][]agentapi.Visual),
		listCalls:    make(map[string]int),
		transactions: make(map[string][]agentapi.Transaction),
	}
}

// EchoReply answers with the received message and keeps or assigns a session id.
func EchoReply(req agentapi.ChatRequest) (agentapi.ChatResponse, int) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return agentapi.ChatResponse{
		Response:  "You said: " + req.Message,
		SessionID: sessionID,
		SkillUsed: req.Skill,
	}, http.StatusOK
}

// SetReply replaces the /chat behaviour.
func (s *Server) SetReply(fn ReplyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = fn
}

// SeedVisual stores a visual as if another render had already happened.
func (s *Server) SeedVisual(v agentapi.Visual) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visuals[v.TripID] = append(s.visuals[v.TripID], v)
}

// SeedTransactions replaces a user's transactions.
func (s *Server) SeedTransactions(userID string, txs []agentapi.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[userID] = txs
}

// Chats returns every /chat request received so far.
func (s *Server) Chats() []agentapi.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]agentapi.ChatRequest, len(s.chats))
	copy(out, s.chats)
	return out
}

// ListCalls returns how many times a trip's visuals were listed.
func (s *Server) ListCalls(tripID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls[tripID]
}

// Router wires the fake's routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.opts.Logger != nil {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  s.opts.Logger,
			NoColor: true,
		}))
	}

	r.Get("/health", s.handleHealth)

	r.Group(func(api chi.Router) {
		api.Use(s.requireBearer)

		api.Post("/chat", s.handleChat)
		api.Post("/api/trips/{tripID}/visualize", s.handleVisualize)
		api.Get("/api/trips/{tripID}/visuals", s.handleListVisuals)
		api.Get("/api/users/{userID}/transactions", s.handleTransactions)
	})

	return r
}

// requireBearer rejects requests without an acceptable bearer token.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" || (s.opts.Token != "" && token != s.opts.Token) {
			respondError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, agentapi.HealthStatus{
		Status:  "healthy",
		Service: "cymbal-bank-ai-agent",
		Version: "1.0.0",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req agentapi.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	s.chats = append(s.chats, req)
	reply := s.reply
	s.mu.Unlock()

	resp, status := reply(req)
	if status != http.StatusOK {
		respondError(w, status, "agent failed")
		return
	}
	respondJSON(w, status, resp)
}

func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if file, _, err := r.FormFile("image"); err == nil {
		_, _ = io.Copy(io.Discard, file)
		file.Close()
	}

	s.mu.Lock()
	s.renders++
	visual := agentapi.Visual{
		UserID:      userID,
		TripID:      tripID,
		Prompt:      r.FormValue("prompt"),
		ImageURL:    fmt.Sprintf("https://storage.example/trips/%s/visuals/%s_%d.png", tripID, userID, s.renders),
		VideoStatus: agentapi.VideoPending,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if s.opts.ReadyAfter == 0 {
		s.settle(&visual)
	}
	s.visuals[tripID] = append(s.visuals[tripID], visual)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, agentapi.VisualizeResult{
		ImageURL:    visual.ImageURL,
		VideoStatus: visual.VideoStatus,
		VideoURL:    visual.VideoURL,
	})
}

func (s *Server) handleListVisuals(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")

	s.mu.Lock()
	s.listCalls[tripID]++
	if s.listCalls[tripID] >= s.opts.ReadyAfter {
		for i := range s.visuals[tripID] {
			if s.visuals[tripID][i].VideoStatus == agentapi.VideoPending {
				s.settle(&s.visuals[tripID][i])
			}
		}
	}
	out := make([]agentapi.Visual, len(s.visuals[tripID]))
	copy(out, s.visuals[tripID])
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, out)
}

// settle moves a pending render to its final state (must be called with lock held).
func (s *Server) settle(v *agentapi.Visual) {
	if s.opts.FailRenders {
		v.VideoStatus = agentapi.VideoFailed
		v.VideoError = "video generation timed out after 10 minutes"
		return
	}
	v.VideoStatus = agentapi.VideoReady
	v.VideoURL = fmt.Sprintf("https://storage.example/trips/videos/%s_%s.mp4", v.TripID, v.UserID)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	s.mu.Lock()
	txs, ok := s.transactions[userID]
	s.mu.Unlock()
	if !ok {
		txs = SampleTransactions()
	}

	respondJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// SampleTransactions is the default ledger for users without seeded data.
func SampleTransactions() []agentapi.Transaction {
	return []agentapi.Transaction{
		{ID: "txn-001", Date: "2025-09-01", Description: "Salary", Category: "Income", Amount: 4200, Type: "credit"},
		{ID: "txn-002", Date: "2025-09-02", Description: "Blue Bottle Coffee", Category: "Dining", Amount: -6.5, Type: "debit"},
		{ID: "txn-003", Date: "2025-09-03", Description: "Whole Foods", Category: "Groceries", Amount: -84.12, Type: "debit"},
		{ID: "txn-004", Date: "2025-09-05", Description: "City Rent", Category: "Housing", Amount: -1850, Type: "debit"},
		{ID: "txn-005", Date: "2025-09-07", Description: "Delta Air Lines", Category: "Travel", Amount: -412.3, Type: "debit"},
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}
