// Package visualize runs a trip visualization: it asks the agent service
// to render a visual and polls until the video is ready or has failed.
package visualize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cymbal-assist/internal/agentapi"
	"cymbal-assist/internal/scratch"
)

// State of a visualization run
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateReady      State = "ready"
	StateFailed     State = "failed"
	StateAbandoned  State = "abandoned"
)

var (
	// ErrVisualFailed wraps the service's video_error when a render fails.
	ErrVisualFailed = errors.New("visual generation failed")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("visualization task closed")
)

// API is the part of agentapi.Client the task needs
type API interface {
	Visualize(ctx context.Context, in agentapi.VisualizeInput) (agentapi.VisualizeResult, error)
	ListVisuals(ctx context.Context, tripID string) ([]agentapi.Visual, error)
	UserID() string
}

// Ticker delivers poll ticks. *time.Ticker is adapted by NewTimeTicker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker is the default ticker factory
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Request describes one visualization
type Request struct {
	TripID    string
	Prompt    string
	Image     []byte
	ImageName string
}

// Result is what the run has learned so far
type Result struct {
	ImageURL    string
	VideoStatus string
	VideoURL    string
	// Preview is the local copy of the reference image, if one was given.
	Preview string
}

// Option configures a Task
type Option func(*Task)

// WithInterval sets the poll period (default 5s)
func WithInterval(d time.Duration) Option {
	return func(t *Task) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithTicker replaces the ticker factory
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(t *Task) {
		t.newTicker = newTicker
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(t *Task) {
		t.logger = logger
	}
}

// Task owns at most one run at a time
type Task struct {
	api       API
	files     *scratch.Dir
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	logger    logrus.FieldLogger

	mu     sync.Mutex
	gen    int
	state  State
	result Result
	err    error
	cancel context.CancelFunc
	done   chan struct{}
	exited chan struct{}
	closed bool
}

// New creates an idle task. files may be nil, in which case no preview is kept.
func New(api API, files *scratch.Dir, opts ...Option) *Task {
	done := make(chan struct{})
	close(done)

	t := &Task{
		api:       api,
		files:     files,
		interval:  5 * time.Second,
		newTicker: NewTimeTicker,
		logger:    logrus.StandardLogger(),
		state:     StateIdle,
		done:      done,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins a run. A run already in progress is canceled first and
// its state is discarded.
func (t *Task) Start(ctx context.Context, req Request) error {
	if req.TripID == "" {
		return errors.New("trip id is required")
	}

	t.stop()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	t.releasePreviewLocked()

	var preview string
	if len(req.Image) > 0 && t.files != nil {
		name := req.ImageName
		if name == "" {
			name = "reference.png"
		}
		path, err := t.files.Write(name, req.Image)
		if err != nil {
			return err
		}
		preview = path
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.gen++
	t.state = StateGenerating
	t.result = Result{Preview: preview}
	t.err = nil
	t.cancel = cancel
	t.done = make(chan struct{})
	t.exited = make(chan struct{})

	go t.run(runCtx, t.gen, req, t.exited)
	return nil
}

// Cancel stops polling. A generating run becomes abandoned; finished runs keep their state.
// Canceling the context passed to Start abandons the run the same way, with ctx.Err() as its error.
func (t *Task) Cancel() {
	t.stop()
}

// Close cancels the run and releases the preview file. No request is made after Close returns.
func (t *Task) Close() error {
	t.stop()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	return t.releasePreviewLocked()
}

// Done is closed when the current run stops generating
func (t *Task) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// State returns the current state
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Result returns the latest result and the error that ended the run, if any
func (t *Task) Result() (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

// stop cancels the current run and waits for its goroutine to exit
func (t *Task) stop() {
	t.mu.Lock()
	cancel, exited := t.cancel, t.exited
	t.cancel = nil
	if t.state == StateGenerating {
		t.state = StateAbandoned
		close(t.done)
	}
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if exited != nil {
		<-exited
	}
}

// releasePreviewLocked removes the preview file (must be called with lock held)
func (t *Task) releasePreviewLocked() error {
	if t.result.Preview == "" || t.files == nil {
		return nil
	}
	path := t.result.Preview
	t.result.Preview = ""
	return t.files.Release(path)
}

// run creates the visual and polls until it settles
func (t *Task) run(ctx context.Context, gen int, req Request, exited chan struct{}) {
	defer close(exited)

	logger := t.logger.WithField("trip_id", req.TripID)

	created, err := t.api.Visualize(ctx, agentapi.VisualizeInput{
		TripID:    req.TripID,
		Prompt:    req.Prompt,
		Image:     req.Image,
		ImageName: req.ImageName,
	})
	if err != nil {
		if ctx.Err() != nil {
			t.finish(gen, StateAbandoned, ctx.Err())
			return
		}
		logger.WithError(err).Warn("visualize request failed")
		t.finish(gen, StateFailed, err)
		return
	}

	t.update(gen, created.ImageURL, created.VideoStatus, created.VideoURL)

	switch created.VideoStatus {
	case agentapi.VideoReady:
		t.finish(gen, StateReady, nil)
		return
	case agentapi.VideoFailed:
		t.finish(gen, StateFailed, ErrVisualFailed)
		return
	}

	ticker := t.newTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.finish(gen, StateAbandoned, ctx.Err())
			return
		case <-ticker.C():
		}

		visuals, err := t.api.ListVisuals(ctx, req.TripID)
		if err != nil {
			if ctx.Err() != nil {
				t.finish(gen, StateAbandoned, ctx.Err())
				return
			}
			// Keep polling; only an explicit failed status ends the run
			logger.WithError(err).Warn("polling visuals failed")
			continue
		}

		visual, ok := pick(agentapi.VisualsForUser(visuals, t.api.UserID()), created.ImageURL)
		if !ok {
			continue
		}

		t.update(gen, visual.ImageURL, visual.VideoStatus, visual.VideoURL)

		switch visual.VideoStatus {
		case agentapi.VideoReady:
			logger.Info("visual ready")
			t.finish(gen, StateReady, nil)
			return
		case agentapi.VideoFailed:
			logger.WithField("video_error", visual.VideoError).Warn("visual failed")
			t.finish(gen, StateFailed, fmt.Errorf("%w: %s", ErrVisualFailed, visual.VideoError))
			return
		}
	}
}

// pick prefers the visual created by this run, then the user's latest one
func pick(visuals []agentapi.Visual, imageURL string) (agentapi.Visual, bool) {
	if len(visuals) == 0 {
		return agentapi.Visual{}, false
	}
	for i := len(visuals) - 1; i >= 0; i-- {
		if imageURL != "" && visuals[i].ImageURL == imageURL {
			return visuals[i], true
		}
	}
	return visuals[len(visuals)-1], true
}

// update records progress for run gen
func (t *Task) update(gen int, imageURL, status, videoURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || t.state != StateGenerating {
		return
	}
	if imageURL != "" {
		t.result.ImageURL = imageURL
	}
	t.result.VideoStatus = status
	t.result.VideoURL = videoURL
}

// finish moves run gen to a terminal state
func (t *Task) finish(gen int, state State, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || t.state != StateGenerating {
		return
	}
	t.state = state
	t.err = err
	close(t.done)
}
