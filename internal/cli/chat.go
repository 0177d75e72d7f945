package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cymbal-assist/internal/agentapi"
	"cymbal-assist/internal/chat"
	"cymbal-assist/internal/format"
	"cymbal-assist/internal/scratch"
	"cymbal-assist/internal/terminal"
	"cymbal-assist/internal/transcript"
	"cymbal-assist/internal/travel"
	"cymbal-assist/internal/visualize"
)

func newChatCmd(app *App) *cobra.Command {
	var agent string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the financial assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runChat(cmd, agent)
		},
	}
	cmd.Flags().StringVarP(&agent, "agent", "a", "", "agent to start with: spending, purchases, travel or auto")

	return cmd
}

// chatSession is the state of one interactive chat loop
type chatSession struct {
	app         *App
	controllers *chat.Set
	transcripts *transcript.Manager
	files       *scratch.Dir
	task        *visualize.Task

	kind     agentapi.Kind
	auto     bool
	last     *chat.Controller
	reported bool
}

// runChat runs the interactive loop until /exit, EOF or cancellation
func (a *App) runChat(cmd *cobra.Command, agent string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if agent == "" {
		agent = a.cfg.Chat.DefaultAgent
	}

	files, err := scratch.New("cymbal-")
	if err != nil {
		return err
	}
	defer files.ReleaseAll()
	a.logger.WithField("dir", files.Root()).Debug("artifact directory ready")

	s := &chatSession{
		app:         a,
		controllers: chat.NewSet(a.client, a.logger),
		transcripts: transcript.NewManager(a.cfg.Transcript.Path, a.cfg.Transcript.MaxSessions),
		files:       files,
		task: visualize.New(a.client, files,
			visualize.WithInterval(a.cfg.Visualize.PollInterval),
			visualize.WithLogger(a.logger),
		),
		kind:     agentapi.KindSpending,
		reported: true,
	}
	defer s.task.Close()

	if err := s.setAgent(agent); err != nil {
		return err
	}

	if err := s.transcripts.Load(); err != nil {
		a.display.PrintWarning(fmt.Sprintf("Failed to load saved conversations: %v", err))
	}

	a.display.ClearScreen()
	s.printHeader()
	a.display.PrintHelp()
	if a.auth.UserID() == "" {
		a.display.PrintWarning("You are not signed in. Run `cymbal login` to chat with your assistant.")
	}

	inputCtx, stopInput := context.WithCancel(ctx)
	defer stopInput()
	lines := a.in.ReadLines(inputCtx)

	// Main conversation loop
	for {
		s.reportVisualization()

		a.display.PrintPrompt(s.promptLabel())
		line, ok := s.waitInput(ctx, lines)
		if !ok {
			break
		}
		if line.Err != nil {
			if errors.Is(line.Err, io.EOF) {
				break
			}
			return line.Err
		}
		input := line.Text

		// Skip empty input
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := s.handleCommand(ctx, input)
			if err != nil {
				a.display.PrintError(err)
			}
			if quit {
				break
			}
			continue
		}

		s.send(ctx, input)
	}

	a.display.PrintGoodbye()
	return nil
}

// waitInput waits for the next line. A background visualization that ends in
// the meantime is reported and the prompt drawn again. ok is false once ctx is done.
func (s *chatSession) waitInput(ctx context.Context, lines <-chan terminal.Line) (line terminal.Line, ok bool) {
	for {
		if ctx.Err() != nil {
			return terminal.Line{}, false
		}

		var visualized <-chan struct{}
		if !s.reported {
			visualized = s.task.Done()
		}

		select {
		case <-ctx.Done():
			return terminal.Line{}, false
		case line, ok = <-lines:
			return line, ok
		case <-visualized:
			fmt.Fprintln(s.app.out)
			s.reportVisualization()
			s.app.display.PrintPrompt(s.promptLabel())
		}
	}
}

// send routes one message to a controller and prints the exchange
func (s *chatSession) send(ctx context.Context, input string) {
	d := s.app.display

	kind := s.kind
	if s.auto {
		suggestion := chat.Suggest(input, s.kind)
		kind = suggestion.Kind
		if suggestion.Confidence > 0 {
			d.PrintInfo(fmt.Sprintf("Asking the %s assistant (%s)", kind.Title(), suggestion.Reason))
		}
	}

	ctrl := s.controllers.For(kind)
	s.last = ctrl

	d.PrintUserMessage(chat.Message{Sender: chat.FromUser, Text: input, Timestamp: time.Now()})

	d.ShowSpinner("Thinking")
	msg, err := ctrl.Send(ctx, input)
	d.StopSpinner()

	// Interrupted; the loop prints the goodbye
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		d.PrintWarning(err.Error())
		return
	}

	d.PrintAgentMessage(kind.Title(), msg, s.saveArtifacts(msg.Artifacts))

	if errors.Is(msg.Err, agentapi.ErrUnauthenticated) {
		d.PrintWarning("Sign in with `cymbal login` to chat with your assistant.")
	}
}

// saveArtifacts writes artifact images to scratch files; failed ones get ""
func (s *chatSession) saveArtifacts(artifacts []agentapi.Artifact) []string {
	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		mimeType, data, err := format.DecodeDataURL(a.Data)
		if errors.Is(err, format.ErrNotDataURL) && a.MimeType != "" {
			mimeType, data, err = format.DecodeDataURL("data:" + a.MimeType + ";base64," + a.Data)
		}
		if err != nil {
			s.app.logger.WithError(err).WithField("artifact", a.Name).Warn("could not decode artifact")
			continue
		}

		name := a.Name
		if name == "" {
			name = "artifact"
		}
		if filepath.Ext(name) == "" {
			name += format.Extension(mimeType)
		}

		path, err := s.files.Write(name, data)
		if err != nil {
			s.app.logger.WithError(err).WithField("artifact", a.Name).Warn("could not save artifact")
			continue
		}
		paths[i] = path
	}
	return paths
}

// handleCommand runs a slash command. quit ends the loop.
func (s *chatSession) handleCommand(ctx context.Context, input string) (quit bool, err error) {
	d := s.app.display
	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "/exit", "/quit":
		return true, nil

	case "/help":
		d.PrintHelp()

	case "/clear":
		d.ClearScreen()
		s.printHeader()

	case "/agent":
		if rest == "" {
			d.PrintInfo(fmt.Sprintf("Current agent: %s", s.agentLabel()))
			return false, nil
		}
		if err := s.setAgent(rest); err != nil {
			return false, err
		}
		s.printHeader()

	case "/whoami":
		s.app.printWhoami()

	case "/transactions":
		limit := 20
		if rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil || n <= 0 {
				return false, fmt.Errorf("usage: /transactions [limit]")
			}
			limit = n
		}
		return false, s.app.printTransactions(ctx, limit)

	case "/savings":
		plan, err := parseSavings(rest)
		if err != nil {
			return false, err
		}
		d.PrintSavingsPlan(plan)

	case "/visualize":
		return false, s.visualize(ctx, rest)

	case "/save":
		return false, s.save()

	case "/history":
		d.PrintTranscripts(s.transcripts.List())

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}

	return false, nil
}

// visualize handles "/visualize <trip> [@image] <prompt>", "status" and "cancel"
func (s *chatSession) visualize(ctx context.Context, args string) error {
	d := s.app.display

	switch args {
	case "":
		return errors.New("usage: /visualize <trip> [@image] <prompt> | status | cancel")
	case "status":
		result, err := s.task.Result()
		d.PrintVisualization(s.task.State(), result, err)
		return nil
	case "cancel":
		s.task.Cancel()
		result, err := s.task.Result()
		d.PrintVisualization(s.task.State(), result, err)
		s.reported = true
		return nil
	}

	refs, rest := terminal.SplitFileRefs(args)
	tripID, prompt, _ := strings.Cut(rest, " ")

	req := visualize.Request{TripID: tripID, Prompt: strings.TrimSpace(prompt)}
	if len(refs) > 0 {
		image, err := readImage(refs[0])
		if err != nil {
			s.suggestFiles(refs[0])
			return err
		}
		req.Image, req.ImageName = image, filepath.Base(refs[0])
	}

	if err := s.task.Start(ctx, req); err != nil {
		return err
	}
	s.reported = false

	result, _ := s.task.Result()
	d.PrintVisualization(visualize.StateGenerating, result, nil)
	if result.Preview != "" {
		d.PrintInfo(fmt.Sprintf("Reference photo: %s", result.Preview))
	}
	d.PrintInfo("You can keep chatting; the result will show up here. Use /visualize status or /visualize cancel.")
	return nil
}

// suggestFiles lists images whose path resembles a missing @ reference
func (s *chatSession) suggestFiles(partial string) {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	matches := terminal.FindMatchingFiles(wd, partial)
	if len(matches) == 0 {
		return
	}
	if len(matches) > 10 {
		matches = matches[:10]
	}
	s.app.display.PrintInfo("Did you mean: @" + strings.Join(matches, ", @"))
}

// reportVisualization prints a finished background visualization once
func (s *chatSession) reportVisualization() {
	if s.reported {
		return
	}
	select {
	case <-s.task.Done():
		result, err := s.task.Result()
		s.app.display.PrintVisualization(s.task.State(), result, err)
		s.reported = true
	default:
	}
}

// save exports the most recently used conversation
func (s *chatSession) save() error {
	ctrl := s.last
	if ctrl == nil {
		ctrl = s.controllers.For(s.kind)
	}

	saved, err := s.transcripts.SaveConversation(string(ctrl.Kind()), ctrl.Session().ID, ctrl.Messages())
	if err != nil {
		return err
	}
	s.app.display.PrintSuccess(fmt.Sprintf("Saved %d messages from the %s conversation", len(saved.Messages), ctrl.Kind().Title()))
	return nil
}

// setAgent switches the active agent kind or turns on auto routing
func (s *chatSession) setAgent(name string) error {
	if strings.EqualFold(strings.TrimSpace(name), "auto") {
		s.auto = true
		return nil
	}
	kind, err := agentapi.ParseKind(name)
	if err != nil {
		return err
	}
	s.kind, s.auto = kind, false
	return nil
}

func (s *chatSession) agentLabel() string {
	if s.auto {
		return "Auto"
	}
	return s.kind.Title()
}

func (s *chatSession) promptLabel() string {
	if s.auto {
		return "auto"
	}
	return string(s.kind)
}

func (s *chatSession) printHeader() {
	s.app.display.PrintHeader(s.agentLabel(), s.app.userLabel())
}

// parseSavings reads "<destination...> <monthly>"
func parseSavings(args string) (travel.Plan, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return travel.Plan{}, errors.New("usage: /savings <destination> <monthly savings>")
	}

	monthly, err := strconv.ParseFloat(strings.TrimPrefix(fields[len(fields)-1], "$"), 64)
	if err != nil {
		return travel.Plan{}, fmt.Errorf("invalid monthly savings %q", fields[len(fields)-1])
	}
	return travel.Timeline(strings.Join(fields[:len(fields)-1], " "), monthly), nil
}

// readImage loads a reference photo, limited to 10 MB
func readImage(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if info.Size() > 10<<20 {
		return nil, fmt.Errorf("image %s is larger than 10 MB", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}
