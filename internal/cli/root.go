// Package cli wires the cobra commands and the interactive chat loop.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"cymbal-assist/internal/agentapi"
	"cymbal-assist/internal/auth"
	"cymbal-assist/internal/config"
	"cymbal-assist/internal/logging"
	"cymbal-assist/internal/terminal"
	"cymbal-assist/internal/ui"
)

// App holds what every command needs once configuration is loaded
type App struct {
	v       *viper.Viper
	cfgFile string

	cfg       *config.Config
	logger    *logrus.Logger
	logCloser io.Closer
	auth      *auth.Wrapper
	client    *agentapi.Client
	display   *ui.Display
	in        *terminal.Reader
	out       io.Writer
}

// flagKeys maps persistent flags to config keys
var flagKeys = map[string]string{
	"api-url":   "api.url",
	"log-level": "log.level",
	"log-file":  "log.file",
}

// NewRootCmd creates the cymbal command tree
func NewRootCmd(version string) *cobra.Command {
	app := &App{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "cymbal",
		Short: "Cymbal Assist - chat with your Cymbal Bank financial assistant",
		Long: `Cymbal Assist is a terminal client for the Cymbal Bank AI agents.
Sign in, review your transactions and chat with the daily spending,
big purchases and travel assistants.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: app.setup,
		PersistentPostRun: app.teardown,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runChat(cmd, "")
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.cfgFile, "config", "", "config file (default ~/.cymbal/config.yaml)")
	flags.String("api-url", "", "agent service base URL")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-file", "", `log file, "-" for stderr`)
	bindFlags(app.v, flags)

	cmd.AddCommand(
		newChatCmd(app),
		newLoginCmd(app),
		newSignupCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newProfileCmd(app),
		newResetPasswordCmd(app),
		newTransactionsCmd(app),
		newVisualizeCmd(app),
		newSavingsCmd(app),
		newHealthCmd(app),
	)

	return cmd
}

// bindFlags lets flags override file and env values, but only when set
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// setup loads configuration and builds the shared clients
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.logger, a.logCloser = logger, closer

	a.auth, err = auth.NewWrapper(cfg.Auth, cfg.Profile, logger)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	a.client = agentapi.NewClient(cfg.API.URL, cfg.API.Timeout, a.auth, logger)
	a.out = cmd.OutOrStdout()
	a.in = terminal.NewReader(cmd.InOrStdin())
	a.display = ui.NewDisplay(a.out, ui.Options{Interactive: a.out == io.Writer(os.Stdout) && ui.IsTerminal()})

	logger.WithFields(logrus.Fields{
		"command": cmd.CommandPath(),
		"api_url": cfg.API.URL,
	}).Debug("configuration loaded")

	return nil
}

// teardown releases the log file
func (a *App) teardown(*cobra.Command, []string) {
	if a.display != nil {
		a.display.Cleanup()
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// userLabel is the navbar name for the signed-in user
func (a *App) userLabel() string {
	if u, ok := a.auth.CurrentUser(); ok {
		return u.DisplayName
	}
	return ""
}
