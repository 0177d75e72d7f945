package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Agent kinds accepted by chat.default_agent, plus "auto".
var knownAgents = map[string]bool{
	"spending":  true,
	"purchases": true,
	"travel":    true,
	"auto":      true,
}

// Config holds all application configuration
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Profile    ProfileConfig    `mapstructure:"profile"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Visualize  VisualizeConfig  `mapstructure:"visualize"`
	Transcript TranscriptConfig `mapstructure:"transcript"`
	Log        LogConfig        `mapstructure:"log"`
}

// APIConfig points at the remote agent service.
type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig describes the identity service and where credentials are kept.
type AuthConfig struct {
	APIKey          string `mapstructure:"api_key"`
	IdentityURL     string `mapstructure:"identity_url"`
	TokenURL        string `mapstructure:"token_url"`
	CredentialsPath string `mapstructure:"credentials_path"`
}

// ProfileConfig is the local fallback profile shown when the identity
// service has no display name or photo.
type ProfileConfig struct {
	DisplayName string `mapstructure:"display_name"`
	PhotoURL    string `mapstructure:"photo_url"`
}

// ChatConfig holds chat loop settings.
type ChatConfig struct {
	DefaultAgent string `mapstructure:"default_agent"`
}

// VisualizeConfig holds trip visualization settings.
type VisualizeConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// TranscriptConfig controls /save exports.
type TranscriptConfig struct {
	Path        string `mapstructure:"path"`
	MaxSessions int    `mapstructure:"max_sessions"`
}

// LogConfig controls the logrus logger. File "-" means stderr.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		// Agent service defaults
		API: APIConfig{
			URL:     "http://localhost:8001",
			Timeout: 120 * time.Second,
		},

		// Identity service defaults
		Auth: AuthConfig{
			IdentityURL:     "https://identitytoolkit.googleapis.com/v1",
			TokenURL:        "https://securetoken.googleapis.com/v1/token",
			CredentialsPath: "~/.cymbal/credentials.json",
		},

		Chat: ChatConfig{
			DefaultAgent: "spending",
		},

		Visualize: VisualizeConfig{
			PollInterval: 5 * time.Second,
		},

		// Transcript defaults
		Transcript: TranscriptConfig{
			Path:        "~/.cymbal/transcripts.json",
			MaxSessions: 20,
		},

		Log: LogConfig{
			Level: "info",
			File:  "~/.cymbal/cymbal.log",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api url cannot be empty")
	}
	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api url must be an absolute http(s) URL, got %q", c.API.URL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	if c.Visualize.PollInterval <= 0 {
		return fmt.Errorf("visualize poll interval must be positive")
	}
	if c.Transcript.MaxSessions < 1 {
		return fmt.Errorf("transcript max sessions must be at least 1")
	}
	if !knownAgents[c.Chat.DefaultAgent] {
		return fmt.Errorf("unknown default agent %q (want spending, purchases, travel or auto)", c.Chat.DefaultAgent)
	}
	return nil
}

// ExpandPaths resolves ~ in every path setting.
func (c *Config) ExpandPaths() {
	c.Auth.CredentialsPath = ExpandHome(c.Auth.CredentialsPath)
	c.Transcript.Path = ExpandHome(c.Transcript.Path)
	if c.Log.File != "-" {
		c.Log.File = ExpandHome(c.Log.File)
	}
}

// ExpandHome expands the ~ in file paths to the user's home directory
func ExpandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		return filepath.Join(getHomeDir(), path[1:])
	}
	return path
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return "."
}
