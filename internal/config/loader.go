package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CYMBAL_API_URL.
const EnvPrefix = "CYMBAL"

// Load builds the configuration from defaults, an optional YAML file,
// CYMBAL_* environment variables and whatever flags were bound on v.
// An empty configFile falls back to ~/.cymbal/config.yaml if it exists.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v, NewConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(ExpandHome(configFile))
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ExpandHome("~/.cymbal"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.ExpandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api.url", d.API.URL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("auth.api_key", d.Auth.APIKey)
	v.SetDefault("auth.identity_url", d.Auth.IdentityURL)
	v.SetDefault("auth.token_url", d.Auth.TokenURL)
	v.SetDefault("auth.credentials_path", d.Auth.CredentialsPath)
	v.SetDefault("profile.display_name", d.Profile.DisplayName)
	v.SetDefault("profile.photo_url", d.Profile.PhotoURL)
	v.SetDefault("chat.default_agent", d.Chat.DefaultAgent)
	v.SetDefault("visualize.poll_interval", d.Visualize.PollInterval)
	v.SetDefault("transcript.path", d.Transcript.Path)
	v.SetDefault("transcript.max_sessions", d.Transcript.MaxSessions)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}
