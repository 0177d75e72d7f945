package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist/internal/config"
	"cymbal-assist/internal/logging"
)

func TestNewWritesToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "cymbal.log")

	logger, closer, err := logging.New(config.LogConfig{Level: "debug", File: path})
	require.NoError(t, err)

	logger.WithField("agent", "travel").Debug("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "agent=travel")
	assert.Contains(t, string(data), "msg=hello")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, _, err := logging.New(config.LogConfig{Level: "chatty", File: "-"})
	assert.Error(t, err)
}
