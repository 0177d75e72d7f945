package fakeagent_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist/internal/fakeagent"
)

func TestRequestsAreLoggedThroughLogrus(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	srv := httptest.NewServer(fakeagent.New(fakeagent.Options{Logger: logger}).Router())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/chat", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.Eventually(t, func() bool { return len(hook.AllEntries()) == 2 }, 2*time.Second, 10*time.Millisecond)
	entries := hook.AllEntries()
	assert.Contains(t, entries[0].Message, "GET")
	assert.Contains(t, entries[0].Message, "/health")
	assert.Contains(t, entries[1].Message, "POST")
	assert.Contains(t, entries[1].Message, "401")
}

func TestNilLoggerIsQuiet(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(fakeagent.New(fakeagent.Options{}).Router())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
