// Command fakeagent serves the in-process fake of the agent service so the
// CLI can be exercised without the real backend.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"cymbal-assist/internal/config"
	"cymbal-assist/internal/fakeagent"
	"cymbal-assist/internal/logging"
)

func main() {
	addr := flag.String("addr", ":8001", "listen address")
	token := flag.String("token", "", "only accept this bearer token (empty accepts any)")
	readyAfter := flag.Int("ready-after", 3, "list calls before a pending render settles")
	failRenders := flag.Bool("fail-renders", false, "settle renders as failed")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger, closer, err := logging.New(config.LogConfig{Level: *logLevel, File: "-"})
	if err != nil {
		logrus.WithError(err).Fatal("invalid logging configuration")
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fake := fakeagent.New(fakeagent.Options{
		Token:       *token,
		ReadyAfter:  *readyAfter,
		FailRenders: *failRenders,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           fake.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.WithFields(logrus.Fields{
		"addr":        *addr,
		"ready_after": *readyAfter,
	}).Info("fake agent service listening")

	if err := runServer(ctx, srv); err != nil {
		logger.WithError(err).Error("server error")
		stop()
		os.Exit(1)
	}
	logger.Info("fake agent service stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
