package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"cymbal-assist/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// exitInterrupted is 128 + SIGINT
const exitInterrupted = 130

func main() {
	// Load .env from the working directory; a missing file is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd(version)
	err := rootCmd.ExecuteContext(ctx)

	// Interrupted: commands have already cleaned up, report it like a shell would
	if ctx.Err() != nil {
		stop()
		os.Exit(exitInterrupted)
	}
	if err != nil {
		stop()
		os.Exit(1)
	}
}
