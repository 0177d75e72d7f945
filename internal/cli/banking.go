package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cymbal-assist/internal/agentapi"
	"cymbal-assist/internal/scratch"
	"cymbal-assist/internal/travel"
	"cymbal-assist/internal/visualize"
)

func newTransactionsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List your recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.printTransactions(cmd.Context(), limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of transactions to show (0 for all)")

	return cmd
}

// printTransactions fetches and prints transactions, newest first
func (a *App) printTransactions(ctx context.Context, limit int) error {
	txs, err := a.client.Transactions(ctx)
	if err != nil {
		if errors.Is(err, agentapi.ErrUnauthenticated) {
			return errors.New("not signed in, run `cymbal login` first")
		}
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	a.display.PrintTransactions(agentapi.NewestFirst(txs, limit))
	return nil
}

func newVisualizeCmd(app *App) *cobra.Command {
	var tripID, prompt, imagePath string

	cmd := &cobra.Command{
		Use:   "visualize",
		Short: "Render a visual of you on your next trip and wait for the video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			req := visualize.Request{TripID: tripID, Prompt: prompt}
			if imagePath != "" {
				image, err := readImage(imagePath)
				if err != nil {
					return err
				}
				req.Image, req.ImageName = image, filepath.Base(imagePath)
			}

			files, err := scratch.New("cymbal-")
			if err != nil {
				return err
			}
			defer files.ReleaseAll()

			task := visualize.New(app.client, files,
				visualize.WithInterval(app.cfg.Visualize.PollInterval),
				visualize.WithLogger(app.logger),
			)
			defer task.Close()

			if err := task.Start(ctx, req); err != nil {
				return err
			}

			app.display.ShowSpinner("Rendering your trip visual")
			select {
			case <-task.Done():
			case <-ctx.Done():
				task.Cancel()
			}
			app.display.StopSpinner()

			result, err := task.Result()
			app.display.PrintVisualization(task.State(), result, err)
			if task.State() == visualize.StateFailed {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&tripID, "trip", "t", "", "trip id")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "what the visual should show")
	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "reference photo of yourself")
	_ = cmd.MarkFlagRequired("trip")

	return cmd
}

func newSavingsCmd(app *App) *cobra.Command {
	var destination string
	var monthly float64

	cmd := &cobra.Command{
		Use:   "savings [destination]",
		Short: "Estimate how long saving for a trip will take",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				destination = args[0]
			}
			if strings.TrimSpace(destination) == "" {
				return errors.New("a destination is required")
			}
			app.display.PrintSavingsPlan(travel.Timeline(destination, monthly))
			return nil
		},
	}
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "trip destination (e.g. Paris)")
	cmd.Flags().Float64VarP(&monthly, "monthly", "m", 0, "amount you can save per month")

	return cmd
}

func newHealthCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the agent service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := app.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			app.display.PrintSuccess(fmt.Sprintf("%s %s is %s", status.Service, status.Version, status.Status))
			return nil
		},
	}
}
