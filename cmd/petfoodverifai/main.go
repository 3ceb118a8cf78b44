package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"petfoodverifai/internal/app"
	"petfoodverifai/internal/config"
	"petfoodverifai/internal/logger"
)

const shutdownTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:           "petfoodverifai",
	Short:         "Pet food suitability analysis API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis API server",
	RunE:  runServe,
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Print an API token for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

var cleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old metric records, expired chat drafts and stale scrape failures",
	RunE:  runCleanup,
}

var (
	housekeepingEvery time.Duration
	retentionDays     int
)

func init() {
	serveCmd.Flags().DurationVar(&housekeepingEvery, "housekeeping-interval", time.Hour, "How often old metrics and drafts are removed")
	serveCmd.Flags().IntVar(&retentionDays, "days", 30, "Keep metric records for the last N days")
	cleanupCmd.Flags().IntVar(&retentionDays, "days", 30, "Keep metric records for the last N days")

	rootCmd.AddCommand(serveCmd, tokenCmd, cleanupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setup() (*app.App, *zap.Logger, error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	application, err := app.New(cfg, zl)
	if err != nil {
		return nil, nil, err
	}
	return application, zl, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	application, zl, err := setup()
	if err != nil {
		return err
	}
	defer zl.Sync()
	defer application.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := application.APIServer(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return application.RunHousekeeping(gctx, housekeepingEvery, retentionDays)
	})
	g.Go(func() error {
		<-gctx.Done()
		zl.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	zl.Info("server exited")
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	application, zl, err := setup()
	if err != nil {
		return err
	}
	defer zl.Sync()
	defer application.Close()

	token, err := application.IssueToken(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, token)
	return nil
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	application, zl, err := setup()
	if err != nil {
		return err
	}
	defer zl.Sync()
	defer application.Close()

	report, err := application.Housekeep(cmd.Context(), retentionDays)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Printf("Successfully removed %d old metric records, %d expired drafts and %d stale scrape failures.\n",
		report.Metrics, report.Drafts, report.ScrapeFailures)
	return nil
}
