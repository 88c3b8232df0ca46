package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"recsys-orchestrator/internal/di"
	"recsys-orchestrator/internal/infra/config"
	"recsys-orchestrator/internal/infra/logger"
	"recsys-orchestrator/internal/infra/otel"
)

const dateFlagLayout = "20060102"

var verbose bool

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "recsys",
		Short: "Publication recommendations from client chat history",
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newRunCmd(), newBuildIndexCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type runtime struct {
	cfg *config.Config
	log *slog.Logger
	app *di.ApplicationComponents
	// close releases the components and flushes telemetry
	close func()
}

func setup(ctx context.Context) (*runtime, error) {
	cfg := config.Load()

	shutdownOTel, err := otel.InitProvider(ctx, cfg.Env, cfg.OTel)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	level := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if verbose {
		level = slog.LevelDebug
	}
	log := logger.NewWithLevel(level, cfg.OTel.Enabled)
	slog.SetDefault(log)

	app, err := di.NewApplicationComponents(ctx, cfg, log)
	if err != nil {
		_ = shutdownOTel(context.Background())
		return nil, err
	}
	return &runtime{
		cfg: cfg,
		log: log,
		app: app,
		close: func() {
			app.Close()
			_ = shutdownOTel(context.Background())
		},
	}, nil
}

func newRunCmd() *cobra.Command {
	var (
		date   string
		client string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run recommendations for scheduled clients, or one client",
		RunE: func(cmd *cobra.Command, args []string) error {
			runDate, err := time.Parse(dateFlagLayout, date)
			if err != nil {
				return fmt.Errorf("invalid --date %q, want YYYYMMDD: %w", date, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := setup(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			summary, err := rt.app.Batch.Run(ctx, runDate, client)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}
			if summary.Failed > 0 && summary.Succeeded == 0 {
				return fmt.Errorf("all %d clients failed", summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", time.Now().Format(dateFlagLayout), "Recommendation date (YYYYMMDD)")
	cmd.Flags().StringVar(&client, "client", "", "Only run the client with this company name")
	return cmd
}

func newBuildIndexCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "build-index",
		Short: "Build the publication passage index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := setup(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			if !force {
				if err := rt.app.Indexer.EnsureIndex(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "index ready")
				return nil
			}
			n, err := rt.app.Indexer.Rebuild(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "index rebuilt: %d chunks\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even when an index exists")
	return cmd
}
