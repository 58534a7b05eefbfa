package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/core"
	"ledger/internal/invalidation"
	"ledger/internal/log"
	"ledger/internal/storage"
	"ledger/internal/worker"
)

// withApp opens the configured stores, runs fn and closes them again.
func withApp(ctx context.Context, fn func(*backend.App) error) error {
	cfg, logger := cli.LoadConfig()
	stores, err := backend.NewFactory(logger).Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("Store close error", log.FieldError, err)
		}
	}()
	return fn(backend.NewApp(stores, cfg, nil, logger))
}

func parseUserIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidUserID, a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(cmd *cobra.Command, r invalidation.Report) error {
	if r.Err != nil {
		return fmt.Errorf("invalidation incomplete after %d keys: %w", r.Deleted, r.Err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d keys (%d patterns)\n", r.Deleted, len(r.Patterns))
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQLite schema migrations",
		Long:  `Apply pending migrations to the database at SQLITE_DB_PATH and print the resulting schema version.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := cli.LoadConfig()
			version, err := storage.RunMigrations(cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			logger.Info("Migrations applied", "path", cfg.SQLiteDBPath, "version", version)
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
}

func warmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm <user-id>...",
		Short: "Precompute cache entries for users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseUserIDs(args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(app *backend.App) error {
				if failed := worker.NewWarmWorker(app.Analytics).WarmUsers(cmd.Context(), ids); failed > 0 {
					return fmt.Errorf("%d of %d warms failed", failed, len(ids))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "warmed %d users\n", len(ids))
				return nil
			})
		},
	}
}

func invalidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Purge cache entries",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "user <user-id>",
		Short: "Purge every analytics, transaction and profile entry of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseUserIDs(args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(app *backend.App) error {
				return printReport(cmd, app.Analytics.InvalidateUserAnalytics(cmd.Context(), ids[0]))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "categories",
		Short: "Purge the cached category lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app *backend.App) error {
				return printReport(cmd, app.Analytics.InvalidateCategoriesCache(cmd.Context()))
			})
		},
	})
	return cmd
}

func summaryCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "summary <user-id>",
		Short: "Print a user's analytics summary as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseUserIDs(args)
			if err != nil {
				return err
			}
			p, err := core.ParsePeriod(period)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(app *backend.App) error {
				summary, err := app.Analytics.GetAnalyticsSummary(cmd.Context(), ids[0], p)
				if err != nil {
					return err
				}
				return printJSON(cmd, summary)
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", string(core.PeriodMonth), "period (month, lastMonth, year, all)")
	return cmd
}

func publishWarmCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "publish-warm <user-id>...",
		Short: "Queue cache warm requests for the worker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseUserIDs(args)
			if err != nil {
				return err
			}
			cfg, logger := cli.LoadConfig()
			if err := cfg.RequireAMQP(); err != nil {
				return err
			}
			client := cli.ConnectAMQP(cfg, logger)
			if client == nil {
				return fmt.Errorf("cannot reach broker at %s", cfg.AMQPURL)
			}
			defer client.Close()

			for _, id := range ids {
				if err := client.PublishCacheWarm(cmd.Context(), id, reason); err != nil {
					return fmt.Errorf("publish warm for user %d: %w", id, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d warm requests\n", len(ids))
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "reason recorded in the message")
	return cmd
}
