package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eventia/backend/internal/auth"
	"github.com/eventia/backend/internal/registrations"
	"github.com/eventia/backend/internal/seed"
	"github.com/eventia/backend/pkg/queue"
	"github.com/eventia/backend/pkg/redis"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.connect(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSeedCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default accounts and sample events",
		Long: `Create the admin and user accounts and two sample events.

The seed is skipped when the admin account already exists, so running it
repeatedly is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.connect(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer e.close()

			users := auth.NewService(auth.NewRepository(e.pool), nil)
			seeded, err := seed.NewSeeder(e.pool, users, e.logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "sample data created")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "already seeded, nothing to do")
			}
			return nil
		},
	}
}

func newReconcileCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute event attendee counters from registrations",
		Long: `Recompute every event's attendees counter from its registration rows.

Counters only drift when registrations are removed outside the API, for
example when a user row is deleted by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()

			repo := registrations.NewRepository(e.pool, nil)
			ledger := registrations.NewService(repo, nil, e.logger)
			n, err := ledger.Reconcile(cmd.Context(), repo)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d event(s) corrected\n", n)
			return nil
		},
	}
}

func newQueueCommand(opts *options) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the notification delivery queue",
	}
	queueCmd.AddCommand(&cobra.Command{
		Use:   "pending",
		Short: "Print the number of undelivered notification jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			cfg, err := loadRedisConfig()
			if err != nil {
				return err
			}
			rdb, err := redis.NewClient(cmd.Context(), cfg.Addr, cfg.Password, cfg.DB, logger)
			if err != nil {
				return err
			}
			defer rdb.Close()

			n, err := queue.NewQueue(rdb.Client, logger).Pending(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d pending\n", n)
			return nil
		},
	})
	return queueCmd
}
