package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eventia/backend/config"
	"github.com/eventia/backend/pkg/database"
)

// options are the global flags shared by every subcommand.
type options struct {
	logLevel string
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "eventctl",
		Short: "eventctl - operator tool for the events backend",
		Long: `eventctl runs maintenance tasks directly against the events database.

Connection settings come from the same environment variables (and .env file)
as the API server: DATABASE_URL or DB_*, REDIS_ADDR.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newMigrateCommand(opts),
		newSeedCommand(opts),
		newReconcileCommand(opts),
		newQueueCommand(opts),
	)
	return root
}

func (o *options) logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return config.Build()
}

// env loads configuration, a logger and a migrated database pool.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func (o *options) connect(ctx context.Context, migrate bool) (*env, error) {
	logger, err := o.logger()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &env{cfg: cfg, logger: logger, pool: pool}, nil
}

func (e *env) close() {
	e.pool.Close()
	_ = e.logger.Sync()
}

func loadRedisConfig() (config.RedisConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.RedisConfig{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.Redis.Addr == "" {
		return config.RedisConfig{}, errors.New("REDIS_ADDR is not set")
	}
	return cfg.Redis, nil
}
