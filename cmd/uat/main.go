package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/uatkit/uat/internal/config"
	"github.com/uatkit/uat/internal/storage"
)

var (
	// Global flags
	dbPath     string
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
	store  storage.Storage

	// resolvedDB is the database file actually opened
	resolvedDB string
)

// noStore marks commands that run without opening the database
const noStore = "no-store"

var rootCmd = &cobra.Command{
	Use:   "uat",
	Short: "UAT cycle management for clinical software releases",
	Long: `uat manages User Acceptance Testing cycles in the shared requirements
database: pre-UAT gates, test assignment and execution, result imports,
progress dashboards and client sign-off packages.

Every change is written to the audit trail.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		logger, err = newLogger(cfg.LogLevel, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cmd.Annotations[noStore] == "true" {
			return nil
		}

		path := dbPath
		if path == "" {
			path = cfg.DBPath
		}
		resolvedDB = storage.DiscoverDatabase(path)
		logger.Debug("opening database", zap.String("path", resolvedDB))

		store, err = storage.NewStorage(cmd.Context(), &storage.Config{Path: resolvedDB, Logger: logger})
		if err != nil {
			return fmt.Errorf("failed to open database %s: %w", resolvedDB, err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: discovered)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./uat.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newLogger builds a production zap logger writing to stderr
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func closeAll() {
	if store != nil {
		if err := store.Close(); err != nil && logger != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
		store = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeAll()
		stop()
		os.Exit(1)
	}
}
