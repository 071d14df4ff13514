package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nutriscan/nutriscan-be/config"
	"github.com/nutriscan/nutriscan-be/db/sqldb"
	"github.com/nutriscan/nutriscan-be/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "nutriscan",
	Short:         "NutriScan backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logger, err = logging.New(cfg.IsRelease()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()
		return database.Migrate(logger)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [products.yaml]",
	Short: "Load catalog products from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()
		products, err := readProducts(args[0])
		if err != nil {
			return err
		}
		added, err := seedProducts(cmd.Context(), database, products, logger)
		if err != nil {
			return err
		}
		logger.Info("seeded catalog", zap.Int("added", added), zap.Int("inFile", len(products)))
		return nil
	},
}

var revokeAdmin bool

var adminCmd = &cobra.Command{
	Use:   "admin [uid]",
	Short: "Grant a user the admin role, or revoke it with --revoke",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()
		return setAdmin(cmd.Context(), database, args[0], !revokeAdmin)
	},
}

func init() {
	adminCmd.Flags().BoolVar(&revokeAdmin, "revoke", false, "remove the admin role instead")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, adminCmd)
}

func openDatabase() (*sqldb.SQLDB, error) {
	sqldb.SetQueryLog(logger)
	database, err := sqldb.GetDatabase(&cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	return database, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
