package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	internalApp "github.com/haierkeys/lww-note-sync/internal/app"
	"github.com/haierkeys/lww-note-sync/internal/dao"
	"github.com/haierkeys/lww-note-sync/internal/upgrade"
	"github.com/haierkeys/lww-note-sync/pkg/logger"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Apply pending replica database migrations",
	Long: `Apply pending replica database migrations.

The server runs them on start when database.auto-migrate is on. This command
runs them explicitly, and is safe to repeat: applied versions are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		path, err := resolveConfigFile(configPath)
		if err != nil {
			return err
		}

		appConfig, configRealpath, err := internalApp.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loading config from: %s\n", configRealpath)

		lg, err := logger.NewLogger(appConfig.LoggerConfig())
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = lg.Sync() }()

		dbConfig := appConfig.Database
		dbConfig.Enabled = true
		db, err := dao.NewDBEngine(dbConfig, false)
		if err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		defer func() { _ = dao.CloseDB(db) }()

		ctx := context.Background()
		m := upgrade.NewMigrationManager(db, lg)
		n, err := m.Run(ctx, internalApp.Version)
		if err != nil {
			return fmt.Errorf("upgrade failed: %w", err)
		}

		applied, err := m.Applied(ctx)
		if err != nil {
			return err
		}
		for _, v := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-8s %s  %s\n", v.Version, v.AppliedAt.Format("2006-01-02 15:04:05"), v.Description)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database upgrade completed, %d migration(s) applied\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
	upgradeCmd.Flags().StringP("config", "c", "", "config file path")
}
