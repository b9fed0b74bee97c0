package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	internalApp "github.com/haierkeys/lww-note-sync/internal/app"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate the config file and print the effective values",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		path, err := resolveConfigFile(configPath)
		if err != nil {
			return err
		}

		cfg, realpath, err := internalApp.LoadConfig(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", realpath)

		shown := *cfg
		if shown.Database.Password != "" {
			shown.Database.Password = "******"
		}
		out, err := yaml.Marshal(&shown)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "# config ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().StringP("config", "c", "", "config file path")
}
