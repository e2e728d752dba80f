package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/sqlgate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sqlgate configuration",
}

func configFilePath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.ConfigPath()
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}

		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "Config file already exists at %s\n", path)
			return nil
		}

		if err := config.Save(path, config.Default()); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Fprintf(os.Stdout, "Config file created at %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}

		cfg := config.Default()
		if err := config.LoadFile(path, &cfg); err != nil {
			return err
		}
		if err := config.SetField(&cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if err := config.Save(path, cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Fprintf(os.Stdout, "Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig, nil)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}

		fmt.Fprint(os.Stdout, string(data))
		return nil
	},
}

func init() {
	configCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}
