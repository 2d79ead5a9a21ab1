package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dl-alexandre/zsync/internal/config"
	"github.com/dl-alexandre/zsync/internal/utils"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Commands for managing zsync defaults (host, user, remote root, index file, excludes)",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the configuration file merged with ZSYNC_* environment overrides",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value. Keys are the JSON names shown by 'config show'
(for example hostname, remoteRoot, excludes, transferMode, timeout).
List values are comma separated.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	Long:  "Reset all configuration settings to their default values",
	RunE:  runConfigReset,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg, err := config.Load()
	if err != nil {
		return out.WriteError("config.show", utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).Build())
	}

	return out.WriteSuccess("config.show", cfg)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	key := args[0]
	value := args[1]

	cfg, err := config.Load()
	if err != nil {
		return out.WriteError("config.set", utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).Build())
	}

	if err := cfg.Set(key, value); err != nil {
		return out.WriteError("config.set", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).
			WithContext("key", key).Build())
	}

	if err := cfg.Save(); err != nil {
		return out.WriteError("config.set", utils.NewCLIError(utils.ErrCodeUnknown,
			fmt.Sprintf("Failed to save configuration: %v", err)).Build())
	}

	out.Log("Configuration updated: %s = %s", key, value)
	return out.WriteSuccess("config.set", map[string]interface{}{
		"key":   key,
		"value": value,
	})
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	cfg := config.DefaultConfig()
	if err := cfg.Save(); err != nil {
		return out.WriteError("config.reset", utils.NewCLIError(utils.ErrCodeUnknown,
			fmt.Sprintf("Failed to reset configuration: %v", err)).Build())
	}

	out.Log("Configuration reset to defaults")
	return out.WriteSuccess("config.reset", cfg)
}
