package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
	"github.com/billmal071/mangaunlock/internal/config"
)

// secretKeys are printed redacted
var secretKeys = map[string]bool{
	"session.cookie": true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and modify mangaunlock configuration.

Configuration is stored in ~/.config/mangaunlock/config.yaml. Every key can
also be set from the environment, e.g. MANGAUNLOCK_SESSION_COOKIE.

Examples:
  mangaunlock config get purchase.pacing_interval
  mangaunlock config set purchase.pacing_interval 500ms
  mangaunlock config set session.cookie "SESSDATA=..."
  mangaunlock config set notifications.enabled true`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		value := config.GetValue(key)
		if value == nil {
			return fmt.Errorf("key not found: %s", key)
		}
		fmt.Printf("%s = %v\n", key, displayValue(key, fmt.Sprint(value)))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		value := args[1]

		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("failed to set config: %w", err)
		}

		Successf("Set %s = %s", key, displayValue(key, value))
		fmt.Printf("Config saved to: %s\n", config.GetConfigPath())
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Config file: %s\n", config.GetConfigPath())
		fmt.Printf("Database:    %s\n", config.GetDBPath())
		fmt.Printf("Config dir:  %s\n", config.GetConfigDir())
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}

func displayValue(key, value string) string {
	if secretKeys[key] && value != "" {
		return bilimanga.Credential(value).String()
	}
	return value
}
