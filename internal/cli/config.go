package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configKeys are the settings the CLI reads from its config file
var configKeys = map[string]string{
	"output":       "default output format: table, json, yaml",
	"store":        "scan store driver: memory, sqlite, postgres",
	"db_path":      "sqlite database path",
	"log_level":    "debug, info, warn, error",
	"output_dir":   "directory generations are written below",
	"template_dir": "directory of template overrides",
	"metrics_addr": "listen address of the scheduler metrics endpoint",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigListCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive first-time setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(os.Stdin)

			ask := func(prompt, def string) string {
				fmt.Printf("%s [%s]: ", prompt, def)
				answer, _ := reader.ReadString('\n')
				answer = strings.TrimSpace(answer)
				if answer == "" {
					return def
				}
				return answer
			}

			viper.Set("store", ask("Scan store (memory/sqlite/postgres)", "sqlite"))
			if viper.GetString("store") == "sqlite" {
				dir, err := configDir()
				if err != nil {
					return err
				}
				viper.Set("db_path", ask("SQLite database path", filepath.Join(dir, "iamgen.db")))
			}
			viper.Set("output_dir", ask("Generation output directory", "./generated"))
			viper.Set("output", ask("Default output format (table/json/yaml)", "table"))

			path, err := writeConfig()
			if err != nil {
				return err
			}
			fmt.Printf("Configuration saved to %s\n", path)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := configKeys[args[0]]; !ok {
				return fmt.Errorf("unknown config key %q, run 'iamgen config list' for the supported keys", args[0])
			}
			viper.Set(args[0], args[1])
			if _, err := writeConfig(); err != nil {
				return err
			}
			fmt.Printf("Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val := viper.Get(args[0])
			if val == nil {
				fmt.Printf("%s: (not set)\n", args[0])
			} else {
				fmt.Printf("%s: %v\n", args[0], val)
			}
			return nil
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([]string, 0, len(configKeys))
			for k := range configKeys {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			t := NewTable("KEY", "VALUE", "DESCRIPTION")
			for _, k := range keys {
				val := viper.GetString(k)
				if val == "" {
					val = "-"
				}
				t.AddRow(k, val, configKeys[k])
			}
			t.Render()
			return nil
		},
	}
}

func writeConfig() (string, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("failed to create config directory: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
