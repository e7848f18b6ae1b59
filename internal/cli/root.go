package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	outputFormat string
	noColor      bool
	storeDriver  string
	application  *app
)

var rootCmd = &cobra.Command{
	Use:   "iamgen",
	Short: "iamgen - scan cloud IAM and generate Terraform",
	Long: `iamgen scans the IAM configuration of an AWS account or Azure subscription,
lets you query and select the discovered identities, visualizes how they relate,
and generates Terraform code plus an import script that brings them under management.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		if !needsStore(cmd) {
			return nil
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		application = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if application == nil {
			return nil
		}
		return application.Close()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.iamgen/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "scan store driver: memory, sqlite, postgres (overrides config)")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newSelectCmd())
	rootCmd.AddCommand(newGraphCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newServeCmd())
}

// needsStore reports whether cmd works on scans; config, help and completion commands do not
func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "config", "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".iamgen"), nil
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		_ = os.MkdirAll(dir, 0700)
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("IAMGEN")
	viper.AutomaticEnv()

	viper.SetDefault("output", "table")

	_ = viper.ReadInConfig()
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}
