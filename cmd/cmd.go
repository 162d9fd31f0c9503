package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frahmantamala/hr-approval/internal"
)

var rootCmd = &cobra.Command{
	Use:   "hr-approval",
	Short: "HR approval workflow engine",
	Long:  `Approval workflows and authority resolution for leave requests and timesheets.`,
}

// configDir is where config.yml is looked up outside production.
var configDir string

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads config.yml from dir, with ENV_* variables overriding it.
// In production and containers the file is skipped and only the environment
// is read.
func loadConfig(dir string) (*internal.Config, error) {
	if configFromEnv() {
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config from %s: %w", dir, err)
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	return &cfg, nil
}

func configFromEnv() bool {
	return appEnv() == "production" || os.Getenv("DOCKER_ENV") == "true"
}

func appEnv() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return "development"
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "directory containing config.yml")
	rootCmd.AddCommand(httpServerCmd, migrateCmd, seedCmd)
}
