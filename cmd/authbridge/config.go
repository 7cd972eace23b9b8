package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	bridge "github.com/goliatone/go-auth-bridge"
)

func configCmd() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration and validate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			printed := cfg
			if !showSecrets {
				printed = redact(printed)
			}

			out, err := yaml.Marshal(printed)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))

			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "configuration is valid")
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print connection strings as configured")

	return cmd
}

func redact(cfg bridge.Config) bridge.Config {
	if cfg.Database.DSN != "" {
		cfg.Database.DSN = redacted
	}
	if cfg.Cache.RedisURL != "" {
		cfg.Cache.RedisURL = redacted
	}
	return cfg
}

const redacted = "********"

func loadConfig() (bridge.Config, error) {
	if configPath == "" {
		return bridge.DefaultConfig(), nil
	}
	return bridge.LoadConfig(configPath)
}
