package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "authbridge",
		Short:         "Token authentication bridge",
		Long:          `authbridge verifies bearer tokens against Firebase or a remote user API and mirrors the identity into a local user table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv("AUTHBRIDGE_CONFIG")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "Path to the YAML config file (env: AUTHBRIDGE_CONFIG)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
