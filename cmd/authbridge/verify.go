package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"

	bridge "github.com/goliatone/go-auth-bridge"
	"github.com/goliatone/go-auth-bridge/cache"
	"github.com/goliatone/go-auth-bridge/provider"
)

func verifyCmd() *cobra.Command {
	var (
		account string
		app     string
	)

	cmd := &cobra.Command{
		Use:   "verify [token]",
		Short: "Authenticate a token with the configured provider and print the payload",
		Long: `Authenticate a token with the configured provider and print the normalized payload.
The token is read from the first argument, or from stdin when the argument is "-".
No local user record is created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			token, err := readToken(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			timeout, connectTimeout := cfg.RemoteAPI.Timeouts()
			p, err := provider.Select(cfg, provider.Dependencies{
				HTTPClient: bridge.NewHTTPClient(timeout, connectTimeout),
				Cache:      cache.NewMemory(),
				Logger:     bridge.DefaultLogger(),
			})
			if err != nil {
				return err
			}

			accountHeader, appHeader := cfg.ContextHeaderNames()
			headers := map[string]string{}
			if account != "" {
				headers[accountHeader] = account
			}
			if app != "" {
				headers[appHeader] = app
			}

			payload, err := p.Authenticate(cmd.Context(), token, headers)
			if err != nil {
				return fmt.Errorf("token rejected: %s", bridge.ErrorReason(err))
			}

			fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(payload))
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account id forwarded with the token")
	cmd.Flags().StringVar(&app, "app", "", "App key forwarded with the token")

	return cmd
}

func readToken(in io.Reader, arg string) (string, error) {
	if arg != "-" {
		return strings.TrimSpace(arg), nil
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read token from stdin: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
