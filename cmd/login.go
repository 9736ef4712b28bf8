package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hackmate/client"

	"github.com/spf13/cobra"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a bearer token for the chat client",
	Long: `Verify a bearer token against the configured server and store it in the
credential store. Tokens are issued with 'hackmate token issue <username>'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := strings.TrimSpace(loginToken)
		if token == "" {
			return errors.New("--token is required")
		}

		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		defer log.Sync()

		api, err := client.New(cfg.Client.ServerURL, client.WithTokenProvider(client.StaticToken(token)))
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		me, err := api.Me(ctx)
		if err != nil {
			return fmt.Errorf("token check failed: %w", err)
		}

		creds, err := loadCredentials(cfg)
		if err != nil {
			return err
		}
		creds.SetBearerToken(token)
		if err := creds.Save(cfg.DataDir()); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as @%s\n", me.Username)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Bearer token issued by the server")
	rootCmd.AddCommand(loginCmd)
}
