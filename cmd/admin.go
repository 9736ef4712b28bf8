package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username> [display name]",
	Short: "Create a user",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		store, err := openStore(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		display := ""
		if len(args) == 2 {
			display = args[1]
		}
		u, err := store.CreateUser(cmd.Context(), args[0], display)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created @%s (id %d)\n", u.Username, u.ID)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		store, err := openStore(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		users, err := store.ListUsers(cmd.Context())
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(cmd.OutOrStdout(), "%-6d @%-20s %s\n", u.ID, u.Username, u.DisplayName)
		}
		return nil
	},
}

var hackathonCmd = &cobra.Command{
	Use:   "hackathon",
	Short: "Manage hackathons",
}

var hackathonAddCmd = &cobra.Command{
	Use:   "add <slug> <name>",
	Short: "Create a hackathon",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		store, err := openStore(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		h, err := store.CreateHackathon(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("failed to create hackathon: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created hackathon %s (%s)\n", h.Slug, h.Name)
		return nil
	},
}

var tokenLabel string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <username>",
	Short: "Issue a bearer token for a user",
	Long:  "Issue a bearer token for a user. The token is printed once and only its hash is stored.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		store, err := openStore(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		u, err := store.UserByUsername(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("user %s: %w", args[0], err)
		}
		token, err := store.IssueToken(cmd.Context(), u.ID, tokenLabel)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().StringVar(&tokenLabel, "label", "cli", "Label stored with the token")

	userCmd.AddCommand(userAddCmd, userListCmd)
	hackathonCmd.AddCommand(hackathonAddCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
	rootCmd.AddCommand(userCmd, hackathonCmd, tokenCmd)
}
