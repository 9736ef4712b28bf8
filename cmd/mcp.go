package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hackmate/mcp"
	"hackmate/tools"

	"github.com/spf13/cobra"
)

var mcpUser string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the read-only tools over MCP stdio",
	Long: `Serve the read-only assistant tools (list_friends, list_teams, search_users,
pending_requests, web_search) to an MCP client over stdin/stdout, acting as
a fixed user. Tools that change data are never exposed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if mcpUser == "" {
			return errors.New("--user is required")
		}

		// stdout carries the protocol, so logs always go to the data directory.
		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openStore(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		user, err := store.UserByUsername(ctx, mcpUser)
		if err != nil {
			return fmt.Errorf("user %s: %w", mcpUser, err)
		}

		searcher, closeSearch, err := buildSearch(ctx, cfg.Search, log)
		if err != nil {
			return err
		}
		defer closeSearch()

		registry, err := tools.NewRegistry()
		if err != nil {
			return err
		}
		exec := tools.NewExecutor(registry, store, searcher, log)
		return mcp.ServeStdio(ctx, mcp.NewServer(exec, user, rootCmd.Version, log))
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpUser, "user", "", "Username the tools act as")
	rootCmd.AddCommand(mcpCmd)
}
