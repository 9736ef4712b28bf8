package cmd

import (
	"errors"
	"fmt"

	"hackmate/bus"
	"hackmate/client"
	"hackmate/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the terminal chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		defer log.Sync()

		creds, err := loadCredentials(cfg)
		if err != nil {
			return err
		}
		token := creds.BearerToken()
		if token == "" {
			return errors.New("not logged in, run `hackmate login --token <token>` first")
		}

		api, err := client.New(cfg.Client.ServerURL,
			client.WithTokenProvider(client.StaticToken(token)),
			client.WithLogger(log))
		if err != nil {
			return err
		}

		events := bus.New(log)
		defer events.Close()

		conv := client.NewConversation(api,
			client.WithBus(events),
			client.WithStepDelay(cfg.StepDelay()),
			client.WithConversationLogger(log))

		username := ""
		if me, err := api.Me(cmd.Context()); err == nil {
			username = me.Username
		} else if client.IsUnauthorized(err) {
			return fmt.Errorf("stored token was rejected, log in again: %w", err)
		} else {
			log.Warn("could not resolve current user", zap.Error(err))
		}

		view := ui.NewAppView(cmd.Context(), conv, api, events, username)
		defer view.Close()

		p := tea.NewProgram(view, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("chat exited: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
