// Package cmd implements the hackmate command line.
package cmd

import (
	"fmt"
	"os"

	"hackmate/config"
	"hackmate/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	debug   bool
	dataDir string
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "hackmate",
	Short: "Conversational assistant for hackathon teams and friends",
	Long: `hackmate is an assistant for a hackathon community platform.

It answers questions about your friends, teams and hackathons, and can send
friend requests, create teams, invite members and post listings after you
confirm each change.

Quick Start:
  hackmate user add alice             # create an account
  hackmate hackathon add spring-2026 "Spring Hack 2026"
  hackmate token issue alice          # print a bearer token
  hackmate serve                      # run the API server
  hackmate login --token <token>      # store the token for chat
  hackmate chat                       # open the terminal chat`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if dataDir != "" {
			os.Setenv("HACKMATE_DATA_DIR", dataDir)
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute(v string) {
	if v != "" {
		rootCmd.Version = v
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the data directory")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig loads configuration and installs the process logger. logToFile
// sends log output to the data directory instead of stderr.
func loadConfig(logToFile bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	cfg.Debug = cfg.Debug || debug

	logDir := ""
	if logToFile {
		logDir = cfg.DataDir()
	}
	log, err := config.InitLogger(logDir, cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func openStore(cfg *config.Config, log *zap.Logger) (*storage.Store, error) {
	store, err := storage.Open(cfg.DatabasePath(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func loadCredentials(cfg *config.Config) (*config.CredentialStore, error) {
	creds := config.NewCredentialStore(cfg.Client.SecurityMethod, cfg.Client.SSHKeyPath)
	if pass := os.Getenv("HACKMATE_SSH_PASSPHRASE"); pass != "" {
		creds.SetPassphrase(pass)
	}
	if err := creds.Load(cfg.DataDir()); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return creds, nil
}
