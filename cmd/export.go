package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"hackmate/storage"

	"github.com/spf13/cobra"
)

var (
	exportUser   string
	exportFormat string
	exportOutput string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's assistant transcript",
	Long: `Export the newest messages of a user's assistant transcript as JSON, YAML or
Markdown. Without --output the transcript is written to stdout; a directory
argument gets a generated file name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportUser == "" {
			return errors.New("--user is required")
		}
		format, err := storage.ParseExportFormat(exportFormat)
		if err != nil {
			return err
		}

		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		store, err := openStore(cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		u, err := store.UserByUsername(cmd.Context(), exportUser)
		if err != nil {
			return fmt.Errorf("user %s: %w", exportUser, err)
		}
		msgs, err := store.RecentMessages(cmd.Context(), u.ID, exportLimit)
		if err != nil {
			return err
		}
		t := storage.Transcript{Username: u.Username, ExportedAt: time.Now().UTC(), Messages: msgs}

		if exportOutput == "" {
			return storage.WriteTranscript(cmd.OutOrStdout(), t, format)
		}
		path := exportOutput
		if isDir(path) {
			path = storage.GenerateExportPath(path, u.Username, format)
		}
		if err := storage.ExportToFile(path, t, format); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d messages to %s\n", len(msgs), path)
		return nil
	},
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func init() {
	exportCmd.Flags().StringVar(&exportUser, "user", "", "Username whose transcript to export")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json, yaml, markdown")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file or directory (default stdout)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", storage.DefaultTranscriptLimit, "Maximum messages to export")
	rootCmd.AddCommand(exportCmd)
}
