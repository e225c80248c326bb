package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shineum/bulkmail-lite/internal/campaign"
	"github.com/shineum/bulkmail-lite/internal/recipients"
	"github.com/shineum/bulkmail-lite/internal/template"
)

var testCmd = &cobra.Command{
	Use:   "test TEMPLATE.html SUBJECT",
	Short: "Send a test batch to the configured test recipients",
	Long: `Test runs the same campaign machinery as send, but seeds it with the
fixed test-recipient list from the configuration instead of a CSV file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		templatePath, subject := args[0], args[1]

		if filepath.Ext(templatePath) != ".html" {
			return fmt.Errorf("template file must have an .html extension, got %q", templatePath)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.TestRecipients) == 0 {
			return fmt.Errorf("no test recipients configured")
		}

		renderer, err := template.Load(templatePath)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Files.LogDir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		files := cfg.RunFiles(time.Now())

		logger, closer, err := setupRunLogger(files.Log, cfg.Logging.Level)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx := cmd.Context()
		prov, err := selectProvider(ctx, cfg)
		if err != nil {
			return err
		}

		delay, err := cfg.SendDelay()
		if err != nil {
			return err
		}

		initial := make([]recipients.Record, 0, len(cfg.TestRecipients))
		for _, addr := range cfg.TestRecipients {
			initial = append(initial, recipients.NewRecord(addr.Name, addr.Email))
		}

		runner := campaign.New(campaign.Options{
			Subject:           subject,
			FromName:          cfg.From.Name,
			FromEmail:         cfg.From.Email,
			ReplyToName:       cfg.ReplyTo.Name,
			ReplyToEmail:      cfg.ReplyTo.Email,
			PerRecipient:      cfg.Send.PerRecipient,
			Delay:             delay,
			SourceFile:        "test-recipients",
			RetryPath:         files.Retry,
			BadEmailPath:      files.BadEmails,
			BadEmailRetryPath: files.BadEmailsRetry,
			StatsPath:         files.Stats,
		}, prov, renderer, logger)

		if !confirm(fmt.Sprintf("You are about to send a test mail to %d recipients. Do you want to continue", len(initial))) {
			fmt.Println("Aborted.")
			return nil
		}

		log.Info("starting test batch",
			"recipients", len(initial),
			"provider", prov.Name(),
			"subject", subject,
		)

		if err := runner.Run(ctx, initial); err != nil {
			return fmt.Errorf("test batch failed: %w", err)
		}

		log.Info("test batch finished",
			"recipients", len(initial),
			"failed_attempts", runner.Failed(),
		)
		return nil
	},
}
