package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shineum/bulkmail-lite/internal/campaign"
	"github.com/shineum/bulkmail-lite/internal/template"
)

var sendCmd = &cobra.Command{
	Use:   "send TEMPLATE.html RECIPIENTS.csv SUBJECT",
	Short: "Send the campaign to every recipient in the CSV",
	Long: `Send renders the HTML template for every valid recipient in the CSV
file and dispatches one message per recipient. Failed sends are retried
twice; recipients still failing afterwards remain in the retry file.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		templatePath, csvPath, subject := args[0], args[1], args[2]

		if filepath.Ext(templatePath) != ".html" {
			return fmt.Errorf("template file must have an .html extension, got %q", templatePath)
		}
		if filepath.Ext(csvPath) != ".csv" {
			return fmt.Errorf("recipient file must have a .csv extension, got %q", csvPath)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
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

		runner := campaign.New(campaign.Options{
			Subject:           subject,
			FromName:          cfg.From.Name,
			FromEmail:         cfg.From.Email,
			ReplyToName:       cfg.ReplyTo.Name,
			ReplyToEmail:      cfg.ReplyTo.Email,
			PerRecipient:      cfg.Send.PerRecipient,
			Delay:             delay,
			SourceFile:        csvPath,
			RetryPath:         files.Retry,
			BadEmailPath:      files.BadEmails,
			BadEmailRetryPath: files.BadEmailsRetry,
			StatsPath:         files.Stats,
		}, prov, renderer, logger)

		initial, err := runner.LoadInitial()
		if err != nil {
			return err
		}
		if len(initial) == 0 {
			return fmt.Errorf("no valid recipients in %s", csvPath)
		}

		if !confirm(fmt.Sprintf("You are about to send to %d recipients. Do you want to continue", len(initial))) {
			fmt.Println("Aborted.")
			return nil
		}

		log.Info("starting campaign",
			"recipients", len(initial),
			"provider", prov.Name(),
			"subject", subject,
		)

		if err := runner.Run(ctx, initial); err != nil {
			return fmt.Errorf("campaign failed: %w", err)
		}

		log.Info("campaign finished",
			"recipients", len(initial),
			"failed_attempts", runner.Failed(),
			"stats", files.Stats,
		)
		return nil
	},
}
