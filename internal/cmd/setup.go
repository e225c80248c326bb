package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shineum/bulkmail-lite/internal/config"
	"github.com/shineum/bulkmail-lite/internal/provider"
	"github.com/shineum/bulkmail-lite/internal/provider/ses"
	"github.com/shineum/bulkmail-lite/internal/provider/smtp"
	"github.com/shineum/bulkmail-lite/internal/provider/stdout"
)

// defaultConfigFile is used when --config is not given and the file exists.
const defaultConfigFile = "bulkmail.yaml"

// loadConfig resolves and validates the run configuration. Validation
// failures here abort before any recipient is processed.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupRunLogger configures a JSON slog logger writing to the per-run log
// file. The caller closes the returned file when the run ends.
func setupRunLogger(path, level string) (*slog.Logger, io.Closer, error) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open run log: %w", err)
	}

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler), f, nil
}

// selectProvider chooses the delivery backend based on configuration.
// --dry-run always forces the stdout provider.
func selectProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	name := cfg.Provider
	if dryRun {
		name = "stdout"
	}

	switch name {
	case "smtp":
		return smtp.New(smtp.Config{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			Encryption: cfg.SMTP.Encryption,
		})
	case "ses":
		return ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})
	case "stdout":
		return stdout.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// confirm prints the prompt and reads a yes/no answer from stdin.
// The --yes flag skips the prompt entirely.
func confirm(prompt string) bool {
	if yes {
		return true
	}
	fmt.Printf("%s (yes/no)? ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(answer) == "yes"
}
