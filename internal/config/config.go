// Package config provides YAML configuration loading with defaults merging
// and environment-variable overrides for the bulk mailer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Encryption modes supported by the SMTP relay session.
const (
	EncryptionNone     = "none"
	EncryptionSSL      = "ssl"
	EncryptionStartTLS = "starttls"
)

// Config holds the complete application configuration. It is resolved once
// per run and read-only afterwards.
type Config struct {
	Provider       string        `yaml:"provider"`
	SMTP           SMTPConfig    `yaml:"smtp"`
	SES            SESConfig     `yaml:"ses"`
	From           Address       `yaml:"from"`
	ReplyTo        Address       `yaml:"reply_to"`
	Send           SendConfig    `yaml:"send"`
	Files          FilesConfig   `yaml:"files"`
	Logging        LoggingConfig `yaml:"logging"`
	TestRecipients []Address     `yaml:"test_recipients"`
}

// SMTPConfig holds SMTP relay connection settings.
type SMTPConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Encryption string `yaml:"encryption"`
}

// SESConfig holds AWS SES API settings for the ses provider.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Address is a name/email pair used for from, reply-to and test recipients.
type Address struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// SendConfig holds pacing settings for the delivery loop.
type SendConfig struct {
	// Delay is the constant spacing between consecutive send attempts,
	// in Go duration syntax (e.g. "500ms").
	Delay string `yaml:"delay"`

	// PerRecipient is the number of emails sent to each recipient.
	PerRecipient int `yaml:"per_recipient"`
}

// FilesConfig holds paths for the run's file sinks.
type FilesConfig struct {
	LogDir string `yaml:"log_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables over the defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file, fills unset fields from
// the defaults, then applies environment-variable overrides on top.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	cfg.applyEnvVars()

	return cfg, nil
}

// AuthEnabled reports whether both SMTP username and password are set.
func (c *Config) AuthEnabled() bool {
	return c.SMTP.Username != "" && c.SMTP.Password != ""
}

// SendDelay returns the parsed inter-send delay.
func (c *Config) SendDelay() (time.Duration, error) {
	d, err := time.ParseDuration(c.Send.Delay)
	if err != nil {
		return 0, fmt.Errorf("invalid send delay %q: %w", c.Send.Delay, err)
	}
	return d, nil
}

// Validate checks the configuration for setup-time errors. Any failure here
// is fatal and aborts the run before a single recipient is processed.
func (c *Config) Validate() error {
	switch c.SMTP.Encryption {
	case EncryptionNone, EncryptionSSL, EncryptionStartTLS:
	default:
		return fmt.Errorf("unknown encryption mode %q (choose %q, %q or %q)",
			c.SMTP.Encryption, EncryptionNone, EncryptionSSL, EncryptionStartTLS)
	}

	switch c.Provider {
	case "smtp", "ses", "stdout":
	default:
		return fmt.Errorf("unknown provider %q (choose smtp, ses or stdout)", c.Provider)
	}
	if c.Provider == "ses" && c.SES.Region == "" {
		return fmt.Errorf("ses provider requires a region")
	}

	if c.From.Email == "" {
		return fmt.Errorf("from email is required")
	}
	if c.Send.PerRecipient < 1 {
		return fmt.Errorf("per_recipient must be at least 1, got %d", c.Send.PerRecipient)
	}
	if _, err := c.SendDelay(); err != nil {
		return err
	}
	return nil
}

// RunFiles holds the per-run file paths under the log directory. The retry
// sink keeps a stable name so a later run can pick up leftover failures; the
// other files are stamped with the run's start time.
type RunFiles struct {
	Retry          string
	BadEmails      string
	BadEmailsRetry string
	Stats          string
	Log            string
}

// RunFiles derives the file paths for a run starting at the given time.
func (c *Config) RunFiles(start time.Time) RunFiles {
	stamp := start.Format("2006-01-02-15-04-05")
	dir := c.Files.LogDir
	return RunFiles{
		Retry:          filepath.Join(dir, "retry.csv"),
		BadEmails:      filepath.Join(dir, fmt.Sprintf("bad_emails-%s.csv", stamp)),
		BadEmailsRetry: filepath.Join(dir, fmt.Sprintf("bad_emails-%s.retry.csv", stamp)),
		Stats:          filepath.Join(dir, fmt.Sprintf("bulkmail-%s.stat", stamp)),
		Log:            filepath.Join(dir, fmt.Sprintf("bulkmail-%s.log", stamp)),
	}
}

// defaults returns the baseline configuration merged into every load.
func defaults() *Config {
	return &Config{
		Provider: "smtp",
		SMTP: SMTPConfig{
			Port:       25,
			Encryption: EncryptionNone,
		},
		Send: SendConfig{
			Delay:        "500ms",
			PerRecipient: 1,
		},
		Files: FilesConfig{
			LogDir: "log",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// applyDefaults fills unset fields from the defaults.
func (c *Config) applyDefaults() error {
	if err := mergo.Merge(c, defaults()); err != nil {
		return fmt.Errorf("failed to merge defaults: %w", err)
	}
	return nil
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_ENCRYPTION"); v != "" {
		c.SMTP.Encryption = strings.ToLower(v)
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}

	if v := os.Getenv("FROM_NAME"); v != "" {
		c.From.Name = v
	}
	if v := os.Getenv("FROM_EMAIL"); v != "" {
		c.From.Email = v
	}
	if v := os.Getenv("REPLY_TO_NAME"); v != "" {
		c.ReplyTo.Name = v
	}
	if v := os.Getenv("REPLY_TO_EMAIL"); v != "" {
		c.ReplyTo.Email = v
	}

	if v := os.Getenv("SEND_DELAY"); v != "" {
		c.Send.Delay = v
	}
	if v := os.Getenv("SENDS_PER_RECIPIENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Send.PerRecipient = n
		}
	}

	if v := os.Getenv("LOG_DIR"); v != "" {
		c.Files.LogDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
