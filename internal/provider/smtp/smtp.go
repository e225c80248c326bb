// Package smtp implements a Provider that relays messages through an SMTP
// server, one connection per send.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/shineum/bulkmail-lite/internal/config"
	"github.com/shineum/bulkmail-lite/internal/email"
)

// dialTimeout bounds the connect and TLS handshake time.
const dialTimeout = 30 * time.Second

// Config holds the settings for creating an SMTP Provider.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Encryption string
}

// Provider sends messages through an SMTP relay. Every Send opens a fresh
// session and closes it afterwards; connections are never pooled.
type Provider struct {
	cfg Config
}

// New creates an SMTP Provider. An unknown encryption mode is a fatal
// configuration error, reported before any recipient is processed.
func New(cfg Config) (*Provider, error) {
	switch cfg.Encryption {
	case config.EncryptionNone, config.EncryptionSSL, config.EncryptionStartTLS:
	default:
		return nil, fmt.Errorf("unknown encryption mode %q", cfg.Encryption)
	}
	return &Provider{cfg: cfg}, nil
}

// Send transmits one message over a fresh SMTP session. Transport and
// protocol failures are returned to the caller; the session is closed in
// every case.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	var (
		client *smtp.Client
		err    error
	)
	if p.cfg.Encryption == config.EncryptionSSL {
		client, err = p.dialTLS(ctx, addr)
	} else {
		client, err = p.dialPlain(ctx, addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	defer client.Quit()

	if p.cfg.Encryption == config.EncryptionStartTLS {
		tlsConfig := &tls.Config{ServerName: p.cfg.Host}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls upgrade failed: %w", err)
		}
	}

	if p.cfg.Username != "" && p.cfg.Password != "" {
		auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := client.Mail(email.Bare(msg.From)); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	if err := client.Rcpt(email.Bare(msg.To)); err != nil {
		return fmt.Errorf("RCPT TO rejected: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	if _, err := w.Write([]byte(msg.Build())); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "smtp"
}

func (p *Provider) dialPlain(ctx context.Context, addr string) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	client, err := smtp.NewClient(conn, p.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

func (p *Provider) dialTLS(ctx context.Context, addr string) (*smtp.Client, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: dialTimeout},
		Config:    &tls.Config{ServerName: p.cfg.Host},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	client, err := smtp.NewClient(conn, p.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}
