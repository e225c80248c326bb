// Package campaign orchestrates a bulk-mail run: load recipients, render,
// deliver, record stats, and retry failed recipients over a fixed number of
// passes.
package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shineum/bulkmail-lite/internal/email"
	"github.com/shineum/bulkmail-lite/internal/provider"
	"github.com/shineum/bulkmail-lite/internal/recipients"
	"github.com/shineum/bulkmail-lite/internal/stats"
	"github.com/shineum/bulkmail-lite/internal/template"
)

// totalPasses is one initial pass plus two retry passes. This is a hard cap:
// recipients still failing after the last pass stay in the retry sink with no
// further automatic handling.
const totalPasses = 3

// Options holds the per-run settings for a campaign.
type Options struct {
	Subject      string
	FromName     string
	FromEmail    string
	ReplyToName  string
	ReplyToEmail string

	// PerRecipient is the number of copies sent to each recipient per pass.
	PerRecipient int

	// Delay is the constant spacing between consecutive send attempts.
	Delay time.Duration

	// SourceFile is the campaign recipient CSV consumed by the initial pass.
	SourceFile string

	// RetryPath collects failed recipients for the next pass.
	RetryPath string

	// BadEmailPath and BadEmailRetryPath receive rejected addresses from
	// the initial and retry passes respectively.
	BadEmailPath      string
	BadEmailRetryPath string

	// StatsPath is the run statistics file.
	StatsPath string
}

// Runner drives the pass state machine for one campaign.
type Runner struct {
	opts     Options
	provider provider.Provider
	renderer *template.Renderer
	stats    *stats.Recorder
	retry    *recipients.RetrySink
	logger   *slog.Logger

	failed int
}

// New creates a Runner. The provider, renderer and logger are injected so
// tests can run campaigns against fakes and temp files.
func New(opts Options, prov provider.Provider, renderer *template.Renderer, logger *slog.Logger) *Runner {
	if opts.PerRecipient < 1 {
		opts.PerRecipient = 1
	}
	return &Runner{
		opts:     opts,
		provider: prov,
		renderer: renderer,
		stats:    stats.NewRecorder(opts.StatsPath),
		retry:    recipients.NewRetrySink(opts.RetryPath),
		logger:   logger,
	}
}

// LoadInitial parses the campaign recipient file in a single pass, routing
// rejected addresses to the initial bad-email sink, and returns the
// deliverable records. The returned slice also serves as the confirmation
// count, so the file is never parsed twice.
func (r *Runner) LoadInitial() ([]recipients.Record, error) {
	records, rejected, err := recipients.Load(r.opts.SourceFile)
	if err != nil {
		return nil, err
	}
	if err := recipients.NewBadEmailSink(r.opts.BadEmailPath).Append(rejected); err != nil {
		return nil, err
	}
	return records, nil
}

// Run executes the campaign over the given initial recipient set: one initial
// pass followed by exactly two retry passes fed from the retry sink. Delivery
// failures never abort the run; they are logged, queued for retry and counted.
func (r *Runner) Run(ctx context.Context, initial []recipients.Record) error {
	start := time.Now()
	r.record(stats.KeyTotalRecipients, strconv.Itoa(len(initial)))
	r.record(stats.KeyStartTime, start.Format(time.RFC3339))
	r.record(stats.KeySourceFile, r.opts.SourceFile)

	for pass := 0; pass < totalPasses; pass++ {
		records := initial
		if pass > 0 {
			var rejected []string
			var err error
			records, rejected, err = recipients.LoadRetry(r.opts.RetryPath)
			if err != nil {
				return fmt.Errorf("retry pass %d: %w", pass, err)
			}
			if err := recipients.NewBadEmailSink(r.opts.BadEmailRetryPath).Append(rejected); err != nil {
				return fmt.Errorf("retry pass %d: %w", pass, err)
			}
		}

		for _, rec := range records {
			if err := r.deliver(ctx, pass, rec); err != nil {
				return err
			}
		}
	}

	r.record(stats.KeyEndTime, time.Now().Format(time.RFC3339))
	return nil
}

// deliver renders and sends every configured copy of the message for one
// recipient. A failed attempt queues the recipient for the next pass (once
// per pass) and stops the remaining copies.
func (r *Runner) deliver(ctx context.Context, pass int, rec recipients.Record) error {
	msg := &email.Message{
		From:     email.Address(r.opts.FromName, r.opts.FromEmail),
		To:       email.Address(rec.Name, rec.Email),
		Subject:  r.opts.Subject,
		HTMLBody: r.renderer.Render(rec),
	}
	if r.opts.ReplyToEmail != "" {
		msg.ReplyTo = email.Address(r.opts.ReplyToName, r.opts.ReplyToEmail)
	}

	for attempt := 0; attempt < r.opts.PerRecipient; attempt++ {
		err := r.provider.Send(ctx, msg)
		if err != nil {
			r.failed++
			r.logger.Error("delivery failed",
				"recipient", msg.To,
				"pass", pass,
				"provider", r.provider.Name(),
				"error", err,
			)
			r.record(stats.KeyFailedRecipients, strconv.Itoa(r.failed))
			if sinkErr := r.retry.Append(rec); sinkErr != nil {
				return fmt.Errorf("failed to queue %s for retry: %w", rec.Email, sinkErr)
			}
			return r.wait(ctx)
		}

		r.record(stats.KeyLastRecipient, msg.To)
		if err := r.wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// wait enforces the constant inter-send spacing.
func (r *Runner) wait(ctx context.Context) error {
	if r.opts.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.opts.Delay):
		return nil
	}
}

// record writes a stats entry; stats failures are logged, not fatal.
func (r *Runner) record(key stats.Key, value string) {
	if err := r.stats.Record(key, value); err != nil {
		r.logger.Warn("failed to record stats entry", "key", string(key), "error", err)
	}
}

// Failed returns the number of failed send attempts so far.
func (r *Runner) Failed() int {
	return r.failed
}
