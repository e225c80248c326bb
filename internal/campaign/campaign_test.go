package campaign

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shineum/bulkmail-lite/internal/email"
	"github.com/shineum/bulkmail-lite/internal/recipients"
	"github.com/shineum/bulkmail-lite/internal/stats"
	"github.com/shineum/bulkmail-lite/internal/template"
)

// fakeProvider fails the first failures[addr] sends to an address and
// records every successful delivery in order.
type fakeProvider struct {
	failures map[string]int
	sent     []string
	bodies   []string
	attempts int
}

func (f *fakeProvider) Send(_ context.Context, msg *email.Message) error {
	f.attempts++
	addr := email.Bare(msg.To)
	if f.failures[addr] > 0 {
		f.failures[addr]--
		return errors.New("relay rejected message")
	}
	f.sent = append(f.sent, addr)
	f.bodies = append(f.bodies, msg.HTMLBody)
	return nil
}

func (f *fakeProvider) Name() string { return "fake" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testOptions(t *testing.T, dir string) Options {
	t.Helper()
	return Options{
		Subject:           "March offers",
		FromName:          "Acme",
		FromEmail:         "noreply@acme.example",
		PerRecipient:      1,
		SourceFile:        filepath.Join(dir, "recipients.csv"),
		RetryPath:         filepath.Join(dir, "retry.csv"),
		BadEmailPath:      filepath.Join(dir, "bad_emails.csv"),
		BadEmailRetryPath: filepath.Join(dir, "bad_emails.retry.csv"),
		StatsPath:         filepath.Join(dir, "run.stat"),
	}
}

func writeRecipients(t *testing.T, opts Options, content string) {
	t.Helper()
	if err := os.WriteFile(opts.SourceFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write recipient file: %v", err)
	}
}

func mustRenderer(t *testing.T, source string) *template.Renderer {
	t.Helper()
	r, err := template.New(source)
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	return r
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	writeRecipients(t, opts,
		"name,email\n"+
			"Ann,ann@x.com\n"+
			"Bad,not-an-email\n")

	prov := &fakeProvider{}
	runner := New(opts, prov, mustRenderer(t, "<!--name-->"), discardLogger())

	initial, err := runner.LoadInitial()
	if err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	if len(initial) != 1 {
		t.Fatalf("initial recipients: got %d, want 1", len(initial))
	}

	if err := runner.Run(context.Background(), initial); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// One send attempt to Ann, with the placeholder substituted.
	if len(prov.sent) != 1 || prov.sent[0] != "ann@x.com" {
		t.Errorf("sent: got %v, want [ann@x.com]", prov.sent)
	}
	if prov.bodies[0] != "Ann" {
		t.Errorf("rendered body: got %q, want %q", prov.bodies[0], "Ann")
	}

	// The invalid row landed in the bad-email sink.
	bad, err := os.ReadFile(opts.BadEmailPath)
	if err != nil {
		t.Fatalf("failed to read bad-email sink: %v", err)
	}
	if string(bad) != "not-an-email\n" {
		t.Errorf("bad-email sink: got %q", string(bad))
	}

	// Stats show one total recipient and no failures.
	rec := stats.NewRecorder(opts.StatsPath)
	total, ok, err := rec.Get(stats.KeyTotalRecipients)
	if err != nil || !ok || total != "1" {
		t.Errorf("TOTAL RECIPIENTS: got (%q, %v, %v), want (\"1\", true, nil)", total, ok, err)
	}
	if _, ok, _ := rec.Get(stats.KeyFailedRecipients); ok {
		t.Error("FAILED RECIPIENTS recorded for a run without failures")
	}
	if _, ok, _ := rec.Get(stats.KeyEndTime); !ok {
		t.Error("END TIME not recorded")
	}
}

func TestRun_FailedRecipientRetriedOnceThenSucceeds(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	writeRecipients(t, opts,
		"name,email\n"+
			"Ann,ann@x.com\n"+
			"Bob,bob@example.org\n")

	// Bob fails on the initial pass only.
	prov := &fakeProvider{failures: map[string]int{"bob@example.org": 1}}
	runner := New(opts, prov, mustRenderer(t, "hello"), discardLogger())

	initial, err := runner.LoadInitial()
	if err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	if err := runner.Run(context.Background(), initial); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Bob was retried and succeeded on the first retry pass.
	want := []string{"ann@x.com", "bob@example.org"}
	if len(prov.sent) != len(want) {
		t.Fatalf("sent: got %v, want %v", prov.sent, want)
	}
	for i := range want {
		if prov.sent[i] != want[i] {
			t.Errorf("sent[%d]: got %q, want %q", i, prov.sent[i], want[i])
		}
	}

	// A recipient that succeeded on retry is not re-queued: the sink is empty.
	data, err := os.ReadFile(opts.RetryPath)
	if err != nil {
		t.Fatalf("failed to read retry sink: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("retry sink not empty after successful retry: %q", string(data))
	}

	if runner.Failed() != 1 {
		t.Errorf("Failed: got %d, want 1", runner.Failed())
	}
}

func TestRun_HardCapOfThreePasses(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	writeRecipients(t, opts, "name,email\nAnn,ann@x.com\n")

	// Ann fails on every pass.
	prov := &fakeProvider{failures: map[string]int{"ann@x.com": 100}}
	runner := New(opts, prov, mustRenderer(t, "hello"), discardLogger())

	initial, err := runner.LoadInitial()
	if err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	if err := runner.Run(context.Background(), initial); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Exactly one attempt per pass, three passes, no more.
	if prov.attempts != 3 {
		t.Errorf("attempts: got %d, want 3", prov.attempts)
	}

	// The still-failing recipient is left only in the retry sink.
	records, _, err := recipients.LoadRetry(opts.RetryPath)
	if err != nil {
		t.Fatalf("failed to load retry sink: %v", err)
	}
	if len(records) != 1 || records[0].Email != "ann@x.com" {
		t.Errorf("retry sink: got %+v, want one row for ann@x.com", records)
	}

	if runner.Failed() != 3 {
		t.Errorf("Failed: got %d, want 3", runner.Failed())
	}
}

func TestRun_RepeatCountSendsDuplicates(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	opts.PerRecipient = 2
	writeRecipients(t, opts, "name,email\nAnn,ann@x.com\n")

	prov := &fakeProvider{}
	runner := New(opts, prov, mustRenderer(t, "hello"), discardLogger())

	initial, err := runner.LoadInitial()
	if err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	if err := runner.Run(context.Background(), initial); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(prov.sent) != 2 {
		t.Errorf("sent: got %v, want two copies to ann@x.com", prov.sent)
	}
}

func TestRun_ReplyToThreadedThrough(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	opts.ReplyToName = "Support"
	opts.ReplyToEmail = "support@acme.example"
	writeRecipients(t, opts, "name,email\nAnn,ann@x.com\n")

	var got *email.Message
	prov := &captureProvider{capture: &got}
	runner := New(opts, prov, mustRenderer(t, "hello"), discardLogger())

	initial, err := runner.LoadInitial()
	if err != nil {
		t.Fatalf("LoadInitial: %v", err)
	}
	if err := runner.Run(context.Background(), initial); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got == nil {
		t.Fatal("no message captured")
	}
	if !strings.Contains(got.ReplyTo, "support@acme.example") {
		t.Errorf("ReplyTo: got %q", got.ReplyTo)
	}
	if !strings.Contains(got.From, "noreply@acme.example") {
		t.Errorf("From: got %q", got.From)
	}
	if got.To != `"Ann" <ann@x.com>` {
		t.Errorf("To: got %q", got.To)
	}
}

// captureProvider stores the last message it was asked to send.
type captureProvider struct {
	capture **email.Message
}

func (c *captureProvider) Send(_ context.Context, msg *email.Message) error {
	*c.capture = msg
	return nil
}

func (c *captureProvider) Name() string { return "capture" }
