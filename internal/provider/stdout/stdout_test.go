package stdout

import (
	"context"
	"strings"
	"testing"

	"github.com/shineum/bulkmail-lite/internal/email"
)

func TestSend_PrintsMessage(t *testing.T) {
	var buf strings.Builder
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:     "Acme <noreply@acme.example>",
		To:       "Ann <ann@x.com>",
		Subject:  "March offers",
		HTMLBody: "<p>Hello Ann</p>",
	}
	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"From: Acme <noreply@acme.example>",
		"To: Ann <ann@x.com>",
		"Subject: March offers",
		"<p>Hello Ann</p>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Reply-To") {
		t.Error("output has Reply-To line for message without reply-to")
	}
}

func TestName(t *testing.T) {
	if got := New().Name(); got != "stdout" {
		t.Errorf("Name: got %q, want %q", got, "stdout")
	}
}
