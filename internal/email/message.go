// Package email defines the outbound message model and its RFC 822 serialization.
package email

import (
	"fmt"
	"net/mail"
	"strings"
)

// Message represents one rendered campaign email ready for delivery.
type Message struct {
	From     string
	To       string
	ReplyTo  string
	Subject  string
	HTMLBody string
}

// Build serializes the message into RFC 822 wire format with an HTML body.
func (m *Message) Build() string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	if m.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", m.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.HTMLBody)
	b.WriteString("\r\n")
	return b.String()
}

// Address formats a display address as "Name <addr>", or the bare address
// when no name is given.
func Address(name, addr string) string {
	if name == "" {
		return addr
	}
	a := mail.Address{Name: name, Address: addr}
	return a.String()
}

// Bare extracts the plain address from a display string such as
// "Name <addr>"; display strings that fail to parse are returned as-is.
func Bare(display string) string {
	addr, err := mail.ParseAddress(display)
	if err != nil {
		return display
	}
	return addr.Address
}
