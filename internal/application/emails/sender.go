package emails

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"time"
)

// ErrNotConfigured is returned when no email provider key is set.
var ErrNotConfigured = errors.New("email provider not configured")

// Attachment is a base64-encoded file sent along with a message.
type Attachment struct {
	Filename      string
	ContentBase64 string
}

// Tag labels a message in the provider dashboard.
type Tag struct {
	Name  string
	Value string
}

// Message is a provider-neutral transactional email.
type Message struct {
	To          []string
	Subject     string
	HTML        string
	ReplyTo     string
	Attachments []Attachment
	Tags        []Tag
}

// Sender delivers transactional emails and returns the provider message id.
// A nil Sender means email is disabled.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Provider names accepted by EMAIL_PROVIDER.
const (
	ProviderResend = "resend"
	ProviderBrevo  = "brevo"
)

// NewSender picks the configured provider; returns nil when no key is set.
// The HTTP client is built once and shared by every Send.
func NewSender(provider, resendKey, brevoKey, from string) Sender {
	client := defaultHTTPClient(nil)
	switch {
	case provider == ProviderBrevo && brevoKey != "":
		return &BrevoClient{APIKey: brevoKey, MailFrom: from, Client: client}
	case provider == ProviderResend && resendKey != "":
		return &ResendClient{APIKey: resendKey, MailFrom: from, Client: client}
	case provider == "" && resendKey != "":
		return &ResendClient{APIKey: resendKey, MailFrom: from, Client: client}
	case provider == "" && brevoKey != "":
		return &BrevoClient{APIKey: brevoKey, MailFrom: from, Client: client}
	}
	return nil
}

const defaultFrom = "DaloaMarket <noreply@daloamarket.shop>"

// splitFrom turns "Name <addr>" into its parts; a bare address gets the brand name.
func splitFrom(from string) (name, address string) {
	if from == "" {
		from = defaultFrom
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return "DaloaMarket", from
	}
	if addr.Name == "" {
		return "DaloaMarket", addr.Address
	}
	return addr.Name, addr.Address
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 15 * time.Second}
}
