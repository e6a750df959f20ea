package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoContact      `json:"sender"`
	To          []BrevoContact    `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	ReplyTo     *BrevoContact     `json:"replyTo,omitempty"`
	Attachment  []BrevoAttachment `json:"attachment,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
}

type BrevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoAttachment struct {
	Content string `json:"content"`
	Name    string `json:"name"`
}

// BrevoClient sends emails via Brevo (Sendinblue) API, SENDINBLUE_API_KEY.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Endpoint string
	Client   *http.Client
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

type brevoSendResponse struct {
	MessageID string `json:"messageId"`
}

// Send posts one message. Brevo tags are flat strings, so name=value pairs are joined.
func (c *BrevoClient) Send(ctx context.Context, msg Message) (string, error) {
	if c.APIKey == "" {
		return "", ErrNotConfigured
	}
	name, addr := splitFrom(c.MailFrom)
	body := BrevoSendRequest{
		Sender:      BrevoContact{Email: addr, Name: name},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	}
	for _, to := range msg.To {
		body.To = append(body.To, BrevoContact{Email: to})
	}
	if msg.ReplyTo != "" {
		body.ReplyTo = &BrevoContact{Email: msg.ReplyTo}
	}
	for _, a := range msg.Attachments {
		body.Attachment = append(body.Attachment, BrevoAttachment{Content: a.ContentBase64, Name: a.Filename})
	}
	for _, t := range msg.Tags {
		body.Tags = append(body.Tags, t.Name+"="+t.Value)
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := defaultHTTPClient(c.Client)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	var out brevoSendResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out.MessageID, nil
}
