package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const resendAPI = "https://api.resend.com/emails"

type resendAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type resendTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResendSendRequest matches the Resend POST /emails body.
type ResendSendRequest struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html"`
	ReplyTo     string             `json:"reply_to,omitempty"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
	Tags        []resendTag        `json:"tags,omitempty"`
}

// ResendClient sends emails via the Resend API (RESEND_API_KEY).
type ResendClient struct {
	APIKey   string
	MailFrom string
	Endpoint string
	Client   *http.Client
}

func (c *ResendClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return resendAPI
}

type resendSendResponse struct {
	ID string `json:"id"`
}

// Send posts one message. Non-2xx answers are returned as errors with the body.
func (c *ResendClient) Send(ctx context.Context, msg Message) (string, error) {
	if c.APIKey == "" {
		return "", ErrNotConfigured
	}
	name, addr := splitFrom(c.MailFrom)
	body := ResendSendRequest{
		From:    fmt.Sprintf("%s <%s>", name, addr),
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	}
	for _, a := range msg.Attachments {
		body.Attachments = append(body.Attachments, resendAttachment{Filename: a.Filename, Content: a.ContentBase64})
	}
	for _, t := range msg.Tags {
		body.Tags = append(body.Tags, resendTag{Name: t.Name, Value: t.Value})
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := defaultHTTPClient(c.Client)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("resend send failed: status %d body: %s", resp.StatusCode, string(raw))
	}
	var out resendSendResponse
	_ = json.Unmarshal(raw, &out)
	return out.ID, nil
}
