package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Email is one outgoing message.
type Email struct {
	To          []string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

type emailAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

type emailRequest struct {
	From        string            `json:"from"`
	To          []string          `json:"to"`
	Subject     string            `json:"subject"`
	HTML        string            `json:"html,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []emailAttachment `json:"attachments,omitempty"`
}

// EmailClient sends mail through a Resend-compatible REST API.
type EmailClient struct {
	baseURL string
	apiKey  string
	from    string
	http    *http.Client
}

func NewEmailClient(baseURL, apiKey, from string) *EmailClient {
	return &EmailClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		from:    from,
		http:    newHTTPClient(),
	}
}

// Send delivers msg and returns the provider's message id.
func (c *EmailClient) Send(ctx context.Context, msg Email) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload := emailRequest{
		From:    c.from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}
	for _, a := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, emailAttachment{
			Filename:    a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", readError("email", resp)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode email response: %w", err)
	}
	return out.ID, nil
}
