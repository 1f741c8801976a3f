// Package mailer holds the two delivery backends: an HTTP relay that accepts
// a JSON-described email, and direct SMTP submission.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/csg33k/alta-clientes/internal/domain"
)

// DefaultWebhookTimeout bounds a relay call when none is configured.
const DefaultWebhookTimeout = 30 * time.Second

// successMarker must appear in a 200 response body for the relay call to
// count as delivered.
const successMarker = "OK"

type webhookAttachment struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mimeType"`
	Content  string `json:"content"`
	// Base64 duplicates Content; relay scripts read either key.
	Base64 string `json:"base64"`
}

type webhookPayload struct {
	To          string              `json:"to"`
	Subject     string              `json:"subject"`
	Text        string              `json:"text"`
	HTML        string              `json:"html"`
	Attachments []webhookAttachment `json:"attachments"`
}

// Webhook posts messages to a mail relay such as an Apps Script web app.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &Webhook{url: url, client: &http.Client{Timeout: timeout}}
}

// Send satisfies ports.Mailer. Any outcome other than HTTP 200 with the
// success marker in the body is returned as a domain.ErrTransport error.
func (w *Webhook) Send(ctx context.Context, m domain.Message) error {
	payload := webhookPayload{
		To:      strings.Join(m.To, ","),
		Subject: m.Subject,
		Text:    m.Text,
		HTML:    m.HTML,
	}
	for _, a := range m.Attachments {
		b64 := base64.StdEncoding.EncodeToString(a.Content)
		payload.Attachments = append(payload.Attachments, webhookAttachment{
			Filename: a.Filename,
			MIMEType: a.MIMEType,
			Content:  b64,
			Base64:   b64,
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %w", domain.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", domain.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post webhook: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	snippet := respBody[:min(len(respBody), 400)]
	slog.Debug("webhook response", "status", resp.StatusCode, "body", string(snippet))

	if resp.StatusCode != http.StatusOK || !bytes.Contains(respBody, []byte(successMarker)) {
		return fmt.Errorf("%w: webhook status=%d body=%s", domain.ErrTransport, resp.StatusCode, snippet)
	}
	return nil
}
