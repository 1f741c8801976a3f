package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csg33k/alta-clientes/internal/domain"
)

func testMessage() domain.Message {
	return domain.Message{
		ID:      "m1",
		Part:    1,
		Parts:   1,
		To:      []string{"tesoreria@dimensasl.com", "ventas@acme.es"},
		Subject: "Alta de cliente: Acme — Documentación",
		Text:    "Adjuntamos la documentación del alta (Cliente y Plantas).",
		HTML:    "<p>Hola</p>",
		Attachments: []domain.Document{
			{Kind: domain.ClientDocument, Filename: "cliente.xlsx", MIMEType: domain.XLSXMIMEType, Content: []byte("client-bytes")},
			{Kind: domain.PlantsDocument, Filename: "plantas.xlsx", MIMEType: domain.XLSXMIMEType, Content: []byte("plants-bytes")},
		},
	}
}

func TestWebhook_PostsPayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"status":"OK"}`))
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, time.Second).Send(context.Background(), testMessage())
	require.NoError(t, err)

	assert.Equal(t, "tesoreria@dimensasl.com,ventas@acme.es", got.To)
	assert.Equal(t, "Alta de cliente: Acme — Documentación", got.Subject)
	assert.Equal(t, "<p>Hola</p>", got.HTML)
	require.Len(t, got.Attachments, 2)
	assert.Equal(t, "cliente.xlsx", got.Attachments[0].Filename)
	assert.Equal(t, domain.XLSXMIMEType, got.Attachments[0].MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("client-bytes")), got.Attachments[0].Content)
	assert.Equal(t, got.Attachments[0].Content, got.Attachments[0].Base64)
}

func TestWebhook_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-200": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("OK"))
		},
		"missing marker": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("quota exceeded"))
		},
		"timeout": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte("OK"))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			err := NewWebhook(srv.URL, 50*time.Millisecond).Send(context.Background(), testMessage())
			assert.ErrorIs(t, err, domain.ErrTransport)
		})
	}
}

func TestWebhook_DefaultTimeout(t *testing.T) {
	w := NewWebhook("http://relay.invalid", 0)
	assert.Equal(t, DefaultWebhookTimeout, w.client.Timeout)
}

func TestSMTP_BuildMultipart(t *testing.T) {
	s := NewSMTP(SMTPOptions{Host: "smtp.example.com", From: "altas@dimensasl.com"})
	msg, err := s.build(testMessage())
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	assert.Contains(t, raw, "multipart/mixed")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "ventas@acme.es")
	assert.Contains(t, raw, domain.XLSXMIMEType)
	assert.Contains(t, raw, "cliente.xlsx")
	assert.Contains(t, raw, "plantas.xlsx")
}

func TestSMTP_BadRecipient(t *testing.T) {
	s := NewSMTP(SMTPOptions{Host: "smtp.example.com", From: "altas@dimensasl.com"})
	m := testMessage()
	m.To = []string{"not an address"}

	err := s.Send(context.Background(), m)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestSMTP_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	s := NewSMTP(SMTPOptions{Host: "127.0.0.1", Port: port, From: "altas@dimensasl.com", Timeout: time.Second})
	err = s.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, domain.ErrTransport)
}
