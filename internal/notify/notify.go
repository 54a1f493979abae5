// Package notify sends outbound email, SMS and WhatsApp messages. Delivery is
// best-effort: the app never fails a user flow because a provider is down.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ficore.org/internal/config"
	"ficore.org/internal/obs"
)

// Sender dispatches messages through the configured providers.
type Sender struct {
	smtpServer   string
	smtpPort     int
	smtpUsername string
	smtpPassword string

	smsURL      string
	smsKey      string
	whatsAppURL string
	whatsAppKey string

	client *http.Client

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New builds a Sender from configuration.
func New(cfg *config.Config) *Sender {
	timeout := cfg.OutboundTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{
		smtpServer:   cfg.SMTPServer,
		smtpPort:     cfg.SMTPPort,
		smtpUsername: cfg.SMTPUsername,
		smtpPassword: cfg.SMTPPassword,
		smsURL:       cfg.SMSAPIURL,
		smsKey:       cfg.SMSAPIKey,
		whatsAppURL:  cfg.WhatsAppAPIURL,
		whatsAppKey:  cfg.WhatsAppAPIKey,
		client:       &http.Client{Timeout: timeout},
		sendMail:     smtp.SendMail,
	}
}

// SendEmail delivers a plain-text email over authenticated SMTP.
func (s *Sender) SendEmail(ctx context.Context, to, subject, body string) error {
	if s.smtpServer == "" {
		return fmt.Errorf("notify: smtp not configured")
	}
	addr := fmt.Sprintf("%s:%d", s.smtpServer, s.smtpPort)
	auth := smtp.PlainAuth("", s.smtpUsername, s.smtpPassword, s.smtpServer)
	msg := []byte("From: " + s.smtpUsername + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" + body + "\r\n")
	done := make(chan error, 1)
	go func() { done <- s.sendMail(addr, auth, s.smtpUsername, []string{to}, msg) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NormalizePhone converts a user-entered Nigerian number to international
// digits form: non-digits are stripped, a leading 0 becomes 234.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "0") {
		return "234" + digits[1:]
	}
	return digits
}

// ProviderResult is what a message gateway returned.
type ProviderResult struct {
	OK       bool   `json:"ok"`
	Response string `json:"response"`
}

// SendSMS posts a message to the SMS gateway.
func (s *Sender) SendSMS(ctx context.Context, phone, message string) (ProviderResult, error) {
	return s.postMessage(ctx, s.smsURL, s.smsKey, phone, message)
}

// SendWhatsApp posts a message to the WhatsApp gateway.
func (s *Sender) SendWhatsApp(ctx context.Context, phone, message string) (ProviderResult, error) {
	return s.postMessage(ctx, s.whatsAppURL, s.whatsAppKey, phone, message)
}

func (s *Sender) postMessage(ctx context.Context, url, key, phone, message string) (ProviderResult, error) {
	if url == "" {
		return ProviderResult{}, fmt.Errorf("notify: provider not configured")
	}
	payload, err := json.Marshal(map[string]string{
		"to":      NormalizePhone(phone),
		"message": message,
	})
	if err != nil {
		return ProviderResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return ProviderResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	resp, err := s.client.Do(req)
	if err != nil {
		return ProviderResult{}, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	return ProviderResult{OK: ok, Response: string(body)}, nil
}

// Broadcast sends the same message over every configured channel
// concurrently and logs per-channel failures without failing the caller.
func (s *Sender) Broadcast(ctx context.Context, email, phone, subject, message string) {
	g, ctx := errgroup.WithContext(ctx)
	if email != "" && s.smtpServer != "" {
		g.Go(func() error {
			if err := s.SendEmail(ctx, email, subject, message); err != nil {
				obs.Warn("email delivery failed", obs.RequestContext{}, obs.Fields{"to": email, "error": err.Error()})
			}
			return nil
		})
	}
	if phone != "" && s.smsURL != "" {
		g.Go(func() error {
			if res, err := s.SendSMS(ctx, phone, message); err != nil || !res.OK {
				obs.Warn("sms delivery failed", obs.RequestContext{}, obs.Fields{"to": phone})
			}
			return nil
		})
	}
	if phone != "" && s.whatsAppURL != "" {
		g.Go(func() error {
			if res, err := s.SendWhatsApp(ctx, phone, message); err != nil || !res.OK {
				obs.Warn("whatsapp delivery failed", obs.RequestContext{}, obs.Fields{"to": phone})
			}
			return nil
		})
	}
	_ = g.Wait()
}
