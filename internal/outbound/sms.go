package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

const smsMaxLen = 1600

// SMSConfig holds SMS provider connection parameters. The API token is
// resolved from TokenEnv at send time and never stored in config files.
type SMSConfig struct {
	APIBase  string // Provider messages endpoint base URL.
	From     string // Sender phone number or alphanumeric ID.
	TokenEnv string // Environment variable holding the provider API token.
}

// SMSSender sends text messages through an HTTP JSON provider API.
type SMSSender struct {
	config     SMSConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSMSSender creates an HTTP-provider-backed SMS sender.
func NewSMSSender(cfg SMSConfig, logger *slog.Logger) *SMSSender {
	return &SMSSender{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

func (s *SMSSender) Channel() string { return "sms" }

func (s *SMSSender) Send(ctx context.Context, msg *Message) error {
	if s.config.APIBase == "" {
		return fmt.Errorf("sms provider is not configured")
	}

	token := ""
	if s.config.TokenEnv != "" {
		token = os.Getenv(s.config.TokenEnv)
	}
	if token == "" {
		return fmt.Errorf("sms provider token not available (env %s)", s.config.TokenEnv)
	}

	body := msg.Body
	if len(body) > smsMaxLen {
		body = body[:smsMaxLen]
	}

	payload := map[string]any{
		"from": s.config.From,
		"to":   msg.Recipient,
		"body": body,
	}
	data, _ := json.Marshal(payload)

	url := s.config.APIBase + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, string(respBody))
	}

	s.logger.Info("sms sent", slog.String("to", msg.Recipient))
	return nil
}
