package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dafibh/sppku/sppku-backend/internal/config"
)

// ErrInvalidPhone is returned when the destination number cannot be normalized
var ErrInvalidPhone = errors.New("invalid phone number")

// ErrGatewayRejected is returned when the gateway answers with a failure status
var ErrGatewayRejected = errors.New("whatsapp gateway rejected the message")

// WhatsAppClient sends messages through a Fonnte-compatible gateway
type WhatsAppClient struct {
	apiURL     string
	token      string
	httpClient *http.Client
}

// NewWhatsAppClient creates a new WhatsAppClient
func NewWhatsAppClient(cfg config.WhatsAppConfig) *WhatsAppClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhatsAppClient{
		apiURL:     cfg.APIURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type gatewayResponse struct {
	Status bool   `json:"status"`
	Reason string `json:"reason"`
}

// Send posts the message as a form with target and message fields
func (c *WhatsAppClient) Send(ctx context.Context, to, message string) error {
	target := NormalizePhone(to)
	if target == "" {
		return ErrInvalidPhone
	}

	form := url.Values{}
	form.Set("target", target)
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: http %d", ErrGatewayRejected, resp.StatusCode)
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(body, &parsed); err == nil && !parsed.Status {
		return fmt.Errorf("%w: %s", ErrGatewayRejected, parsed.Reason)
	}
	return nil
}
