package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smsrelay/smsrelay/internal/config"
)

// TwilioClient sends SMS through the Twilio Messages API.
type TwilioClient struct {
	httpClient *http.Client
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	logger     *slog.Logger
}

// NewTwilioClient creates a carrier client from the twilio config section.
func NewTwilioClient(log *slog.Logger, cfg config.TwilioConfig) *TwilioClient {
	if log == nil {
		log = slog.Default()
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = config.DefaultTwilioBaseURL
	}
	return &TwilioClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     log.With(slog.String("component", "twilio")),
	}
}

type twilioMessageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send implements Carrier.
func (c *TwilioClient) Send(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read twilio response: %w", err)
	}

	var decoded twilioMessageResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("twilio responded %d", resp.StatusCode)
		}
		return "", fmt.Errorf("decode twilio response: %w", err)
	}

	if resp.StatusCode >= 300 {
		if decoded.Message != "" {
			return "", fmt.Errorf("twilio responded %d: %s (code %d)", resp.StatusCode, decoded.Message, decoded.Code)
		}
		return "", fmt.Errorf("twilio responded %d", resp.StatusCode)
	}
	if decoded.SID == "" {
		return "", fmt.Errorf("twilio response missing message sid")
	}

	c.logger.Debug("message accepted",
		slog.String("sid", decoded.SID),
		slog.String("status", decoded.Status))
	return decoded.SID, nil
}
