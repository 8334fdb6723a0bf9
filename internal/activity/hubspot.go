package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/smsrelay/smsrelay/internal/config"
	"github.com/smsrelay/smsrelay/internal/conversation"
)

// noteToContactAssociation is HubSpot's built-in note-to-contact association
// type id.
const noteToContactAssociation = 202

// HubSpotClient implements Log against the HubSpot CRM v3 API.
type HubSpotClient struct {
	httpClient  *http.Client
	accessToken string
	baseURL     string
	logger      *slog.Logger
}

// NewHubSpotClient creates a CRM client from the hubspot config section.
func NewHubSpotClient(log *slog.Logger, cfg config.HubSpotConfig) *HubSpotClient {
	if log == nil {
		log = slog.Default()
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = config.DefaultHubSpotBaseURL
	}
	return &HubSpotClient{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		accessToken: cfg.AccessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      log.With(slog.String("component", "hubspot")),
	}
}

type contactSearchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type contactSearchResponse struct {
	Total   int `json:"total"`
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

type createObjectResponse struct {
	ID string `json:"id"`
}

// FindContact implements Log.
func (c *HubSpotClient) FindContact(ctx context.Context, phone string) (string, bool, error) {
	reqBody := contactSearchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{{
			PropertyName: "phone",
			Operator:     "EQ",
			Value:        phone,
		}}}},
		Properties: []string{"phone"},
		Limit:      1,
	}
	var resp contactSearchResponse
	if err := c.post(ctx, "/crm/v3/objects/contacts/search", reqBody, &resp); err != nil {
		return "", false, fmt.Errorf("search contact: %w", err)
	}
	if resp.Total == 0 || len(resp.Results) == 0 {
		return "", false, nil
	}
	return resp.Results[0].ID, true, nil
}

// CreateContact implements Log.
func (c *HubSpotClient) CreateContact(ctx context.Context, phone string) (string, error) {
	reqBody := map[string]any{
		"properties": map[string]string{"phone": phone},
	}
	var resp createObjectResponse
	if err := c.post(ctx, "/crm/v3/objects/contacts", reqBody, &resp); err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("create contact: response missing id")
	}
	return resp.ID, nil
}

// AddNote implements Log.
func (c *HubSpotClient) AddNote(ctx context.Context, contactID string, event Event) error {
	reqBody := map[string]any{
		"properties": map[string]any{
			"hs_note_body": noteBody(event),
			"hs_timestamp": event.OccurredAt.UTC().UnixMilli(),
		},
		"associations": []map[string]any{{
			"to": map[string]string{"id": contactID},
			"types": []map[string]any{{
				"associationCategory": "HUBSPOT_DEFINED",
				"associationTypeId":   noteToContactAssociation,
			}},
		}},
	}
	var resp createObjectResponse
	if err := c.post(ctx, "/crm/v3/objects/notes", reqBody, &resp); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

func noteBody(event Event) string {
	label := "SMS received"
	if event.Direction == conversation.DirectionOutbound {
		label = "SMS sent"
	}
	return fmt.Sprintf("%s (%s): %s", label, event.Identity, event.Body)
}

func (c *HubSpotClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("hubspot responded %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
