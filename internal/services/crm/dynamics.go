package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/models"
)

// Client pushes completed quotations to Dynamics 365 as opportunities. All
// pushes are fire-and-forget from the caller's point of view: errors are
// returned for logging but never block quotation workflow.
type Client struct {
	config     common.CRMConfig
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewClient builds the Dynamics client with a client-credentials token
// source. Returns nil when the integration is disabled.
func NewClient(config common.CRMConfig, logger arbor.ILogger) *Client {
	if !config.Enabled {
		return nil
	}
	creds := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", config.TenantID),
		Scopes:       []string{strings.TrimRight(config.Resource, "/") + "/.default"},
	}
	httpClient := creds.Client(context.Background())
	httpClient.Timeout = 30 * time.Second

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

// opportunity is the Dynamics Web API payload for a new opportunity row.
type opportunity struct {
	Name           string  `json:"name"`
	EstimatedValue float64 `json:"estimatedvalue"`
	Description    string  `json:"description,omitempty"`
}

// PushOpportunity creates an opportunity for a completed quotation.
func (c *Client) PushOpportunity(ctx context.Context, quotation *models.Quotation) error {
	payload := opportunity{
		Name:           quotation.Name,
		EstimatedValue: quotation.Total,
		Description:    fmt.Sprintf("Cotacao %s", quotation.ID),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal opportunity: %w", err)
	}

	endpoint := strings.TrimRight(c.config.Resource, "/") + "/api/data/v9.2/opportunities"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build CRM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OData-Version", "4.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("CRM request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("CRM rejected opportunity: status %d: %s", resp.StatusCode, string(detail))
	}

	c.logger.Info().
		Str("quotation_id", quotation.ID).
		Str("total", fmt.Sprintf("%.2f", quotation.Total)).
		Msg("Quotation pushed to CRM")
	return nil
}
