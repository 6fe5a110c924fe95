package eligibility

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clearmind-health/booking-platform/internal/resilience"
	"github.com/clearmind-health/booking-platform/pkg/logging"
)

// BreakerName identifies the clearinghouse integration in the breaker registry.
const BreakerName = "eligibility"

// defaultTimeout bounds the external call independently of the caller's
// deadline.
const defaultTimeout = 15 * time.Second

// Inquiry is a 270-style eligibility request for one subscriber.
type Inquiry struct {
	PayerID     string `json:"payerId"`
	MemberID    string `json:"memberId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	ServiceDate string `json:"serviceDate,omitempty"`
}

// Validate checks the fields the clearinghouse rejects when absent.
func (i Inquiry) Validate() error {
	if i.PayerID == "" {
		return fmt.Errorf("eligibility: payer id required")
	}
	if i.MemberID == "" {
		return fmt.Errorf("eligibility: member id required")
	}
	if i.FirstName == "" || i.LastName == "" {
		return fmt.Errorf("eligibility: subscriber name required")
	}
	if i.DateOfBirth == "" {
		return fmt.Errorf("eligibility: date of birth required")
	}
	return nil
}

// Client posts eligibility inquiries to the clearinghouse and returns the raw
// 271 response text. Every call runs through the circuit breaker so a partner
// outage degrades to fail-fast instead of cascading timeouts.
type Client struct {
	baseURL      string
	apiKey       string
	providerName string
	providerNPI  string
	httpClient   *http.Client
	breakers     *resilience.Registry
	logger       *logging.Logger
}

// NewClient creates a clearinghouse client.
func NewClient(baseURL, apiKey, providerName, providerNPI string, breakers *resilience.Registry, logger *logging.Logger) *Client {
	if breakers == nil {
		panic("eligibility: breaker registry required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		providerName: providerName,
		providerNPI:  providerNPI,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		breakers: breakers,
		logger:   logger,
	}
}

// SetTimeout overrides the fixed external timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

type inquiryEnvelope struct {
	Provider struct {
		OrganizationName string `json:"organizationName"`
		NPI              string `json:"npi"`
	} `json:"provider"`
	Subscriber Inquiry `json:"subscriber"`
}

// CheckRaw submits the inquiry and returns the raw eligibility-response text.
func (c *Client) CheckRaw(ctx context.Context, inquiry Inquiry) (string, error) {
	if err := inquiry.Validate(); err != nil {
		return "", err
	}

	var raw string
	err := c.breakers.Execute(ctx, BreakerName, func(ctx context.Context) error {
		var callErr error
		raw, callErr = c.post(ctx, inquiry)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, inquiry Inquiry) (string, error) {
	envelope := inquiryEnvelope{Subscriber: inquiry}
	envelope.Provider.OrganizationName = c.providerName
	envelope.Provider.NPI = c.providerNPI

	payload, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("eligibility: marshal inquiry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/eligibility/check", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("eligibility: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("eligibility: clearinghouse call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("eligibility: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("eligibility check failed",
			"status", resp.StatusCode,
			"payer_id", inquiry.PayerID,
		)
		return "", fmt.Errorf("eligibility: clearinghouse status %d", resp.StatusCode)
	}
	return string(body), nil
}
