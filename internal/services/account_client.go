package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/IGDevX/marche-conclu-payment-service/internal/payments"
)

const connectedAccountPath = "/account/stripe/connected-account"

// AccountStripeInfo is the account service's view of a producer's Stripe
// connected account.
type AccountStripeInfo struct {
	StripeAccountID    string `json:"stripeAccountId"`
	OnboardingComplete bool   `json:"onboardingComplete"`
	Status             string `json:"status"`
}

// AccountLookup resolves a producer identity to connected-account info.
type AccountLookup interface {
	ProducerStripeInfo(ctx context.Context, producerKeycloakID string) (*AccountStripeInfo, error)
}

// AccountClient calls the account service over HTTP.
type AccountClient struct {
	baseURL string
	client  *http.Client
}

// NewAccountClient builds a client with a bounded request timeout.
func NewAccountClient(baseURL string, timeout time.Duration) *AccountClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AccountClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ProducerStripeInfo fetches connected-account info for a producer. A producer
// without a completed onboarding is a validation failure, not a retryable
// fault.
func (c *AccountClient) ProducerStripeInfo(ctx context.Context, producerKeycloakID string) (*AccountStripeInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+connectedAccountPath, nil)
	if err != nil {
		return nil, payments.NewGatewayError("ACCOUNT_LOOKUP_FAILED", "failed to build account service request", err)
	}
	req.Header.Set("X-Keycloak-Id", producerKeycloakID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, payments.NewGatewayError("ACCOUNT_LOOKUP_FAILED", "account service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, payments.NewGatewayError(
			"ACCOUNT_LOOKUP_FAILED",
			fmt.Sprintf("account service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			nil,
		)
	}

	var info AccountStripeInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, payments.NewGatewayError("ACCOUNT_LOOKUP_FAILED", "invalid account service response", err)
	}

	if info.StripeAccountID == "" {
		return nil, payments.NewValidationError(payments.CodeNoConnectedAccount, "producer does not have a connected Stripe account")
	}
	if !info.OnboardingComplete {
		return nil, payments.NewValidationError(payments.CodeAccountNotOnboarded, "producer's Stripe account onboarding is not complete")
	}

	return &info, nil
}
