package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/IGDevX/marche-conclu-payment-service/internal/metrics"
	"github.com/IGDevX/marche-conclu-payment-service/internal/payments"
)

const defaultCurrency = "eur"

// PaymentIntentRequest carries inputs for creating a payment intent. When
// ProducerKeycloakID is set the payment becomes a marketplace payment: funds
// are transferred to the producer's connected account minus the platform fee.
type PaymentIntentRequest struct {
	Amount               int64  `json:"amount"`
	Currency             string `json:"currency"`
	OrderID              string `json:"orderId"`
	ProducerKeycloakID   string `json:"producerKeycloakId"`
	ApplicationFeeAmount *int64 `json:"applicationFeeAmount"`
}

// PaymentIntentResponse is what clients need to confirm the payment.
type PaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	Status          string `json:"status"`
}

// paymentIntentAPI is the slice of the Stripe client the gateway needs.
type paymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

// StripeGateway is a fault-translating facade over Stripe's payment intent
// operations. Stripe failures surface as GatewayError, caller-input problems
// as ValidationError.
type StripeGateway struct {
	intents  paymentIntentAPI
	accounts AccountLookup
	log      *logrus.Entry
}

// NewStripeGateway builds a gateway backed by the real Stripe API.
func NewStripeGateway(apiKey string, accounts AccountLookup) *StripeGateway {
	return newStripeGateway(&paymentintent.Client{
		B:   stripe.GetBackend(stripe.APIBackend),
		Key: apiKey,
	}, accounts)
}

func newStripeGateway(intents paymentIntentAPI, accounts AccountLookup) *StripeGateway {
	return &StripeGateway{
		intents:  intents,
		accounts: accounts,
		log:      logrus.WithField("component", "stripe_gateway"),
	}
}

// CreatePaymentIntent validates the request, resolves the destination account
// for marketplace payments, and creates the intent. All validation happens
// before any outbound call.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntentResponse, error) {
	if req.Amount <= 0 {
		return nil, payments.NewValidationError(payments.CodeInvalidAmount, "Amount must be greater than 0")
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if len(currency) != 3 {
		return nil, payments.NewValidationError(payments.CodeInvalidCurrency, "Currency must be a 3-letter ISO 4217 code")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.OrderID != "" {
		params.AddMetadata("order_id", req.OrderID)
	}

	if req.ProducerKeycloakID != "" {
		fee := req.ApplicationFeeAmount
		if fee != nil && (*fee < 0 || *fee >= req.Amount) {
			return nil, payments.NewValidationError(payments.CodeInvalidFee, "Application fee cannot be greater than or equal to payment amount")
		}

		info, err := g.accounts.ProducerStripeInfo(ctx, req.ProducerKeycloakID)
		if err != nil {
			return nil, err
		}

		params.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(info.StripeAccountID),
		}
		if fee != nil && *fee > 0 {
			params.ApplicationFeeAmount = stripe.Int64(*fee)
		}
		params.AddMetadata("producer_keycloak_id", req.ProducerKeycloakID)
		params.AddMetadata("stripe_account_id", info.StripeAccountID)

		g.log.WithFields(logrus.Fields{
			"producer":       req.ProducerKeycloakID,
			"stripe_account": info.StripeAccountID,
		}).Info("creating connected account payment")
	}

	intent, err := g.intents.New(params)
	if err != nil {
		metrics.PaymentIntents.WithLabelValues("create", "error").Inc()
		return nil, translateStripeError(err, "STRIPE_ERROR")
	}
	metrics.PaymentIntents.WithLabelValues("create", "ok").Inc()

	g.log.WithField("payment_intent_id", intent.ID).Info("payment intent created")

	return intentResponse(intent), nil
}

// RetrievePaymentIntent fetches the current processor-side snapshot.
func (g *StripeGateway) RetrievePaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntentResponse, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := g.intents.Get(paymentIntentID, params)
	if err != nil {
		metrics.PaymentIntents.WithLabelValues("retrieve", "error").Inc()
		return nil, translateStripeError(err, "NOT_FOUND")
	}
	metrics.PaymentIntents.WithLabelValues("retrieve", "ok").Inc()
	return intentResponse(intent), nil
}

// CancelPaymentIntent cancels an intent that is still in a cancellable state.
func (g *StripeGateway) CancelPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntentResponse, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	intent, err := g.intents.Cancel(paymentIntentID, params)
	if err != nil {
		metrics.PaymentIntents.WithLabelValues("cancel", "error").Inc()
		return nil, translateStripeError(err, "CANCELLATION_FAILED")
	}
	metrics.PaymentIntents.WithLabelValues("cancel", "ok").Inc()
	return intentResponse(intent), nil
}

func intentResponse(intent *stripe.PaymentIntent) *PaymentIntentResponse {
	return &PaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Status:          string(intent.Status),
	}
}

func translateStripeError(err error, fallbackCode string) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		code := fallbackCode
		if stripeErr.HTTPStatusCode == http.StatusNotFound {
			code = "NOT_FOUND"
		}
		msg := stripeErr.Msg
		if msg == "" {
			msg = "Stripe request failed"
		}
		return payments.NewGatewayError(code, msg, err)
	}
	return payments.NewGatewayError(fallbackCode, "Stripe request failed", err)
}
