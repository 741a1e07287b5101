package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"github.com/IGDevX/marche-conclu-payment-service/internal/payments"
)

type fakeIntentAPI struct {
	newCalls    []*stripe.PaymentIntentParams
	getCalls    []string
	cancelCalls []string
	intent      *stripe.PaymentIntent
	err         error
}

func (f *fakeIntentAPI) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.newCalls = append(f.newCalls, params)
	return f.intent, f.err
}

func (f *fakeIntentAPI) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.getCalls = append(f.getCalls, id)
	return f.intent, f.err
}

func (f *fakeIntentAPI) Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	f.cancelCalls = append(f.cancelCalls, id)
	return f.intent, f.err
}

type fakeAccountLookup struct {
	info  *AccountStripeInfo
	err   error
	calls int
}

func (f *fakeAccountLookup) ProducerStripeInfo(ctx context.Context, producerKeycloakID string) (*AccountStripeInfo, error) {
	f.calls++
	return f.info, f.err
}

func testIntent(id, status string) *stripe.PaymentIntent {
	return &stripe.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       stripe.PaymentIntentStatus(status),
	}
}

func feeOf(v int64) *int64 {
	return &v
}

func TestCreatePaymentIntentRejectsNonPositiveAmount(t *testing.T) {
	api := &fakeIntentAPI{}
	gw := newStripeGateway(api, &fakeAccountLookup{})

	_, err := gw.CreatePaymentIntent(context.Background(), PaymentIntentRequest{Amount: 0})

	var validationErr *payments.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, payments.CodeInvalidAmount, validationErr.Code)
	assert.Empty(t, api.newCalls)
}

func TestCreatePaymentIntentRejectsFeeAtOrAboveAmount(t *testing.T) {
	api := &fakeIntentAPI{}
	accounts := &fakeAccountLookup{}
	gw := newStripeGateway(api, accounts)

	_, err := gw.CreatePaymentIntent(context.Background(), PaymentIntentRequest{
		Amount:               1000,
		ProducerKeycloakID:   "producer-1",
		ApplicationFeeAmount: feeOf(1100),
	})

	var validationErr *payments.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, payments.CodeInvalidFee, validationErr.Code)
	assert.Empty(t, api.newCalls, "no gateway call may be made")
	assert.Zero(t, accounts.calls, "no account lookup may be made")
}

func TestCreatePaymentIntentRejectsUnonboardedAccount(t *testing.T) {
	api := &fakeIntentAPI{}
	accounts := &fakeAccountLookup{
		err: payments.NewValidationError(payments.CodeAccountNotOnboarded, "onboarding incomplete"),
	}
	gw := newStripeGateway(api, accounts)

	_, err := gw.CreatePaymentIntent(context.Background(), PaymentIntentRequest{
		Amount:             1000,
		ProducerKeycloakID: "producer-1",
	})

	var validationErr *payments.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, payments.CodeAccountNotOnboarded, validationErr.Code)
	assert.Empty(t, api.newCalls)
}

func TestCreatePaymentIntentConnectedAccount(t *testing.T) {
	api := &fakeIntentAPI{intent: testIntent("pi_1", "requires_payment_method")}
	accounts := &fakeAccountLookup{
		info: &AccountStripeInfo{StripeAccountID: "acct_1", OnboardingComplete: true},
	}
	gw := newStripeGateway(api, accounts)

	resp, err := gw.CreatePaymentIntent(context.Background(), PaymentIntentRequest{
		Amount:               1000,
		Currency:             "EUR",
		OrderID:              "O1",
		ProducerKeycloakID:   "producer-1",
		ApplicationFeeAmount: feeOf(100),
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_1", resp.PaymentIntentID)
	assert.Equal(t, "pi_1_secret", resp.ClientSecret)
	assert.Equal(t, "requires_payment_method", resp.Status)

	require.Len(t, api.newCalls, 1)
	params := api.newCalls[0]
	assert.Equal(t, int64(1000), *params.Amount)
	assert.Equal(t, "eur", *params.Currency)
	require.NotNil(t, params.TransferData)
	assert.Equal(t, "acct_1", *params.TransferData.Destination)
	require.NotNil(t, params.ApplicationFeeAmount)
	assert.Equal(t, int64(100), *params.ApplicationFeeAmount)
	assert.Equal(t, "O1", params.Metadata["order_id"])
	assert.Equal(t, "producer-1", params.Metadata["producer_keycloak_id"])
	assert.Equal(t, "acct_1", params.Metadata["stripe_account_id"])
}

func TestCreatePaymentIntentPlainPaymentSkipsAccountLookup(t *testing.T) {
	api := &fakeIntentAPI{intent: testIntent("pi_2", "requires_payment_method")}
	accounts := &fakeAccountLookup{}
	gw := newStripeGateway(api, accounts)

	resp, err := gw.CreatePaymentIntent(context.Background(), PaymentIntentRequest{Amount: 500})
	require.NoError(t, err)

	assert.Equal(t, "pi_2", resp.PaymentIntentID)
	assert.Zero(t, accounts.calls)
	require.Len(t, api.newCalls, 1)
	assert.Nil(t, api.newCalls[0].TransferData)
}

func TestRetrievePaymentIntentTranslatesMissingIntent(t *testing.T) {
	api := &fakeIntentAPI{
		err: &stripe.Error{HTTPStatusCode: 404, Msg: "No such payment_intent"},
	}
	gw := newStripeGateway(api, &fakeAccountLookup{})

	_, err := gw.RetrievePaymentIntent(context.Background(), "pi_missing")

	var gatewayErr *payments.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, "NOT_FOUND", gatewayErr.Code)
}

func TestCancelPaymentIntentTranslatesStripeError(t *testing.T) {
	api := &fakeIntentAPI{
		err: &stripe.Error{HTTPStatusCode: 400, Msg: "You cannot cancel this PaymentIntent"},
	}
	gw := newStripeGateway(api, &fakeAccountLookup{})

	_, err := gw.CancelPaymentIntent(context.Background(), "pi_1")

	var gatewayErr *payments.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, "CANCELLATION_FAILED", gatewayErr.Code)
	assert.Contains(t, gatewayErr.Message, "cannot cancel")
}
