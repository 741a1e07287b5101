package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"

	"github.com/IGDevX/marche-conclu-payment-service/internal/metrics"
	"github.com/IGDevX/marche-conclu-payment-service/internal/payments"
)

// ConnectWebhookService processes connected-account channel events. Account
// and payout administrative events never touch payment records; they are
// extension points for a notification collaborator. Payment events on this
// channel reconcile through the same state machine as the standard channel.
type ConnectWebhookService struct {
	store    payments.RecordStore
	cfg      WebhookConfig
	handlers map[string]eventHandler
	log      *logrus.Entry
}

// NewConnectWebhookService wires the dispatch table for the connect channel.
func NewConnectWebhookService(store payments.RecordStore, cfg WebhookConfig) *ConnectWebhookService {
	s := &ConnectWebhookService{
		store: store,
		cfg:   cfg,
		log:   logrus.WithField("component", "connect_webhook_service"),
	}
	s.handlers = map[string]eventHandler{
		"account.updated":                  s.handleAccountUpdated,
		"account.application.deauthorized": s.handleAccountDeauthorized,
		"account.external_account.updated": s.handleExternalAccountUpdated,
		"payout.paid":                      s.handlePayoutPaid,
		"payout.failed":                    s.handlePayoutFailed,
		"payment_intent.succeeded":         s.handleConnectPaymentSucceeded,
	}
	return s
}

// ProcessEvent verifies and dispatches one connect-channel delivery.
func (s *ConnectWebhookService) ProcessEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := verifyEvent(payload, sigHeader, s.cfg)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("connect", "unknown", "auth_failed").Inc()
		return err
	}

	handler, ok := s.handlers[event.Type]
	if !ok {
		s.log.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"account":    event.Account,
		}).Info("unhandled connect event type")
		metrics.WebhookEvents.WithLabelValues("connect", event.Type, "unhandled").Inc()
		return nil
	}

	if err := handler(ctx, event); err != nil {
		metrics.WebhookEvents.WithLabelValues("connect", event.Type, "error").Inc()
		return err
	}
	metrics.WebhookEvents.WithLabelValues("connect", event.Type, "processed").Inc()
	return nil
}

func (s *ConnectWebhookService) handleAccountUpdated(ctx context.Context, event stripe.Event) error {
	var account stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
		return fmt.Errorf("parse account from event %s: %w", event.ID, err)
	}

	entry := s.log.WithFields(logrus.Fields{
		"event_id":        event.ID,
		"account":         event.Account,
		"charges_enabled": account.ChargesEnabled,
		"payouts_enabled": account.PayoutsEnabled,
	})
	entry.Info("connected account updated")

	if account.Requirements != nil {
		if len(account.Requirements.CurrentlyDue) > 0 {
			entry.WithField("currently_due", account.Requirements.CurrentlyDue).
				Warn("connected account has outstanding requirements")
		}
		if account.Requirements.DisabledReason != "" {
			entry.WithField("disabled_reason", account.Requirements.DisabledReason).
				Error("connected account is disabled")
		}
	}
	return nil
}

func (s *ConnectWebhookService) handleAccountDeauthorized(ctx context.Context, event stripe.Event) error {
	s.log.WithFields(logrus.Fields{
		"event_id": event.ID,
		"account":  event.Account,
	}).Warn("connected account deauthorized the application")
	return nil
}

func (s *ConnectWebhookService) handleExternalAccountUpdated(ctx context.Context, event stripe.Event) error {
	s.log.WithFields(logrus.Fields{
		"event_id": event.ID,
		"account":  event.Account,
	}).Info("external account updated for connected account")
	return nil
}

func (s *ConnectWebhookService) handlePayoutPaid(ctx context.Context, event stripe.Event) error {
	var payout stripe.Payout
	if err := json.Unmarshal(event.Data.Raw, &payout); err != nil {
		return fmt.Errorf("parse payout from event %s: %w", event.ID, err)
	}

	s.log.WithFields(logrus.Fields{
		"event_id": event.ID,
		"account":  event.Account,
		"payout":   payout.ID,
		"amount":   payout.Amount,
		"currency": payout.Currency,
	}).Info("payout succeeded for connected account")
	return nil
}

func (s *ConnectWebhookService) handlePayoutFailed(ctx context.Context, event stripe.Event) error {
	var payout stripe.Payout
	if err := json.Unmarshal(event.Data.Raw, &payout); err != nil {
		return fmt.Errorf("parse payout from event %s: %w", event.ID, err)
	}

	s.log.WithFields(logrus.Fields{
		"event_id":        event.ID,
		"account":         event.Account,
		"payout":          payout.ID,
		"amount":          payout.Amount,
		"currency":        payout.Currency,
		"failure_message": payout.FailureMessage,
	}).Error("payout failed for connected account")
	return nil
}

// handleConnectPaymentSucceeded reconciles direct charges made on the
// connected account itself; destination charges are handled by the standard
// channel.
func (s *ConnectWebhookService) handleConnectPaymentSucceeded(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("parse payment intent from event %s: %w", event.ID, err)
	}
	if intent.ID == "" {
		s.log.WithField("event_id", event.ID).Error("connect event carries no payment intent id")
		return nil
	}

	return applySignal(ctx, s.store, s.log.WithField("account", event.Account), event.ID, intent.ID, payments.SignalSucceeded, "")
}
