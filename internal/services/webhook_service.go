package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/IGDevX/marche-conclu-payment-service/internal/metrics"
	"github.com/IGDevX/marche-conclu-payment-service/internal/payments"
)

// Authentication failures. Both reject the delivery so Stripe retries it.
var (
	ErrMissingWebhookSecret = errors.New("webhook secret is not configured")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
)

// WebhookConfig holds the per-channel signing secret and the accepted clock
// skew for event timestamps.
type WebhookConfig struct {
	Secret    string
	Tolerance time.Duration
}

// verifyEvent checks the payload signature before anything else touches it.
// No state is mutated until this returns successfully.
func verifyEvent(payload []byte, sigHeader string, cfg WebhookConfig) (stripe.Event, error) {
	if cfg.Secret == "" {
		return stripe.Event{}, ErrMissingWebhookSecret
	}

	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}

	event, err := webhook.ConstructEventWithTolerance(payload, sigHeader, cfg.Secret, tolerance)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

type eventHandler func(ctx context.Context, event stripe.Event) error

// WebhookService processes standard-channel Stripe events: it authenticates
// the payload, routes it through the dispatch table, and reconciles the
// extracted signal into the local record inside one transaction.
type WebhookService struct {
	store    payments.RecordStore
	cfg      WebhookConfig
	handlers map[string]eventHandler
	log      *logrus.Entry
}

// NewWebhookService wires the dispatch table for the standard channel.
func NewWebhookService(store payments.RecordStore, cfg WebhookConfig) *WebhookService {
	s := &WebhookService{
		store: store,
		cfg:   cfg,
		log:   logrus.WithField("component", "webhook_service"),
	}
	s.handlers = map[string]eventHandler{
		"payment_intent.succeeded":      s.handlePaymentIntent,
		"payment_intent.payment_failed": s.handlePaymentIntent,
		"payment_intent.processing":     s.handlePaymentIntent,
		"charge.refunded":               s.handleChargeRefunded,
	}
	return s
}

// ProcessEvent verifies and dispatches one webhook delivery. Unknown event
// types are acknowledged, not errors: Stripe may ship types this service does
// not understand yet.
func (s *WebhookService) ProcessEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := verifyEvent(payload, sigHeader, s.cfg)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("standard", "unknown", "auth_failed").Inc()
		return err
	}

	handler, ok := s.handlers[event.Type]
	if !ok {
		s.log.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Info("unhandled event type")
		metrics.WebhookEvents.WithLabelValues("standard", event.Type, "unhandled").Inc()
		return nil
	}

	if err := handler(ctx, event); err != nil {
		metrics.WebhookEvents.WithLabelValues("standard", event.Type, "error").Inc()
		return err
	}
	metrics.WebhookEvents.WithLabelValues("standard", event.Type, "processed").Inc()
	return nil
}

func (s *WebhookService) handlePaymentIntent(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("parse payment intent from event %s: %w", event.ID, err)
	}
	if intent.ID == "" {
		s.log.WithField("event_id", event.ID).Error("event carries no payment intent id")
		return nil
	}

	sig, ok := payments.SignalFromEventType(event.Type)
	if !ok {
		return nil
	}

	reason := ""
	if intent.LastPaymentError != nil {
		reason = intent.LastPaymentError.Msg
	}

	return applySignal(ctx, s.store, s.log, event.ID, intent.ID, sig, reason)
}

func (s *WebhookService) handleChargeRefunded(ctx context.Context, event stripe.Event) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return fmt.Errorf("parse charge from event %s: %w", event.ID, err)
	}
	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		s.log.WithFields(logrus.Fields{
			"event_id": event.ID,
			"charge":   charge.ID,
		}).Warn("refunded charge has no payment intent reference")
		return nil
	}

	s.log.WithFields(logrus.Fields{
		"event_id":        event.ID,
		"charge":          charge.ID,
		"amount_refunded": charge.AmountRefunded,
	}).Warn("refund received")

	return applySignal(ctx, s.store, s.log, event.ID, charge.PaymentIntent.ID, payments.SignalRefunded, "")
}

// applySignal reconciles one signal into the store. A missing local record is
// a warning, not a failure: the webhook may have raced ahead of the recording
// call, and records are never created from webhooks alone. The event id is
// logged for future duplicate suppression.
func applySignal(ctx context.Context, store payments.RecordStore, log *logrus.Entry, eventID, paymentIntentID string, sig payments.Signal, reason string) error {
	rec, err := store.ApplySignal(ctx, paymentIntentID, sig, reason)
	if errors.Is(err, payments.ErrRecordNotFound) {
		log.WithFields(logrus.Fields{
			"event_id":          eventID,
			"payment_intent_id": paymentIntentID,
			"signal":            sig.String(),
		}).Warn("no local payment record for webhook event")
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply %s signal for intent %s: %w", sig, paymentIntentID, err)
	}

	log.WithFields(logrus.Fields{
		"event_id":          eventID,
		"payment_intent_id": paymentIntentID,
		"signal":            sig.String(),
		"status":            rec.Status,
	}).Info("payment record reconciled")
	return nil
}
