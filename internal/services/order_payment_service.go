package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/IGDevX/marche-conclu-payment-service/internal/models"
	"github.com/IGDevX/marche-conclu-payment-service/internal/payments"
)

// PaymentRecordRequest is the payload of the payment recording endpoint.
type PaymentRecordRequest struct {
	PaymentIntentID      string     `json:"paymentIntentId"`
	Amount               int64      `json:"amount"`
	Currency             string     `json:"currency"`
	Status               string     `json:"status"`
	PaidBy               string     `json:"paidBy"`
	PaidTo               string     `json:"paidTo"`
	StripeAccountID      string     `json:"stripeAccountId"`
	ApplicationFeeAmount *int64     `json:"applicationFeeAmount"`
	PaymentDate          time.Time  `json:"paymentDate"`
	PaymentDueDate       *time.Time `json:"paymentDueDate"`
	ErrorMessage         string     `json:"errorMessage"`
}

// PaymentRecordResponse is the full record view returned to callers.
type PaymentRecordResponse struct {
	ID                   string     `json:"id"`
	OrderID              string     `json:"orderId"`
	PaymentIntentID      string     `json:"paymentIntentId"`
	Amount               int64      `json:"amount"`
	Currency             string     `json:"currency"`
	Status               string     `json:"status"`
	PaidBy               string     `json:"paidBy"`
	PaidTo               string     `json:"paidTo"`
	StripeAccountID      string     `json:"stripeAccountId,omitempty"`
	ApplicationFeeAmount *int64     `json:"applicationFeeAmount,omitempty"`
	PaymentDate          time.Time  `json:"paymentDate"`
	PaymentDueDate       *time.Time `json:"paymentDueDate,omitempty"`
	ErrorMessage         string     `json:"errorMessage,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// OrderStatusUpdateRequest asks the order service to move an order forward.
type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

// OrderStatusUpdateResponse reports the outcome of an order status update.
type OrderStatusUpdateResponse struct {
	OrderID        string    `json:"orderId"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus"`
	UpdatedAt      time.Time `json:"updatedAt"`
	UpdatedBy      string    `json:"updatedBy"`
}

// IntentVerifier is the slice of the gateway the verification path needs.
type IntentVerifier interface {
	RetrievePaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntentResponse, error)
}

// OrderPaymentService owns the synchronous payment record lifecycle: the
// recording upsert, status queries, and manual verification against a fresh
// Stripe snapshot. It shares the RecordStore contract with the webhook path
// so both converge on one state machine.
type OrderPaymentService struct {
	store   payments.RecordStore
	gateway IntentVerifier
	log     *logrus.Entry
}

// NewOrderPaymentService wires the service.
func NewOrderPaymentService(store payments.RecordStore, gateway IntentVerifier) *OrderPaymentService {
	return &OrderPaymentService{
		store:   store,
		gateway: gateway,
		log:     logrus.WithField("component", "order_payment_service"),
	}
}

// RecordPayment creates or overwrites the single payment record for an order.
func (s *OrderPaymentService) RecordPayment(ctx context.Context, orderID string, req PaymentRecordRequest) (*PaymentRecordResponse, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, payments.NewValidationError("MISSING_ORDER_ID", "Order id is required")
	}
	if strings.TrimSpace(req.PaymentIntentID) == "" {
		return nil, payments.NewValidationError(payments.CodeMissingIntent, "Payment intent id is required")
	}
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

	status, ok := payments.ParseStatus(req.Status)
	if !ok {
		return nil, payments.NewValidationError(payments.CodeInvalidStatus, "Status must be one of PENDING, SUCCEEDED, FAILED")
	}

	if fee := req.ApplicationFeeAmount; fee != nil && (*fee < 0 || *fee >= req.Amount) {
		return nil, payments.NewValidationError(payments.CodeInvalidFee, "Application fee cannot be greater than or equal to payment amount")
	}

	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	errorMessage := req.ErrorMessage
	if status == payments.StatusSucceeded {
		errorMessage = ""
	}

	rec, err := s.store.UpsertByOrderID(ctx, orderID, payments.RecordFields{
		PaymentIntentID:      req.PaymentIntentID,
		Amount:               req.Amount,
		Currency:             currency,
		Status:               status,
		PaidBy:               req.PaidBy,
		PaidTo:               req.PaidTo,
		StripeAccountID:      req.StripeAccountID,
		ApplicationFeeAmount: req.ApplicationFeeAmount,
		PaymentDate:          paymentDate,
		PaymentDueDate:       req.PaymentDueDate,
		ErrorMessage:         errorMessage,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id":          orderID,
		"payment_intent_id": rec.PaymentIntentID,
		"status":            rec.Status,
	}).Info("payment recorded")

	return recordResponse(rec), nil
}

// GetPaymentStatus returns the record for an order.
func (s *OrderPaymentService) GetPaymentStatus(ctx context.Context, orderID string) (*PaymentRecordResponse, error) {
	rec, err := s.store.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return recordResponse(rec), nil
}

// VerifyPayment re-fetches the processor-side status and reconciles it into
// the local record. The fresh snapshot is authoritative at call time.
func (s *OrderPaymentService) VerifyPayment(ctx context.Context, paymentIntentID string) (*PaymentRecordResponse, error) {
	snapshot, err := s.gateway.RetrievePaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}

	sig := payments.SignalFromIntentStatus(snapshot.Status)
	rec, err := s.store.ApplySignal(ctx, paymentIntentID, sig, "")
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"payment_intent_id": paymentIntentID,
		"stripe_status":     snapshot.Status,
		"status":            rec.Status,
	}).Info("payment verified against Stripe")

	return recordResponse(rec), nil
}

// UpdateOrderStatus acknowledges an order status change. The actual order
// state lives in the order service; this endpoint exists for the checkout
// flow's call sequence.
func (s *OrderPaymentService) UpdateOrderStatus(orderID, callerID string, req OrderStatusUpdateRequest) *OrderStatusUpdateResponse {
	if callerID == "" {
		callerID = "payment-service"
	}

	s.log.WithFields(logrus.Fields{
		"order_id":   orderID,
		"status":     req.Status,
		"updated_by": callerID,
	}).Info("order status update requested")

	return &OrderStatusUpdateResponse{
		OrderID:        orderID,
		Status:         req.Status,
		PreviousStatus: "unknown",
		UpdatedAt:      time.Now(),
		UpdatedBy:      callerID,
	}
}

func recordResponse(rec *models.OrderPayment) *PaymentRecordResponse {
	return &PaymentRecordResponse{
		ID:                   rec.ID.String(),
		OrderID:              rec.OrderID,
		PaymentIntentID:      rec.PaymentIntentID,
		Amount:               rec.Amount,
		Currency:             rec.Currency,
		Status:               rec.Status,
		PaidBy:               rec.PaidBy,
		PaidTo:               rec.PaidTo,
		StripeAccountID:      rec.StripeAccountID,
		ApplicationFeeAmount: rec.ApplicationFeeAmount,
		PaymentDate:          rec.PaymentDate,
		PaymentDueDate:       rec.PaymentDueDate,
		ErrorMessage:         rec.ErrorMessage,
		CreatedAt:            rec.CreatedAt,
		UpdatedAt:            rec.UpdatedAt,
	}
}
