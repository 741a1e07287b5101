package payments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IGDevX/marche-conclu-payment-service/internal/models"
)

// MemoryStore is an in-memory RecordStore for tests and local development.
// A single mutex serializes all writers, which satisfies the same per-record
// ordering contract the Postgres store provides with row locks.
type MemoryStore struct {
	mu      sync.Mutex
	byOrder map[string]*models.OrderPayment
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byOrder: make(map[string]*models.OrderPayment)}
}

// FindByOrderID returns a copy of the record for an order.
func (s *MemoryStore) FindByOrderID(ctx context.Context, orderID string) (*models.OrderPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byOrder[orderID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return copyRecord(rec), nil
}

// FindByPaymentIntentID returns a copy of the record for a Stripe reference.
func (s *MemoryStore) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.OrderPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.findByIntentLocked(paymentIntentID)
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	return copyRecord(rec), nil
}

// UpsertByOrderID creates or overwrites the single record for an order.
func (s *MemoryStore) UpsertByOrderID(ctx context.Context, orderID string, fields RecordFields) (*models.OrderPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec, ok := s.byOrder[orderID]
	if !ok {
		rec = &models.OrderPayment{
			BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: now},
			OrderID:   orderID,
		}
		s.byOrder[orderID] = rec
	}

	rec.PaymentIntentID = fields.PaymentIntentID
	rec.Amount = fields.Amount
	rec.Currency = fields.Currency
	rec.Status = string(fields.Status)
	rec.PaidBy = fields.PaidBy
	rec.PaidTo = fields.PaidTo
	rec.StripeAccountID = fields.StripeAccountID
	rec.ApplicationFeeAmount = fields.ApplicationFeeAmount
	rec.PaymentDate = fields.PaymentDate
	rec.PaymentDueDate = fields.PaymentDueDate
	rec.ErrorMessage = fields.ErrorMessage
	rec.UpdatedAt = now

	return copyRecord(rec), nil
}

// ApplySignal reconciles a signal against the record for a Stripe reference.
func (s *MemoryStore) ApplySignal(ctx context.Context, paymentIntentID string, sig Signal, reason string) (*models.OrderPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findByIntentLocked(paymentIntentID)
	if rec == nil {
		return nil, ErrRecordNotFound
	}

	out := Reconcile(PaymentStatus(rec.Status), sig, reason)
	if out.Changed {
		rec.Status = string(out.Status)
		rec.ErrorMessage = out.ErrorMessage
		rec.UpdatedAt = time.Now()
	}
	return copyRecord(rec), nil
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byOrder)
}

func (s *MemoryStore) findByIntentLocked(paymentIntentID string) *models.OrderPayment {
	if paymentIntentID == "" {
		return nil
	}
	for _, rec := range s.byOrder {
		if rec.PaymentIntentID == paymentIntentID {
			return rec
		}
	}
	return nil
}

func copyRecord(rec *models.OrderPayment) *models.OrderPayment {
	out := *rec
	return &out
}
