package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IGDevX/marche-conclu-payment-service/internal/models"
)

// RecordFields carries the mutable columns of an OrderPayment for an upsert.
type RecordFields struct {
	PaymentIntentID      string
	Amount               int64
	Currency             string
	Status               PaymentStatus
	PaidBy               string
	PaidTo               string
	StripeAccountID      string
	ApplicationFeeAmount *int64
	PaymentDate          time.Time
	PaymentDueDate       *time.Time
	ErrorMessage         string
}

// RecordStore is the persistence contract for OrderPayment records. Status
// mutations go through ApplySignal only, so every transition passes the
// Reconcile state machine.
type RecordStore interface {
	FindByOrderID(ctx context.Context, orderID string) (*models.OrderPayment, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.OrderPayment, error)
	UpsertByOrderID(ctx context.Context, orderID string, fields RecordFields) (*models.OrderPayment, error)
	ApplySignal(ctx context.Context, paymentIntentID string, sig Signal, reason string) (*models.OrderPayment, error)
}

// GormStore is the Postgres-backed RecordStore. Writers for the same record
// are serialized with row-level locks inside one transaction per call.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FindByOrderID looks a record up by its business key.
func (s *GormStore) FindByOrderID(ctx context.Context, orderID string) (*models.OrderPayment, error) {
	var rec models.OrderPayment
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindByPaymentIntentID looks a record up by its Stripe reference.
func (s *GormStore) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.OrderPayment, error) {
	var rec models.OrderPayment
	if err := s.db.WithContext(ctx).
		Where("payment_intent_id = ?", paymentIntentID).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// UpsertByOrderID creates or overwrites the single record for an order. A
// unique-violation from a racing creator is resolved by re-reading the
// winner's row and applying the update to it, so the call never surfaces the
// conflict and never leaves a partial write.
func (s *GormStore) UpsertByOrderID(ctx context.Context, orderID string, fields RecordFields) (*models.OrderPayment, error) {
	rec, err := s.upsertOnce(ctx, orderID, fields)
	if isUniqueViolation(err) {
		rec, err = s.upsertOnce(ctx, orderID, fields)
	}
	return rec, err
}

func (s *GormStore) upsertOnce(ctx context.Context, orderID string, fields RecordFields) (*models.OrderPayment, error) {
	var result *models.OrderPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.OrderPayment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", orderID).
			First(&rec).Error
		switch {
		case err == nil:
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
			if err := tx.Save(&rec).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = models.OrderPayment{
				OrderID:              orderID,
				PaymentIntentID:      fields.PaymentIntentID,
				Amount:               fields.Amount,
				Currency:             fields.Currency,
				Status:               string(fields.Status),
				PaidBy:               fields.PaidBy,
				PaidTo:               fields.PaidTo,
				StripeAccountID:      fields.StripeAccountID,
				ApplicationFeeAmount: fields.ApplicationFeeAmount,
				PaymentDate:          fields.PaymentDate,
				PaymentDueDate:       fields.PaymentDueDate,
				ErrorMessage:         fields.ErrorMessage,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		default:
			return err
		}
		result = &rec
		return nil
	})
	return result, err
}

// ApplySignal reconciles a status signal against the record referenced by the
// payment intent id, under a row lock so racing deliveries apply one at a
// time. A missing record yields ErrRecordNotFound and creates nothing: local
// records only come into existence through the explicit recording path.
func (s *GormStore) ApplySignal(ctx context.Context, paymentIntentID string, sig Signal, reason string) (*models.OrderPayment, error) {
	var result *models.OrderPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.OrderPayment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("payment_intent_id = ?", paymentIntentID).
			First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		out := Reconcile(PaymentStatus(rec.Status), sig, reason)
		if !out.Changed {
			result = &rec
			return nil
		}

		rec.Status = string(out.Status)
		rec.ErrorMessage = out.ErrorMessage
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		result = &rec
		return nil
	})
	return result, err
}

// isUniqueViolation recognizes a Postgres 23505 from the pgx-backed gorm
// driver, plus gorm's translated form for configurations that enable it.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
