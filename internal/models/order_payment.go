package models

import (
	"time"
)

// OrderPayment is the local ledger record for one order's payment.
// One record may exist per order, and one per Stripe payment intent.
type OrderPayment struct {
	BaseModel
	OrderID              string     `gorm:"column:order_id;uniqueIndex;not null" json:"order_id"`
	PaymentIntentID      string     `gorm:"column:payment_intent_id;uniqueIndex" json:"payment_intent_id"`
	Amount               int64      `gorm:"not null" json:"amount"`
	Currency             string     `gorm:"size:3;default:'eur'" json:"currency"`
	Status               string     `gorm:"not null;index" json:"status"`
	PaidBy               string     `gorm:"column:paid_by" json:"paid_by"`
	PaidTo               string     `gorm:"column:paid_to" json:"paid_to"`
	StripeAccountID      string     `gorm:"column:stripe_account_id" json:"stripe_account_id"`
	ApplicationFeeAmount *int64     `gorm:"column:application_fee_amount" json:"application_fee_amount"`
	PaymentDate          time.Time  `gorm:"column:payment_date" json:"payment_date"`
	PaymentDueDate       *time.Time `gorm:"column:payment_due_date" json:"payment_due_date"`
	ErrorMessage         string     `gorm:"column:error_message;type:text" json:"error_message"`
}

// TableName overrides the default table name.
func (OrderPayment) TableName() string {
	return "order_payments"
}
