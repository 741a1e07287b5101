package payments

import "strings"

// PaymentStatus is the canonical local payment state.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusSucceeded PaymentStatus = "SUCCEEDED"
	StatusFailed    PaymentStatus = "FAILED"
)

// ParseStatus maps a caller-supplied status string to a PaymentStatus.
func ParseStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, true
	case StatusSucceeded:
		return StatusSucceeded, true
	case StatusFailed:
		return StatusFailed, true
	}
	return "", false
}

// Signal is a normalized status signal derived from Stripe statuses or events.
type Signal int

const (
	SignalSucceeded Signal = iota
	SignalFailed
	SignalProcessing
	SignalRefunded
)

func (s Signal) String() string {
	switch s {
	case SignalSucceeded:
		return "succeeded"
	case SignalFailed:
		return "failed"
	case SignalProcessing:
		return "processing"
	case SignalRefunded:
		return "refunded"
	}
	return "unknown"
}

// SignalFromIntentStatus normalizes a Stripe payment intent status string.
// Unknown statuses resolve to SignalFailed so new Stripe vocabulary degrades
// safely instead of crashing event processing.
func SignalFromIntentStatus(status string) Signal {
	switch status {
	case "succeeded", "requires_capture":
		return SignalSucceeded
	case "processing", "requires_payment_method", "requires_confirmation":
		return SignalProcessing
	default:
		return SignalFailed
	}
}

// SignalFromEventType normalizes a webhook event type. The second return is
// false for event types that carry no payment status signal.
func SignalFromEventType(eventType string) (Signal, bool) {
	switch eventType {
	case "payment_intent.succeeded":
		return SignalSucceeded, true
	case "payment_intent.payment_failed":
		return SignalFailed, true
	case "payment_intent.processing":
		return SignalProcessing, true
	case "charge.refunded":
		return SignalRefunded, true
	}
	return 0, false
}

const (
	// RefundedMessage annotates records failed by a refund.
	RefundedMessage = "Payment was refunded"
	// ProcessingMessage annotates records awaiting async confirmation.
	ProcessingMessage = "Payment is being processed"
	// GenericFailureMessage is used when Stripe supplies no failure reason.
	GenericFailureMessage = "Payment failed"
)

// Outcome is the result of reconciling a signal against the current status.
// When Changed is false the record must be left untouched. Otherwise Status
// and ErrorMessage replace the stored values; an empty ErrorMessage clears
// any previous annotation.
type Outcome struct {
	Status       PaymentStatus
	ErrorMessage string
	Changed      bool
}

// Reconcile computes the next canonical status for a record. It is pure and
// total: the same final state is reached regardless of signal arrival order,
// and a terminal success is never downgraded by a stale processing signal.
func Reconcile(current PaymentStatus, sig Signal, reason string) Outcome {
	switch sig {
	case SignalSucceeded:
		return Outcome{Status: StatusSucceeded, Changed: true}
	case SignalFailed:
		if reason == "" {
			reason = GenericFailureMessage
		}
		return Outcome{Status: StatusFailed, ErrorMessage: reason, Changed: true}
	case SignalProcessing:
		if current == StatusSucceeded {
			return Outcome{Status: current}
		}
		return Outcome{Status: StatusPending, ErrorMessage: ProcessingMessage, Changed: true}
	case SignalRefunded:
		return Outcome{Status: StatusFailed, ErrorMessage: RefundedMessage, Changed: true}
	}
	return Outcome{Status: current}
}
