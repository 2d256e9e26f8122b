package domain

import (
	"strings"
	"time"
)

// PaymentOutcome is the closed three-way result of a reconciliation. The
// gateway reports outcomes as free-text descriptions; they are narrowed to
// this enum at the boundary and never stored raw.
type PaymentOutcome string

const (
	OutcomePaid     PaymentOutcome = "paid"
	OutcomeFailed   PaymentOutcome = "failed"
	OutcomeRefunded PaymentOutcome = "refunded"
)

// OutcomeFromDescription maps the gateway's status description to an outcome.
// The mapping is fail-closed: anything not explicitly recognized as a success
// or a reversal is a failure, never a payment.
func OutcomeFromDescription(desc string) PaymentOutcome {
	switch strings.ToLower(strings.TrimSpace(desc)) {
	case "completed":
		return OutcomePaid
	case "reversed":
		return OutcomeRefunded
	default:
		// covers "failed", "invalid" and every unrecognized value
		return OutcomeFailed
	}
}

func (o PaymentOutcome) PaymentStatus() PaymentStatus {
	switch o {
	case OutcomePaid:
		return PaymentPaid
	case OutcomeRefunded:
		return PaymentRefunded
	default:
		return PaymentFailed
	}
}

// PaymentResult is the full tuple written to an order in one atomic patch.
// Either all of it lands or none of it does.
type PaymentResult struct {
	Outcome          PaymentOutcome
	TransactionID    string
	ConfirmationCode string
	PaidAt           *time.Time
}

func NewPaymentResult(outcome PaymentOutcome, trackingID, confirmationCode string, at time.Time) PaymentResult {
	r := PaymentResult{
		Outcome:       outcome,
		TransactionID: trackingID,
	}
	if outcome == OutcomePaid {
		r.ConfirmationCode = confirmationCode
		t := at.UTC()
		r.PaidAt = &t
	}
	return r
}
