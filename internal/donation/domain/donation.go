package domain

import (
	"time"

	"github.com/google/uuid"

	orderdomain "github.com/zawadicraft/storefront/internal/order/domain"
)

// Status is the donation lifecycle. Unlike orders there is no fulfilment
// pipeline, so the axis collapses to three states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func StatusForOutcome(o orderdomain.PaymentOutcome) Status {
	if o == orderdomain.OutcomePaid {
		return StatusCompleted
	}
	return StatusFailed
}

type Donation struct {
	ID         string
	Reference  string // merchant reference, shares the gateway correlation scheme with orders
	DonorName  string
	DonorEmail string
	Message    string

	AmountCents      int64
	Status           Status
	PaymentStatus    orderdomain.PaymentStatus
	TransactionID    string
	ConfirmationCode string
	PaidAt           *time.Time
	// ReceiptSent is the donation's idempotency guard: the thank-you
	// receipt event is queued at most once, however many notifications
	// arrive.
	ReceiptSent bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewDonation(donorName, donorEmail, message string, amountCents int64) Donation {
	now := time.Now().UTC()
	return Donation{
		ID:            uuid.NewString(),
		Reference:     orderdomain.NewReference("DON"),
		DonorName:     donorName,
		DonorEmail:    donorEmail,
		Message:       message,
		AmountCents:   amountCents,
		Status:        StatusPending,
		PaymentStatus: orderdomain.PaymentNotInitiated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// DonationReceipt is queued through the outbox exactly once per completed
// donation, when the receipt guard is claimed.
type DonationReceipt struct {
	DonationID       string `json:"donation_id"`
	Reference        string `json:"reference"`
	DonorEmail       string `json:"donor_email"`
	DonorName        string `json:"donor_name"`
	AmountCents      int64  `json:"amount_cents"`
	ConfirmationCode string `json:"confirmation_code"`
}
