package application

import (
	"context"

	"github.com/zawadicraft/storefront/internal/donation/domain"
	orderapp "github.com/zawadicraft/storefront/internal/order/application"
	orderdomain "github.com/zawadicraft/storefront/internal/order/domain"
)

type DonationRepository interface {
	GetByReference(ctx context.Context, reference string) (domain.Donation, error)
	Create(ctx context.Context, d domain.Donation) error

	// ApplyPaymentResult writes the payment tuple plus the collapsed
	// lifecycle status in one atomic patch.
	ApplyPaymentResult(ctx context.Context, reference string, res orderdomain.PaymentResult, status domain.Status) error

	// ClaimReceiptAndQueue flips receipt_sent false->true with
	// compare-and-set semantics; the winner queues the receipt event in
	// the same transaction.
	ClaimReceiptAndQueue(ctx context.Context, reference, eventType string, payload []byte) (bool, error)
}

// GatewayClient is the slice of the gateway capability donations use.
type GatewayClient interface {
	SubmitDonation(ctx context.Context, d domain.Donation) (redirectURL string, err error)
	GetTransactionStatus(ctx context.Context, trackingID string) (orderapp.TransactionStatus, error)
}
