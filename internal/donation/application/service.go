package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zawadicraft/storefront/internal/donation/domain"
	orderapp "github.com/zawadicraft/storefront/internal/order/application"
	orderdomain "github.com/zawadicraft/storefront/internal/order/domain"
)

type Service struct {
	log     *slog.Logger
	repo    DonationRepository
	gateway GatewayClient
}

func NewService(log *slog.Logger, repo DonationRepository, gateway GatewayClient) *Service {
	return &Service{log: log, repo: repo, gateway: gateway}
}

// Reconcile mirrors the order engine for the donation aggregate: same
// dual-channel collapse, same fail-closed mapping, with the receipt guard
// standing in for the stock guard.
func (s *Service) Reconcile(ctx context.Context, trackingID, merchantRef string) (orderapp.ReconcileResult, error) {
	res := orderapp.ReconcileResult{Reference: merchantRef}

	d, err := s.repo.GetByReference(ctx, merchantRef)
	if err != nil {
		return res, fmt.Errorf("reconcile donation %s: %w", merchantRef, err)
	}

	if d.TransactionID == trackingID && d.Status == domain.StatusCompleted {
		res.Outcome = orderdomain.OutcomePaid
		res.Duplicate = true
		return res, nil
	}
	if d.TransactionID != "" && d.TransactionID != trackingID {
		s.log.Error("donation tracking id mismatch",
			"reference", merchantRef, "stored", d.TransactionID, "got", trackingID)
		return res, fmt.Errorf("reconcile donation %s: tracking id mismatch: %w", merchantRef, orderdomain.ErrInvalidTransition)
	}

	ts, err := s.gateway.GetTransactionStatus(ctx, trackingID)
	if err != nil {
		return res, fmt.Errorf("reconcile donation %s: %w", merchantRef, err)
	}

	outcome := orderdomain.OutcomeFromDescription(ts.StatusDescription)
	result := orderdomain.NewPaymentResult(outcome, trackingID, ts.ConfirmationCode, time.Now())

	if err := s.repo.ApplyPaymentResult(ctx, d.Reference, result, domain.StatusForOutcome(outcome)); err != nil {
		return res, fmt.Errorf("reconcile donation %s: apply payment result: %w", merchantRef, err)
	}
	res.Outcome = outcome

	if outcome != orderdomain.OutcomePaid {
		return res, nil
	}

	payload, err := json.Marshal(domain.DonationReceipt{
		DonationID:       d.ID,
		Reference:        d.Reference,
		DonorEmail:       d.DonorEmail,
		DonorName:        d.DonorName,
		AmountCents:      d.AmountCents,
		ConfirmationCode: ts.ConfirmationCode,
	})
	if err != nil {
		return res, fmt.Errorf("reconcile donation %s: marshal receipt: %w", merchantRef, err)
	}
	if _, err := s.repo.ClaimReceiptAndQueue(ctx, d.Reference, "DonationReceipt", payload); err != nil {
		// Money has moved; the missing receipt is an operational concern.
		s.log.Error("donation receipt queue failed", "reference", d.Reference, "err", err)
	}
	return res, nil
}

type DonateResult struct {
	Donation    domain.Donation
	RedirectURL string
}

// Create persists a donation and registers it with the gateway. As with
// orders, the record survives a failed submission so payment can be
// re-triggered.
func (s *Service) Create(ctx context.Context, donorName, donorEmail, message string, amountCents int64) (DonateResult, error) {
	if amountCents <= 0 {
		return DonateResult{}, errors.New("create donation: amount must be positive")
	}
	d := domain.NewDonation(donorName, donorEmail, message, amountCents)
	if err := s.repo.Create(ctx, d); err != nil {
		return DonateResult{}, fmt.Errorf("create donation: %w", err)
	}
	out := DonateResult{Donation: d}

	url, err := s.gateway.SubmitDonation(ctx, d)
	if err != nil {
		return out, fmt.Errorf("create donation %s: %w", d.Reference, err)
	}
	out.RedirectURL = url
	return out, nil
}

func (s *Service) Get(ctx context.Context, merchantRef string) (domain.Donation, error) {
	return s.repo.GetByReference(ctx, merchantRef)
}
