package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zawadicraft/storefront/internal/donation/domain"
	orderdomain "github.com/zawadicraft/storefront/internal/order/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) GetByReference(ctx context.Context, reference string) (domain.Donation, error) {
	var d domain.Donation
	err := r.pool.QueryRow(ctx, `
		SELECT id, reference, donor_name, donor_email, message, amount_cents, status,
		       payment_status, transaction_id, confirmation_code, paid_at, receipt_sent,
		       created_at, updated_at
		FROM donations WHERE reference=$1`, reference).
		Scan(&d.ID, &d.Reference, &d.DonorName, &d.DonorEmail, &d.Message, &d.AmountCents,
			&d.Status, &d.PaymentStatus, &d.TransactionID, &d.ConfirmationCode, &d.PaidAt,
			&d.ReceiptSent, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Donation{}, orderdomain.ErrNotFound
	}
	if err != nil {
		return domain.Donation{}, err
	}
	return d, nil
}

func (r *Repository) Create(ctx context.Context, d domain.Donation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO donations (id, reference, donor_name, donor_email, message, amount_cents,
		                       status, payment_status, transaction_id, confirmation_code,
		                       receipt_sent, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'','',FALSE,$9,$10)`,
		d.ID, d.Reference, d.DonorName, d.DonorEmail, d.Message, d.AmountCents,
		d.Status, d.PaymentStatus, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *Repository) ApplyPaymentResult(ctx context.Context, reference string, res orderdomain.PaymentResult, status domain.Status) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE donations
		SET payment_status=$2, status=$3, transaction_id=$4, confirmation_code=$5,
		    paid_at=$6, updated_at=now()
		WHERE reference=$1`,
		reference, res.Outcome.PaymentStatus(), status, res.TransactionID,
		res.ConfirmationCode, res.PaidAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orderdomain.ErrNotFound
	}
	return nil
}

func (r *Repository) ClaimReceiptAndQueue(ctx context.Context, reference, eventType string, payload []byte) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `
		UPDATE donations SET receipt_sent=TRUE, updated_at=now()
		WHERE reference=$1 AND receipt_sent=FALSE`, reference)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, status)
		VALUES ($1,$2,$3,$4,'pending')`,
		"donation", reference, eventType, payload)
	if err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
