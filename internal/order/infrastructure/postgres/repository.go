package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zawadicraft/storefront/internal/order/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) GetByReference(ctx context.Context, reference string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, reference, user_id, cart_id, payment_method, payment_status, status,
		       transaction_id, confirmation_code, paid_at, stock_updated, total_cents,
		       created_at, updated_at
		FROM orders WHERE reference=$1`, reference).
		Scan(&o.ID, &o.Reference, &o.UserID, &o.CartID, &o.PaymentMethod, &o.PaymentStatus,
			&o.Status, &o.TransactionID, &o.ConfirmationCode, &o.PaidAt, &o.StockUpdated,
			&o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT product_id, variant_sku, name, quantity, unit_price_cents, discount_cents
		FROM order_items WHERE order_id=$1`, o.ID)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.VariantSKU, &item.Name,
			&item.Quantity, &item.UnitPriceCents, &item.DiscountCents); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

func (r *Repository) CreateWithItems(ctx context.Context, o domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, reference, user_id, cart_id, payment_method, payment_status,
		                    status, transaction_id, confirmation_code, stock_updated,
		                    total_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'','',FALSE,$8,$9,$10)`,
		o.ID, o.Reference, o.UserID, o.CartID, o.PaymentMethod, o.PaymentStatus,
		o.Status, o.TotalCents, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, variant_sku, name, quantity,
			                         unit_price_cents, discount_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			o.ID, item.ProductID, item.VariantSKU, item.Name, item.Quantity,
			item.UnitPriceCents, item.DiscountCents)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ApplyPaymentResult writes the whole payment tuple in a single UPDATE; the
// store's per-row atomicity is what serializes the two notification channels.
func (r *Repository) ApplyPaymentResult(ctx context.Context, reference string, res domain.PaymentResult) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status=$2, transaction_id=$3, confirmation_code=$4, paid_at=$5,
		    updated_at=now()
		WHERE reference=$1`,
		reference, res.Outcome.PaymentStatus(), res.TransactionID, res.ConfirmationCode, res.PaidAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimStockAndQueue is the one true compare-and-set in this system: the
// guarded UPDATE wins for exactly one caller, and only the winner queues the
// outbox event, inside the same transaction.
func (r *Repository) ClaimStockAndQueue(ctx context.Context, reference, eventType string, payload []byte) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `
		UPDATE orders SET stock_updated=TRUE, updated_at=now()
		WHERE reference=$1 AND stock_updated=FALSE`, reference)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, status)
		VALUES ($1,$2,$3,$4,'pending')`,
		"order", reference, eventType, payload)
	if err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *Repository) DecrementStock(ctx context.Context, items []domain.OrderItem) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`UPDATE products SET stock = GREATEST(stock - $2, 0) WHERE id=$1`,
			item.ProductID, item.Quantity)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *Repository) EscalateStatus(ctx context.Context, reference string, from, to domain.Status) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE reference=$1 AND status=$2`, reference, from, to)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("escalate %s %s->%s: %w", reference, from, to, domain.ErrInvalidTransition)
	}
	return nil
}

func (r *Repository) DeletePending(ctx context.Context, reference string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		DELETE FROM order_items WHERE order_id IN
			(SELECT id FROM orders WHERE reference=$1 AND status='pending')`, reference)
	if err != nil {
		return false, err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE reference=$1 AND status='pending'`, reference)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, tx.Commit(ctx)
}

func (r *Repository) StalePendingByCart(ctx context.Context, cartID, exceptReference string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT reference FROM orders
		WHERE cart_id=$1 AND reference<>$2 AND status='pending'
		  AND payment_status IN ('not_initiated','failed')`, cartID, exceptReference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReferences(rows)
}

func (r *Repository) PaidStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT reference FROM orders
		WHERE payment_status='paid' AND status='pending' AND updated_at < now() - $1::interval
		ORDER BY updated_at
		LIMIT $2`, olderThan.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReferences(rows)
}

func (r *Repository) PurgeAbandoned(ctx context.Context, olderThan time.Duration) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		DELETE FROM order_items WHERE order_id IN
			(SELECT id FROM orders
			 WHERE status='pending' AND payment_status='not_initiated'
			   AND transaction_id='' AND created_at < now() - $1::interval)`, olderThan.String())
	if err != nil {
		return 0, err
	}
	ct, err := tx.Exec(ctx, `
		DELETE FROM orders
		WHERE status='pending' AND payment_status='not_initiated'
		  AND transaction_id='' AND created_at < now() - $1::interval`, olderThan.String())
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), tx.Commit(ctx)
}

func scanReferences(rows pgx.Rows) ([]string, error) {
	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
