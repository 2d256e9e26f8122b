package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zawadicraft/storefront/internal/cart/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) ActiveByUser(ctx context.Context, userID string) (domain.Cart, error) {
	var c domain.Cart
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, is_active, item_count, subtotal_cents, created_at, updated_at
		FROM carts WHERE user_id=$1 AND is_active=TRUE`, userID).
		Scan(&c.ID, &c.UserID, &c.IsActive, &c.ItemCount, &c.SubtotalCents,
			&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Cart{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Cart{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT kind, product_id, course_id, variant_sku, name, quantity,
		       unit_price_cents, added_at, updated_at
		FROM cart_items WHERE cart_id=$1
		ORDER BY added_at`, c.ID)
	if err != nil {
		return domain.Cart{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.Kind, &item.ProductID, &item.CourseID, &item.VariantSKU,
			&item.Name, &item.Quantity, &item.UnitPriceCents,
			&item.AddedAt, &item.UpdatedAt); err != nil {
			return domain.Cart{}, err
		}
		c.Items = append(c.Items, item)
	}
	return c, rows.Err()
}

// Save upserts the cart and rewrites its items inside one transaction: the
// merged list lands atomically or not at all.
func (r *Repository) Save(ctx context.Context, c domain.Cart) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO carts (id, user_id, is_active, item_count, subtotal_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE
		SET item_count=$4, subtotal_cents=$5, updated_at=$7`,
		c.ID, c.UserID, c.IsActive, c.ItemCount, c.SubtotalCents, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, c.ID)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, item := range c.Items {
		batch.Queue(`
			INSERT INTO cart_items (cart_id, kind, product_id, course_id, variant_sku,
			                        name, quantity, unit_price_cents, added_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			c.ID, item.Kind, item.ProductID, item.CourseID, item.VariantSKU,
			item.Name, item.Quantity, item.UnitPriceCents, item.AddedAt, item.UpdatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
