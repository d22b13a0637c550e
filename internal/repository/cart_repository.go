package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akarpov/cartcore/internal/domain"
)

func (r *Repository) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	query := `SELECT owner_id, version, created_at, updated_at FROM carts WHERE owner_id = $1`

	var cart domain.Cart
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(
		&cart.OwnerID,
		&cart.Version,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, quantity FROM cart_lines WHERE owner_id = $1 ORDER BY product_id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return &cart, nil
}

// EnsureCart lazily creates the cart row on first mutation. Racing creates
// are harmless: the loser's insert is a no-op.
func (r *Repository) EnsureCart(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO carts (owner_id) VALUES ($1) ON CONFLICT (owner_id) DO NOTHING`,
		ownerID)
	if err != nil {
		return fmt.Errorf("ensure cart: %w", err)
	}
	return nil
}

// SaveLines replaces the cart's lines, guarded by the version the caller
// read. A concurrent mutation bumps the version first and this commit
// touches zero rows, which surfaces as ErrVersionConflict so the caller
// can re-run its read-modify-write.
func (r *Repository) SaveLines(ctx context.Context, ownerID string, lines []domain.CartLine, expectedVersion int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE carts SET version = version + 1, updated_at = NOW() WHERE owner_id = $1 AND version = $2`,
		ownerID, expectedVersion)
	if err != nil {
		return fmt.Errorf("bump cart version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}

	for _, line := range lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cart_lines (owner_id, product_id, quantity) VALUES ($1, $2, $3)`,
			ownerID, line.ProductID, line.Quantity)
		if err != nil {
			return fmt.Errorf("insert cart line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cart save: %w", err)
	}
	return nil
}
