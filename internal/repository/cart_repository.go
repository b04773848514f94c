package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// CartItem is one line of a user's cart joined with live movie data.  The
// price reflects the catalog at read time; it is only frozen when an order
// is created.
type CartItem struct {
	ID         uint64
	MovieID    uint64
	Title      string
	Year       int
	PriceCents sql.NullInt64
	Quantity   int
	AddedAt    time.Time
}

// ErrMovieInCart is returned when a movie is added twice to the same cart.
var ErrMovieInCart = errors.New("movie already in cart")

// CartRepo manages carts and cart_items.  There is at most one cart per
// user (unique user_id); it is created lazily on first access.
type CartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// DB exposes the underlying sql.DB for multi-repository transactions.
func (r *CartRepo) DB() *sql.DB { return r.db }

// GetOrCreate returns the user's cart ID, creating the row when missing.
// Concurrent creation for the same user is resolved by the unique key: the
// loser of the race re-reads the winner's row.
func (r *CartRepo) GetOrCreate(ctx context.Context, userID uint64) (uint64, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM carts WHERE user_id = ? LIMIT 1", userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, "INSERT INTO carts (user_id) VALUES (?)", userID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			err = r.db.QueryRowContext(ctx,
				"SELECT id FROM carts WHERE user_id = ? LIMIT 1", userID).Scan(&id)
			return id, err
		}
		return 0, err
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(newID), nil
}

// AddItem puts a movie into the cart with quantity 1.  The unique
// (cart_id, movie_id) key rejects duplicates with ErrMovieInCart.
func (r *CartRepo) AddItem(ctx context.Context, cartID, movieID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO cart_items (cart_id, movie_id, quantity) VALUES (?,?,1)",
		cartID, movieID)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrMovieInCart
	}
	return err
}

// RemoveItem deletes a movie from the cart.  Removing an absent movie is a
// no-op, matching the add-then-remove round-trip property.
func (r *CartRepo) RemoveItem(ctx context.Context, cartID, movieID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_id = ? AND movie_id = ?",
		cartID, movieID)
	return err
}

// Clear removes every item from the cart.
func (r *CartRepo) Clear(ctx context.Context, cartID uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = ?", cartID)
	return err
}

// ClearTx removes every item inside the caller's transaction.  Checkout
// uses this so the cart empties atomically with order creation.
func (r *CartRepo) ClearTx(ctx context.Context, tx *sql.Tx, cartID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = ?", cartID)
	return err
}

// Items returns the cart's lines joined with live movie data, oldest first.
func (r *CartRepo) Items(ctx context.Context, cartID uint64) ([]CartItem, error) {
	const q = `SELECT ci.id, ci.movie_id, m.name, m.year, m.price_cents, ci.quantity, ci.added_at
               FROM cart_items ci
               JOIN movies m ON m.id = ci.movie_id
               WHERE ci.cart_id = ?
               ORDER BY ci.added_at ASC`
	rows, err := r.db.QueryContext(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CartItem
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ID, &it.MovieID, &it.Title, &it.Year, &it.PriceCents, &it.Quantity, &it.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ItemsTx is Items within the caller's transaction; checkout reads the
// lines it is about to snapshot under the same transaction that clears
// them.
func (r *CartRepo) ItemsTx(ctx context.Context, tx *sql.Tx, cartID uint64) ([]CartItem, error) {
	const q = `SELECT ci.id, ci.movie_id, m.name, m.year, m.price_cents, ci.quantity, ci.added_at
               FROM cart_items ci
               JOIN movies m ON m.id = ci.movie_id
               WHERE ci.cart_id = ?
               ORDER BY ci.added_at ASC`
	rows, err := tx.QueryContext(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CartItem
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ID, &it.MovieID, &it.Title, &it.Year, &it.PriceCents, &it.Quantity, &it.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
