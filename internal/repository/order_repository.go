// Package repository contains data access logic for orders.  An order is an
// immutable snapshot of a cart at checkout time: item prices are frozen into
// order_items and never re-read from the catalog.  Status transitions are
// guarded UPDATEs keyed on status='pending', which makes paid/canceled/
// expired terminal and every transition idempotent under retries.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Order status values.  pending is the only non-terminal state.
const (
	OrderPending  = "pending"
	OrderPaid     = "paid"
	OrderCanceled = "canceled"
	OrderExpired  = "expired"
)

// Order mirrors the 'orders' table.
type Order struct {
	ID         uint64
	UserID     uint64
	Status     string
	TotalCents uint64
	PaymentRef string
	CreatedAt  time.Time
	Items      []OrderItem
}

// OrderItem is a frozen line of an order.  PriceCents is the catalog price
// at order time, decoupled from later price edits.
type OrderItem struct {
	ID         uint64
	MovieID    uint64
	Title      string
	PriceCents uint64
}

// ErrOrderNotFound indicates that an order was not located in the DB.
var ErrOrderNotFound = errors.New("order not found")

// ErrEmptyCart is returned when checkout finds no cart items.
var ErrEmptyCart = errors.New("cart is empty")

// ErrNotPurchasable is returned when a carted movie has no price.
var ErrNotPurchasable = errors.New("movie has no price")

// OrderRepo manages persistence for orders and order_items.  It carries a
// CartRepo because checkout reads and clears the cart inside the order
// transaction.
type OrderRepo struct {
	db    *sql.DB
	carts *CartRepo
}

func NewOrderRepo(db *sql.DB, carts *CartRepo) *OrderRepo {
	return &OrderRepo{db: db, carts: carts}
}

// DB exposes the underlying sql.DB for multi-repository transactions.
func (r *OrderRepo) DB() *sql.DB { return r.db }

// CreateTx inserts the order row and its item snapshots inside the caller's
// transaction.  The order must carry UserID, TotalCents, PaymentRef and
// Items (MovieID + PriceCents); status defaults to pending in the schema.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *Order) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO orders (user_id, total_cents, payment_ref) VALUES (?,?,?)",
		o.UserID, o.TotalCents, o.PaymentRef)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	o.Status = OrderPending
	for i := range o.Items {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, movie_id, price_cents) VALUES (?,?,?)",
			o.ID, o.Items[i].MovieID, o.Items[i].PriceCents)
		if err != nil {
			return err
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		o.Items[i].ID = uint64(itemID)
	}
	return nil
}

// CreateFromCart converts the user's cart into a pending order in a single
// transaction: it reads the cart lines, freezes each movie's current price
// into an order item, inserts the order with the given payment reference
// and clears the cart.  An empty cart aborts with ErrEmptyCart and no
// order; a carted movie without a price aborts with ErrNotPurchasable.
func (r *OrderRepo) CreateFromCart(ctx context.Context, userID uint64, paymentRef string) (*Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var cartID uint64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM carts WHERE user_id = ? LIMIT 1", userID).Scan(&cartID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	lines, err := r.carts.ItemsTx(ctx, tx, cartID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	o := &Order{UserID: userID, PaymentRef: paymentRef}
	for _, ln := range lines {
		if !ln.PriceCents.Valid {
			return nil, ErrNotPurchasable
		}
		it := OrderItem{
			MovieID:    ln.MovieID,
			Title:      ln.Title,
			PriceCents: uint64(ln.PriceCents.Int64),
		}
		o.TotalCents += it.PriceCents
		o.Items = append(o.Items, it)
	}

	if err := r.CreateTx(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := r.carts.ClearTx(ctx, tx, cartID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	o.CreatedAt = time.Now().UTC()
	return o, nil
}

// GetByID loads an order with its items.  It returns ErrOrderNotFound when
// no row matches.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, status, total_cents, payment_ref, created_at FROM orders WHERE id = ?",
		id).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.PaymentRef, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByPaymentRef loads an order by its payment reference, the correlation
// key carried by provider webhooks.
func (r *OrderRepo) GetByPaymentRef(ctx context.Context, ref string) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, status, total_cents, payment_ref, created_at FROM orders WHERE payment_ref = ?",
		ref).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.PaymentRef, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) loadItems(ctx context.Context, o *Order) error {
	const q = `SELECT oi.id, oi.movie_id, m.name, oi.price_cents
               FROM order_items oi
               JOIN movies m ON m.id = oi.movie_id
               WHERE oi.order_id = ?
               ORDER BY oi.id ASC`
	rows, err := r.db.QueryContext(ctx, q, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.MovieID, &it.Title, &it.PriceCents); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

// ListByUser returns the user's orders, newest first, optionally filtered
// by status.  Items are loaded per order; order lists are short.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64, status string) ([]Order, error) {
	return r.list(ctx, userID, status)
}

// ListAll returns all orders for the admin view.  userID of zero means any
// user.
func (r *OrderRepo) ListAll(ctx context.Context, userID uint64, status string) ([]Order, error) {
	return r.list(ctx, userID, status)
}

func (r *OrderRepo) list(ctx context.Context, userID uint64, status string) ([]Order, error) {
	q := "SELECT id, user_id, status, total_cents, payment_ref, created_at FROM orders"
	var (
		conds []string
		args  []any
	)
	if userID != 0 {
		conds = append(conds, "user_id = ?")
		args = append(args, userID)
	}
	if status != "" {
		conds = append(conds, "status = ?")
		args = append(args, status)
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.PaymentRef, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.loadItems(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MarkPaidByRef transitions pending -> paid for the order with the given
// payment reference.  The conditional UPDATE makes duplicate webhook
// deliveries a no-op: the second delivery matches zero rows and
// transitioned is false.  ErrOrderNotFound means no order carries the ref
// at all.
func (r *OrderRepo) MarkPaidByRef(ctx context.Context, ref string) (transitioned bool, err error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status=? WHERE payment_ref=? AND status=?",
		OrderPaid, ref, OrderPending)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	var one int
	err = r.db.QueryRowContext(ctx,
		"SELECT 1 FROM orders WHERE payment_ref=? LIMIT 1", ref).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrOrderNotFound
	}
	return false, err
}

// CancelByIDAndUser transitions pending -> canceled for the user's own
// order.  Paid, expired and already-canceled orders are left untouched and
// reported as ErrConflict; foreign or missing orders as ErrOrderNotFound.
func (r *OrderRepo) CancelByIDAndUser(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status=? WHERE id=? AND user_id=? AND status=?",
		OrderCanceled, id, userID, OrderPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var status string
	err = r.db.QueryRowContext(ctx,
		"SELECT status FROM orders WHERE id=? AND user_id=? LIMIT 1", id, userID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

// ExpirePendingBefore transitions every pending order created before the
// cutoff to expired and returns how many rows changed.  Because only
// pending rows match, re-running the sweep never touches paid, canceled or
// already-expired orders.
func (r *OrderRepo) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status=? WHERE status=? AND created_at < ?",
		OrderExpired, OrderPending, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
