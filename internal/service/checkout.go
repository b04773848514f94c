// Package service holds the checkout flow: converting a cart into a pending
// order, opening a payment session, applying webhook outcomes and expiring
// stale orders.  Dependencies are narrow interfaces so the flow is testable
// without a database or a live provider.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/movie-store/internal/payment"
	"github.com/iliyamo/movie-store/internal/queue"
	"github.com/iliyamo/movie-store/internal/repository"
)

// OrderStore is the slice of OrderRepo the checkout flow needs.
type OrderStore interface {
	CreateFromCart(ctx context.Context, userID uint64, paymentRef string) (*repository.Order, error)
	MarkPaidByRef(ctx context.Context, ref string) (bool, error)
	GetByPaymentRef(ctx context.Context, ref string) (*repository.Order, error)
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserStore resolves order owners for receipt emails.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (repository.User, error)
}

// SessionCreator opens hosted checkout sessions with the payment provider.
type SessionCreator interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
}

// EmailEnqueuer hands email jobs to the task queue.
type EmailEnqueuer interface {
	PublishEmail(ctx context.Context, job queue.EmailJob) error
}

// ErrPaymentSession wraps provider failures after the order was committed.
// The order stays pending; the expiration sweep reclaims it if the user
// never retries payment.
var ErrPaymentSession = errors.New("payment session failed")

// Checkout wires the order store, the payment provider and the email queue
// into the order lifecycle.
type Checkout struct {
	Orders     OrderStore
	Users      UserStore
	Payments   SessionCreator
	Emails     EmailEnqueuer
	SuccessURL string
	CancelURL  string
}

// CheckoutResult is what the HTTP layer returns to the caller: the created
// order plus the provider URL the client must redirect to.
type CheckoutResult struct {
	Order       *repository.Order
	CheckoutURL string
}

// Checkout converts the user's cart into exactly one pending order and
// opens a payment session for it.  The cart-to-order conversion commits
// before the provider call: there is no distributed transaction, and the
// design accepts a window where a committed order awaits its webhook.
func (s *Checkout) Checkout(ctx context.Context, userID uint64) (*CheckoutResult, error) {
	ref := uuid.NewString()
	order, err := s.Orders.CreateFromCart(ctx, userID, ref)
	if err != nil {
		return nil, err
	}

	req := payment.SessionRequest{
		Reference:  ref,
		Currency:   "usd",
		SuccessURL: s.SuccessURL,
		CancelURL:  s.CancelURL,
	}
	for _, it := range order.Items {
		req.LineItems = append(req.LineItems, payment.LineItem{
			Name:       it.Title,
			UnitAmount: it.PriceCents,
			Quantity:   1,
		})
	}
	session, err := s.Payments.CreateSession(ctx, req)
	if err != nil {
		log.Printf("payment: session for order %d failed: %v", order.ID, err)
		return &CheckoutResult{Order: order}, fmt.Errorf("%w: %v", ErrPaymentSession, err)
	}
	return &CheckoutResult{Order: order, CheckoutURL: session.URL}, nil
}

// HandleEvent applies a verified webhook event.  checkout.completed
// transitions the referenced order pending -> paid; the guarded UPDATE in
// the store makes duplicate deliveries a no-op, so the order ends paid
// exactly once in effect regardless of delivery count.  A receipt email is
// enqueued only on the first effective transition.  Unknown event types
// are acknowledged and ignored.
func (s *Checkout) HandleEvent(ctx context.Context, ev payment.Event) error {
	if ev.Type != payment.EventCheckoutCompleted {
		log.Printf("payment: ignoring event type %q", ev.Type)
		return nil
	}
	transitioned, err := s.Orders.MarkPaidByRef(ctx, ev.Reference)
	if err != nil {
		return err
	}
	if !transitioned {
		log.Printf("payment: order for ref %s already settled; duplicate delivery", ev.Reference)
		return nil
	}

	order, err := s.Orders.GetByPaymentRef(ctx, ev.Reference)
	if err != nil {
		// The transition itself succeeded; receipt delivery is best-effort.
		log.Printf("payment: load order for receipt failed: %v", err)
		return nil
	}
	u, err := s.Users.GetByID(ctx, order.UserID)
	if err != nil {
		log.Printf("payment: load user %d for receipt failed: %v", order.UserID, err)
		return nil
	}
	if err := s.Emails.PublishEmail(ctx, queue.EmailJob{
		Kind:       queue.EmailOrderReceipt,
		To:         u.Email,
		OrderID:    order.ID,
		TotalCents: order.TotalCents,
	}); err != nil {
		log.Printf("payment: enqueue receipt for order %d failed: %v", order.ID, err)
	}
	return nil
}

// ExpireStale transitions pending orders older than the window to expired
// and returns how many were touched.  Safe to re-run: settled orders never
// match the guarded UPDATE.
func (s *Checkout) ExpireStale(ctx context.Context, window time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-window)
	return s.Orders.ExpirePendingBefore(ctx, cutoff)
}
