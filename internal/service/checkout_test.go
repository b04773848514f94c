package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-store/internal/payment"
	"github.com/iliyamo/movie-store/internal/queue"
	"github.com/iliyamo/movie-store/internal/repository"
)

// mockOrders implements OrderStore.
type mockOrders struct {
	order        *repository.Order
	createErr    error
	transitioned bool
	markErr      error
	markedRef    string
	expired      int64
	expireCutoff time.Time
}

func (m *mockOrders) CreateFromCart(_ context.Context, userID uint64, ref string) (*repository.Order, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	o := *m.order
	o.UserID = userID
	o.PaymentRef = ref
	return &o, nil
}

func (m *mockOrders) MarkPaidByRef(_ context.Context, ref string) (bool, error) {
	m.markedRef = ref
	return m.transitioned, m.markErr
}

func (m *mockOrders) GetByPaymentRef(_ context.Context, ref string) (*repository.Order, error) {
	if m.order == nil || m.order.PaymentRef != ref {
		return nil, repository.ErrOrderNotFound
	}
	return m.order, nil
}

func (m *mockOrders) ExpirePendingBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.expireCutoff = cutoff
	return m.expired, nil
}

// mockUsers implements UserStore.
type mockUsers struct {
	user repository.User
	err  error
}

func (m *mockUsers) GetByID(_ context.Context, id uint64) (repository.User, error) {
	return m.user, m.err
}

// mockPayments implements SessionCreator.
type mockPayments struct {
	session *payment.Session
	err     error
	lastReq payment.SessionRequest
}

func (m *mockPayments) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

// mockEmails implements EmailEnqueuer.
type mockEmails struct {
	jobs []queue.EmailJob
	err  error
}

func (m *mockEmails) PublishEmail(_ context.Context, job queue.EmailJob) error {
	m.jobs = append(m.jobs, job)
	return m.err
}

func sampleOrder() *repository.Order {
	return &repository.Order{
		ID:         7,
		UserID:     3,
		Status:     repository.OrderPending,
		TotalCents: 2998,
		PaymentRef: "ref-abc",
		Items: []repository.OrderItem{
			{MovieID: 1, Title: "The Matrix", PriceCents: 1499},
			{MovieID: 2, Title: "Inception", PriceCents: 1499},
		},
	}
}

func newCheckout(orders *mockOrders, users *mockUsers, pay *mockPayments, emails *mockEmails) *Checkout {
	return &Checkout{
		Orders:     orders,
		Users:      users,
		Payments:   pay,
		Emails:     emails,
		SuccessURL: "https://example.com/ok",
		CancelURL:  "https://example.com/cancel",
	}
}

func TestCheckout_Success(t *testing.T) {
	orders := &mockOrders{order: sampleOrder()}
	pay := &mockPayments{session: &payment.Session{ID: "sess_1", URL: "https://pay.example.com/s/1"}}
	svc := newCheckout(orders, &mockUsers{}, pay, &mockEmails{})

	res, err := svc.Checkout(context.Background(), 3)

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "https://pay.example.com/s/1", res.CheckoutURL)
	assert.Equal(t, repository.OrderPending, res.Order.Status)
	// Session request mirrors the frozen order lines, one unit per line.
	require.Len(t, pay.lastReq.LineItems, 2)
	assert.Equal(t, uint64(1499), pay.lastReq.LineItems[0].UnitAmount)
	assert.Equal(t, 1, pay.lastReq.LineItems[0].Quantity)
	assert.Equal(t, res.Order.PaymentRef, pay.lastReq.Reference)
	assert.Equal(t, "https://example.com/ok", pay.lastReq.SuccessURL)
}

func TestCheckout_EmptyCart(t *testing.T) {
	orders := &mockOrders{createErr: repository.ErrEmptyCart}
	pay := &mockPayments{}
	svc := newCheckout(orders, &mockUsers{}, pay, &mockEmails{})

	res, err := svc.Checkout(context.Background(), 3)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, repository.ErrEmptyCart)
	// No order means no provider call.
	assert.Empty(t, pay.lastReq.Reference)
}

func TestCheckout_SessionFailureKeepsOrder(t *testing.T) {
	orders := &mockOrders{order: sampleOrder()}
	pay := &mockPayments{err: errors.New("provider down")}
	svc := newCheckout(orders, &mockUsers{}, pay, &mockEmails{})

	res, err := svc.Checkout(context.Background(), 3)

	assert.ErrorIs(t, err, ErrPaymentSession)
	require.NotNil(t, res)
	require.NotNil(t, res.Order)
	assert.Empty(t, res.CheckoutURL)
	assert.Equal(t, repository.OrderPending, res.Order.Status)
}

func TestHandleEvent_MarksPaidAndEnqueuesReceipt(t *testing.T) {
	order := sampleOrder()
	orders := &mockOrders{order: order, transitioned: true}
	users := &mockUsers{user: repository.User{ID: 3, Email: "buyer@example.com"}}
	emails := &mockEmails{}
	svc := newCheckout(orders, users, &mockPayments{}, emails)

	err := svc.HandleEvent(context.Background(), payment.Event{
		Type:      payment.EventCheckoutCompleted,
		Reference: "ref-abc",
	})

	require.NoError(t, err)
	assert.Equal(t, "ref-abc", orders.markedRef)
	require.Len(t, emails.jobs, 1)
	assert.Equal(t, queue.EmailOrderReceipt, emails.jobs[0].Kind)
	assert.Equal(t, "buyer@example.com", emails.jobs[0].To)
	assert.Equal(t, uint64(7), emails.jobs[0].OrderID)
	assert.Equal(t, uint64(2998), emails.jobs[0].TotalCents)
}

func TestHandleEvent_DuplicateDeliveryIsNoOp(t *testing.T) {
	orders := &mockOrders{order: sampleOrder(), transitioned: false}
	emails := &mockEmails{}
	svc := newCheckout(orders, &mockUsers{}, &mockPayments{}, emails)

	err := svc.HandleEvent(context.Background(), payment.Event{
		Type:      payment.EventCheckoutCompleted,
		Reference: "ref-abc",
	})

	require.NoError(t, err)
	// No second receipt on redelivery.
	assert.Empty(t, emails.jobs)
}

func TestHandleEvent_UnknownRef(t *testing.T) {
	orders := &mockOrders{markErr: repository.ErrOrderNotFound}
	svc := newCheckout(orders, &mockUsers{}, &mockPayments{}, &mockEmails{})

	err := svc.HandleEvent(context.Background(), payment.Event{
		Type:      payment.EventCheckoutCompleted,
		Reference: "ref-missing",
	})

	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestHandleEvent_IgnoresOtherTypes(t *testing.T) {
	orders := &mockOrders{transitioned: true, order: sampleOrder()}
	emails := &mockEmails{}
	svc := newCheckout(orders, &mockUsers{}, &mockPayments{}, emails)

	err := svc.HandleEvent(context.Background(), payment.Event{Type: "checkout.expired", Reference: "ref-abc"})

	require.NoError(t, err)
	assert.Empty(t, orders.markedRef)
	assert.Empty(t, emails.jobs)
}

func TestExpireStale_CutoffWindow(t *testing.T) {
	orders := &mockOrders{expired: 4}
	svc := newCheckout(orders, &mockUsers{}, &mockPayments{}, &mockEmails{})

	n, err := svc.ExpireStale(context.Background(), time.Hour)

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.WithinDuration(t, time.Now().UTC().Add(-time.Hour), orders.expireCutoff, 5*time.Second)
}
