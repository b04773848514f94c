package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-store/internal/payment"
	"github.com/iliyamo/movie-store/internal/queue"
	"github.com/iliyamo/movie-store/internal/repository"
	"github.com/iliyamo/movie-store/internal/service"
)

const webhookSecret = "whsec_handler_test"

type stubOrders struct {
	transitioned bool
	markErr      error
	marked       []string
	order        *repository.Order
}

func (s *stubOrders) CreateFromCart(context.Context, uint64, string) (*repository.Order, error) {
	panic("not used")
}

func (s *stubOrders) MarkPaidByRef(_ context.Context, ref string) (bool, error) {
	s.marked = append(s.marked, ref)
	return s.transitioned, s.markErr
}

func (s *stubOrders) GetByPaymentRef(context.Context, string) (*repository.Order, error) {
	if s.order == nil {
		return nil, repository.ErrOrderNotFound
	}
	return s.order, nil
}

func (s *stubOrders) ExpirePendingBefore(context.Context, time.Time) (int64, error) { return 0, nil }

type stubUsers struct{ user repository.User }

func (s *stubUsers) GetByID(context.Context, uint64) (repository.User, error) { return s.user, nil }

type stubEmails struct{ jobs []queue.EmailJob }

func (s *stubEmails) PublishEmail(_ context.Context, job queue.EmailJob) error {
	s.jobs = append(s.jobs, job)
	return nil
}

func newWebhookHandler(orders *stubOrders, emails *stubEmails) *WebhookHandler {
	svc := &service.Checkout{
		Orders: orders,
		Users:  &stubUsers{user: repository.User{ID: 3, Email: "buyer@example.com"}},
		Emails: emails,
	}
	return NewWebhookHandler(svc, webhookSecret)
}

func postWebhook(t *testing.T, h *WebhookHandler, body, sig string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if sig != "" {
		req.Header.Set("X-Payment-Signature", sig)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h.Handle(e.NewContext(req, rec)))
	return rec
}

func TestWebhook_CompletedMarksPaid(t *testing.T) {
	orders := &stubOrders{
		transitioned: true,
		order: &repository.Order{
			ID: 7, UserID: 3, Status: repository.OrderPaid,
			TotalCents: 2998, PaymentRef: "ref-1",
		},
	}
	emails := &stubEmails{}
	h := newWebhookHandler(orders, emails)

	body := `{"type":"checkout.completed","payment_ref":"ref-1"}`
	sig := payment.SignatureHeader(webhookSecret, time.Now(), []byte(body))
	rec := postWebhook(t, h, body, sig)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ref-1"}, orders.marked)
	require.Len(t, emails.jobs, 1)
	assert.Equal(t, queue.EmailOrderReceipt, emails.jobs[0].Kind)
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	orders := &stubOrders{transitioned: true}
	h := newWebhookHandler(orders, &stubEmails{})

	body := `{"type":"checkout.completed","payment_ref":"ref-1"}`
	// Signature computed over a different body.
	sig := payment.SignatureHeader(webhookSecret, time.Now(), []byte(`{}`))
	rec := postWebhook(t, h, body, sig)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// A rejected delivery never touches order state.
	assert.Empty(t, orders.marked)
}

func TestWebhook_StaleSignatureRejected(t *testing.T) {
	orders := &stubOrders{transitioned: true}
	h := newWebhookHandler(orders, &stubEmails{})

	body := `{"type":"checkout.completed","payment_ref":"ref-1"}`
	sig := payment.SignatureHeader(webhookSecret, time.Now().Add(-time.Hour), []byte(body))
	rec := postWebhook(t, h, body, sig)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, orders.marked)
}

func TestWebhook_MissingSignatureRejected(t *testing.T) {
	h := newWebhookHandler(&stubOrders{}, &stubEmails{})
	rec := postWebhook(t, h, `{"type":"checkout.completed","payment_ref":"ref-1"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_DuplicateDeliveryIs200(t *testing.T) {
	orders := &stubOrders{transitioned: false}
	emails := &stubEmails{}
	h := newWebhookHandler(orders, emails)

	body := `{"type":"checkout.completed","payment_ref":"ref-1"}`
	sig := payment.SignatureHeader(webhookSecret, time.Now(), []byte(body))
	rec := postWebhook(t, h, body, sig)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, emails.jobs)
}

func TestWebhook_UnknownRefIs404(t *testing.T) {
	orders := &stubOrders{markErr: repository.ErrOrderNotFound}
	h := newWebhookHandler(orders, &stubEmails{})

	body := `{"type":"checkout.completed","payment_ref":"ref-x"}`
	sig := payment.SignatureHeader(webhookSecret, time.Now(), []byte(body))
	rec := postWebhook(t, h, body, sig)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhook_UnknownEventTypeAcknowledged(t *testing.T) {
	orders := &stubOrders{}
	h := newWebhookHandler(orders, &stubEmails{})

	body := `{"type":"checkout.expired","payment_ref":"ref-1"}`
	sig := payment.SignatureHeader(webhookSecret, time.Now(), []byte(body))
	rec := postWebhook(t, h, body, sig)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, orders.marked)
}
