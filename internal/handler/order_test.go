package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-store/internal/payment"
	"github.com/iliyamo/movie-store/internal/repository"
	"github.com/iliyamo/movie-store/internal/service"
)

type checkoutOrders struct {
	order     *repository.Order
	createErr error
}

func (s *checkoutOrders) CreateFromCart(_ context.Context, userID uint64, ref string) (*repository.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	o := *s.order
	o.UserID = userID
	o.PaymentRef = ref
	return &o, nil
}

func (s *checkoutOrders) MarkPaidByRef(context.Context, string) (bool, error) { panic("not used") }
func (s *checkoutOrders) GetByPaymentRef(context.Context, string) (*repository.Order, error) {
	panic("not used")
}
func (s *checkoutOrders) ExpirePendingBefore(context.Context, time.Time) (int64, error) {
	panic("not used")
}

type stubSessions struct {
	session *payment.Session
	err     error
}

func (s *stubSessions) CreateSession(context.Context, payment.SessionRequest) (*payment.Session, error) {
	return s.session, s.err
}

func checkoutRequest(t *testing.T, h *OrderHandler) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/orders", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(3))
	require.NoError(t, h.Checkout(c))
	return rec
}

func TestCheckoutEndpoint_Success(t *testing.T) {
	svc := &service.Checkout{
		Orders: &checkoutOrders{order: &repository.Order{
			ID: 7, Status: repository.OrderPending, TotalCents: 1499,
			Items: []repository.OrderItem{{MovieID: 1, Title: "The Matrix", PriceCents: 1499}},
		}},
		Payments: &stubSessions{session: &payment.Session{ID: "sess_1", URL: "https://pay.example.com/s/1"}},
	}
	h := NewOrderHandler(svc, nil)

	rec := checkoutRequest(t, h)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		CheckoutURL string `json:"checkout_url"`
		Order       struct {
			Status     string `json:"status"`
			TotalCents uint64 `json:"total_cents"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://pay.example.com/s/1", resp.CheckoutURL)
	assert.Equal(t, repository.OrderPending, resp.Order.Status)
	assert.Equal(t, uint64(1499), resp.Order.TotalCents)
}

func TestCheckoutEndpoint_EmptyCart(t *testing.T) {
	svc := &service.Checkout{
		Orders:   &checkoutOrders{createErr: repository.ErrEmptyCart},
		Payments: &stubSessions{},
	}
	h := NewOrderHandler(svc, nil)

	rec := checkoutRequest(t, h)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cart is empty")
}

func TestCheckoutEndpoint_ProviderDownIs502WithOrder(t *testing.T) {
	svc := &service.Checkout{
		Orders: &checkoutOrders{order: &repository.Order{
			ID: 7, Status: repository.OrderPending, TotalCents: 1499,
		}},
		Payments: &stubSessions{err: errors.New("connection refused")},
	}
	h := NewOrderHandler(svc, nil)

	rec := checkoutRequest(t, h)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	// The order committed before the provider call and is reported back.
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
}
