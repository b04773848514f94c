package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-store/internal/repository"
	"github.com/iliyamo/movie-store/internal/service"
)

// OrderHandler serves checkout and order history.  The state-changing flow
// lives in service.Checkout; this layer only maps errors to HTTP.
type OrderHandler struct {
	Svc    *service.Checkout
	Orders *repository.OrderRepo
}

func NewOrderHandler(svc *service.Checkout, orders *repository.OrderRepo) *OrderHandler {
	return &OrderHandler{Svc: svc, Orders: orders}
}

type orderItemResp struct {
	MovieID    uint64 `json:"movie_id"`
	Title      string `json:"title"`
	PriceCents uint64 `json:"price_cents"`
}

type orderResp struct {
	ID         uint64          `json:"id"`
	UserID     uint64          `json:"user_id,omitempty"`
	Status     string          `json:"status"`
	TotalCents uint64          `json:"total_cents"`
	PaymentRef string          `json:"payment_ref"`
	CreatedAt  time.Time       `json:"created_at"`
	Items      []orderItemResp `json:"items,omitempty"`
}

func toOrderResp(o *repository.Order, withUser bool) orderResp {
	out := orderResp{
		ID:         o.ID,
		Status:     o.Status,
		TotalCents: o.TotalCents,
		PaymentRef: o.PaymentRef,
		CreatedAt:  o.CreatedAt,
	}
	if withUser {
		out.UserID = o.UserID
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemResp{MovieID: it.MovieID, Title: it.Title, PriceCents: it.PriceCents})
	}
	return out
}

// Checkout converts the cart into a pending order and returns the payment
// session URL.  A provider outage after the order committed returns 502
// with the order attached; the order stays pending until paid or swept.
func (h *OrderHandler) Checkout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	res, err := h.Svc.Checkout(ctx, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmptyCart):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart is empty"})
		case errors.Is(err, repository.ErrNotPurchasable):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart contains a movie without a price"})
		case errors.Is(err, service.ErrPaymentSession):
			return c.JSON(http.StatusBadGateway, echo.Map{
				"error": "payment session failed",
				"order": toOrderResp(res.Order, false),
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"order":        toOrderResp(res.Order, false),
		"checkout_url": res.CheckoutURL,
	})
}

// List returns the caller's orders, newest first, optionally filtered by
// ?status=.
func (h *OrderHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status := c.QueryParam("status")
	if status != "" && !validStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, err := h.Orders.ListByUser(ctx, uid, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]orderResp, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResp(&orders[i], false))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get returns one of the caller's orders with its items.  Orders of other
// users read as 404 rather than 403.
func (h *OrderHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if o.UserID != uid {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}
	return c.JSON(http.StatusOK, toOrderResp(o, false))
}

// Cancel moves a pending order to canceled.  Paid, expired and already
// canceled orders return 409.
func (h *OrderHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Orders.CancelByIDAndUser(ctx, id, uid); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "order is not pending"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": repository.OrderCanceled})
}

// AdminList returns all orders, filterable by ?status= and ?user_id=.
func (h *OrderHandler) AdminList(c echo.Context) error {
	status := c.QueryParam("status")
	if status != "" && !validStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	var userID uint64
	if v := c.QueryParam("user_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
		}
		userID = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, err := h.Orders.ListAll(ctx, userID, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]orderResp, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResp(&orders[i], true))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func validStatus(s string) bool {
	switch s {
	case repository.OrderPending, repository.OrderPaid, repository.OrderCanceled, repository.OrderExpired:
		return true
	}
	return false
}
