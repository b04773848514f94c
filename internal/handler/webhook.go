package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-store/internal/payment"
	"github.com/iliyamo/movie-store/internal/repository"
	"github.com/iliyamo/movie-store/internal/service"
)

// Webhook bodies are small JSON events; anything bigger is hostile.
const maxWebhookBody = 64 << 10

// WebhookHandler receives payment provider callbacks.  The route is
// unauthenticated; the HMAC signature over the raw body is the only
// authentication, so the body must be read before any JSON binding.
type WebhookHandler struct {
	Svc    *service.Checkout
	Secret string
}

func NewWebhookHandler(svc *service.Checkout, secret string) *WebhookHandler {
	return &WebhookHandler{Svc: svc, Secret: secret}
}

// Handle verifies the signature, parses the event and applies it.  A
// signature failure never touches state.  Duplicate deliveries of a
// completed checkout are acknowledged with 200.
func (h *WebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}

	sig := c.Request().Header.Get("X-Payment-Signature")
	if err := payment.VerifySignature(h.Secret, sig, body, payment.DefaultTolerance, time.Now()); err != nil {
		c.Logger().Warnf("webhook: rejected signature: %v", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	ev, err := payment.ParseEvent(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.HandleEvent(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown payment_ref"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "event failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
