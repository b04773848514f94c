package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-store/internal/handler"
	"github.com/iliyamo/movie-store/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All
// routes require a valid JWT; admins keep their customer abilities, so
// both roles are allowed.
func RegisterCustomer(e *echo.Echo, cart *handler.CartHandler, orders *handler.OrderHandler, eng *handler.EngagementHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER", "ADMIN"),
	)

	// ---- Cart ----
	g.GET("/cart", cart.Get)
	g.POST("/cart/items", cart.AddItem)
	g.DELETE("/cart/items/:movie_id", cart.RemoveItem)
	g.DELETE("/cart", cart.Clear)

	// ---- Orders ----
	g.POST("/orders", orders.Checkout)
	g.GET("/orders", orders.List)
	g.GET("/orders/:id", orders.Get)
	g.POST("/orders/:id/cancel", orders.Cancel)

	// ---- Engagement ----
	g.GET("/favorites", eng.ListFavorites)
	g.POST("/movies/:id/favorite", eng.AddFavorite)
	g.DELETE("/movies/:id/favorite", eng.RemoveFavorite)
	g.POST("/movies/:id/rating", eng.Rate)
	g.POST("/movies/:id/like", eng.Like)
}
