package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-store/internal/handler"
	"github.com/iliyamo/movie-store/internal/middleware"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.  Catalog
// writes live here so the public group stays read-only and cacheable.
func RegisterAdmin(e *echo.Echo, movies *handler.AdminMovieHandler, cat CatalogRepos, cart *handler.CartHandler, orders *handler.OrderHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	// ---- Movies ----
	g.POST("/movies", movies.Create)
	g.PUT("/movies/:id", movies.Update)
	g.PATCH("/movies/:id", movies.Update)
	g.DELETE("/movies/:id", movies.Delete)

	// ---- Name lists ----
	g.POST("/genres", handler.NameCreate(cat.Genres))
	g.PUT("/genres/:id", handler.NameUpdate(cat.Genres))
	g.DELETE("/genres/:id", handler.NameDelete(cat.Genres))

	g.POST("/stars", handler.NameCreate(cat.Stars))
	g.PUT("/stars/:id", handler.NameUpdate(cat.Stars))
	g.DELETE("/stars/:id", handler.NameDelete(cat.Stars))

	g.POST("/directors", handler.NameCreate(cat.Directors))
	g.PUT("/directors/:id", handler.NameUpdate(cat.Directors))
	g.DELETE("/directors/:id", handler.NameDelete(cat.Directors))

	g.POST("/certifications", handler.NameCreate(cat.Certifications))
	g.PUT("/certifications/:id", handler.NameUpdate(cat.Certifications))
	g.DELETE("/certifications/:id", handler.NameDelete(cat.Certifications))

	// ---- Support views ----
	g.GET("/carts/:user_id", cart.AdminView)
	g.GET("/orders", orders.AdminList)
}
