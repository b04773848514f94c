package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-store/internal/handler"
	"github.com/iliyamo/movie-store/internal/repository"
)

// CatalogRepos groups the four name-list repositories so route registration
// does not take a parade of identical parameters.
type CatalogRepos struct {
	Genres         *repository.NameRepo
	Stars          *repository.NameRepo
	Directors      *repository.NameRepo
	Certifications *repository.NameRepo
}

// RegisterPublic registers the unauthenticated browse API under /v1.  The
// passed middleware (rate limiting, response cache) applies to the whole
// group; pass-through functions disable either concern.
func RegisterPublic(e *echo.Echo, m *handler.MovieHandler, cat CatalogRepos, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)

	g.GET("/movies", m.List)
	g.GET("/movies/:id", m.Get)

	g.GET("/genres", handler.NameList(cat.Genres))
	g.GET("/genres/:id", handler.NameGet(cat.Genres))
	g.GET("/stars", handler.NameList(cat.Stars))
	g.GET("/stars/:id", handler.NameGet(cat.Stars))
	g.GET("/directors", handler.NameList(cat.Directors))
	g.GET("/directors/:id", handler.NameGet(cat.Directors))
	g.GET("/certifications", handler.NameList(cat.Certifications))
	g.GET("/certifications/:id", handler.NameGet(cat.Certifications))
}
