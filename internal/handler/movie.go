// Package handler exposes HTTP handlers for both authenticated and public
// endpoints.  This file defines the public movie browsing API: list and
// detail reads open to unauthenticated users.  Internal fields (surrogate
// keys of associations, timestamps) are filtered from responses.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-store/internal/repository"
)

// MovieBrowser is the read surface for public browsing.
// *repository.MovieRepo satisfies it.
type MovieBrowser interface {
	List(ctx context.Context, f repository.MovieFilter) ([]repository.Movie, error)
	GenresFor(ctx context.Context, movieIDs []uint64) (map[uint64][]string, error)
	GetDetail(ctx context.Context, id uint64) (*repository.MovieDetail, error)
}

// EngagementStatsReader supplies vote counts and rating averages for the
// detail view.
type EngagementStatsReader interface {
	StatsFor(ctx context.Context, movieID uint64) (repository.EngagementStats, error)
}

// MovieHandler aggregates repositories needed for movie browsing.
type MovieHandler struct {
	Movies MovieBrowser
	Stats  EngagementStatsReader
}

func NewMovieHandler(m MovieBrowser, stats EngagementStatsReader) *MovieHandler {
	return &MovieHandler{Movies: m, Stats: stats}
}

// PublicMovie is a movie in list responses.  PriceCents is nil for titles
// that are listed but not purchasable.
type PublicMovie struct {
	ID         uint64   `json:"id"`
	UUID       string   `json:"uuid"`
	Name       string   `json:"name"`
	Year       int      `json:"year"`
	Time       int      `json:"time"`
	IMDB       float64  `json:"imdb"`
	Votes      int      `json:"votes"`
	PriceCents *uint64  `json:"price_cents"`
	Genres     []string `json:"genres,omitempty"`
}

// PublicMovieDetail adds the full association set, description and
// engagement aggregates.
type PublicMovieDetail struct {
	PublicMovie
	MetaScore     *float64 `json:"meta_score,omitempty"`
	Gross         *float64 `json:"gross,omitempty"`
	Description   string   `json:"description"`
	Certification string   `json:"certification"`
	Stars         []string `json:"stars"`
	Directors     []string `json:"directors"`
	Likes         int64    `json:"likes"`
	Dislikes      int64    `json:"dislikes"`
	AverageRating *float64 `json:"average_rating"`
}

func toPublicMovie(m repository.Movie) PublicMovie {
	out := PublicMovie{
		ID:    m.ID,
		UUID:  m.UUID,
		Name:  m.Name,
		Year:  m.Year,
		Time:  m.Time,
		IMDB:  m.IMDB,
		Votes: m.Votes,
	}
	if m.PriceCents.Valid {
		v := uint64(m.PriceCents.Int64)
		out.PriceCents = &v
	}
	return out
}

// List returns a page of movies with their genres.  Query parameters:
// page, per_page (max 100), year, min_imdb, search, sort_by.
func (h *MovieHandler) List(c echo.Context) error {
	f := repository.MovieFilter{
		Page:    1,
		PerPage: 20,
		Search:  c.QueryParam("search"),
		SortBy:  c.QueryParam("sort_by"),
	}
	if n, err := strconv.Atoi(c.QueryParam("page")); err == nil && n > 0 {
		f.Page = n
	}
	if n, err := strconv.Atoi(c.QueryParam("per_page")); err == nil && n > 0 {
		f.PerPage = n
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
	if n, err := strconv.Atoi(c.QueryParam("year")); err == nil && n > 0 {
		f.Year = n
	}
	if v, err := strconv.ParseFloat(c.QueryParam("min_imdb"), 64); err == nil && v > 0 {
		f.MinIMDB = v
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	movies, err := h.Movies.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	ids := make([]uint64, 0, len(movies))
	for _, m := range movies {
		ids = append(ids, m.ID)
	}
	genres, err := h.Movies.GenresFor(ctx, ids)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	out := make([]PublicMovie, 0, len(movies))
	for _, m := range movies {
		pm := toPublicMovie(m)
		pm.Genres = genres[m.ID]
		out = append(out, pm)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":    out,
		"page":     f.Page,
		"per_page": f.PerPage,
	})
}

// Get returns one movie with certification, genres, stars and directors.
func (h *MovieHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Movies.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	out := PublicMovieDetail{
		PublicMovie:   toPublicMovie(d.Movie),
		Description:   d.Description,
		Certification: d.Certification,
		Stars:         d.Stars,
		Directors:     d.Directors,
	}
	out.Genres = d.Genres
	if d.MetaScore.Valid {
		v := d.MetaScore.Float64
		out.MetaScore = &v
	}
	if d.Gross.Valid {
		v := d.Gross.Float64
		out.Gross = &v
	}

	stats, err := h.Stats.StatsFor(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out.Likes = stats.Likes
	out.Dislikes = stats.Dislikes
	if stats.AvgRating.Valid {
		v := stats.AvgRating.Float64
		out.AverageRating = &v
	}
	return c.JSON(http.StatusOK, out)
}
