// Admin movie CRUD.  Create resolves genre/star/director names to rows in
// one transaction, inserting any that do not exist yet, so spreadsheet-style
// imports do not need a separate pass to seed the name tables.
package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-store/internal/repository"
)

// AdminMovieHandler bundles the repositories movie administration needs.
type AdminMovieHandler struct {
	Movies         *repository.MovieRepo
	Genres         *repository.NameRepo
	Stars          *repository.NameRepo
	Directors      *repository.NameRepo
	Certifications *repository.NameRepo
}

func NewAdminMovieHandler(m *repository.MovieRepo, g, s, d, cert *repository.NameRepo) *AdminMovieHandler {
	return &AdminMovieHandler{Movies: m, Genres: g, Stars: s, Directors: d, Certifications: cert}
}

type movieReq struct {
	Name          string   `json:"name"`
	Year          int      `json:"year"`
	Time          int      `json:"time"`
	IMDB          float64  `json:"imdb"`
	Votes         int      `json:"votes"`
	MetaScore     *float64 `json:"meta_score"`
	Gross         *float64 `json:"gross"`
	Description   string   `json:"description"`
	PriceCents    *uint64  `json:"price_cents"`
	Certification string   `json:"certification"`
	Genres        []string `json:"genres"`
	Stars         []string `json:"stars"`
	Directors     []string `json:"directors"`
}

func (req *movieReq) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Certification = strings.TrimSpace(req.Certification)
	switch {
	case req.Name == "":
		return "name required"
	case req.Year <= 0:
		return "year required"
	case req.Time <= 0:
		return "time required"
	case req.Certification == "":
		return "certification required"
	}
	return ""
}

func (req *movieReq) toModel() repository.Movie {
	m := repository.Movie{
		Name:        req.Name,
		Year:        req.Year,
		Time:        req.Time,
		IMDB:        req.IMDB,
		Votes:       req.Votes,
		Description: req.Description,
	}
	if req.MetaScore != nil {
		m.MetaScore = sql.NullFloat64{Float64: *req.MetaScore, Valid: true}
	}
	if req.Gross != nil {
		m.Gross = sql.NullFloat64{Float64: *req.Gross, Valid: true}
	}
	if req.PriceCents != nil {
		m.PriceCents = sql.NullInt64{Int64: int64(*req.PriceCents), Valid: true}
	}
	return m
}

// resolveNames maps a list of names through GetOrCreateTx, skipping blanks.
func resolveNames(ctx context.Context, tx *sql.Tx, repo *repository.NameRepo, names []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		id, err := repo.GetOrCreateTx(ctx, tx, n)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Create inserts a movie with its associations in one transaction.
func (h *AdminMovieHandler) Create(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Movies.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	m := req.toModel()
	if m.CertificationID, err = h.Certifications.GetOrCreateTx(ctx, tx, req.Certification); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	genreIDs, err := resolveNames(ctx, tx, h.Genres, req.Genres)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	starIDs, err := resolveNames(ctx, tx, h.Stars, req.Stars)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	directorIDs, err := resolveNames(ctx, tx, h.Directors, req.Directors)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}

	if err := h.Movies.CreateTx(ctx, tx, &m, genreIDs, starIDs, directorIDs); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "movie already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{"id": m.ID, "uuid": m.UUID})
}

// Update rewrites the scalar fields of a movie.
func (h *AdminMovieHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Certification resolution does not need the insert batch, but reuses
	// the same tx helper for a single round trip.
	tx, err := h.Movies.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	certID, err := h.Certifications.GetOrCreateTx(ctx, tx, req.Certification)
	if err != nil {
		_ = tx.Rollback()
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	m := req.toModel()
	m.ID = id
	m.CertificationID = certID
	if err := h.Movies.Update(ctx, &m); err != nil {
		switch {
		case errors.Is(err, repository.ErrMovieNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		case errors.Is(err, repository.ErrDuplicate):
			return c.JSON(http.StatusConflict, echo.Map{"error": "movie already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}

// Delete removes a movie unless order history still references it.
func (h *AdminMovieHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Movies.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrMovieNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "movie referenced by orders"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
