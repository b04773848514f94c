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

// EngagementStore is the persistence surface for favorites, ratings and
// like votes.  *repository.EngagementRepo satisfies it.
type EngagementStore interface {
	AddFavorite(ctx context.Context, userID, movieID uint64) error
	RemoveFavorite(ctx context.Context, userID, movieID uint64) error
	ListFavorites(ctx context.Context, userID uint64, page, perPage int) ([]repository.Movie, error)
	RateMovie(ctx context.Context, userID, movieID uint64, score int) error
	LikeMovie(ctx context.Context, userID, movieID uint64, like bool) error
}

// MovieGetter resolves a movie by ID, used for existence checks.
type MovieGetter interface {
	GetByID(ctx context.Context, id uint64) (*repository.Movie, error)
}

// EngagementHandler serves favorites, ratings and like votes for
// authenticated users.
type EngagementHandler struct {
	Engagement EngagementStore
	Movies     MovieGetter
}

func NewEngagementHandler(e EngagementStore, m MovieGetter) *EngagementHandler {
	return &EngagementHandler{Engagement: e, Movies: m}
}

// movieExists confirms the :id movie before touching engagement rows so
// clients get a 404 instead of a silent no-op on typoed IDs.
func (h *EngagementHandler) movieExists(ctx context.Context, c echo.Context, id uint64) (bool, error) {
	if _, err := h.Movies.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return false, c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return true, nil
}

// AddFavorite marks a movie as favorite.  Adding twice is a no-op.
func (h *EngagementHandler) AddFavorite(c echo.Context) error {
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

	if ok, resp := h.movieExists(ctx, c, id); !ok {
		return resp
	}
	if err := h.Engagement.AddFavorite(ctx, uid, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveFavorite unmarks a favorite.  Removing an absent one is a no-op.
func (h *EngagementHandler) RemoveFavorite(c echo.Context) error {
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

	if err := h.Engagement.RemoveFavorite(ctx, uid, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListFavorites returns the caller's favorite movies, newest first.
func (h *EngagementHandler) ListFavorites(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page, perPage := 1, 20
	if n, err := strconv.Atoi(c.QueryParam("page")); err == nil && n > 0 {
		page = n
	}
	if n, err := strconv.Atoi(c.QueryParam("per_page")); err == nil && n > 0 && n <= 100 {
		perPage = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	movies, err := h.Engagement.ListFavorites(ctx, uid, page, perPage)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicMovie, 0, len(movies))
	for _, m := range movies {
		out = append(out, toPublicMovie(m))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "page": page, "per_page": perPage})
}

// Rate upserts the caller's score for a movie.
func (h *EngagementHandler) Rate(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Score int `json:"score"`
	}
	if err := c.Bind(&req); err != nil || req.Score < 1 || req.Score > 10 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "score must be 1-10"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if ok, resp := h.movieExists(ctx, c, id); !ok {
		return resp
	}
	if err := h.Engagement.RateMovie(ctx, uid, id, req.Score); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"movie_id": id, "score": req.Score})
}

// Like records a like (true) or dislike (false) vote.  Voting again flips
// the previous vote.
func (h *EngagementHandler) Like(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Like *bool `json:"like"`
	}
	if err := c.Bind(&req); err != nil || req.Like == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "like required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if ok, resp := h.movieExists(ctx, c, id); !ok {
		return resp
	}
	if err := h.Engagement.LikeMovie(ctx, uid, id, *req.Like); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
