package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-store/internal/repository"
)

// CartStore is the cart persistence surface the handler needs.
// *repository.CartRepo satisfies it.
type CartStore interface {
	GetOrCreate(ctx context.Context, userID uint64) (uint64, error)
	AddItem(ctx context.Context, cartID, movieID uint64) error
	RemoveItem(ctx context.Context, cartID, movieID uint64) error
	Clear(ctx context.Context, cartID uint64) error
	Items(ctx context.Context, cartID uint64) ([]repository.CartItem, error)
}

// CartMovieReader is the slice of the movie repository the cart needs.
type CartMovieReader interface {
	GetByID(ctx context.Context, id uint64) (*repository.Movie, error)
	GenresFor(ctx context.Context, movieIDs []uint64) (map[uint64][]string, error)
}

// CartHandler serves the per-user shopping cart.  Cart lines carry live
// catalog data; prices are only frozen at checkout.
type CartHandler struct {
	Carts  CartStore
	Movies CartMovieReader
}

func NewCartHandler(carts CartStore, movies CartMovieReader) *CartHandler {
	return &CartHandler{Carts: carts, Movies: movies}
}

type cartItemResp struct {
	MovieID    uint64    `json:"movie_id"`
	Title      string    `json:"title"`
	Year       int       `json:"year"`
	Genres     []string  `json:"genres,omitempty"`
	PriceCents *uint64   `json:"price_cents"`
	Quantity   int       `json:"quantity"`
	AddedAt    time.Time `json:"added_at"`
}

type cartResp struct {
	Items      []cartItemResp `json:"items"`
	TotalCents uint64         `json:"total_cents"`
}

func (h *CartHandler) render(ctx context.Context, c echo.Context, cartID uint64) error {
	items, err := h.Carts.Items(ctx, cartID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	ids := make([]uint64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MovieID)
	}
	genres, err := h.Movies.GenresFor(ctx, ids)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	out := cartResp{Items: make([]cartItemResp, 0, len(items))}
	for _, it := range items {
		line := cartItemResp{
			MovieID:  it.MovieID,
			Title:    it.Title,
			Year:     it.Year,
			Genres:   genres[it.MovieID],
			Quantity: it.Quantity,
			AddedAt:  it.AddedAt,
		}
		if it.PriceCents.Valid {
			v := uint64(it.PriceCents.Int64)
			line.PriceCents = &v
			out.TotalCents += v * uint64(it.Quantity)
		}
		out.Items = append(out.Items, line)
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns the caller's cart, creating an empty one on first access.
func (h *CartHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cartID, err := h.Carts.GetOrCreate(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return h.render(ctx, c, cartID)
}

// AddItem puts a movie into the cart.  Unknown movies are 404, movies
// without a price 400, duplicates 409.
func (h *CartHandler) AddItem(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		MovieID uint64 `json:"movie_id"`
	}
	if err := c.Bind(&req); err != nil || req.MovieID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Movies.GetByID(ctx, req.MovieID)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !m.PriceCents.Valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie is not purchasable"})
	}

	cartID, err := h.Carts.GetOrCreate(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.Carts.AddItem(ctx, cartID, req.MovieID); err != nil {
		if errors.Is(err, repository.ErrMovieInCart) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "movie already in cart"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save failed"})
	}
	return h.render(ctx, c, cartID)
}

// RemoveItem deletes one line; removing an absent movie is a no-op.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	movieID, ok := pathID(c, "movie_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie_id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cartID, err := h.Carts.GetOrCreate(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.Carts.RemoveItem(ctx, cartID, movieID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return h.render(ctx, c, cartID)
}

// Clear empties the cart.
func (h *CartHandler) Clear(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cartID, err := h.Carts.GetOrCreate(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.Carts.Clear(ctx, cartID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// AdminView returns any user's cart for support tooling.
func (h *CartHandler) AdminView(c echo.Context) error {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cartID, err := h.Carts.GetOrCreate(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return h.render(ctx, c, cartID)
}
