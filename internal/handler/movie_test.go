package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-store/internal/repository"
)

type stubBrowser struct {
	detail *repository.MovieDetail
}

func (s *stubBrowser) List(context.Context, repository.MovieFilter) ([]repository.Movie, error) {
	return nil, nil
}

func (s *stubBrowser) GenresFor(context.Context, []uint64) (map[uint64][]string, error) {
	return map[uint64][]string{}, nil
}

func (s *stubBrowser) GetDetail(_ context.Context, id uint64) (*repository.MovieDetail, error) {
	if s.detail == nil || s.detail.ID != id {
		return nil, repository.ErrMovieNotFound
	}
	return s.detail, nil
}

type stubStats struct {
	stats repository.EngagementStats
}

func (s *stubStats) StatsFor(context.Context, uint64) (repository.EngagementStats, error) {
	return s.stats, nil
}

func movieDetailRequest(t *testing.T, h *MovieHandler, id string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/movies/:id", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h.Get(c))
	return rec
}

func TestMovieDetail_IncludesEngagementStats(t *testing.T) {
	browser := &stubBrowser{detail: &repository.MovieDetail{
		Movie: repository.Movie{
			ID: 10, UUID: "u-10", Name: "The Matrix", Year: 1999,
			PriceCents: sql.NullInt64{Int64: 1499, Valid: true},
		},
		Certification: "R",
		Genres:        []string{"Sci-Fi"},
	}}
	stats := &stubStats{stats: repository.EngagementStats{
		Likes:     12,
		Dislikes:  3,
		AvgRating: sql.NullFloat64{Float64: 8.5, Valid: true},
	}}
	h := NewMovieHandler(browser, stats)

	rec := movieDetailRequest(t, h, "10")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Likes         int64    `json:"likes"`
		Dislikes      int64    `json:"dislikes"`
		AverageRating *float64 `json:"average_rating"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(12), resp.Likes)
	assert.Equal(t, int64(3), resp.Dislikes)
	require.NotNil(t, resp.AverageRating)
	assert.Equal(t, 8.5, *resp.AverageRating)
}

func TestMovieDetail_NoVotesOrRatings(t *testing.T) {
	browser := &stubBrowser{detail: &repository.MovieDetail{
		Movie:         repository.Movie{ID: 10, UUID: "u-10", Name: "The Matrix", Year: 1999},
		Certification: "R",
	}}
	h := NewMovieHandler(browser, &stubStats{})

	rec := movieDetailRequest(t, h, "10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"likes":0`)
	assert.Contains(t, rec.Body.String(), `"average_rating":null`)
}

func TestMovieDetail_UnknownIs404(t *testing.T) {
	h := NewMovieHandler(&stubBrowser{}, &stubStats{})

	rec := movieDetailRequest(t, h, "42")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
