package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-store/internal/repository"
)

type stubEngagement struct {
	favorites map[uint64]bool
	likes     map[uint64]bool
	ratings   map[uint64]int
}

func newStubEngagement() *stubEngagement {
	return &stubEngagement{
		favorites: map[uint64]bool{},
		likes:     map[uint64]bool{},
		ratings:   map[uint64]int{},
	}
}

func (s *stubEngagement) AddFavorite(_ context.Context, _, movieID uint64) error {
	s.favorites[movieID] = true
	return nil
}

func (s *stubEngagement) RemoveFavorite(_ context.Context, _, movieID uint64) error {
	delete(s.favorites, movieID)
	return nil
}

func (s *stubEngagement) ListFavorites(context.Context, uint64, int, int) ([]repository.Movie, error) {
	return nil, nil
}

func (s *stubEngagement) RateMovie(_ context.Context, _, movieID uint64, score int) error {
	s.ratings[movieID] = score
	return nil
}

func (s *stubEngagement) LikeMovie(_ context.Context, _, movieID uint64, like bool) error {
	s.likes[movieID] = like
	return nil
}

func engagementFixture() (*EngagementHandler, *stubEngagement) {
	eng := newStubEngagement()
	movies := &stubCartMovies{byID: map[uint64]*repository.Movie{
		10: {ID: 10, Name: "The Matrix", Year: 1999},
	}}
	return NewEngagementHandler(eng, movies), eng
}

func likeRequest(t *testing.T, h *EngagementHandler, movieID uint64, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/movies/:id/like", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(3))
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(movieID, 10))
	require.NoError(t, h.Like(c))
	return rec
}

func TestLikeMovie_RecordsVote(t *testing.T) {
	h, eng := engagementFixture()

	rec := likeRequest(t, h, 10, `{"like":true}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, eng.likes[10])

	// Voting again flips the previous vote instead of erroring.
	rec = likeRequest(t, h, 10, `{"like":false}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, eng.likes[10])
}

func TestLikeMovie_UnknownMovieIs404(t *testing.T) {
	h, eng := engagementFixture()

	rec := likeRequest(t, h, 999, `{"like":true}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, eng.likes)
}

func TestLikeMovie_MissingVoteIs400(t *testing.T) {
	h, eng := engagementFixture()

	rec := likeRequest(t, h, 10, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, eng.likes)
}
