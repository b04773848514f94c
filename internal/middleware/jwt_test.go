package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-store/internal/utils"
)

const testJWTSecret = "jwt-test-secret"

func runProtected(t *testing.T, mws []echo.MiddlewareFunc, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get("user_id"), "role": c.Get("role")})
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestJWTAuth_ValidToken(t *testing.T) {
	tok, err := utils.NewAccessToken(testJWTSecret, 42, "CUSTOMER", 15)
	require.NoError(t, err)

	rec := runProtected(t, []echo.MiddlewareFunc{JWTAuth(testJWTSecret)}, "Bearer "+tok.Token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"CUSTOMER"`)
	assert.Contains(t, rec.Body.String(), `"user_id":42`)
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	rec := runProtected(t, []echo.MiddlewareFunc{JWTAuth(testJWTSecret)}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuth_WrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 42, "CUSTOMER", 15)
	require.NoError(t, err)

	rec := runProtected(t, []echo.MiddlewareFunc{JWTAuth(testJWTSecret)}, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuth_GarbageToken(t *testing.T) {
	rec := runProtected(t, []echo.MiddlewareFunc{JWTAuth(testJWTSecret)}, "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_Allows(t *testing.T) {
	tok, err := utils.NewAccessToken(testJWTSecret, 1, "ADMIN", 15)
	require.NoError(t, err)

	rec := runProtected(t,
		[]echo.MiddlewareFunc{JWTAuth(testJWTSecret), RequireRole("ADMIN")},
		"Bearer "+tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_Forbids(t *testing.T) {
	tok, err := utils.NewAccessToken(testJWTSecret, 1, "CUSTOMER", 15)
	require.NoError(t, err)

	rec := runProtected(t,
		[]echo.MiddlewareFunc{JWTAuth(testJWTSecret), RequireRole("ADMIN")},
		"Bearer "+tok.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
