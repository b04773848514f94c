package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession_Success(t *testing.T) {
	var got SessionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Session{ID: "sess_1", URL: "https://pay.example.com/s/1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test")
	s, err := c.CreateSession(context.Background(), SessionRequest{
		Reference: "ref-1",
		Currency:  "usd",
		LineItems: []LineItem{{Name: "The Matrix", UnitAmount: 1499, Quantity: 1}},
	})

	require.NoError(t, err)
	assert.Equal(t, "sess_1", s.ID)
	assert.Equal(t, "https://pay.example.com/s/1", s.URL)
	assert.Equal(t, "ref-1", got.Reference)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, uint64(1499), got.LineItems[0].UnitAmount)
}

func TestCreateSession_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_bad")
	s, err := c.CreateSession(context.Background(), SessionRequest{Reference: "ref-1"})

	assert.Nil(t, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestCreateSession_MissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Session{ID: "sess_1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test")
	_, err := c.CreateSession(context.Background(), SessionRequest{Reference: "ref-1"})
	assert.Error(t, err)
}
