package tokenizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenizer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(APIKeyHeader) != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var req struct {
			PII string `json:"pii"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PII == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-" + req.PII})
	}
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /tokens", handler)
	mux.HandleFunc("POST /tokens/search", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateToken(t *testing.T) {
	srv := newTokenizer(t)
	c, err := New(srv.URL+"/tokens", "secret")
	require.NoError(t, err)

	token, resp, err := c.CreateToken(context.Background(), "JHNDOE00A01F205N")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "tok-JHNDOE00A01F205N", token)
}

func TestSearchToken(t *testing.T) {
	srv := newTokenizer(t)
	c, err := New(srv.URL+"/tokens", "secret")
	require.NoError(t, err)

	token, _, err := c.SearchToken(context.Background(), "JHNDOE00A01F205N")
	require.NoError(t, err)
	assert.Equal(t, "tok-JHNDOE00A01F205N", token)
}

func TestCreateToken_ErrorStatus(t *testing.T) {
	srv := newTokenizer(t)
	c, err := New(srv.URL+"/tokens", "wrong")
	require.NoError(t, err)

	token, resp, err := c.CreateToken(context.Background(), "JHNDOE00A01F205N")
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Equal(t, http.StatusForbidden, resp.Status)
}

func TestCreateToken_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "")
	require.NoError(t, err)

	_, resp, err := c.CreateToken(context.Background(), "JHNDOE00A01F205N")
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusOK, resp.Status)
}
