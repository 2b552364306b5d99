package service

import (
	"context"
	"edu_platform_backend/internal/config"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenInfoServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "good-token", r.URL.Query().Get("id_token"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleVerifierAcceptsMatchingAudience(t *testing.T) {
	srv := newTokenInfoServer(t, http.StatusOK,
		`{"aud":"client-1","sub":"g-42","email":"ada@example.com","email_verified":"true","name":"Ada"}`)
	v := NewGoogleVerifier(config.GoogleConfig{ClientID: "client-1", TokenInfoURL: srv.URL})

	identity, err := v.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "g-42", identity.Subject)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.True(t, identity.EmailVerified)
	assert.Equal(t, "Ada", identity.Name)
}

func TestGoogleVerifierRejections(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"foreign audience", http.StatusOK, `{"aud":"someone-else","sub":"g-42","email":"ada@example.com"}`},
		{"missing subject", http.StatusOK, `{"aud":"client-1","email":"ada@example.com"}`},
		{"invalid token", http.StatusBadRequest, `{"error":"invalid_token"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTokenInfoServer(t, tc.status, tc.body)
			v := NewGoogleVerifier(config.GoogleConfig{ClientID: "client-1", TokenInfoURL: srv.URL})

			_, err := v.Verify(context.Background(), "good-token")
			assert.Error(t, err)
		})
	}
}

func TestGoogleVerifierRequiresClientID(t *testing.T) {
	v := NewGoogleVerifier(config.GoogleConfig{TokenInfoURL: "http://127.0.0.1:1"})
	_, err := v.Verify(context.Background(), "good-token")
	assert.Error(t, err)
}
