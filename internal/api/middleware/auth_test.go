package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/internal/auth"
)

func TestAuthenticator(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()
	token, err := auth.AccessClaims{
		Sub: "7",
		Iat: now.Unix(),
		Exp: now.Add(time.Hour).Unix(),
	}.SignedString(secret)
	require.NoError(t, err)

	var gotID int64
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Authenticator(secret)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not a bearer token", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotOK = 0, false

			req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.True(t, gotOK)
				assert.Equal(t, int64(7), gotID)
			} else {
				assert.False(t, gotOK)
			}
		})
	}
}
