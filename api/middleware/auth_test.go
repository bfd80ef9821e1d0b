package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testCaller = sdk.AccAddress([]byte("caller______________")).String()

func newTestAuthenticator(secret string) *Authenticator {
	cfg := *DefaultAuthConfig()
	cfg.HMACSecret = secret
	return NewAuthenticator(cfg, nil)
}

func TestIssueAndAuthenticate(t *testing.T) {
	auth := newTestAuthenticator("s3cret")

	token, err := auth.IssueToken(testCaller, time.Hour)
	require.NoError(t, err)

	caller, err := auth.Authenticate(token)
	require.NoError(t, err)
	require.Equal(t, testCaller, caller)

	_, err = auth.IssueToken("not-bech32", time.Hour)
	require.Error(t, err)
}

func TestAuthenticateRejects(t *testing.T) {
	auth := newTestAuthenticator("s3cret")

	otherKey, err := newTestAuthenticator("other").IssueToken(testCaller, time.Hour)
	require.NoError(t, err)
	expired, err := auth.IssueToken(testCaller, -time.Hour)
	require.NoError(t, err)

	wrongAudience := *DefaultAuthConfig()
	wrongAudience.HMACSecret = "s3cret"
	wrongAudience.Audience = "elsewhere"
	foreign, err := NewAuthenticator(wrongAudience, nil).IssueToken(testCaller, time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  testCaller,
		Issuer:   "cdp-api",
		Audience: jwt.ClaimStrings{"cdp-api"},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "nobody",
		Issuer:    "cdp-api",
		Audience:  jwt.ClaimStrings{"cdp-api"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	testCases := []struct {
		name  string
		token string
	}{
		{"garbage", "abc.def.ghi"},
		{"wrong key", otherKey},
		{"expired", expired},
		{"wrong audience", foreign},
		{"no expiry", noExpiry},
		{"subject not an address", badSubject},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Authenticate(tc.token)
			require.Error(t, err)
		})
	}
}

func TestAuthenticateWithoutSecret(t *testing.T) {
	auth := newTestAuthenticator("")
	_, err := auth.IssueToken(testCaller, time.Hour)
	require.Error(t, err)
	_, err = auth.Authenticate("abc.def.ghi")
	require.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	auth := newTestAuthenticator("s3cret")
	token, err := auth.IssueToken(testCaller, time.Hour)
	require.NoError(t, err)

	var seen string
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	testCases := []struct {
		name   string
		method string
		header string
		status int
		caller string
	}{
		{"anonymous read", http.MethodGet, "", http.StatusOK, ""},
		{"anonymous write", http.MethodPost, "", http.StatusUnauthorized, ""},
		{"anonymous delete", http.MethodDelete, "", http.StatusUnauthorized, ""},
		{"malformed header", http.MethodPost, "Token " + token, http.StatusUnauthorized, ""},
		{"invalid token", http.MethodPost, "Bearer abc.def.ghi", http.StatusUnauthorized, ""},
		{"valid token", http.MethodPost, "Bearer " + token, http.StatusOK, testCaller},
		{"case-insensitive scheme", http.MethodPost, "bearer " + token, http.StatusOK, testCaller},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(tc.method, "/v1/troves", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.caller, seen)
			if tc.status == http.StatusUnauthorized {
				require.Contains(t, rec.Body.String(), "unauthorized")
				require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
