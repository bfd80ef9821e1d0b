package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cosmossdk.io/log"
	sdk "github.com/cosmos/cosmos-sdk/types"
	jwt "github.com/golang-jwt/jwt/v5"
)

// AuthConfig configures bearer-token authentication of write requests.
// The token subject is the bech32 address the request acts as.
type AuthConfig struct {
	HMACSecret string        `toml:"hmac_secret"`
	Issuer     string        `toml:"issuer"`
	Audience   string        `toml:"audience"`
	ClockSkew  time.Duration `toml:"clock_skew"`
}

// DefaultAuthConfig returns the auth defaults. The secret has no default.
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		Issuer:    "cdp-api",
		Audience:  "cdp-api",
		ClockSkew: 2 * time.Minute,
	}
}

type contextKey string

const contextKeyCaller contextKey = "api.caller"

// CallerFromContext returns the authenticated caller set by the auth middleware
func CallerFromContext(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(contextKeyCaller).(string)
	return caller, ok && caller != ""
}

// WithCaller returns ctx carrying caller as the authenticated identity
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, contextKeyCaller, caller)
}

// Authenticator verifies HMAC-signed JWTs
type Authenticator struct {
	cfg    AuthConfig
	secret []byte
	logger log.Logger
}

// NewAuthenticator creates an authenticator for cfg
func NewAuthenticator(cfg AuthConfig, logger log.Logger) *Authenticator {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{
		cfg:    cfg,
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
		logger: logger.With("module", "api/auth"),
	}
}

// IssueToken signs a token whose subject is caller, valid for ttl
func (a *Authenticator) IssueToken(caller string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("auth secret not configured")
	}
	if _, err := sdk.AccAddressFromBech32(caller); err != nil {
		return "", fmt.Errorf("subject %q: %w", caller, err)
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   caller,
		Issuer:    a.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if a.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{a.cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Authenticate parses a bearer token and returns the caller it names
func (a *Authenticator) Authenticate(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("auth secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token invalid")
	}
	if _, err := sdk.AccAddressFromBech32(claims.Subject); err != nil {
		return "", fmt.Errorf("subject %q: %w", claims.Subject, err)
	}
	return claims.Subject, nil
}

// Middleware requires a valid bearer token on every write. Reads pass through
// anonymously.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		tokenString := extractBearer(r.Header.Get("Authorization"))
		if tokenString == "" {
			writeUnauthorized(w, "missing bearer token")
			return
		}
		caller, err := a.Authenticate(tokenString)
		if err != nil {
			a.logger.Debug("token rejected", "path", r.URL.Path, "err", err)
			writeUnauthorized(w, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="cdp-api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   "unauthorized",
		"message": message,
	})
}

func extractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
