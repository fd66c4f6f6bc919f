package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
	"github.com/umeboshi2/kotti-jsonapi/domain/security"
	"github.com/umeboshi2/kotti-jsonapi/pkg/auth"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

// TokenCookie is the cookie checked when no Authorization header is sent.
const TokenCookie = "auth_token"

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

type holderKey struct{}

func withHolder(ctx context.Context, h *principalHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// Authenticate resolves an optional bearer token to a principal. Requests
// without a token continue anonymously; a token that fails validation or
// names an unknown principal is rejected with 401.
func Authenticate(validator TokenValidator, principals ports.PrincipalStore, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" || validator == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError(tokenMessage(err)).WithCause(err))
				return
			}

			p, err := principals.Get(r.Context(), claims.Principal())
			if err != nil {
				if pkgerrors.IsNotFound(err) {
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Unknown principal"))
					return
				}
				logger.Error("Failed to load principal", zap.String("principal", claims.Principal()), zap.Error(err))
				errs.Handle(w, r, pkgerrors.NewInfrastructureError("load principal", err))
				return
			}

			if h, ok := r.Context().Value(holderKey{}).(*principalHolder); ok {
				h.p = p
			}
			next.ServeHTTP(w, r.WithContext(security.WithPrincipal(r.Context(), p)))
		})
	}
}

func tokenMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "Invalid token signature"
	default:
		return "Invalid token"
	}
}

// extractToken reads the Authorization header, then the token cookie.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RateLimit rejects clients that exceed limiter with 429.
func RateLimit(limiter auth.RateLimiter, errs *pkgerrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), "ip:"+clientIP(r)) {
				errs.Handle(w, r, pkgerrors.NewRateLimitError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP relies on chi's RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
