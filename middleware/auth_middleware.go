package middleware

import (
	"net/http"

	"github.com/pipelineatlas/atlas-api/auth"
	"github.com/pipelineatlas/atlas-api/models"
	"github.com/pipelineatlas/atlas-api/utils"
	"go.uber.org/zap"
)

// AuthMiddleware authenticates requests and enforces role requirements
type AuthMiddleware struct {
	resolver *auth.Resolver
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(resolver *auth.Resolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
	}
}

// RequireAuth resolves the Authorization header to a user and stores it in
// the request context. Rejections carry the stable reason code so clients
// can distinguish an expired token from a bad signature.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		user, err := m.resolver.Resolve(ctx, r.Header.Get("Authorization"))
		if err != nil {
			m.logger.Warn("authentication failed",
				zap.String("request_id", requestID),
				zap.String("reason", string(auth.ReasonOf(err))))
			_ = utils.WriteUnauthorized(w, string(auth.ReasonOf(err)), "Missing or invalid credentials")
			return
		}

		ctx = WithUser(ctx, user)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", user.ID),
			zap.String("role", string(user.Role)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole enforces a minimum role. Must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			user := GetUserFromContext(ctx)
			if user == nil {
				m.logger.Error("user not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "", "Authentication required")
				return
			}

			if err := auth.Authorize(user, required); err != nil {
				m.logger.Warn("authorization denied",
					zap.String("request_id", requestID),
					zap.String("user_id", user.ID),
					zap.String("role", string(user.Role)),
					zap.String("required", string(required)))
				_ = utils.WriteForbidden(w, string(auth.ReasonOf(err)), "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
