package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/marketplace-service/internal/auth"
	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/utils"
)

// AuthMiddleware authenticates bearer tokens through the configured
// provider and attaches the caller's principal to the request context.
type AuthMiddleware struct {
	resolver auth.TokenResolver
	logger   utils.Logger
}

func NewAuthMiddleware(resolver auth.TokenResolver, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver, logger: logger}
}

// RequireAuth rejects requests without a valid token.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := am.authenticate(c)
		if err != nil {
			utils.GetLogger(c, am.logger).Debug("Authentication failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "unauthorized",
				Details: authFailure(err),
			})
			return
		}
		am.attach(c, p)
		c.Next()
	}
}

// OptionalAuth attaches the principal when a valid token is present and
// otherwise continues anonymously.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			if p, err := am.authenticate(c); err == nil {
				am.attach(c, p)
			}
		}
		c.Next()
	}
}

// RequireCapability must run after RequireAuth.
func (am *AuthMiddleware) RequireCapability(required authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := authz.FromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthorized"})
			return
		}
		if !p.Can(required) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "forbidden",
				Details: fmt.Sprintf("missing capability %s", required),
			})
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) authenticate(c *gin.Context) (*authz.Principal, error) {
	token, err := auth.BearerToken(c.GetHeader("Authorization"))
	if err != nil {
		return nil, err
	}
	user, err := am.resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		return nil, err
	}
	return authz.Resolve(user), nil
}

func (am *AuthMiddleware) attach(c *gin.Context, p *authz.Principal) {
	c.Set("user_id", p.UserID)
	c.Set("user_role", p.Role)
	c.Request = c.Request.WithContext(authz.WithPrincipal(c.Request.Context(), p))
}

func authFailure(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "authorization header missing"
	case errors.Is(err, auth.ErrUnknownUser):
		return "user no longer exists"
	default:
		return "invalid token"
	}
}
