package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/security"
)

// SessionCookieName is the cookie carrying the session assertion for
// browser clients. API clients use the Authorization header instead.
const SessionCookieName = "session"

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// ExtractAssertion pulls the session assertion from the Authorization header
// or the session cookie, header first. A header that is not a Bearer scheme
// is ignored so browser clients with a stray Authorization header still
// authenticate through their cookie.
func ExtractAssertion(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return strings.TrimSpace(cookie)
	}

	return ""
}

// RequireAuth verifies the session assertion and stores its claims.
func RequireAuth(codec *security.SessionCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		assertion := ExtractAssertion(c)
		if assertion == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing session assertion"))
			return
		}

		claims, err := codec.Verify(assertion)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrSessionExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "session expired, please sign in again"))
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid session assertion"))
			}
			return
		}

		c.Set(IdentityIDKey, claims.IdentityID)
		c.Set("claims", claims)
		c.Set("role", claims.Role)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.IdentityID = claims.IdentityID
		}

		c.Next()
	}
}

// RequireRole checks that the authenticated identity holds one of the roles.
// This gate runs downstream of the route guard, which only answers "is there
// a valid session".
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get("role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}

		role, ok := roleVal.(domain.Role)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "invalid role format"))
			return
		}

		for _, required := range roles {
			if role == required {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden,
			newErrorResponse(c, "insufficient permissions"))
	}
}

// GetAuthenticatedIdentityID retrieves the identity ID from context (helper for handlers)
func GetAuthenticatedIdentityID(c *gin.Context) (string, bool) {
	identityID, exists := c.Get(IdentityIDKey)
	if !exists {
		return "", false
	}

	if id, ok := identityID.(string); ok {
		return id, true
	}

	return "", false
}

// GetSessionClaims retrieves the verified session claims from context.
func GetSessionClaims(c *gin.Context) (*security.SessionClaims, bool) {
	value, exists := c.Get("claims")
	if !exists {
		return nil, false
	}

	claims, ok := value.(*security.SessionClaims)
	return claims, ok
}
