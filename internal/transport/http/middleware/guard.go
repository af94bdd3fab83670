package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/security"
	"github.com/yessinemaalej/armeniancoin-auth/internal/transport/http/routeguard"
)

// Guard applies the route guard verdict to every request. Authentication
// state comes from verifying the presented assertion; the guard itself stays
// a pure path classifier.
func Guard(guard *routeguard.Guard, codec *security.SessionCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticated := false
		if assertion := ExtractAssertion(c); assertion != "" {
			if _, err := codec.Verify(assertion); err == nil {
				authenticated = true
			}
		}

		verdict := guard.Decide(c.Request.URL.Path, authenticated)
		if verdict.Allow {
			c.Next()
			return
		}

		c.Redirect(http.StatusFound, verdict.RedirectTo)
		c.Abort()
	}
}
