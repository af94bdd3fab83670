package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/security"
	"github.com/yessinemaalej/armeniancoin-auth/internal/transport/http/middleware"
	"github.com/yessinemaalej/armeniancoin-auth/internal/transport/http/routeguard"
)

// GuardHandler answers route-guard decisions for the frontend edge layer,
// which cannot verify session assertions itself.
type GuardHandler struct {
	guard *routeguard.Guard
	codec *security.SessionCodec
}

// NewGuardHandler builds a GuardHandler.
func NewGuardHandler(guard *routeguard.Guard, codec *security.SessionCodec) *GuardHandler {
	return &GuardHandler{guard: guard, codec: codec}
}

// Decide classifies the path in the "path" query parameter against the
// session assertion presented with the request.
func (h *GuardHandler) Decide(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "path query parameter is required"))
		return
	}

	authenticated := false
	if assertion := middleware.ExtractAssertion(c); assertion != "" {
		if _, err := h.codec.Verify(assertion); err == nil {
			authenticated = true
		}
	}

	verdict := h.guard.Decide(path, authenticated)
	c.JSON(http.StatusOK, GuardDecisionResponse{
		Allow:      verdict.Allow,
		RedirectTo: verdict.RedirectTo,
	})
}
