package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCase pairs a sentinel error with the status and message returned to
// the client when a handler's usecase call fails with it.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError writes the first matching case, or the fallback when
// the error is not one the endpoint maps. Unmapped errors keep their detail
// out of the response body.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, candidate := range cases {
		if candidate.Err != nil && errors.Is(err, candidate.Err) {
			c.JSON(candidate.Status, NewErrorResponse(c, candidate.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
