package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loomnote/synthesis-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError maps an error onto the shared envelope, honoring the status
// and code carried by apierr values.
func RespondError(c *gin.Context, err error) {
	ae := apierr.From(err)
	c.JSON(ae.Status, ErrorEnvelope{
		Error: APIError{
			Message: ae.Error(),
			Code:    ae.Code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}
