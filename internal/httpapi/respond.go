package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollbook/internal/apperr"
	"rollbook/internal/httpmiddleware"
)

type errorBody struct {
	Error     string       `json:"error"`
	RequestID string       `json:"requestId,omitempty"`
	Fields    []FieldError `json:"fields,omitempty"`
}

// fail maps err to a status. Internal errors are logged and replaced with
// fallback so store details never reach the client.
func (h *handler) fail(c *gin.Context, err error, fallback string) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(c.Request.Context(), "request failed",
			"route", c.FullPath(),
			"request_id", c.GetString(httpmiddleware.RequestIDKey),
			"err", err,
		)
	}
	c.AbortWithStatusJSON(status, errorBody{
		Error:     apperr.Message(err, fallback),
		RequestID: c.GetString(httpmiddleware.RequestIDKey),
	})
}

func (h *handler) badRequest(c *gin.Context, msg string, fields []FieldError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{
		Error:     msg,
		RequestID: c.GetString(httpmiddleware.RequestIDKey),
		Fields:    fields,
	})
}

func (h *handler) forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, errorBody{
		Error:     "You can only access your own records",
		RequestID: c.GetString(httpmiddleware.RequestIDKey),
	})
}
