package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Data:    nil,
	})
}

// RespondAppError maps a typed application error to its HTTP status.
// Errors that are not AppError fall back to 500.
func RespondAppError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch KindOf(err) {
	case KindNotFound:
		code = http.StatusNotFound
	case KindConflict:
		code = http.StatusConflict
	case KindValidation:
		code = http.StatusBadRequest
	case KindGateway:
		code = http.StatusBadGateway
	case KindInvariant:
		code = http.StatusInternalServerError
	}
	RespondError(c, code, err)
}
