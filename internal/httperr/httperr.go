package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HTTPError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Conflict(c *gin.Context, code, message string) {
	Write(c, http.StatusConflict, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code, message string) {
	Write(c, http.StatusForbidden, code, message)
}

// FromError maps a core error onto the right HTTP status. Unknown errors
// become a 500 without leaking their text.
func FromError(c *gin.Context, err error) {
	var be BusinessError
	if errors.As(err, &be) {
		BadRequest(c, be.Code, be.Code)
		return
	}

	var se StateConflictError
	if errors.As(err, &se) {
		Conflict(c, se.Code, se.Code)
		return
	}

	var ne NotFoundError
	if errors.As(err, &ne) {
		NotFound(c, ne.Error(), ne.Error())
		return
	}

	Internal(c, "internal_error", "internal error")
}
