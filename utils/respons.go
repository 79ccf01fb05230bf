package utils

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// RespondJSON writes payload with an added "message" field.
func RespondJSON(c *gin.Context, code int, message string, payload gin.H) {
	body := gin.H{"message": message}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(code, body)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, ErrorResponse{
		Error: err.Error(),
		Code:  code,
	})
}

func RespondErrorDetails(c *gin.Context, status int, code string, err error, details interface{}) {
	c.JSON(status, ErrorResponse{
		Error:   err.Error(),
		Code:    code,
		Details: details,
	})
}
