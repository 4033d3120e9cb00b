package utils

import (
	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every endpoint answers with. RequestID echoes
// the correlation id assigned by the middleware so a client can quote it when
// reporting a bad recommendation.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// SuccessResponse writes a successful envelope with the given payload.
func SuccessResponse(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		RequestID: c.GetString("request_id"),
	})
}

// ErrorResponse writes a failure envelope. A nil err leaves the error field
// empty so validation messages stay the only detail the client sees.
func ErrorResponse(c *gin.Context, code int, message string, err error) {
	resp := APIResponse{
		Success:   false,
		Message:   message,
		RequestID: c.GetString("request_id"),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(code, resp)
}
