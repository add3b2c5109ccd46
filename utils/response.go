package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// ErrorBody is the single error shape returned by every endpoint.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// UploadBody is the success shape of the upload endpoint.
type UploadBody struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// MessageBody is the success shape of endpoints that only acknowledge.
type MessageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Success writes a 200 response with the given body.
func Success(ctx *gin.Context, body interface{}) {
	ctx.JSON(200, body)
}

// Error writes an error response and aborts the chain.
func Error(ctx *gin.Context, status int, message string) {
	ctx.AbortWithStatusJSON(status, ErrorBody{Error: message})
}

// ErrorDetails writes an error response with auxiliary detail and aborts the chain.
func ErrorDetails(ctx *gin.Context, status int, message, details string) {
	ctx.AbortWithStatusJSON(status, ErrorBody{Error: message, Details: details})
}

// Upload endpoint messages.
const (
	MsgNoFile       = "No file uploaded or invalid file type"
	MsgTooManyFiles = "Only one file can be uploaded at a time"
	MsgInvalidType  = "Only image files are allowed (JPEG, PNG, WebP, SVG)"
	MsgUploadFailed = "Upload failed"
)

// TooLargeMessage renders the oversize message for a limit in bytes, e.g. "File too large. Max size is 2MB".
func TooLargeMessage(limit int64) string {
	if limit >= 1<<20 && limit%(1<<20) == 0 {
		return fmt.Sprintf("File too large. Max size is %dMB", limit>>20)
	}
	if limit >= 1<<10 && limit%(1<<10) == 0 {
		return fmt.Sprintf("File too large. Max size is %dKB", limit>>10)
	}
	return fmt.Sprintf("File too large. Max size is %d bytes", limit)
}
