package dto

import (
	"time"

	"github.com/credicefi/crediface/pkg/errors"
)

// APIResponse 通用 API 响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO 错误信息 DTO
type ErrorDTO struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Description string                 `json:"description,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse 创建成功响应
func SuccessResponse(data interface{}, traceID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse 创建错误响应, returning the HTTP status that matches err.
func ErrorResponse(err error, traceID string) (int, *APIResponse) {
	status, body := errors.ToErrorBody(err)
	return status, &APIResponse{
		Success: false,
		Error: &ErrorDTO{
			Code:        body.Code,
			Message:     body.Message,
			Description: body.Description,
			Details:     body.Details,
		},
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}
