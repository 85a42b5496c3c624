// Package errors defines the unified application error structure.
package errors

import (
	"errors"
	"time"

	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

// AppError carries a code, message, optional details and the original
// cause. All repository and service operations surface failures through
// this one shape (or a bare *code.Code), never through ad-hoc result
// objects.
type AppError struct {
	// Code 错误码
	Code int `json:"code"`
	// Message 错误消息
	Message string `json:"message"`
	// Details 错误详情（可选）
	Details []string `json:"details,omitempty"`
	// TraceID 请求追踪ID
	TraceID string `json:"traceId,omitempty"`
	// Cause 原始错误（不序列化到JSON）
	Cause error `json:"-"`
	// Timestamp 错误发生时间
	Timestamp time.Time `json:"timestamp"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap supports errors.Is / errors.As chains.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates an AppError from a Code object.
func NewAppError(c *code.Code, cause error) *AppError {
	return &AppError{
		Code:      c.Code(),
		Message:   c.Msg(),
		Details:   c.Details(),
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// WithTraceID sets the TraceID and returns the error (chainable).
func (e *AppError) WithTraceID(traceID string) *AppError {
	e.TraceID = traceID
	return e
}

// WithDetails sets the details and returns the error (chainable).
func (e *AppError) WithDetails(details ...string) *AppError {
	e.Details = details
	return e
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts an AppError from the error chain.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
