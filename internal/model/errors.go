// Package model 定义工资单处理流程的数据模型与错误类型
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 预定义错误代码
const (
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation     ErrorCode = "VALIDATION_ERROR"
	ErrCodeFetch          ErrorCode = "FETCH_ERROR"
	ErrCodeDocumentDecode ErrorCode = "DOCUMENT_DECODE_ERROR"
	ErrCodeRecognition    ErrorCode = "RECOGNITION_ERROR"
	ErrCodeRender         ErrorCode = "RENDER_ERROR"
	ErrCodeDelivery       ErrorCode = "DELIVERY_ERROR"
	ErrCodeTimeout        ErrorCode = "TIMEOUT_ERROR"
)

// BaseError 基础错误结构
type BaseError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error 实现error接口
func (e *BaseError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// GetCode 获取错误代码
func (e *BaseError) GetCode() ErrorCode {
	return e.Code
}

// ValidationError 请求参数验证错误，对应HTTP 400
type ValidationError struct {
	BaseError
	Fields []string `json:"fields,omitempty"`
}

// NewValidationError 创建验证错误
func NewValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{
		BaseError: BaseError{
			Code:      ErrCodeValidation,
			Message:   message,
			Timestamp: time.Now(),
		},
		Fields: fields,
	}
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s (字段: %s)", e.Code, e.Message, strings.Join(e.Fields, ", "))
}

// SystemError 组件内部错误，携带原始错误
type SystemError struct {
	BaseError
	Component string `json:"component"`
	Operation string `json:"operation"`
	Cause     error  `json:"-"`
}

func newSystemError(code ErrorCode, component, operation, message string, cause error) *SystemError {
	return &SystemError{
		BaseError: BaseError{
			Code:      code,
			Message:   message,
			Timestamp: time.Now(),
		},
		Component: component,
		Operation: operation,
		Cause:     cause,
	}
}

// Error 实现error接口
func (e *SystemError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s.%s: %s: %v", e.Code, e.Component, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Component, e.Operation, e.Message)
}

// Unwrap 返回原始错误
func (e *SystemError) Unwrap() error {
	return e.Cause
}

// NewInternalError 创建内部错误
func NewInternalError(component, message string, cause error) *SystemError {
	return newSystemError(ErrCodeInternal, component, "process", message, cause)
}

// NewFetchError 创建文档获取错误
func NewFetchError(source, message string, cause error) *SystemError {
	return newSystemError(ErrCodeFetch, "source", source, message, cause)
}

// NewDocumentDecodeError 创建文档解码错误（非法文档或零页）
func NewDocumentDecodeError(message string, cause error) *SystemError {
	return newSystemError(ErrCodeDocumentDecode, "document", "render", message, cause)
}

// NewRecognitionError 创建单页识别错误
func NewRecognitionError(page int, cause error) *SystemError {
	return newSystemError(ErrCodeRecognition, "ocr", fmt.Sprintf("page%d", page+1), "text recognition failed", cause)
}

// NewRenderError 创建报告生成错误
func NewRenderError(message string, cause error) *SystemError {
	return newSystemError(ErrCodeRender, "report", "render", message, cause)
}

// NewDeliveryError 创建邮件投递错误
func NewDeliveryError(message string, cause error) *SystemError {
	return newSystemError(ErrCodeDelivery, "notify", "send", message, cause)
}

// NewTimeoutError 创建超时错误
func NewTimeoutError(component, operation string, cause error) *SystemError {
	return newSystemError(ErrCodeTimeout, component, operation, "operation timed out", cause)
}

// StageError 记录流水线在哪个阶段失败
type StageError struct {
	Stage Stage
	Err   error
}

// Error 实现error接口
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap 返回原始错误
func (e *StageError) Unwrap() error {
	return e.Err
}

// ErrorList 错误列表
type ErrorList struct {
	Errors []error `json:"errors"`
}

// NewErrorList 创建错误列表
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]error, 0),
	}
}

// Add 添加错误
func (el *ErrorList) Add(err error) {
	if err != nil {
		el.Errors = append(el.Errors, err)
	}
}

// HasError 是否有错误
func (el *ErrorList) HasError() bool {
	return len(el.Errors) > 0
}

// Count 错误数量
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error 实现error接口
func (el *ErrorList) Error() string {
	if len(el.Errors) == 0 {
		return ""
	}
	if len(el.Errors) == 1 {
		return el.Errors[0].Error()
	}

	messages := make([]string, 0, len(el.Errors))
	for _, err := range el.Errors {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("%d errors: [%s]", len(el.Errors), strings.Join(messages, "; "))
}

// CodeOf 提取错误链上的错误代码，未知错误视为内部错误
func CodeOf(err error) ErrorCode {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	var se *SystemError
	if errors.As(err, &se) {
		return se.Code
	}
	var be *BaseError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeInternal
}

// IsErrorType 检查错误是否为指定类型
func IsErrorType(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}
