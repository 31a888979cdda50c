package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("Missing required fields", "email")

	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Equal(t, "Missing required fields", err.Message)
	assert.Equal(t, []string{"email"}, err.Fields)
	assert.Contains(t, err.Error(), "email")
}

func TestSystemError_Unwrap(t *testing.T) {
	cause := errors.New("535 authentication failed")
	err := NewDeliveryError("send email", cause)

	assert.Equal(t, ErrCodeDelivery, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.True(t, strings.Contains(err.Error(), "535 authentication failed"))
}

func TestCodeOf_ThroughWrapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"validation", NewValidationError("bad"), ErrCodeValidation},
		{"decode", NewDocumentDecodeError("zero pages", nil), ErrCodeDocumentDecode},
		{"wrapped render", fmt.Errorf("outer: %w", NewRenderError("too small", nil)), ErrCodeRender},
		{"stage", &StageError{Stage: StageNotified, Err: NewDeliveryError("x", nil)}, ErrCodeDelivery},
		{"timeout", NewTimeoutError("ocr", "recognize", context.DeadlineExceeded), ErrCodeTimeout},
		{"plain", errors.New("boom"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
			assert.True(t, IsErrorType(tt.err, tt.want))
		})
	}
	assert.False(t, IsErrorType(nil, ErrCodeInternal))
}

func TestErrorList(t *testing.T) {
	el := NewErrorList()
	assert.False(t, el.HasError())
	assert.Equal(t, "", el.Error())

	el.Add(nil)
	el.Add(NewRecognitionError(0, errors.New("tesseract crashed")))
	assert.Equal(t, 1, el.Count())
	assert.Contains(t, el.Error(), "page1")

	el.Add(NewRecognitionError(2, errors.New("empty image")))
	assert.Equal(t, 2, el.Count())
	assert.Contains(t, el.Error(), "2 errors")
}

func TestExtractedText_Combined(t *testing.T) {
	text := &ExtractedText{Pages: []PageText{
		{Index: 0, Text: "EMPLOYEE John Smith"},
		{Index: 1, Text: "", Failed: true},
		{Index: 2, Text: "NET PAY: $1,200.00"},
	}}

	assert.Equal(t, "EMPLOYEE John Smith\n\nNET PAY: $1,200.00", text.Combined())
	assert.Equal(t, []int{1}, text.FailedPages())

	var empty *ExtractedText
	assert.Equal(t, "", empty.Combined())
}

func TestReport_Cleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3"), 0o600))

	r := &Report{Path: path}
	require.NoError(t, r.Cleanup())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// 重复清理不报错
	assert.NoError(t, r.Cleanup())
	assert.NoError(t, (*Report)(nil).Cleanup())
}
