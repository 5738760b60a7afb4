package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsInnerCode(t *testing.T) {
	inner := ExternalServiceError("analytics", stderrors.New("connection refused"))
	wrapped := Wrap(inner, "upload failed")

	assert.Equal(t, CodeExternalService, GetCode(wrapped))
	assert.Contains(t, wrapped.Error(), "upload failed")
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	err := Wrap(stderrors.New("boom"), "context")
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestGetCodeThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", Busy("wizard is running clean"))
	assert.True(t, IsAppError(err))
	assert.True(t, HasCode(err, CodeBusy))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, stderrors.New("bad extension"))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.Contains(t, err.Error(), "bad extension")
}
