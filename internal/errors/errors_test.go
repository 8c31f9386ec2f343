package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := ParseError("no marks found in input")
	wrapped := Wrap(base, "reading upload")

	assert.Equal(t, CodeParse, GetCode(wrapped))
	assert.Equal(t, "reading upload: no marks found in input", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestWrapForeignError(t *testing.T) {
	err := Wrapf(fmt.Errorf("disk full"), "saving %s", "report.xlsx")
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Equal(t, "saving report.xlsx: disk full", err.Error())
}

func TestInStep(t *testing.T) {
	err := InStep("probability plot", InsufficientDataError(3, 2, "probability plot regression"))
	assert.Equal(t, "probability plot: probability plot regression needs at least 3 marks, got 2", err.Error())
	assert.True(t, IsCode(err, CodeInsufficientData))

	var appErr *AppError
	assert.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, "probability plot", appErr.Step)

	plain := InStep("rescale", fmt.Errorf("boom"))
	assert.Equal(t, CodeInternalError, GetCode(plain))
	assert.Nil(t, InStep("parse", nil))
}

func TestIsCodeWalksChain(t *testing.T) {
	inner := DegenerateFitError("sigma went negative")
	outer := fmt.Errorf("fit: %w", WithCode(CodeValidationError, inner))

	assert.True(t, IsCode(outer, CodeValidationError))
	assert.False(t, IsCode(outer, CodeNotFound))
	assert.False(t, IsCode(nil, CodeParse))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}

func TestDataIntegrityWarning(t *testing.T) {
	err := DataIntegrityWarning(9, 10)
	assert.Equal(t, CodeDataIntegrity, err.Code)
	assert.Contains(t, err.Error(), "9")
	assert.Contains(t, err.Error(), "10")
	assert.True(t, IsAppError(err))
}
