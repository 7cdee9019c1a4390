package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsCode(t *testing.T) {
	base := EmptySupport("no mass")
	wrapped := Wrapf(Wrap(base, "cut"), "point %d", 3)

	assert.Equal(t, CodeEmptySupport, GetCode(wrapped))
	assert.True(t, HasCode(wrapped, CodeEmptySupport))
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Equal(t, "point 3: cut: no mass", wrapped.Error())
}

func TestWrap_PlainErrorIsInternal(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), "context")
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.True(t, IsAppError(err))

	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Nil(t, Wrapf(nil, "nothing %d", 1))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, CodeDegenerateRange, DegenerateRange(1, 1).Code)
	assert.Contains(t, DegenerateRange(0.5, 0.5).Error(), "[0.5, 0.5]")

	cause := fmt.Errorf("permission denied")
	ioErr := IOError("/tmp/x", cause)
	assert.Equal(t, CodeIOError, ioErr.Code)
	assert.ErrorIs(t, ioErr, cause)
}
