package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAsValidation_Wrapped(t *testing.T) {
	base := NewValidation("student already has an active primary mentor this cycle")
	wrapped := fmt.Errorf("create assignment: %w", base)

	ve, ok := AsValidation(wrapped)
	if !ok {
		t.Fatal("期望能从包装错误中解出 ValidationError")
	}
	if ve.Message != base.Message {
		t.Errorf("消息应原样保留，实际=%q", ve.Message)
	}
}

func TestAsValidation_Other(t *testing.T) {
	if _, ok := AsValidation(errors.New("boom")); ok {
		t.Error("普通错误不应被识别为 ValidationError")
	}
}
