package xerrors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	// nil 错误应返回 nil
	if err := Wrap(nil, "context"); err != nil {
		t.Errorf("Wrap(nil) = %v，期望 nil", err)
	}

	// 包装后的错误应包含消息
	base := errors.New("base error")
	wrapped := Wrap(base, "context")
	if wrapped == nil {
		t.Fatal("Wrap(err) = nil，期望非 nil")
	}
	if wrapped.Error() != "context: base error" {
		t.Errorf("Wrap(err).Error() = %q，期望 %q", wrapped.Error(), "context: base error")
	}

	// 应保留错误链
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is(wrapped, base) = false，期望 true")
	}
}

func TestWrapf(t *testing.T) {
	if err := Wrapf(nil, "user %d", 123); err != nil {
		t.Errorf("Wrapf(nil) = %v，期望 nil", err)
	}

	base := errors.New("not found")
	wrapped := Wrapf(base, "user %d", 123)
	if wrapped.Error() != "user 123: not found" {
		t.Errorf("Wrapf(err).Error() = %q", wrapped.Error())
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is(wrapped, base) = false，期望 true")
	}
}

func TestWithCode(t *testing.T) {
	if err := WithCode(nil, "NOT_FOUND"); err != nil {
		t.Errorf("WithCode(nil) = %v，期望 nil", err)
	}

	base := errors.New("shop missing")
	coded := WithCode(base, "NOT_FOUND")
	if GetCode(coded) != "NOT_FOUND" {
		t.Errorf("GetCode = %q，期望 NOT_FOUND", GetCode(coded))
	}
	if !errors.Is(coded, base) {
		t.Error("errors.Is(coded, base) = false，期望 true")
	}

	// 经过多层包装后仍能提取错误码
	deep := Wrap(coded, "outer")
	if GetCode(deep) != "NOT_FOUND" {
		t.Errorf("GetCode(deep) = %q，期望 NOT_FOUND", GetCode(deep))
	}

	// 无错误码时返回空串
	if GetCode(base) != "" {
		t.Errorf("GetCode(base) = %q，期望空串", GetCode(base))
	}
}

func TestCollector(t *testing.T) {
	var c Collector
	c.Collect(nil)
	if c.Err() != nil {
		t.Error("空 Collector 应返回 nil")
	}

	first := errors.New("first")
	c.Collect(first)
	c.Collect(errors.New("second"))
	if c.Err() != first {
		t.Errorf("Collector 应保留第一个错误，得到 %v", c.Err())
	}
}
