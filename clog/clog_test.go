package clog

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *Config
		expectError bool
	}{
		{name: "nil config uses defaults", cfg: nil},
		{name: "json format", cfg: &Config{Level: "info", Format: "json", Output: "stdout"}},
		{name: "console format", cfg: &Config{Level: "debug", Format: "console", Output: "stderr"}},
		{name: "invalid level", cfg: &Config{Level: "verbose"}, expectError: true},
		{name: "invalid format", cfg: &Config{Level: "info", Format: "xml"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.expectError {
				if err == nil {
					t.Error("期望返回错误")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if logger == nil {
				t.Fatal("logger 为 nil")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"info":    InfoLevel,
		"":        InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"ERROR":   ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v，期望 %v", in, got, want)
		}
	}

	if _, err := ParseLevel("trace"); err == nil {
		t.Error("ParseLevel(trace) 应返回错误")
	}
}

func TestWithNamespace(t *testing.T) {
	logger, err := New(&Config{Level: "info", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatal(err)
	}

	child := logger.WithNamespace("cache").WithNamespace("rebuild")
	impl, ok := child.(*loggerImpl)
	if !ok {
		t.Fatal("期望 *loggerImpl")
	}
	if impl.namespace != "cache.rebuild" {
		t.Errorf("namespace = %q，期望 cache.rebuild", impl.namespace)
	}

	// 父 Logger 不受影响
	parent := logger.(*loggerImpl)
	if parent.namespace != "" {
		t.Errorf("父 namespace = %q，期望空", parent.namespace)
	}
}

func TestWith(t *testing.T) {
	logger, _ := New(&Config{Level: "info", Format: "json", Output: "stdout"})
	child := logger.With(String("component", "dlock"))
	impl := child.(*loggerImpl)
	if len(impl.baseAttrs) != 1 {
		t.Fatalf("baseAttrs 长度 = %d，期望 1", len(impl.baseAttrs))
	}
	if !strings.Contains(impl.baseAttrs[0].String(), "dlock") {
		t.Errorf("baseAttrs[0] = %v", impl.baseAttrs[0])
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	// 任何调用都不应 panic
	logger.Info("ignored")
	logger.Error("ignored", Error(nil))
	logger.With(String("k", "v")).WithNamespace("ns").Debug("ignored")
}
