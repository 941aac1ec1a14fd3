package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid manifest").
			WithSeverity(SeverityFatal).
			WithContext("file", "config.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid manifest" {
			t.Errorf("expected message 'invalid manifest', got %s", err.Message())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "config.yaml" {
			t.Errorf("expected context file=config.yaml, got %v", file)
		}
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		inner := WatchError("watcher closed").Build()
		wrapped := fmt.Errorf("watch mode: %w", inner)

		if !IsClassified(wrapped) {
			t.Error("expected wrapped error to be classified")
		}
		if !HasCategory(wrapped, CategoryWatch) {
			t.Error("expected watch category")
		}
		if GetSeverity(wrapped) != SeverityFatal {
			t.Errorf("expected fatal severity, got %s", GetSeverity(wrapped))
		}
	})

	t.Run("Unclassified defaults", func(t *testing.T) {
		plain := errors.New("plain")
		if GetCategory(plain) != CategoryInternal {
			t.Errorf("expected internal category, got %s", GetCategory(plain))
		}
		if GetSeverity(plain) != SeverityError {
			t.Errorf("expected error severity, got %s", GetSeverity(plain))
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Wrap keeps cause", func(t *testing.T) {
		original := errors.New("permission denied")
		err := WrapError(original, CategoryFileSystem, "copy failed").
			Warning().
			WithContext("path", "a/b.css").
			Build()

		if !errors.Is(err, original) {
			t.Error("expected error to wrap original error")
		}
		if err.Severity() != SeverityWarning {
			t.Errorf("expected warning severity, got %s", err.Severity())
		}
		if err.IsFatal() {
			t.Error("warning must not be fatal")
		}
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
		}{
			{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal},
			{"ValidationError", ValidationError("x"), CategoryValidation, SeverityFatal},
			{"AlreadyExistsError", AlreadyExistsError("x"), CategoryAlreadyExists, SeverityError},
			{"NotFoundError", NotFoundError("x"), CategoryNotFound, SeverityError},
			{"BuildError", BuildError("x"), CategoryBuild, SeverityFatal},
			{"FileSystemError", FileSystemError("x"), CategoryFileSystem, SeverityError},
			{"WatchError", WatchError("x"), CategoryWatch, SeverityFatal},
			{"RuntimeError", RuntimeError("x"), CategoryRuntime, SeverityFatal},
			{"InternalError", InternalError("x"), CategoryInternal, SeverityFatal},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				if err.Category() != tt.category {
					t.Errorf("expected category %s, got %s", tt.category, err.Category())
				}
				if err.Severity() != tt.severity {
					t.Errorf("expected severity %s, got %s", tt.severity, err.Severity())
				}
			})
		}
	})

	t.Run("Is compares category and message", func(t *testing.T) {
		a := BuildError("promote failed").WithContext("x", 1).Build()
		b := BuildError("promote failed").Build()
		if !errors.Is(a, b) {
			t.Error("expected errors with equal category and message to match")
		}
		if errors.Is(a, WatchError("promote failed").Build()) {
			t.Error("different category must not match")
		}
	})
}

func TestErrorContext(t *testing.T) {
	ctx1 := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	ctx2 := ErrorContext{}.Set("key2", "value2").Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)

	if v, _ := merged.GetString("key1"); v != "value1" {
		t.Errorf("expected key1=value1, got %s", v)
	}
	if v, _ := merged.GetString("key2"); v != "value2" {
		t.Errorf("expected key2=value2, got %s", v)
	}
	if v, _ := merged.GetString("shared"); v != "overridden" {
		t.Errorf("expected shared=overridden, got %s", v)
	}
	if _, ok := merged.Get("missing"); ok {
		t.Error("expected missing key to not exist")
	}

	var nilCtx ErrorContext
	if _, ok := nilCtx.Get("k"); ok {
		t.Error("nil context must report no values")
	}
}

func TestErrorCategory_ExitCode(t *testing.T) {
	codes := map[ErrorCategory]int{
		CategoryValidation:    2,
		CategoryNotFound:      4,
		CategoryConfig:        7,
		CategoryAlreadyExists: 9,
		CategoryInternal:      10,
		CategoryBuild:         11,
		CategoryFileSystem:    11,
		CategoryWatch:         12,
		CategoryRuntime:       12,
		ErrorCategory("x"):    1,
	}
	for category, want := range codes {
		if got := category.ExitCode(); got != want {
			t.Errorf("%s: expected exit code %d, got %d", category, want, got)
		}
	}
}

func TestErrorSeverity_Level(t *testing.T) {
	if SeverityWarning.Level() != slog.LevelWarn {
		t.Error("warning should log at warn")
	}
	if SeverityInfo.Level() != slog.LevelInfo {
		t.Error("info should log at info")
	}
	if SeverityFatal.Level() != slog.LevelError {
		t.Error("fatal should log at error")
	}
}

func TestErrorContext_Attrs(t *testing.T) {
	attrs := ErrorContext{"path": "a.md", "kind": "entry_io"}.Attrs()
	if len(attrs) != 2 || attrs[0].Key != "kind" || attrs[1].Key != "path" {
		t.Errorf("expected attrs sorted by key, got %v", attrs)
	}
}

func TestErrorBuilder_BuildIsolation(t *testing.T) {
	b := FileSystemError("copy failed").WithContext("path", "a.css")
	first := b.Build()
	second := b.WithContext("path", "b.css").Build()

	if v, _ := first.Context().GetString("path"); v != "a.css" {
		t.Errorf("earlier error changed after builder reuse: %s", v)
	}
	if v, _ := second.Context().GetString("path"); v != "b.css" {
		t.Errorf("expected b.css, got %s", v)
	}

	extended := first.WithContext("kind", "entry_io")
	if _, ok := first.Context().Get("kind"); ok {
		t.Error("WithContext must not modify the receiver")
	}
	if v, _ := extended.Context().GetString("kind"); v != "entry_io" {
		t.Errorf("expected kind on copy, got %s", v)
	}
}
