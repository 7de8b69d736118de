package logctx

import (
	"context"
	"testing"

	"github.com/freshmart/orderflow/internal/observability"
)

// taggedLogger is a distinguishable no-op so the tests can tell which logger
// came back.
type taggedLogger struct{ tag string }

func (l taggedLogger) With(_ ...observability.Field) observability.Logger { return l }
func (taggedLogger) Debug(string, ...observability.Field)                 {}
func (taggedLogger) Info(string, ...observability.Field)                  {}
func (taggedLogger) Warn(string, ...observability.Field)                  {}
func (taggedLogger) Error(string, ...observability.Field)                 {}

func TestWithAndFrom(t *testing.T) {
	ctx := With(context.Background(), taggedLogger{tag: "request"})

	got, ok := From(ctx).(taggedLogger)
	if !ok || got.tag != "request" {
		t.Fatalf("context logger = %v", From(ctx))
	}
	if got := From(context.Background()); got != nil {
		t.Fatalf("bare context returned %v", got)
	}
}

func TestWithNilLoggerLeavesContext(t *testing.T) {
	ctx := With(context.Background(), nil)
	if got := From(ctx); got != nil {
		t.Fatalf("nil logger stored: %v", got)
	}
}

func TestFromOrNeverNil(t *testing.T) {
	fallback := taggedLogger{tag: "fallback"}

	if got, _ := FromOr(context.Background(), fallback).(taggedLogger); got.tag != "fallback" {
		t.Fatalf("fallback not used: %v", got)
	}
	if got := FromOr(context.Background(), nil); got == nil {
		t.Fatal("FromOr returned nil without fallback")
	}

	ctx := With(context.Background(), taggedLogger{tag: "request"})
	if got, _ := FromOr(ctx, fallback).(taggedLogger); got.tag != "request" {
		t.Fatalf("context logger not preferred: %v", got)
	}
}
