package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestResolveDeterministicFallback(t *testing.T) {
	loggerOnly := &capturingLogger{id: "logger"}
	providerLogger := &capturingLogger{id: "provider"}
	provider := &capturingProvider{logger: providerLogger}

	var resolvedProvider glog.LoggerProvider
	_, resolved := Resolve("order_notify", provider, loggerOnly)
	got := resolved.(*capturingLogger)
	if got.id != "provider" {
		t.Fatalf("expected provider logger precedence, got %q", got.id)
	}

	resolvedProvider, resolved = Resolve("order_notify", nil, loggerOnly)
	got = resolved.(*capturingLogger)
	if got.id != "logger" {
		t.Fatalf("expected direct logger when provider is nil, got %q", got.id)
	}
	if resolvedProvider == nil {
		t.Fatalf("expected provider wrapper from logger")
	}

	_, resolved = Resolve("order_notify", nil, nil)
	if resolved == nil {
		t.Fatalf("expected nop logger fallback")
	}
}

func TestZapLogger_WritesFieldsAndNames(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	provider := NewZapProvider(zap.New(core))

	logger := provider.GetLogger("order_notify.reconciler")
	logger.Info("cycle finished", "delivered", 2)

	fields, ok := logger.(glog.FieldsLogger)
	if !ok {
		t.Fatalf("expected zap logger to support fields")
	}
	fields.WithFields(map[string]any{"order_number": "1001"}).Warn("order deferred")
	logger.Fatal("ledger lost")

	entries := observed.AllUntimed()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].LoggerName != "order_notify.reconciler" || entries[0].Message != "cycle finished" {
		t.Fatalf("unexpected first entry %#v", entries[0])
	}
	if entries[0].ContextMap()["delivered"] != int64(2) {
		t.Fatalf("expected delivered field, got %#v", entries[0].ContextMap())
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["order_number"] != "1001" {
		t.Fatalf("unexpected fields entry %#v", entries[1])
	}
	if entries[2].Level != zapcore.ErrorLevel || entries[2].ContextMap()["fatal"] != true {
		t.Fatalf("expected fatal to log at error level, got %#v", entries[2])
	}
}

func TestZapLogger_NilFallsBackToNop(t *testing.T) {
	logger := NewZapLogger(nil)
	logger.Info("ignored")
	if logger.WithContext(context.Background()) == nil {
		t.Fatalf("expected logger from context")
	}
	if NewZapProvider(nil).GetLogger("") == nil {
		t.Fatalf("expected nop provider logger")
	}
}

func TestNewProduction_DefaultsUnknownLevel(t *testing.T) {
	logger, err := NewProduction("loud", false)
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected info level default")
	}
	logger, err = NewProduction("debug", true)
	if err != nil {
		t.Fatalf("build development logger: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level")
	}
}

var (
	_ glog.Logger         = (*capturingLogger)(nil)
	_ glog.LoggerProvider = (*capturingProvider)(nil)
)

type capturingProvider struct {
	logger *capturingLogger
}

func (p *capturingProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type infoCall struct {
	msg  string
	args []any
}

type capturingLogger struct {
	id       string
	lastInfo infoCall
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) Info(msg string, args ...any) {
	l.lastInfo = infoCall{
		msg:  msg,
		args: append([]any(nil), args...),
	}
}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}
