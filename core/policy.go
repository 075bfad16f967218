package core

import (
	"context"
	"fmt"
	"strings"
)

// ContinuePolicy is the single place where failures are absorbed. Every unit
// of work the reconciler runs (one order, one pending entry, one alert, one
// cycle) goes through Run: the failure is logged, counted and written to the
// system log, and the caller moves on.
type ContinuePolicy struct {
	logger    Logger
	systemLog SystemLog
	metrics   MetricsRecorder
}

func NewContinuePolicy(logger Logger, systemLog SystemLog, metrics MetricsRecorder) *ContinuePolicy {
	if metrics == nil {
		metrics = NopMetricsRecorder{}
	}
	return &ContinuePolicy{
		logger:    logger,
		systemLog: systemLog,
		metrics:   metrics,
	}
}

// Run executes fn, converting a panic into an error. The returned error has
// already been reported.
func (p *ContinuePolicy) Run(
	ctx context.Context,
	scope string,
	fields map[string]any,
	fn func(ctx context.Context) error,
) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("core: %s panicked: %v", normalizeOperation(scope), recovered)
			p.Report(ctx, scope, err, fields)
		}
	}()
	err = fn(ctx)
	if err != nil {
		p.Report(ctx, scope, err, fields)
	}
	return err
}

// Report logs a failure that was handled elsewhere and persists it to the
// system log.
func (p *ContinuePolicy) Report(ctx context.Context, scope string, err error, fields map[string]any) {
	if p == nil || err == nil {
		return
	}
	scope = normalizeOperation(scope)
	logFields := cloneFields(fields)
	logFields["scope"] = scope
	logFields["error"] = err.Error()

	kind := LogKindError
	if dependency, ok := DependencyOf(err); ok {
		logFields["dependency"] = dependency.String()
		if dependency != DependencyGeneric {
			kind = dependency.LogKind()
		}
	}

	p.log(ctx, "error", scope+" failed", logFields)
	if p.metrics != nil {
		tags := map[string]string{"scope": scope}
		if dependency, ok := logFields["dependency"].(string); ok {
			tags["dependency"] = dependency
		}
		p.metrics.IncCounter(ctx, "order_notify.failures.total", 1, tags)
	}
	p.Record(ctx, kind, describeFailure(scope, err, fields))
}

// Record appends an entry to the system log. A failing system log is only
// logged.
func (p *ContinuePolicy) Record(ctx context.Context, kind string, message string) {
	if p == nil || p.systemLog == nil {
		return
	}
	if err := p.systemLog.AppendLog(ctx, kind, message); err != nil {
		p.log(ctx, "warn", "system log append failed", map[string]any{
			"kind":  kind,
			"error": err.Error(),
		})
	}
}

func (p *ContinuePolicy) log(ctx context.Context, level string, message string, fields map[string]any) {
	if p == nil || p.logger == nil {
		return
	}
	logger := p.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch level {
	case "warn":
		logger.Warn(message, args...)
	default:
		logger.Error(message, args...)
	}
}

func describeFailure(scope string, err error, fields map[string]any) string {
	var b strings.Builder
	b.WriteString(scope)
	if number, ok := fields["order_number"]; ok {
		b.WriteString(fmt.Sprintf(" #%v", number))
	}
	b.WriteString(": ")
	b.WriteString(err.Error())
	return b.String()
}
