package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const metricNamespace = "florin"

// observeOperation emits one log line, one counter, and one duration
// histogram for a completed client operation.
func observeOperation(
	ctx context.Context,
	logger Logger,
	metrics MetricsRecorder,
	operation string,
	startedAt time.Time,
	err error,
	fields map[string]any,
) {
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}

	contextFields := cloneFields(fields)
	contextFields["event_type"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	for _, key := range []string{"method", "group", "resource", "channel"} {
		if value := strings.TrimSpace(fmt.Sprint(contextFields[key])); value != "" && value != "<nil>" {
			tags[key] = value
		}
	}

	recordCounter(ctx, metrics, metricNamespace+"."+operation+".total", 1, tags)
	recordHistogram(ctx, metrics, metricNamespace+"."+operation+".duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)

	if err != nil {
		logWithLevel(ctx, logger, "error", operation+" failed", contextFields)
		return
	}
	logWithLevel(ctx, logger, "info", operation+" succeeded", contextFields)
}

func recordCounter(ctx context.Context, metrics MetricsRecorder, name string, value int64, tags map[string]string) {
	if metrics == nil {
		return
	}
	metrics.IncCounter(ctx, name, value, cloneTags(tags))
}

func recordHistogram(ctx context.Context, metrics MetricsRecorder, name string, value float64, tags map[string]string) {
	if metrics == nil {
		return
	}
	metrics.ObserveHistogram(ctx, name, value, cloneTags(tags))
}

func logWithLevel(ctx context.Context, logger Logger, level string, message string, fields map[string]any) {
	if logger == nil {
		return
	}
	scoped := logger
	if ctx != nil {
		scoped = scoped.WithContext(ctx)
	}
	if fieldsLogger, ok := scoped.(FieldsLogger); ok {
		scoped = fieldsLogger.WithFields(fields)
		switch level {
		case "error":
			scoped.Error(message)
		default:
			scoped.Info(message)
		}
		return
	}
	args := flattenFields(fields)
	switch level {
	case "error":
		scoped.Error(message, args...)
	default:
		scoped.Info(message, args...)
	}
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(fields)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+4)
	for key, value := range fields {
		out[key] = value
	}
	return out
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	return operation
}
