package logger

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Tags promoted from fields onto Sentry events
var sentryTagFields = []string{"request_id", "run_id", "stage", "song"}

// WithContext extracts request context for logging
func WithContext(c *gin.Context) Fields {
	return Fields{
		"request_id": c.GetString("request_id"),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
	}
}

// Info logs an informational message with structured fields
func Info(msg string, fields Fields) {
	log.Printf("[INFO] %s %s", msg, formatFields(fields))
	addBreadcrumb("info", sentry.LevelInfo, msg, fields)
}

// Warn logs a warning message with structured fields
func Warn(msg string, fields Fields) {
	log.Printf("[WARN] %s %s", msg, formatFields(fields))
	addBreadcrumb("warning", sentry.LevelWarning, msg, fields)
}

// Debug logs a debug message with structured fields
func Debug(msg string, fields Fields) {
	log.Printf("[DEBUG] %s %s", msg, formatFields(fields))
	addBreadcrumb("debug", sentry.LevelDebug, msg, fields)
}

// Error logs an error message with structured fields and sends it to Sentry
func Error(msg string, err error, fields Fields) {
	log.Printf("[ERROR] %s: %v %s", msg, err, formatFields(fields))

	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for key, value := range fields {
			scope.SetContext(key, map[string]interface{}{
				"value": value,
			})
		}
		setTags(scope, fields)

		if err != nil {
			hub.CaptureException(err)
		} else {
			hub.CaptureMessage(msg)
		}
	})
}

// LogStage logs the completion of a pipeline stage
func LogStage(stage string, duration time.Duration, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	fields["stage"] = stage
	fields["duration_ms"] = duration.Milliseconds()

	Info("Stage completed", fields)
}

func addBreadcrumb(kind string, level sentry.Level, msg string, fields Fields) {
	if hub := sentry.CurrentHub(); hub.Client() != nil {
		sentry.AddBreadcrumb(&sentry.Breadcrumb{
			Type:     kind,
			Category: "log",
			Message:  msg,
			Data:     convertFieldsToMap(fields),
			Level:    level,
		})
	}
}

func setTags(scope *sentry.Scope, fields Fields) {
	for _, key := range sentryTagFields {
		if value, ok := fields[key]; ok {
			scope.SetTag(key, formatValue(value))
		}
	}
}

// formatFields renders fields as {k=v, ...} with keys sorted
func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(fields[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func convertFieldsToMap(fields Fields) map[string]interface{} {
	result := make(map[string]interface{})
	for k, v := range fields {
		result[k] = v
	}
	return result
}
