package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	consoleTimestampLayout = "2006-01-02 15:04:05.000"
	// maxValueRunes caps a rendered attribute value. Post bodies and model
	// replies end up in error messages and would otherwise flood the console.
	maxValueRunes = 320
	redactedValue = "[redacted]"
)

var secretSegments = map[string]struct{}{
	"password":      {},
	"token":         {},
	"authorization": {},
	"dsn":           {},
	"secret":        {},
	"apikey":        {},
}

// isSecretKey reports whether an attribute key names a credential. Keys are
// split on '_' and '.' so counters such as max_tokens stay visible.
func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	if strings.Contains(lower, "api_key") {
		return true
	}
	for _, segment := range strings.FieldsFunc(lower, func(r rune) bool { return r == '_' || r == '.' || r == '-' }) {
		if _, ok := secretSegments[segment]; ok {
			return true
		}
	}
	return false
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(consoleTimestampLayout)
}

// plainValue renders v without quoting, for header fields.
func plainValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return consoleValue(v)
	}
}

// consoleValue renders v for key=value output, quoting values that contain
// spaces or separators and clipping long ones.
func consoleValue(v slog.Value) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	s = clip(s)
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= maxValueRunes {
		return s
	}
	return string(runes[:maxValueRunes]) + "...(" + strconv.Itoa(len(runes)-maxValueRunes) + " more)"
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
