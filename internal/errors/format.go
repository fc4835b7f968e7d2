package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// FormatForCLI renders an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var ae *AppError
	if !stderrors.As(err, &ae) {
		ae = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ae.Message))
	if ae.Cause != nil && ae.Cause.Error() != ae.Message {
		sb.WriteString(fmt.Sprintf("  Cause: %v\n", ae.Cause))
	}
	if ae.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ae.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ae.Code))
	return sb.String()
}

// LogAttrs flattens an error into slog-friendly key/value pairs.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}
	var ae *AppError
	if !stderrors.As(err, &ae) {
		return []any{"error", err.Error()}
	}
	attrs := []any{
		"error_code", ae.Code,
		"error", ae.Error(),
		"severity", string(ae.Severity),
	}
	for k, v := range ae.Details {
		attrs = append(attrs, "detail_"+k, v)
	}
	return attrs
}
