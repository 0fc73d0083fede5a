package logging

import (
	"context"

	"github.com/samber/oops"
)

// ErrorAttrs flattens err into key/value pairs. For oops errors the code and
// attached context are included.
func ErrorAttrs(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if details := oopsErr.Context(); len(details) > 0 {
		attrs = append(attrs, "context", details)
	}
	return attrs
}

// LogError logs err at error level with its structured attributes.
func LogError(ctx context.Context, logger Logger, msg string, err error) {
	logger.Error(ctx, msg, ErrorAttrs(err)...)
}

// LogWarn is LogError for failures that do not abort the operation.
func LogWarn(ctx context.Context, logger Logger, msg string, err error) {
	logger.Warn(ctx, msg, ErrorAttrs(err)...)
}
