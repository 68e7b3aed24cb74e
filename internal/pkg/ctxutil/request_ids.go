package ctxutil

import "context"

type requestIDsKey struct{}

// RequestIDs correlates a request across logs, responses and traces.
type RequestIDs struct {
	TraceID   string
	RequestID string
}

func WithRequestIDs(ctx context.Context, ids RequestIDs) context.Context {
	return context.WithValue(ctx, requestIDsKey{}, ids)
}

func RequestIDsFrom(ctx context.Context) (RequestIDs, bool) {
	if ctx == nil {
		return RequestIDs{}, false
	}
	ids, ok := ctx.Value(requestIDsKey{}).(RequestIDs)
	return ids, ok
}

// LogFields returns the ids as logger key/value pairs, skipping empty ones.
func LogFields(ctx context.Context) []any {
	ids, ok := RequestIDsFrom(ctx)
	if !ok {
		return nil
	}
	var out []any
	if ids.TraceID != "" {
		out = append(out, "trace_id", ids.TraceID)
	}
	if ids.RequestID != "" {
		out = append(out, "request_id", ids.RequestID)
	}
	return out
}
