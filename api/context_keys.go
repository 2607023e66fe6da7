package api

import (
	"context"
	"net/url"
)

// contextKey is a private type to prevent context key collisions across packages.
type contextKey string

const (
	// ContextKeyRequestID stores the unique request identifier (string)
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyPollutedQuery stores query values dropped by the parameter
	// pollution guard (url.Values)
	ContextKeyPollutedQuery contextKey = "polluted_query"

	// ContextKeyJSONBody stores the raw, already validated JSON body ([]byte)
	ContextKeyJSONBody contextKey = "json_body"

	// ContextKeyErrorScope stores the *errorScope installed by ErrorBoundary
	ContextKeyErrorScope contextKey = "error_scope"
)

// GetRequestID extracts the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}

// GetRequestIDOrDefault extracts the request ID from the context or returns "unknown".
// This is a convenience function for logging where a default value is acceptable.
func GetRequestIDOrDefault(ctx context.Context) string {
	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		return requestID
	}
	return "unknown"
}

// WithRequestID creates a new context with the request ID value.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// PollutedQuery returns the repeated query parameters that the pollution
// guard collapsed, keyed by name with every original value.
func PollutedQuery(ctx context.Context) url.Values {
	values, _ := ctx.Value(ContextKeyPollutedQuery).(url.Values)
	return values
}

func withPollutedQuery(ctx context.Context, values url.Values) context.Context {
	return context.WithValue(ctx, ContextKeyPollutedQuery, values)
}

// JSONBody returns the request body kept by the JSON body parser, if any.
func JSONBody(ctx context.Context) ([]byte, bool) {
	body, ok := ctx.Value(ContextKeyJSONBody).([]byte)
	return body, ok
}

func withJSONBody(ctx context.Context, body []byte) context.Context {
	return context.WithValue(ctx, ContextKeyJSONBody, body)
}
