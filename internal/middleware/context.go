package middleware

import (
	"context"
)

// context keys are unexported to avoid collisions
type ctxKey string

const (
	ctxKeyIsHTMX  ctxKey = "is_htmx"
	ctxKeySession ctxKey = "session"
	ctxKeyLocale  ctxKey = "locale"
)

// WithHTMX marks request as HTMX
func WithHTMX(ctx context.Context, is bool) context.Context {
	return context.WithValue(ctx, ctxKeyIsHTMX, is)
}

// IsHTMX returns whether this is an htmx request
func IsHTMX(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyIsHTMX).(bool)
	return v
}

// WithLocale stores the resolved UI language.
func WithLocale(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKeyLocale, lang)
}

// Lang returns the resolved UI language, or "en" when none was resolved.
func Lang(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyLocale).(string); ok && v != "" {
		return v
	}
	return "en"
}
