package common

import "context"

type ctxKey string

const terminalIDKey ctxKey = "pos/terminal-id"

// WithTerminalID stores the terminal identifier on the provided context.
func WithTerminalID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, terminalIDKey, id)
}

// TerminalID extracts the terminal identifier from the context if present.
func TerminalID(ctx context.Context) (string, bool) {
	v := ctx.Value(terminalIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
