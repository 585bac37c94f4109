package service

import "context"

// ChatCompleter produces an assistant reply for a visitor message. The
// actual implementation (prompt construction, retrieval, LLM call) lives
// outside this service; handlers only depend on this interface.
type ChatCompleter interface {
	Complete(ctx context.Context, siteID, message string) (string, error)
}

// ChatCompleterFunc adapts a function to the ChatCompleter interface.
type ChatCompleterFunc func(ctx context.Context, siteID, message string) (string, error)

func (f ChatCompleterFunc) Complete(ctx context.Context, siteID, message string) (string, error) {
	return f(ctx, siteID, message)
}
