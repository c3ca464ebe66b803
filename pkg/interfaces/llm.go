package interfaces

import "context"

// Completer wraps a single text-completion call: prompt in, text out.
// Implementations make one bounded attempt; callers recover from failure
// locally so session flow never aborts on a model error.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
