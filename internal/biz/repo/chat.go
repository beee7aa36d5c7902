package repo

import "context"

// CompletionRequest is a single-turn chat completion call
type CompletionRequest struct {
	Model       string // empty uses the repo default
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// ChatRepo is the language model interface
type ChatRepo interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
