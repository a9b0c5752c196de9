// Package oracle provides an abstraction over the AI text/recommendation
// collaborator.
package oracle

import "context"

// Oracle defines the AI collaborator operations. Both calls are plain
// request/response; failures surface as errors the service wraps as
// upstream failures.
type Oracle interface {
	// GenerateRecommendation produces number sets plus analysis text.
	GenerateRecommendation(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// GenerateChatReply produces one consultation reply for a session turn.
	GenerateChatReply(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Ensure Client implements Oracle.
var _ Oracle = (*Client)(nil)
