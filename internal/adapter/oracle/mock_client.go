package oracle

import (
	"context"
	"fmt"

	"github.com/hanloto/fortuna/internal/domain"
)

// MockOracle is a deterministic Oracle implementation for testing and
// local development.
type MockOracle struct {
	// GenerateErr, when set, makes GenerateRecommendation fail.
	GenerateErr error
	// ChatErr, when set, makes GenerateChatReply fail.
	ChatErr error
	// Malformed, when true, returns sets that fail shape validation.
	Malformed bool

	// GenerateCalls counts GenerateRecommendation invocations; tests
	// use it to verify the at-most-once guarantee.
	GenerateCalls int
	ChatCalls     int
}

// NewMockOracle creates a new mock oracle.
func NewMockOracle() *MockOracle {
	return &MockOracle{}
}

// Ensure MockOracle implements Oracle.
var _ Oracle = (*MockOracle)(nil)

// GenerateRecommendation returns deterministic sets shaped by the request.
func (m *MockOracle) GenerateRecommendation(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	m.GenerateCalls++
	if m.GenerateErr != nil {
		return nil, m.GenerateErr
	}

	count := req.GameCount
	if count <= 0 {
		count = 1
	}
	sets := make([]domain.NumberSet, 0, count)
	for i := 0; i < count; i++ {
		set := make(domain.NumberSet, 0, domain.NumbersPerSet)
		for j := 0; j < domain.NumbersPerSet; j++ {
			n := (i*7+j*6)%domain.MaxNumber + 1
			set = append(set, n)
		}
		if m.Malformed {
			set[0] = set[1]
		}
		sets = append(sets, set)
	}

	return &GenerateResponse{
		NumberSets:      sets,
		AnalysisText:    fmt.Sprintf("[MOCK] %d sets generated with model %s for round %d.", count, req.Model, req.Round),
		ConfidenceScore: 0.5,
	}, nil
}

// GenerateChatReply echoes the input with the session category.
func (m *MockOracle) GenerateChatReply(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.ChatCalls++
	if m.ChatErr != nil {
		return nil, m.ChatErr
	}
	return &ChatResponse{
		Reply: fmt.Sprintf("[MOCK] %s consultation reply to: %s", req.Category, truncate(req.UserInput, 100)),
	}, nil
}
