package oracle

import "github.com/hanloto/fortuna/internal/domain"

// Model tiers offered by the oracle service.
const (
	ModelStandard = "oracle-standard"
	ModelPremium  = "oracle-premium"
)

// GenerateRequest asks the oracle for number recommendations.
type GenerateRequest struct {
	Model        string             `json:"model"`
	GameCount    int                `json:"game_count"`
	Round        int                `json:"round,omitempty"`
	Conditions   *domain.Conditions `json:"conditions,omitempty"`
	ImageData    []byte             `json:"image_data,omitempty"`
	PriorReviews []string           `json:"prior_reviews,omitempty"`
	// HistorySets carries up to 10 recent reference sets, best effort.
	HistorySets []domain.NumberSet `json:"history_sets,omitempty"`
}

// GenerateResponse is the oracle's recommendation output. Shape is
// validated by the caller before anything is persisted.
type GenerateResponse struct {
	NumberSets      []domain.NumberSet `json:"number_sets"`
	AnalysisText    string             `json:"analysis_text"`
	Strategies      []string           `json:"strategies,omitempty"`
	ConfidenceScore float64            `json:"confidence_score,omitempty"`
}

// ChatRequest asks the oracle for one consultation reply.
type ChatRequest struct {
	Category  domain.Category `json:"category"`
	UserInput string          `json:"user_input"`
	// PriorContext carries the last few exchanges, oldest first.
	PriorContext []ChatExchange `json:"prior_context,omitempty"`
}

// ChatExchange is one prior user/assistant pair.
type ChatExchange struct {
	UserInput      string `json:"user_input"`
	AssistantReply string `json:"assistant_reply"`
}

// ChatResponse is the oracle's structured consultation reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}
