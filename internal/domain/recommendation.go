package domain

import (
	"time"
)

// RecommendationType selects the product tier of a generation request.
type RecommendationType string

const (
	RecommendationFree    RecommendationType = "FREE"
	RecommendationPremium RecommendationType = "PREMIUM"
)

// RecommendationStatus is the state of a payment-gated generation request.
type RecommendationStatus string

const (
	StatusPending          RecommendationStatus = "PENDING"
	StatusPaymentPending   RecommendationStatus = "PAYMENT_PENDING"
	StatusPaymentCompleted RecommendationStatus = "PAYMENT_COMPLETED"
	StatusGenerating       RecommendationStatus = "GENERATING"
	StatusCompleted        RecommendationStatus = "COMPLETED"
	StatusFailed           RecommendationStatus = "FAILED"
	StatusExpired          RecommendationStatus = "EXPIRED"
)

// Terminal reports whether the status admits no further transitions.
// FAILED is retryable and therefore not terminal.
func (s RecommendationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// Limits on generation requests.
const (
	MaxGameCount        = 10
	MaxFreeGameCount    = 5
	MaxExcludeNumbers   = 20
	MaxIncludeNumbers   = 6
	MaxPreferenceLength = 500
	NumbersPerSet       = 6
	MinNumber           = 1
	MaxNumber           = 45
	// ParamsTTL bounds how long an unfinished request stays eligible
	// for progress before the sweep expires it.
	ParamsTTL = 24 * time.Hour
	// MaxHistoryReference caps best-effort enrichment from past results.
	MaxHistoryReference = 10
)

// Conditions are optional generation constraints supplied by the user.
type Conditions struct {
	IncludeNumbers  []int    `json:"include_numbers,omitempty"`
	ExcludeNumbers  []int    `json:"exclude_numbers,omitempty"`
	Preference      string   `json:"preference,omitempty"`
	RecentPurchases []string `json:"recent_purchases,omitempty"`
}

// Validate checks condition bounds.
func (c *Conditions) Validate() error {
	if c == nil {
		return nil
	}
	if len(c.ExcludeNumbers) > MaxExcludeNumbers {
		return NewValidationError("exclude_numbers", "at most 20 values")
	}
	if len(c.IncludeNumbers) > MaxIncludeNumbers {
		return NewValidationError("include_numbers", "at most 6 values")
	}
	for _, n := range c.ExcludeNumbers {
		if n < MinNumber || n > MaxNumber {
			return NewValidationError("exclude_numbers", "values must be in [1,45]")
		}
	}
	for _, n := range c.IncludeNumbers {
		if n < MinNumber || n > MaxNumber {
			return NewValidationError("include_numbers", "values must be in [1,45]")
		}
	}
	if len([]rune(c.Preference)) > MaxPreferenceLength {
		return NewValidationError("preference", "at most 500 characters")
	}
	return nil
}

// RecommendationParams is a persisted, payment-gated request descriptor
// for generating number recommendations.
type RecommendationParams struct {
	ParamsID  string               `json:"params_id"`
	UserID    string               `json:"user_id"`
	Type      RecommendationType   `json:"type"`
	GameCount int                  `json:"game_count"`
	Round     int                  `json:"round,omitempty"`
	Conds     *Conditions          `json:"conditions,omitempty"`
	OrderID   string               `json:"order_id,omitempty"`
	Status    RecommendationStatus `json:"status"`
	ExpiresAt time.Time            `json:"expires_at"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewRecommendationParams creates a PENDING paid request with the fixed
// 24h TTL. FREE requests never enter the state machine; they use the
// direct generation path.
func NewRecommendationParams(paramsID, userID string, typ RecommendationType, gameCount, round int, conds *Conditions, now time.Time) (*RecommendationParams, error) {
	if paramsID == "" {
		return nil, NewValidationError("params_id", "must not be empty")
	}
	if userID == "" {
		return nil, NewValidationError("user_id", "must not be empty")
	}
	if typ != RecommendationPremium {
		return nil, NewValidationError("type", "paid flow accepts PREMIUM only; FREE uses direct generation")
	}
	if gameCount < 1 || gameCount > MaxGameCount {
		return nil, NewValidationError("game_count", "must be in [1,10]")
	}
	if round < 0 {
		return nil, NewValidationError("round", "must not be negative")
	}
	if err := conds.Validate(); err != nil {
		return nil, err
	}
	return &RecommendationParams{
		ParamsID:  paramsID,
		UserID:    userID,
		Type:      typ,
		GameCount: gameCount,
		Round:     round,
		Conds:     conds,
		Status:    StatusPending,
		ExpiresAt: now.Add(ParamsTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanGenerate reports whether generation may begin from the current
// status. Only a completed payment or a retryable failure qualifies.
func (p *RecommendationParams) CanGenerate() bool {
	return p.Status == StatusPaymentCompleted || p.Status == StatusFailed
}

// StaleAt reports whether the request is expired but was never moved to
// a terminal status, making it sweep-eligible.
func (p *RecommendationParams) StaleAt(now time.Time) bool {
	return !p.Status.Terminal() && !p.ExpiresAt.After(now)
}

// NumberSet is one game: exactly 6 distinct numbers in [1,45].
type NumberSet []int

// Validate checks the set shape.
func (ns NumberSet) Validate() error {
	if len(ns) != NumbersPerSet {
		return NewValidationError("numbers", "a set must contain exactly 6 numbers")
	}
	seen := make(map[int]bool, NumbersPerSet)
	for _, n := range ns {
		if n < MinNumber || n > MaxNumber {
			return NewValidationError("numbers", "values must be in [1,45]")
		}
		if seen[n] {
			return NewValidationError("numbers", "values must be distinct")
		}
		seen[n] = true
	}
	return nil
}

// ValidateNumberSets checks every set and, when expectedCount > 0, that
// exactly that many sets were produced.
func ValidateNumberSets(sets []NumberSet, expectedCount int) error {
	if expectedCount > 0 && len(sets) != expectedCount {
		return NewValidationError("number_sets", "set count does not match requested game count")
	}
	if len(sets) == 0 {
		return NewValidationError("number_sets", "no sets produced")
	}
	for _, s := range sets {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RecommendationResult is the committed outcome of one generation. At
// most one result exists per order id.
type RecommendationResult struct {
	ResultID     string      `json:"result_id"`
	ParamsID     string      `json:"params_id,omitempty"`
	OrderID      string      `json:"order_id,omitempty"`
	UserID       string      `json:"user_id"`
	Round        int         `json:"round"`
	NumberSets   []NumberSet `json:"number_sets"`
	AnalysisText string      `json:"analysis_text"`
	CreatedAt    time.Time   `json:"created_at"`
}

// OrderStatus mirrors the order collaborator's view of a payment.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderRefunded  OrderStatus = "REFUNDED"
)

// Order is the local projection of an order record.
type Order struct {
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	Amount    int64       `json:"amount"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
