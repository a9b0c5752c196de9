package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/hanloto/fortuna/internal/adapter/oracle"
	"github.com/hanloto/fortuna/internal/domain"
	"github.com/hanloto/fortuna/policy"
)

// PrepareRequest carries the inputs for a paid generation request.
type PrepareRequest struct {
	UserID    string
	Type      domain.RecommendationType
	GameCount int
	Round     int
	Conds     *domain.Conditions
}

// Prepare creates a PENDING generation request for the paid flow. FREE
// requests are rejected; they use GenerateFree directly.
func (s *Service) Prepare(ctx context.Context, req PrepareRequest) (*domain.RecommendationParams, error) {
	params, err := domain.NewRecommendationParams(
		"rec_"+uuid.New().String()[:8], req.UserID, req.Type, req.GameCount, req.Round, req.Conds, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateParams(ctx, params); err != nil {
		return nil, fmt.Errorf("failed to create recommendation params: %w", err)
	}
	return params, nil
}

// LinkToOrder attaches an order to a PENDING request, moving it to
// PAYMENT_PENDING.
func (s *Service) LinkToOrder(ctx context.Context, paramsID, orderID string) (*domain.RecommendationParams, error) {
	if orderID == "" {
		return nil, domain.NewValidationError("order_id", "must not be empty")
	}
	params, err := s.getParams(ctx, paramsID)
	if err != nil {
		return nil, err
	}
	if params.Status != domain.StatusPending {
		return nil, domain.NewInvalidStateError("link_to_order", string(params.Status))
	}

	now := s.now()
	linked, err := s.store.LinkParamsToOrder(ctx, paramsID, orderID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to link order: %w", err)
	}
	if !linked {
		// The status moved between the read and the guarded write.
		fresh, ferr := s.getParams(ctx, paramsID)
		if ferr != nil {
			return nil, ferr
		}
		return nil, domain.NewInvalidStateError("link_to_order", string(fresh.Status))
	}

	params.OrderID = orderID
	params.Status = domain.StatusPaymentPending
	params.UpdatedAt = now
	return params, nil
}

// GetParams loads a generation request by id.
func (s *Service) GetParams(ctx context.Context, paramsID string) (*domain.RecommendationParams, error) {
	return s.getParams(ctx, paramsID)
}

func (s *Service) getParams(ctx context.Context, paramsID string) (*domain.RecommendationParams, error) {
	params, err := s.store.GetParams(ctx, paramsID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation params: %w", err)
	}
	if params == nil {
		return nil, domain.NewNotFoundError("recommendation params", paramsID)
	}
	return params, nil
}

// GenerateFromOrder runs the payment-gated generation for an order.
// At most one result ever exists per order: a repeat call returns the
// stored result without touching the oracle, and concurrent calls race
// on an atomic status claim that only one can win.
func (s *Service) GenerateFromOrder(ctx context.Context, orderID, requestingUserID string) (*domain.RecommendationResult, error) {
	params, err := s.store.GetParamsByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation params: %w", err)
	}
	if params == nil {
		return nil, domain.NewNotFoundError("recommendation params for order", orderID)
	}
	if params.UserID != requestingUserID {
		return nil, domain.NewForbiddenError("order belongs to another user")
	}

	// Idempotency: a finished order short-circuits before any state
	// checks, so repeat calls survive even a COMPLETED status.
	existing, err := s.store.GetResultByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing result: %w", err)
	}
	if existing != nil {
		s.metrics.Generations.WithLabelValues("order", "idempotent_hit").Inc()
		return existing, nil
	}

	if err := s.reconcilePayment(ctx, orderID, params); err != nil {
		return nil, err
	}

	if !params.CanGenerate() {
		return nil, domain.NewInvalidStateError("generate", string(params.Status))
	}

	// Atomic claim: the loser of a race sees claimed=false.
	claimed, err := s.store.ClaimForGeneration(ctx, params.ParamsID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to claim generation: %w", err)
	}
	if !claimed {
		return nil, domain.NewConflictError("recommendation params", params.ParamsID)
	}
	params.Status = domain.StatusGenerating

	result, err := s.generate(ctx, params, orderID)
	if err != nil {
		if moved, uerr := s.store.TransitionParamsStatus(ctx, params.ParamsID, domain.StatusFailed, s.now(), domain.StatusGenerating); uerr != nil {
			log.Printf("ERROR: failed to mark generation FAILED: %v", uerr)
		} else if !moved {
			log.Printf("WARN: request %s no longer GENERATING, leaving status untouched", params.ParamsID)
		}
		s.metrics.Generations.WithLabelValues("order", "failed").Inc()
		log.Printf("ERROR: generation for order %s failed: %v", orderID, err)
		// Generic retryable error; oracle internals stay out of responses.
		return nil, domain.NewUpstreamError("generation", errors.New("generation failed, please retry"))
	}

	if moved, err := s.store.TransitionParamsStatus(ctx, params.ParamsID, domain.StatusCompleted, s.now(), domain.StatusGenerating); err != nil {
		log.Printf("ERROR: failed to mark generation COMPLETED: %v", err)
	} else if !moved {
		log.Printf("WARN: request %s no longer GENERATING, leaving status untouched", params.ParamsID)
	}
	s.metrics.Generations.WithLabelValues("order", "completed").Inc()
	return result, nil
}

// reconcilePayment synchronizes the request status with the order
// collaborator under the payment-gate policy. A PAID order pulls a
// lagging request forward; the assume_paid decision promotes both
// sides (the documented source shortcut, policy-controlled).
func (s *Service) reconcilePayment(ctx context.Context, orderID string, params *domain.RecommendationParams) error {
	orderStatus, err := s.orders.GetOrderStatus(ctx, orderID)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return err
		}
		return domain.NewUpstreamError("order gateway", err)
	}

	decision, err := s.gate.Evaluate(ctx, policy.GateInput{
		OrderStatus:  string(orderStatus),
		ParamsStatus: string(params.Status),
		UserID:       params.UserID,
	})
	if err != nil {
		return domain.NewUpstreamError("payment gate", err)
	}

	switch decision {
	case policy.DecisionAssumePaid:
		log.Printf("WARN: assuming payment for order %s (status %s) by policy decision", orderID, orderStatus)
		if err := s.orders.SetOrderStatus(ctx, orderID, domain.OrderPaid); err != nil {
			return domain.NewUpstreamError("order gateway", err)
		}
		return s.advanceToPaymentCompleted(ctx, params)
	case policy.DecisionAllow:
		// Order is paid; pull a lagging request forward without
		// touching the order.
		if params.Status == domain.StatusPending || params.Status == domain.StatusPaymentPending {
			return s.advanceToPaymentCompleted(ctx, params)
		}
		return nil
	default:
		return nil
	}
}

// advanceToPaymentCompleted pulls a pre-payment request forward. The
// transition is guarded at the store: a request another caller already
// claimed for generation stays claimed, and this caller picks up the
// current status instead of clobbering it.
func (s *Service) advanceToPaymentCompleted(ctx context.Context, params *domain.RecommendationParams) error {
	moved, err := s.store.TransitionParamsStatus(ctx, params.ParamsID, domain.StatusPaymentCompleted, s.now(),
		domain.StatusPending, domain.StatusPaymentPending)
	if err != nil {
		return fmt.Errorf("failed to update params status: %w", err)
	}
	if !moved {
		fresh, err := s.getParams(ctx, params.ParamsID)
		if err != nil {
			return err
		}
		*params = *fresh
		return nil
	}
	params.Status = domain.StatusPaymentCompleted
	return nil
}

// generate performs the oracle call and persists the result. Callers
// own the FAILED/COMPLETED transition around it.
func (s *Service) generate(ctx context.Context, params *domain.RecommendationParams, orderID string) (*domain.RecommendationResult, error) {
	round := s.resolveRound(ctx, params.Round)
	historySets := s.gatherHistory(ctx, params.UserID)

	model := oracle.ModelStandard
	if params.Type == domain.RecommendationPremium {
		model = oracle.ModelPremium
	}

	started := s.now()
	resp, err := s.oracle.GenerateRecommendation(ctx, &oracle.GenerateRequest{
		Model:       model,
		GameCount:   params.GameCount,
		Round:       round,
		Conditions:  params.Conds,
		HistorySets: historySets,
	})
	s.metrics.observeOracleLatency(s.now().Sub(started))
	if err != nil {
		return nil, domain.NewUpstreamError("oracle", err)
	}
	if err := domain.ValidateNumberSets(resp.NumberSets, params.GameCount); err != nil {
		return nil, domain.NewMalformedUpstreamError("oracle", err)
	}

	result := &domain.RecommendationResult{
		ResultID:     "res_" + uuid.New().String()[:8],
		ParamsID:     params.ParamsID,
		OrderID:      orderID,
		UserID:       params.UserID,
		Round:        round,
		NumberSets:   resp.NumberSets,
		AnalysisText: resp.AnalysisText,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to persist result: %w", err)
	}
	return result, nil
}

// resolveRound picks the target draw round: the explicit request value,
// else latest-known + 1, else 1. The lookup never blocks generation.
func (s *Service) resolveRound(ctx context.Context, explicit int) int {
	if explicit > 0 {
		return explicit
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout())
	defer cancel()
	latest, err := s.rounds.LatestRound(lookupCtx)
	if err != nil {
		log.Printf("WARN: round lookup failed, falling back to round 1: %v", err)
		return 1
	}
	return latest + 1
}

func (s *Service) lookupTimeout() time.Duration {
	if s.config != nil && s.config.LookupTimeout > 0 {
		return s.config.LookupTimeout
	}
	return 10 * time.Second
}

// gatherHistory collects up to 10 recent reference sets, best effort.
func (s *Service) gatherHistory(ctx context.Context, userID string) []domain.NumberSet {
	results, err := s.store.GetRecentResults(ctx, userID, domain.MaxHistoryReference)
	if err != nil {
		log.Printf("WARN: failed to gather history, generating without it: %v", err)
		return nil
	}
	var sets []domain.NumberSet
	for _, r := range results {
		sets = append(sets, r.NumberSets...)
		if len(sets) >= domain.MaxHistoryReference {
			sets = sets[:domain.MaxHistoryReference]
			break
		}
	}
	return sets
}

// FreeGenerateRequest carries the inputs for the unpaid direct path.
type FreeGenerateRequest struct {
	UserID    string
	GameCount int
	Round     int
	Conds     *domain.Conditions
}

// GenerateFree runs the unpaid FREE-tier path: no state machine, no
// idempotency key; every call produces a fresh result and retrying
// simply means calling again.
func (s *Service) GenerateFree(ctx context.Context, req FreeGenerateRequest) (*domain.RecommendationResult, error) {
	if req.UserID == "" {
		return nil, domain.NewValidationError("user_id", "must not be empty")
	}
	if req.GameCount < 1 || req.GameCount > domain.MaxFreeGameCount {
		return nil, domain.NewValidationError("game_count", "must be in [1,5] for FREE")
	}
	if req.Round < 0 {
		return nil, domain.NewValidationError("round", "must not be negative")
	}
	if err := req.Conds.Validate(); err != nil {
		return nil, err
	}

	round := s.resolveRound(ctx, req.Round)
	historySets := s.gatherHistory(ctx, req.UserID)

	started := s.now()
	resp, err := s.oracle.GenerateRecommendation(ctx, &oracle.GenerateRequest{
		Model:       oracle.ModelStandard,
		GameCount:   req.GameCount,
		Round:       round,
		Conditions:  req.Conds,
		HistorySets: historySets,
	})
	s.metrics.observeOracleLatency(s.now().Sub(started))
	if err != nil {
		s.metrics.Generations.WithLabelValues("free", "failed").Inc()
		log.Printf("ERROR: free generation failed: %v", err)
		return nil, domain.NewUpstreamError("generation", errors.New("generation failed, please retry"))
	}
	if err := domain.ValidateNumberSets(resp.NumberSets, req.GameCount); err != nil {
		s.metrics.Generations.WithLabelValues("free", "malformed").Inc()
		log.Printf("ERROR: free generation returned malformed output: %v", err)
		return nil, domain.NewUpstreamError("generation", errors.New("generation failed, please retry"))
	}

	result := &domain.RecommendationResult{
		ResultID:     "res_" + uuid.New().String()[:8],
		UserID:       req.UserID,
		Round:        round,
		NumberSets:   resp.NumberSets,
		AnalysisText: resp.AnalysisText,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to persist result: %w", err)
	}
	s.metrics.Generations.WithLabelValues("free", "completed").Inc()
	return result, nil
}

// GetResultByOrder returns the committed result of an order.
func (s *Service) GetResultByOrder(ctx context.Context, orderID string) (*domain.RecommendationResult, error) {
	result, err := s.store.GetResultByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	if result == nil {
		return nil, domain.NewNotFoundError("result for order", orderID)
	}
	return result, nil
}
