// Package service implements the session lifecycle and the
// payment-gated generation use-cases.
package service

import (
	"time"

	"github.com/hanloto/fortuna/config"
	"github.com/hanloto/fortuna/internal/adapter/oracle"
	"github.com/hanloto/fortuna/internal/adapter/orders"
	"github.com/hanloto/fortuna/internal/adapter/rounds"
	"github.com/hanloto/fortuna/internal/domain"
	store "github.com/hanloto/fortuna/internal/repository"
	"github.com/hanloto/fortuna/policy"
)

// Service owns all use-cases. Collaborators are constructor-injected;
// nothing reaches for process-wide state.
type Service struct {
	store       store.Store
	oracle      oracle.Oracle
	orders      orders.Gateway
	rounds      rounds.Source
	gate        *policy.Engine
	suggestions domain.SuggestionPolicy
	config      *config.Config
	metrics     *Metrics

	// now is replaceable in tests; all expiry math goes through it.
	now func() time.Time
}

// New creates the service.
func New(st store.Store, orc oracle.Oracle, og orders.Gateway, rs rounds.Source, gate *policy.Engine, suggestions domain.SuggestionPolicy, cfg *config.Config, metrics *Metrics) *Service {
	if suggestions == nil {
		suggestions = domain.ShuffledSuggestions{}
	}
	if metrics == nil {
		metrics = NewMetrics("fortuna")
	}
	return &Service{
		store:       st,
		oracle:      orc,
		orders:      og,
		rounds:      rs,
		gate:        gate,
		suggestions: suggestions,
		config:      cfg,
		metrics:     metrics,
		now:         time.Now,
	}
}
