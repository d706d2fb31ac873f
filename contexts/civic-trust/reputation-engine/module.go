package reputationengine

import (
	"log/slog"
	"time"

	httpadapter "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/adapters/http"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/adapters/memory"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/application/queries"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/services"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
)

type Module struct {
	Handler  httpadapter.Handler
	Resolver *queries.TierResolver
	Store    *memory.Store
}

type Dependencies struct {
	Sources       []ports.CredentialSource
	Lookup        ports.TierLookup
	Policy        services.DecayPolicy
	Table         tiers.Table
	Clock         ports.Clock
	SourceTimeout time.Duration
	LatencyBudget time.Duration
	CacheSize     int
	CacheTTL      time.Duration
	Observer      ports.Observer
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) (Module, error) {
	if err := deps.Policy.Validate(); err != nil {
		return Module{}, err
	}
	resolver := queries.NewTierResolver(queries.TierResolverConfig{
		Scores: queries.ScoreUseCase{
			Sources:       deps.Sources,
			Policy:        deps.Policy,
			Table:         deps.Table,
			Clock:         deps.Clock,
			SourceTimeout: deps.SourceTimeout,
			LatencyBudget: deps.LatencyBudget,
			Observer:      deps.Observer,
			Logger:        deps.Logger,
		},
		Lookup:    deps.Lookup,
		CacheSize: deps.CacheSize,
		CacheTTL:  deps.CacheTTL,
		Observer:  deps.Observer,
		Logger:    deps.Logger,
	})
	return Module{
		Handler: httpadapter.Handler{
			Resolver: resolver,
			Logger:   deps.Logger,
		},
		Resolver: resolver,
	}, nil
}

func NewInMemoryModule(seed map[string][]entities.CredentialEntry, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module, err := NewModule(Dependencies{
		Sources:  []ports.CredentialSource{store},
		Lookup:   store,
		Policy:   services.DefaultDecayPolicy(),
		Table:    tiers.DefaultTable(),
		Clock:    store,
		CacheTTL: time.Minute,
		Logger:   logger,
	})
	if err != nil {
		panic(err)
	}
	module.Store = store
	return module
}
