package responseaggregator

import (
	"log/slog"

	httpadapter "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/adapters/http"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/adapters/memory"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/application/commands"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/application/queries"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/services"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/keylock"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

type Module struct {
	Handler   httpadapter.Handler
	Polls     commands.PollUseCase
	Analytics queries.Service
	Store     *memory.Store
}

type Dependencies struct {
	Repository   ports.PollRepository
	Resolver     ports.WeightResolver
	Signer       votetoken.Signer
	Verifier     votetoken.Verifier
	Anonymizer   *votetoken.Anonymizer
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	Lexicon      services.Lexicon
	MinimumTier  tiers.Level
	CreatorTier  tiers.Level
	TableVersion string
	Observer     ports.Observer
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	polls := commands.PollUseCase{
		Repo:        deps.Repository,
		Resolver:    deps.Resolver,
		Signer:      deps.Signer,
		Anonymizer:  deps.Anonymizer,
		Locks:       keylock.New(),
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		CreatorTier: deps.CreatorTier,
		Observer:    deps.Observer,
		Logger:      deps.Logger,
	}
	analytics := queries.Service{
		Repo:         deps.Repository,
		Verifier:     deps.Verifier,
		Lexicon:      deps.Lexicon,
		MinimumTier:  deps.MinimumTier,
		TableVersion: deps.TableVersion,
		Clock:        deps.Clock,
		Observer:     deps.Observer,
		Logger:       deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Polls:     polls,
			Analytics: analytics,
			Logger:    deps.Logger,
		},
		Polls:     polls,
		Analytics: analytics,
	}
}

func NewInMemoryModule(
	resolver ports.WeightResolver,
	signer votetoken.Signer,
	verifier votetoken.Verifier,
	anonymizer *votetoken.Anonymizer,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:   store,
		Resolver:     resolver,
		Signer:       signer,
		Verifier:     verifier,
		Anonymizer:   anonymizer,
		Clock:        store,
		IDGen:        store,
		TableVersion: tiers.DefaultTable().Version(),
		Logger:       logger,
	})
	module.Store = store
	return module
}
