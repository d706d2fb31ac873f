package ballotledger

import (
	"context"
	"log/slog"
	"time"

	httpadapter "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/adapters/http"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/adapters/memory"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/adapters/resolver"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/application/ledger"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

type Module struct {
	Handler httpadapter.Handler
	Ledger  *ledger.Ledger
	Store   *memory.Store
}

type Dependencies struct {
	Store          ports.LogStore
	Verifier       votetoken.Verifier
	Choices        ports.ChoiceResolver
	Clock          ports.Clock
	ResolveTimeout time.Duration
	Observer       ports.Observer
	Logger         *slog.Logger
}

// NewModule replays the log store before returning, so a corrupt chain fails
// construction.
func NewModule(ctx context.Context, deps Dependencies) (Module, error) {
	l, err := ledger.New(ctx, ledger.Config{
		Store:          deps.Store,
		Verifier:       deps.Verifier,
		Clock:          deps.Clock,
		ResolveTimeout: deps.ResolveTimeout,
		Observer:       deps.Observer,
		Logger:         deps.Logger,
	})
	if err != nil {
		return Module{}, err
	}
	choices := deps.Choices
	if choices == nil {
		choices = resolver.EnvelopeResolver{}
	}
	return Module{
		Handler: httpadapter.Handler{
			Ledger:  l,
			Choices: choices,
			Logger:  deps.Logger,
		},
		Ledger: l,
	}, nil
}

func NewInMemoryModule(verifier votetoken.Verifier, logger *slog.Logger) Module {
	store := memory.NewStore()
	module, err := NewModule(context.Background(), Dependencies{
		Store:    store,
		Verifier: verifier,
		Clock:    store,
		Logger:   logger,
	})
	if err != nil {
		panic(err)
	}
	module.Store = store
	return module
}
