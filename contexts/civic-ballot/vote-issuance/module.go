package voteissuance

import (
	"log/slog"
	"time"

	httpadapter "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/adapters/http"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/adapters/memory"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/application/commands"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/application/workers"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/keylock"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

type Module struct {
	Handler httpadapter.Handler
	Issuer  commands.IssueUseCase
	Relay   workers.LedgerRelay
	Sweeper workers.ReservationSweeper
	Store   *memory.Store
}

type Dependencies struct {
	Registry   ports.ReservationRegistry
	Outbox     ports.Outbox
	Resolver   ports.WeightResolver
	Ledger     ports.LedgerSink
	Signer     votetoken.Signer
	Anonymizer *votetoken.Anonymizer
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	TokenTTL   time.Duration
	RelayBatch int
	SweepBatch int
	Observer   ports.Observer
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	issuer := commands.IssueUseCase{
		Registry:   deps.Registry,
		Outbox:     deps.Outbox,
		Resolver:   deps.Resolver,
		Signer:     deps.Signer,
		Anonymizer: deps.Anonymizer,
		Locks:      keylock.New(),
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		TokenTTL:   deps.TokenTTL,
		Observer:   deps.Observer,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Issuer: issuer,
			Logger: deps.Logger,
		},
		Issuer: issuer,
		Relay: workers.LedgerRelay{
			Outbox:    deps.Outbox,
			Registry:  deps.Registry,
			Ledger:    deps.Ledger,
			Clock:     deps.Clock,
			BatchSize: deps.RelayBatch,
			Observer:  deps.Observer,
			Logger:    deps.Logger,
		},
		Sweeper: workers.ReservationSweeper{
			Registry:  deps.Registry,
			Clock:     deps.Clock,
			BatchSize: deps.SweepBatch,
			Observer:  deps.Observer,
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires the issuer against a process-local registry and
// outbox. Ledger delivery still goes through Relay.
func NewInMemoryModule(
	resolver ports.WeightResolver,
	ledger ports.LedgerSink,
	signer votetoken.Signer,
	anonymizer *votetoken.Anonymizer,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Registry:   store,
		Outbox:     store,
		Resolver:   resolver,
		Ledger:     ledger,
		Signer:     signer,
		Anonymizer: anonymizer,
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
