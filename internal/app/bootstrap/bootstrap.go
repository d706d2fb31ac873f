package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ballotledger "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger"
	ledgerbolt "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/adapters/bolt"
	ledgermemory "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/adapters/memory"
	ledgerpostgres "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/adapters/postgres"
	ledgerports "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/ports"
	voteissuance "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance"
	issuancememory "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/adapters/memory"
	issuancepostgres "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/adapters/postgres"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/application/workers"
	responseaggregator "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator"
	pollmemory "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/adapters/memory"
	pollpostgres "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/adapters/postgres"
	pollservices "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/services"
	reputationengine "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine"
	reputationmemory "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/adapters/memory"
	reputationpostgres "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/adapters/postgres"
	decayservices "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/services"
	reputationports "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/platform/config"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/platform/db"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/platform/httpserver"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/platform/metrics"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/platform/tierconfig"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/access"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/tiers"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// APIApp serves HTTP and owns the ballot ledger. Because the ledger keeps
// its index in process, ledger delivery (the relay) runs here too.
type APIApp struct {
	server   *httpserver.Server
	stack    *stack
	loop     maintenanceLoop
	logger   *slog.Logger
	interval time.Duration
}

// WorkerApp prunes expired reservations in the shared postgres registry.
type WorkerApp struct {
	stack  *stack
	loop   maintenanceLoop
	logger *slog.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	recorder := metrics.NewRecorder()
	st, err := buildStack(ctx, cfg, logger, recorder)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(httpserver.Modules{
		Reputation: st.reputation,
		Issuance:   st.issuance,
		Ledger:     st.ledger,
		Polling:    st.polling,
		Metrics:    recorder.Handler(),
		Grants:     st.grants,
		Subjects:   st.anonymizer,
	}, logger, normalizeAddr(cfg.HTTPPort))

	loop := maintenanceLoop{logger: logger, interval: cfg.WorkerInterval}
	if cfg.EnableRelayWorker {
		loop.relay = &st.issuance.Relay
	}
	if cfg.EnableSweeperWorker {
		loop.sweeper = &st.issuance.Sweeper
	}
	return &APIApp{
		server:   server,
		stack:    st,
		loop:     loop,
		logger:   logger,
		interval: cfg.WorkerInterval,
	}, nil
}

// BuildWorker requires POSTGRES_DSN: a sweeper over a process-local registry
// would have nothing to prune.
func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN, db.PoolOptions{MaxOpenConns: 4})
	if err != nil {
		return nil, err
	}
	repo := issuancepostgres.NewRepository(pg.DB, logger)
	recorder := metrics.NewRecorder()
	issuance := voteissuance.NewModule(voteissuance.Dependencies{
		Registry:   repo,
		Outbox:     repo,
		Clock:      repo,
		IDGen:      repo,
		SweepBatch: cfg.SweepBatch,
		Observer:   recorder,
		Logger:     logger,
	})
	return &WorkerApp{
		stack: &stack{issuance: issuance, closers: []func() error{pg.Close}},
		loop: maintenanceLoop{
			sweeper:  &issuance.Sweeper,
			interval: cfg.WorkerInterval,
			logger:   logger,
		},
		logger: logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"worker_interval", a.interval.String(),
		)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		return a.loop.run(groupCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	return a.stack.close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.loop.interval.String(),
	)
	return w.loop.run(ctx)
}

func (w *WorkerApp) Close() error {
	return w.stack.close()
}

// stack is the wired set of bounded contexts plus whatever must be closed
// on shutdown.
type stack struct {
	reputation reputationengine.Module
	issuance   voteissuance.Module
	ledger     ballotledger.Module
	polling    responseaggregator.Module
	anonymizer *votetoken.Anonymizer
	grants     access.Grants
	closers    []func() error
}

func (s *stack) close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildStack(ctx context.Context, cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (_ *stack, err error) {
	st := &stack{}
	defer func() {
		if err != nil {
			_ = st.close()
		}
	}()

	economics, err := tierconfig.Load(cfg.TierConfigPath)
	if err != nil {
		return nil, err
	}
	signer, verifier, err := buildKeys(cfg)
	if err != nil {
		return nil, err
	}
	st.anonymizer, err = votetoken.NewAnonymizer(cfg.AnonymizerKey)
	if err != nil {
		return nil, fmt.Errorf("anonymizer: %w", err)
	}

	var pg *db.Postgres
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err = db.Connect(ctx, cfg.PostgresDSN, db.PoolOptions{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pg.Close)
	}
	systemClock := clock.New()

	st.reputation, err = buildReputation(cfg, economics, pg, systemClock, recorder, logger)
	if err != nil {
		return nil, err
	}

	ledgerStore, err := buildLedgerStore(cfg, pg, st, logger)
	if err != nil {
		return nil, err
	}
	st.ledger, err = ballotledger.NewModule(ctx, ballotledger.Dependencies{
		Store:          ledgerStore,
		Verifier:       verifier,
		Clock:          systemClock,
		ResolveTimeout: cfg.ChoiceTimeout,
		Observer:       recorder,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	issuanceDeps := voteissuance.Dependencies{
		Resolver:   st.reputation.Resolver,
		Ledger:     st.ledger.Ledger,
		Signer:     signer,
		Anonymizer: st.anonymizer,
		TokenTTL:   cfg.TokenTTL,
		RelayBatch: cfg.RelayBatch,
		SweepBatch: cfg.SweepBatch,
		Observer:   recorder,
		Logger:     logger,
	}
	if pg != nil {
		repo := issuancepostgres.NewRepository(pg.DB, logger)
		issuanceDeps.Registry, issuanceDeps.Outbox, issuanceDeps.Clock, issuanceDeps.IDGen = repo, repo, repo, repo
	} else {
		store := issuancememory.NewStore()
		issuanceDeps.Registry, issuanceDeps.Outbox, issuanceDeps.Clock, issuanceDeps.IDGen = store, store, store, store
	}
	st.issuance = voteissuance.NewModule(issuanceDeps)

	lexicon, err := pollservices.NewLexicon(economics.Polling.OppositionTerms)
	if err != nil {
		return nil, fmt.Errorf("polling lexicon: %w", err)
	}
	pollDeps := responseaggregator.Dependencies{
		Resolver:     st.reputation.Resolver,
		Signer:       signer,
		Verifier:     verifier,
		Anonymizer:   st.anonymizer,
		Lexicon:      lexicon,
		MinimumTier:  economics.Polling.MinimumTier,
		CreatorTier:  tiers.LevelModerator,
		TableVersion: economics.Table.Version(),
		Observer:     recorder,
		Logger:       logger,
	}
	if pg != nil {
		repo := pollpostgres.NewRepository(pg.DB, logger)
		pollDeps.Repository, pollDeps.Clock, pollDeps.IDGen = repo, repo, repo
	} else {
		store := pollmemory.NewStore()
		pollDeps.Repository, pollDeps.Clock, pollDeps.IDGen = store, store, store
	}
	st.polling = responseaggregator.NewModule(pollDeps)
	st.grants = access.DefaultGrants().WithPollMinimum(economics.Polling.MinimumTier)

	logger.Info("application stack built",
		"event", "bootstrap_stack_built",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"ledger_backend", cfg.LedgerBackend,
		"postgres", pg != nil,
		"tier_table", economics.Table.Version(),
		"signing_key_id", signer.KeyID(),
		"ledger_entries", st.ledger.Ledger.Len(),
	)
	return st, nil
}

func buildReputation(
	cfg config.Config,
	economics tierconfig.Economics,
	pg *db.Postgres,
	systemClock clock.Clock,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) (reputationengine.Module, error) {
	deps := reputationengine.Dependencies{
		Policy: decayservices.DecayPolicy{
			GraceDays:           economics.Decay.GraceDays,
			HalfLifeDays:        economics.Decay.HalfLifeDays,
			MinimumFloor:        economics.Decay.MinimumFloor,
			DefaultCategoryRate: economics.Decay.DefaultCategoryRate,
			CategoryRates:       decayservices.NormalizeRates(economics.Decay.CategoryRates),
		},
		Table:         economics.Table,
		Clock:         systemClock,
		SourceTimeout: cfg.SourceTimeout,
		LatencyBudget: cfg.ScoreLatencyBudget,
		CacheSize:     cfg.ScoreCacheSize,
		CacheTTL:      cfg.ScoreCacheTTL,
		Observer:      recorder,
		Logger:        logger,
	}
	if pg != nil {
		repo := reputationpostgres.NewRepository(pg.DB, logger)
		deps.Sources = []reputationports.CredentialSource{repo}
		deps.Lookup = repo
	} else {
		store := reputationmemory.NewStore(nil)
		deps.Sources = []reputationports.CredentialSource{store}
		deps.Lookup = store
	}
	return reputationengine.NewModule(deps)
}

func buildLedgerStore(cfg config.Config, pg *db.Postgres, st *stack, logger *slog.Logger) (ledgerports.LogStore, error) {
	switch cfg.LedgerBackend {
	case config.LedgerBackendBolt:
		bolt, err := db.OpenBolt(cfg.BoltPath, time.Second)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, bolt.Close)
		return ledgerbolt.NewStore(bolt.DB, logger)
	case config.LedgerBackendPostgres:
		if pg == nil {
			return nil, errors.New("POSTGRES_DSN is required for the postgres ledger backend")
		}
		return ledgerpostgres.NewRepository(pg.DB, logger), nil
	default:
		return ledgermemory.NewStore(), nil
	}
}

func buildKeys(cfg config.Config) (votetoken.Signer, votetoken.Verifier, error) {
	if len(cfg.SigningSeed) > 0 {
		key, err := votetoken.NewEd25519Key(cfg.SigningKeyID, cfg.SigningSeed)
		if err != nil {
			return nil, nil, fmt.Errorf("ed25519 signing key: %w", err)
		}
		return key, key.Public(), nil
	}
	key, err := votetoken.NewHMACKey(cfg.SigningKeyID, cfg.SigningSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("hmac signing key: %w", err)
	}
	return key, key, nil
}

// maintenanceLoop runs the issuance workers on a fixed interval. Each pass is
// idempotent, so a failed pass is logged and retried on the next tick.
type maintenanceLoop struct {
	relay    *workers.LedgerRelay
	sweeper  *workers.ReservationSweeper
	interval time.Duration
	logger   *slog.Logger
}

func (l maintenanceLoop) run(ctx context.Context) error {
	if l.relay == nil && l.sweeper == nil {
		<-ctx.Done()
		return nil
	}
	interval := l.interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		l.runOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (l maintenanceLoop) runOnce(ctx context.Context) {
	if l.sweeper != nil {
		if _, err := l.sweeper.RunOnce(ctx); err != nil && ctx.Err() == nil {
			l.logger.Error("reservation sweep failed",
				"event", "bootstrap_sweep_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
	}
	if l.relay != nil {
		if _, err := l.relay.RunOnce(ctx); err != nil && ctx.Err() == nil {
			l.logger.Error("ledger relay failed",
				"event", "bootstrap_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
