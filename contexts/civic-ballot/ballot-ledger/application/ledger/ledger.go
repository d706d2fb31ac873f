package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	application "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/application"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/services"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/failures"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/votetoken"
)

const defaultResolveTimeout = 2 * time.Second

type Config struct {
	Store          ports.LogStore
	Verifier       votetoken.Verifier
	Clock          ports.Clock
	ResolveTimeout time.Duration
	Observer       ports.Observer
	Logger         *slog.Logger
}

// Ledger is the in-process view of the append-only log. Writers serialize on
// mu, so position order is acceptance order; readers share it.
type Ledger struct {
	store          ports.LogStore
	verifier       votetoken.Verifier
	clock          ports.Clock
	resolveTimeout time.Duration
	observer       ports.Observer
	logger         *slog.Logger

	mu         sync.RWMutex
	entries    []entities.LedgerEntry
	byToken    map[string]int64
	bySlot     map[string]int64
	indexes    *services.Indexes
	rejections map[string]map[entities.RejectCause]int
	head       string
}

// New builds a ledger and replays the store into it.
func New(ctx context.Context, cfg Config) (*Ledger, error) {
	if cfg.Store == nil || cfg.Verifier == nil || cfg.Clock == nil {
		return nil, domainerrors.ErrMisconfigured
	}
	timeout := cfg.ResolveTimeout
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	l := &Ledger{
		store:          cfg.Store,
		verifier:       cfg.Verifier,
		clock:          cfg.Clock,
		resolveTimeout: timeout,
		observer:       cfg.Observer,
		logger:         application.ResolveLogger(cfg.Logger),
	}
	l.resetState()
	if err := l.Rebuild(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Rebuild discards every index and reloads them from the log, verifying the
// digest chain on the way.
func (l *Ledger) Rebuild(ctx context.Context) error {
	entries, err := l.store.LoadAll(ctx)
	if err != nil {
		return failures.Processing("load ledger log", err)
	}
	rejections, err := l.store.LoadRejections(ctx)
	if err != nil {
		return failures.Processing("load ledger rejections", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })
	if bad := services.VerifyChain(entries); bad >= 0 {
		l.logger.Error("ledger chain verification failed",
			"event", "ledger_rebuild_chain_broken",
			"module", "civic-ballot/ballot-ledger",
			"layer", "application",
			"position", bad,
			"entry_count", len(entries),
		)
		return failures.Processing("rebuild ledger", fmt.Errorf("%w at position %d", domainerrors.ErrCorruptLog, bad))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetState()
	for _, entry := range entries {
		l.index(entry)
	}
	for _, rejection := range rejections {
		l.countRejection(rejection)
	}
	l.observeEntries()

	l.logger.Info("ledger rebuilt from log",
		"event", "ledger_rebuilt",
		"module", "civic-ballot/ballot-ledger",
		"layer", "application",
		"entry_count", len(entries),
		"ballot_count", l.indexes.BallotCount(),
		"rejection_count", len(rejections),
	)
	return nil
}

// Len returns the number of recorded entries, active or not.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// resetState requires mu held, or exclusive ownership during construction.
func (l *Ledger) resetState() {
	l.entries = nil
	l.byToken = make(map[string]int64)
	l.bySlot = make(map[string]int64)
	l.indexes = services.NewIndexes()
	l.rejections = make(map[string]map[entities.RejectCause]int)
	l.head = ""
}

func (l *Ledger) index(entry entities.LedgerEntry) {
	l.entries = append(l.entries, entry)
	l.byToken[entry.Token.TokenID] = entry.Position
	if entry.Active {
		l.bySlot[slotKey(entry.Token)] = entry.Position
	}
	l.indexes.Add(entry)
	l.head = entry.Digest
}

func (l *Ledger) countRejection(rejection entities.Rejection) {
	counts, ok := l.rejections[rejection.BallotID]
	if !ok {
		counts = make(map[entities.RejectCause]int)
		l.rejections[rejection.BallotID] = counts
	}
	counts[rejection.Cause]++
}

func (l *Ledger) observeEntries() {
	if l.observer != nil {
		l.observer.ObserveEntries(len(l.entries))
	}
}

func (l *Ledger) now() time.Time {
	return votetoken.NormalizeTime(l.clock.Now())
}

func slotKey(token votetoken.Token) string {
	return token.BallotID + "|" + token.AnonymizedIdentity
}
