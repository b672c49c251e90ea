package fairswap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fairswap/core/events"
	"fairswap/core/types"
	"fairswap/crypto"
	"fairswap/native/bank"
	"fairswap/native/common"
	"fairswap/observability"
)

// Operation is one of the six state transitions of the fair-swap protocol.
type Operation interface {
	Name() string
	apply(tx *txn) error
}

// Result describes a transition that has been applied to state.
type Result struct {
	Operation string
	// Record is the offer or proposal the operation created or closed.
	Record crypto.Address
	Events []*types.Event

	elapsed time.Duration
}

type txn struct {
	st     State
	bank   *bank.Ledger
	record crypto.Address
	events []*types.Event
}

func (t *txn) emit(evt *types.Event) { t.events = append(t.events, evt) }

// Engine applies fair-swap operations. Mutating calls either run inside the
// caller's state transaction (Apply) or open their own (Execute and the typed
// helpers), in which case events are emitted only after commit.
type Engine struct {
	backend  Backend
	schedule bank.Schedule
	emitter  events.Emitter
	pauses   common.PauseView
	logger   *slog.Logger
	metrics  *observability.SwapMetrics
	tracer   trace.Tracer
}

// NewEngine creates an engine with a no-op emitter and the default deposit
// schedule. backend may be nil when the engine is only used through Apply.
func NewEngine(backend Backend) *Engine {
	return &Engine{
		backend:  backend,
		schedule: bank.DefaultSchedule(),
		emitter:  events.NoopEmitter{},
		logger:   slog.Default(),
		metrics:  observability.Swap(),
		tracer:   otel.Tracer(ModuleName),
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

func (e *Engine) SetSchedule(s bank.Schedule) { e.schedule = s }

func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// Schedule returns the deposit schedule charged for new records.
func (e *Engine) Schedule() bank.Schedule { return e.schedule }

// Apply runs op against st without committing. The caller owns the
// transaction and must pass the Result to Committed once it has committed;
// only rejections are counted here.
func (e *Engine) Apply(ctx context.Context, st State, op Operation) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "fairswap."+op.Name())
	defer span.End()
	start := time.Now()

	res, err := e.apply(st, op)
	if err != nil {
		reason := Reason(err)
		e.metrics.Observe(op.Name(), time.Since(start), reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		e.logger.DebugContext(ctx, "fairswap operation rejected",
			slog.String("operation", op.Name()),
			slog.String("reason", reason),
			slog.Any("error", err))
		return nil, err
	}
	res.elapsed = time.Since(start)
	span.SetAttributes(attribute.String("fairswap.record", res.Record.String()))
	return res, nil
}

func (e *Engine) apply(st State, op Operation) (*Result, error) {
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errNilBackend
	}
	tx := &txn{st: st, bank: bank.NewLedger(st, e.schedule)}
	if err := op.apply(tx); err != nil {
		return nil, translate(err)
	}
	return &Result{Operation: op.Name(), Record: tx.record, Events: tx.events}, nil
}

// Execute runs op in its own backend transaction and emits its events after
// the transaction commits.
func (e *Engine) Execute(ctx context.Context, op Operation) (*Result, error) {
	if e.backend == nil {
		return nil, errNilBackend
	}
	var res *Result
	err := e.backend.Update(ctx, func(st State) error {
		var err error
		res, err = e.Apply(ctx, st, op)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.Committed(ctx, res)
	return res, nil
}

// Committed records a committed Result and publishes its events.
func (e *Engine) Committed(ctx context.Context, res *Result) {
	if res == nil {
		return
	}
	e.metrics.Observe(res.Operation, res.elapsed, "")
	switch res.Operation {
	case opCreateOffer:
		e.metrics.OfferOpened()
	case opCancelOffer, opExecuteSwap, opAcceptProposal:
		e.metrics.OfferClosed()
	}
	for _, evt := range res.Events {
		e.emitter.Emit(swapEvent{evt: evt})
	}
	e.logger.InfoContext(ctx, "fairswap operation committed",
		slog.String("operation", res.Operation),
		slog.String("record", res.Record.String()))
}

func (e *Engine) CreateOffer(ctx context.Context, p CreateOfferParams) (crypto.Address, error) {
	res, err := e.Execute(ctx, p)
	if err != nil {
		return crypto.Address{}, err
	}
	return res.Record, nil
}

func (e *Engine) CancelOffer(ctx context.Context, p CancelOfferParams) error {
	_, err := e.Execute(ctx, p)
	return err
}

func (e *Engine) ExecuteSwap(ctx context.Context, p ExecuteSwapParams) error {
	_, err := e.Execute(ctx, p)
	return err
}

func (e *Engine) SubmitProposal(ctx context.Context, p SubmitProposalParams) (crypto.Address, error) {
	res, err := e.Execute(ctx, p)
	if err != nil {
		return crypto.Address{}, err
	}
	return res.Record, nil
}

func (e *Engine) AcceptProposal(ctx context.Context, p AcceptProposalParams) error {
	_, err := e.Execute(ctx, p)
	return err
}

func (e *Engine) WithdrawProposal(ctx context.Context, p WithdrawProposalParams) error {
	_, err := e.Execute(ctx, p)
	return err
}

// Offer returns the open offer stored at addr.
func (e *Engine) Offer(ctx context.Context, addr crypto.Address) (*Offer, error) {
	var offer *Offer
	err := e.view(ctx, func(st State) error {
		var err error
		offer, err = loadOffer(st, addr)
		return err
	})
	return offer, err
}

// Proposal returns the open proposal stored at addr.
func (e *Engine) Proposal(ctx context.Context, addr crypto.Address) (*Proposal, error) {
	var proposal *Proposal
	err := e.view(ctx, func(st State) error {
		var err error
		proposal, err = loadProposal(st, addr)
		return err
	})
	return proposal, err
}

// ProposalsForOffer lists the open proposals that reference offer. The offer
// itself may already be closed.
func (e *Engine) ProposalsForOffer(ctx context.Context, offer crypto.Address) ([]ProposalEntry, error) {
	var out []ProposalEntry
	err := e.view(ctx, func(st State) error {
		index, err := st.ProposalIndex(offer)
		if err != nil {
			return err
		}
		out = make([]ProposalEntry, 0, len(index))
		for _, addr := range index {
			proposal, ok, err := st.ProposalGet(addr)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			out = append(out, ProposalEntry{Address: addr, Proposal: proposal})
		}
		return nil
	})
	return out, err
}

// OpenOffers reports how many offers currently hold escrowed funds and
// resets the gauge to match.
func (e *Engine) OpenOffers(ctx context.Context) (uint64, error) {
	var n uint64
	err := e.view(ctx, func(st State) error {
		var err error
		n, err = st.OpenOfferCount()
		return err
	})
	if err == nil {
		e.metrics.SetOpenOffers(int(n))
	}
	return n, err
}

func (e *Engine) view(ctx context.Context, fn func(State) error) error {
	if e.backend == nil {
		return errNilBackend
	}
	return e.backend.View(ctx, fn)
}

func loadOffer(st State, addr crypto.Address) (*Offer, error) {
	offer, ok, err := st.OfferGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, precondition(ErrOfferNotFound, "%s", addr)
	}
	if err := verifyOffer(addr, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

func loadProposal(st State, addr crypto.Address) (*Proposal, error) {
	proposal, ok, err := st.ProposalGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, precondition(ErrProposalNotFound, "%s", addr)
	}
	if err := verifyProposal(addr, proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// loadVault returns the vault of record and checks it still holds amount of
// asset under record's control.
func loadVault(tx *txn, record crypto.Address, asset string, amount uint64) (crypto.Address, error) {
	addr, err := VaultAddress(record)
	if err != nil {
		return crypto.Address{}, err
	}
	vault, err := tx.bank.Account(addr)
	if err != nil {
		if errors.Is(err, bank.ErrAccountNotFound) {
			return crypto.Address{}, errVaultState
		}
		return crypto.Address{}, err
	}
	if vault.Owner != record || vault.Asset != asset || vault.Balance != amount {
		return crypto.Address{}, errVaultState
	}
	return addr, nil
}

// receiver loads a destination account and checks it belongs to owner and
// holds asset.
func receiver(tx *txn, addr, owner crypto.Address, asset string) error {
	account, err := tx.bank.Account(addr)
	if err != nil {
		return err
	}
	if account.Owner != owner {
		return precondition(ErrAddressMismatch, "account %s is not owned by %s", addr, owner)
	}
	if account.Asset != asset {
		return precondition(ErrInvalidAssetKind, "account %s holds %s, want %s", addr, account.Asset, asset)
	}
	return nil
}

// source loads a funding account controlled by authority holding at least
// amount.
func source(tx *txn, addr, authority crypto.Address, amount uint64) (*bank.TokenAccount, error) {
	account, err := tx.bank.Account(addr)
	if err != nil {
		return nil, err
	}
	if account.Owner != authority {
		return nil, fmt.Errorf("%w: %s does not control %s", ErrUnauthorized, authority, addr)
	}
	if account.Balance < amount {
		return nil, fmt.Errorf("%w: %s holds %d, need %d", ErrInsufficientBalance, addr, account.Balance, amount)
	}
	return account, nil
}

// closeRecord releases the storage deposit of a deleted offer or proposal.
func closeRecord(tx *txn, addr crypto.Address) error {
	_, err := tx.bank.Refund(addr)
	return err
}
