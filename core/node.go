package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fairswap/core/events"
	"fairswap/core/genesis"
	"fairswap/core/state"
	"fairswap/core/types"
	"fairswap/crypto"
	"fairswap/native/bank"
	"fairswap/native/common"
	"fairswap/native/fairswap"
	"fairswap/observability"
)

var (
	ErrInvalidChainID  = errors.New("core: invalid chain id")
	ErrInvalidNonce    = errors.New("core: invalid nonce")
	ErrUnknownTxType   = errors.New("core: unknown transaction type")
	ErrNotAdmin        = errors.New("core: sender is not the ledger admin")
	ErrGenesisApplied  = errors.New("core: genesis already applied")
	ErrNilTransaction  = errors.New("core: nil transaction")
	ErrChainIDMismatch = errors.New("core: genesis chain id does not match node")
	ErrUnknownHeight   = errors.New("core: no receipt at height")
)

// Options configures a Node.
type Options struct {
	ChainID    uint64
	Admin      crypto.Address
	Schedule   bank.Schedule
	Pauses     *common.Pauses
	Logger     *slog.Logger
	FeedBuffer int
}

// Node verifies signed transactions and applies them to the ledger one at a
// time. Every transaction is a single state unit: it either commits all of
// its effects, its nonce bump and a new height, or nothing.
type Node struct {
	store    *state.Store
	engine   *fairswap.Engine
	chainID  uint64
	admin    crypto.Address
	schedule bank.Schedule
	pauses   *common.Pauses
	feed     *events.Feed
	logger   *slog.Logger
}

func NewNode(store *state.Store, opts Options) *Node {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pauses := opts.Pauses
	if pauses == nil {
		pauses = common.NewPauses()
	}
	engine := fairswap.NewEngine(store.SwapBackend())
	engine.SetSchedule(opts.Schedule)
	engine.SetPauses(pauses)
	engine.SetLogger(logger.With(slog.String("module", fairswap.ModuleName)))
	return &Node{
		store:    store,
		engine:   engine,
		chainID:  opts.ChainID,
		admin:    opts.Admin,
		schedule: opts.Schedule,
		pauses:   pauses,
		feed:     events.NewFeed(opts.FeedBuffer),
		logger:   logger,
	}
}

func (n *Node) ChainID() uint64 { return n.chainID }
func (n *Node) Engine() *fairswap.Engine { return n.engine }
func (n *Node) Feed() *events.Feed { return n.feed }
func (n *Node) Pauses() *common.Pauses { return n.pauses }
func (n *Node) Schedule() bank.Schedule { return n.schedule }
func (n *Node) Store() *state.Store { return n.store }

// InitGenesis applies spec to an empty ledger.
func (n *Node) InitGenesis(ctx context.Context, spec *genesis.Spec) error {
	if spec.ChainID != n.chainID {
		return fmt.Errorf("%w: genesis %d, node %d", ErrChainIDMismatch, spec.ChainID, n.chainID)
	}
	err := n.store.Update(ctx, func(st *state.StateDB) error {
		assets, err := st.Assets()
		if err != nil {
			return err
		}
		height, err := st.Height()
		if err != nil {
			return err
		}
		if len(assets) > 0 || height > 0 {
			return ErrGenesisApplied
		}
		return spec.Apply(bank.NewLedger(st, n.schedule), st)
	})
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "genesis applied",
		slog.Int("assets", len(spec.Assets)),
		slog.Int("accounts", len(spec.Accounts)))
	return nil
}

// SubmitTransaction verifies tx and applies it. A rejected transaction
// consumes no nonce and leaves the ledger unchanged.
func (n *Node) SubmitTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}
	if tx.ChainID != n.chainID {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidChainID, tx.ChainID, n.chainID)
	}
	from, err := tx.From()
	if err != nil {
		return nil, err
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}

	var (
		receipt *types.Receipt
		swapRes *fairswap.Result
	)
	err = n.store.Update(ctx, func(st *state.StateDB) error {
		account, err := st.AccountGet(from)
		if err != nil {
			return err
		}
		if tx.Nonce != account.Nonce {
			return fmt.Errorf("%w: got %d, want %d", ErrInvalidNonce, tx.Nonce, account.Nonce)
		}
		evts, res, err := n.apply(ctx, st, tx, from)
		if err != nil {
			return err
		}
		// apply may have moved native balance, so reload before bumping.
		account, err = st.AccountGet(from)
		if err != nil {
			return err
		}
		account = account.Clone()
		account.Nonce++
		if err := st.AccountPut(from, account); err != nil {
			return err
		}
		height, err := st.IncrementHeight()
		if err != nil {
			return err
		}
		swapRes = res
		receipt = &types.Receipt{TxHash: hash, Height: height, Events: evts}
		return st.ReceiptPut(receipt)
	})
	if err != nil {
		n.logger.DebugContext(ctx, "transaction rejected",
			slog.String("type", tx.Type.String()),
			slog.String("from", from.String()),
			slog.Any("error", err))
		return nil, err
	}

	if swapRes != nil {
		n.engine.Committed(ctx, swapRes)
	}
	for _, evt := range receipt.Events {
		observability.Events().RecordEvent(evt.Type)
		dropped := n.feed.Publish(events.Envelope{Height: receipt.Height, TxHash: receipt.TxHash, Event: evt})
		if dropped > 0 {
			observability.Events().RecordDrop(dropped)
			n.logger.WarnContext(ctx, "event dropped for slow subscribers",
				slog.String("type", evt.Type),
				slog.Int("subscribers", dropped))
		}
	}
	n.logger.InfoContext(ctx, "transaction committed",
		slog.String("type", tx.Type.String()),
		slog.String("from", from.String()),
		slog.Uint64("height", receipt.Height),
		slog.Int("events", len(receipt.Events)))
	return receipt, nil
}
