package indexer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"fairswap/core/events"
	"fairswap/core/types"
	"fairswap/native/fairswap"
)

var (
	ErrUnsupportedDSN   = errors.New("indexer: unsupported database DSN")
	ErrMissingAttribute = errors.New("indexer: event attribute missing")
	ErrHeightGap        = errors.New("indexer: missing heights")
)

// ReceiptSource serves committed receipts so the indexer can fill heights it
// never saw on the feed. *core.Node satisfies it.
type ReceiptSource interface {
	Height(ctx context.Context) (uint64, error)
	Receipt(ctx context.Context, height uint64) (*types.Receipt, error)
}

// Open connects to the database named by dsn and migrates the schema.
// Accepted forms are sqlite://<path> (or sqlite://:memory:) and
// postgres://... / postgresql://....
func Open(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	var (
		dialector gorm.Dialector
		isSQLite  bool
	)
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
		isSQLite = true
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDSN, dsn)
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("indexer: open database: %w", err)
	}
	if isSQLite {
		// SQLite allows one writer; a single connection avoids lock errors.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("indexer: open database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return db, nil
}

// Indexer projects committed fair-swap events into queryable tables.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
	source ReceiptSource
}

func New(db *gorm.DB, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{db: db, logger: logger.With(slog.String("component", "indexer")), now: time.Now}
}

func (ix *Indexer) DB() *gorm.DB { return ix.db }

// SetSource configures where missing heights are read from. Without a source
// a gap in the feed is reported as ErrHeightGap and nothing is applied.
func (ix *Indexer) SetSource(src ReceiptSource) { ix.source = src }

// CatchUp indexes every committed height above the cursor.
func (ix *Indexer) CatchUp(ctx context.Context) error {
	if ix.source == nil {
		return nil
	}
	head, err := ix.source.Height(ctx)
	if err != nil {
		return fmt.Errorf("indexer: read node height: %w", err)
	}
	return ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cursor, err := loadCursor(tx)
		if err != nil {
			return err
		}
		if head <= cursor.Height {
			return nil
		}
		last, err := ix.replay(ctx, tx, cursor.Height+1, head)
		if err != nil {
			return err
		}
		ix.logger.InfoContext(ctx, "indexer caught up",
			slog.Uint64("from", cursor.Height+1),
			slog.Uint64("to", head))
		return ix.saveCursor(tx, head, last)
	})
}

// Run catches up with the source, then consumes the feed until ctx is
// cancelled or the feed closes.
func (ix *Indexer) Run(ctx context.Context, feed *events.Feed) error {
	updates, cancel := feed.Subscribe()
	defer cancel()
	if err := ix.CatchUp(ctx); err != nil {
		ix.logger.ErrorContext(ctx, "failed to catch up", slog.Any("error", err))
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-updates:
			if !ok {
				return nil
			}
			if err := ix.Handle(ctx, env); err != nil {
				eventType := ""
				if env.Event != nil {
					eventType = env.Event.Type
				}
				meters().recordFailure(ctx, eventType)
				ix.logger.ErrorContext(ctx, "failed to index event",
					slog.Uint64("height", env.Height),
					slog.Any("error", err))
			}
		}
	}
}

// Handle applies one envelope. Envelopes below the stored cursor are
// skipped and every mapper ignores transactions it has already recorded, so
// replays are harmless. Heights between the cursor and env that never
// arrived are replayed from the source first.
func (ix *Indexer) Handle(ctx context.Context, env events.Envelope) error {
	if env.Event == nil {
		return nil
	}
	txHash := hashHex(env.TxHash)
	return ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cursor, err := loadCursor(tx)
		if err != nil {
			return err
		}
		if env.Height < cursor.Height {
			return nil
		}
		if env.Height > cursor.Height+1 {
			if ix.source == nil {
				return fmt.Errorf("%w %d..%d", ErrHeightGap, cursor.Height+1, env.Height-1)
			}
			if _, err := ix.replay(ctx, tx, cursor.Height+1, env.Height-1); err != nil {
				return err
			}
		}
		if err := ix.apply(tx, env, txHash); err != nil {
			return fmt.Errorf("%s at height %d: %w", env.Event.Type, env.Height, err)
		}
		return ix.saveCursor(tx, env.Height, txHash)
	})
}

// replay applies the stored receipts for heights from..to inclusive and
// returns the hash of the last transaction replayed.
func (ix *Indexer) replay(ctx context.Context, tx *gorm.DB, from, to uint64) (string, error) {
	var last string
	for height := from; height <= to; height++ {
		receipt, err := ix.source.Receipt(ctx, height)
		if err != nil {
			return "", fmt.Errorf("indexer: replay height %d: %w", height, err)
		}
		last = hashHex(receipt.TxHash)
		for _, evt := range receipt.Events {
			env := events.Envelope{Height: height, TxHash: receipt.TxHash, Event: evt}
			if err := ix.apply(tx, env, last); err != nil {
				return "", fmt.Errorf("%s at height %d: %w", evt.Type, height, err)
			}
		}
	}
	meters().recordReplay(ctx, to-from+1)
	ix.logger.WarnContext(ctx, "replayed heights missed on the feed",
		slog.Uint64("from", from),
		slog.Uint64("to", to))
	return last, nil
}

func loadCursor(tx *gorm.DB) (Cursor, error) {
	var cursor Cursor
	err := tx.Where("id = ?", cursorID).Limit(1).Find(&cursor).Error
	return cursor, err
}

func (ix *Indexer) saveCursor(tx *gorm.DB, height uint64, txHash string) error {
	cursor := Cursor{ID: cursorID, Height: height, TxHash: txHash, UpdatedAt: ix.now()}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&cursor).Error
}

func hashHex(hash [32]byte) string { return "0x" + hex.EncodeToString(hash[:]) }

func (ix *Indexer) apply(tx *gorm.DB, env events.Envelope, txHash string) error {
	attrs := attributes(env.Event.Attributes)
	switch env.Event.Type {
	case fairswap.EventTypeOfferCreated:
		return ix.offerCreated(tx, attrs, txHash, env.Height)
	case fairswap.EventTypeOfferCancelled:
		return closeOffer(tx, attrs, OfferCancelled, txHash, env.Height)
	case fairswap.EventTypeSwapExecuted:
		return ix.swapExecuted(tx, attrs, txHash, env.Height)
	case fairswap.EventTypeProposalSubmitted:
		return ix.proposalSubmitted(tx, attrs, txHash, env.Height)
	case fairswap.EventTypeProposalAccepted:
		return ix.proposalAccepted(tx, attrs, txHash, env.Height)
	case fairswap.EventTypeProposalWithdrawn:
		return closeProposal(tx, attrs, ProposalWithdrawn, txHash, env.Height)
	default:
		return nil
	}
}

type attributes map[string]string

func (a attributes) str(key string) (string, error) {
	v := strings.TrimSpace(a[key])
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingAttribute, key)
	}
	return v, nil
}

func (a attributes) u64(key string) (uint64, error) {
	v, err := a.str(key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

func exists(tx *gorm.DB, model interface{}, column, value string) (bool, error) {
	var n int64
	if err := tx.Model(model).Where(column+" = ?", value).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (ix *Indexer) offerCreated(tx *gorm.DB, a attributes, txHash string, height uint64) error {
	if seen, err := exists(tx, &OfferRow{}, "created_tx", txHash); err != nil || seen {
		return err
	}
	row := OfferRow{ID: uuid.New(), Status: OfferActive, CreatedTx: txHash, CreatedHeight: height}
	var err error
	if row.Address, err = a.str(fairswap.AttrOffer); err != nil {
		return err
	}
	if row.Seller, err = a.str(fairswap.AttrSeller); err != nil {
		return err
	}
	if row.OfferID, err = a.u64(fairswap.AttrOfferID); err != nil {
		return err
	}
	if row.AssetA, err = a.str(fairswap.AttrAssetA); err != nil {
		return err
	}
	if row.AmountA, err = a.u64(fairswap.AttrAmountA); err != nil {
		return err
	}
	if row.AssetB, err = a.str(fairswap.AttrAssetB); err != nil {
		return err
	}
	if row.AmountB, err = a.u64(fairswap.AttrAmountB); err != nil {
		return err
	}
	row.Vault = a[fairswap.AttrVault]
	row.AllowAlternatives = a[fairswap.AttrAllowAlternatives] == "true"
	return tx.Create(&row).Error
}

func closeOffer(tx *gorm.DB, a attributes, status OfferStatus, txHash string, height uint64) error {
	addr, err := a.str(fairswap.AttrOffer)
	if err != nil {
		return err
	}
	return tx.Model(&OfferRow{}).
		Where("address = ? AND status = ?", addr, OfferActive).
		Updates(map[string]interface{}{"status": status, "closed_tx": txHash, "closed_height": height}).Error
}

func closeProposal(tx *gorm.DB, a attributes, status ProposalStatus, txHash string, height uint64) error {
	addr, err := a.str(fairswap.AttrProposal)
	if err != nil {
		return err
	}
	return tx.Model(&ProposalRow{}).
		Where("address = ? AND status = ?", addr, ProposalPending).
		Updates(map[string]interface{}{"status": status, "closed_tx": txHash, "closed_height": height}).Error
}

func (ix *Indexer) swapExecuted(tx *gorm.DB, a attributes, txHash string, height uint64) error {
	if seen, err := exists(tx, &SwapRow{}, "tx_hash", txHash); err != nil || seen {
		return err
	}
	row, err := ix.swapRow(a, txHash, height)
	if err != nil {
		return err
	}
	if err := tx.Create(row).Error; err != nil {
		return err
	}
	return closeOffer(tx, a, OfferCompleted, txHash, height)
}

func (ix *Indexer) proposalAccepted(tx *gorm.DB, a attributes, txHash string, height uint64) error {
	if seen, err := exists(tx, &SwapRow{}, "tx_hash", txHash); err != nil || seen {
		return err
	}
	row, err := ix.swapRow(a, txHash, height)
	if err != nil {
		return err
	}
	proposal, err := a.str(fairswap.AttrProposal)
	if err != nil {
		return err
	}
	row.Proposal = &proposal
	if err := tx.Create(row).Error; err != nil {
		return err
	}
	if err := closeOffer(tx, a, OfferCompleted, txHash, height); err != nil {
		return err
	}
	return closeProposal(tx, a, ProposalAccepted, txHash, height)
}

func (ix *Indexer) swapRow(a attributes, txHash string, height uint64) (*SwapRow, error) {
	row := &SwapRow{ID: uuid.New(), TxHash: txHash, Height: height, ExecutedAt: ix.now().UTC()}
	var err error
	if row.Offer, err = a.str(fairswap.AttrOffer); err != nil {
		return nil, err
	}
	if row.Buyer, err = a.str(fairswap.AttrBuyer); err != nil {
		return nil, err
	}
	if row.Seller, err = a.str(fairswap.AttrSeller); err != nil {
		return nil, err
	}
	if row.AssetA, err = a.str(fairswap.AttrAssetA); err != nil {
		return nil, err
	}
	if row.AmountA, err = a.u64(fairswap.AttrAmountA); err != nil {
		return nil, err
	}
	if row.AssetB, err = a.str(fairswap.AttrAssetB); err != nil {
		return nil, err
	}
	if row.AmountB, err = a.u64(fairswap.AttrAmountB); err != nil {
		return nil, err
	}
	return row, nil
}

func (ix *Indexer) proposalSubmitted(tx *gorm.DB, a attributes, txHash string, height uint64) error {
	if seen, err := exists(tx, &ProposalRow{}, "created_tx", txHash); err != nil || seen {
		return err
	}
	row := ProposalRow{ID: uuid.New(), Status: ProposalPending, CreatedTx: txHash, CreatedHeight: height}
	var err error
	if row.Address, err = a.str(fairswap.AttrProposal); err != nil {
		return err
	}
	if row.Offer, err = a.str(fairswap.AttrOffer); err != nil {
		return err
	}
	if row.Buyer, err = a.str(fairswap.AttrBuyer); err != nil {
		return err
	}
	if row.ProposalID, err = a.u64(fairswap.AttrProposalID); err != nil {
		return err
	}
	if row.Asset, err = a.str(fairswap.AttrAssetB); err != nil {
		return err
	}
	if row.Amount, err = a.u64(fairswap.AttrAmountB); err != nil {
		return err
	}
	row.Seller = a[fairswap.AttrSeller]
	row.Vault = a[fairswap.AttrVault]
	return tx.Create(&row).Error
}
