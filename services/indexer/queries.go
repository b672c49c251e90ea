package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

var (
	ErrNotFound      = errors.New("indexer: not found")
	ErrInvalidFilter = errors.New("indexer: invalid filter")
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// Page bounds a list query. A zero Limit uses the default.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	db = db.Limit(clampLimit(p.Limit))
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	return db
}

// OfferFilter selects offers; empty fields match everything.
type OfferFilter struct {
	Status OfferStatus
	Seller string
	AssetA string
	AssetB string
	Page
}

// ProposalFilter selects proposals; empty fields match everything.
type ProposalFilter struct {
	Status ProposalStatus
	Offer  string
	Buyer  string
	Page
}

// SwapFilter selects settled swaps. Asset matches either leg.
type SwapFilter struct {
	Offer  string
	Buyer  string
	Seller string
	Asset  string
	Page
}

func validOfferStatus(s OfferStatus) bool {
	switch s {
	case "", OfferActive, OfferCancelled, OfferCompleted:
		return true
	}
	return false
}

func validProposalStatus(s ProposalStatus) bool {
	switch s {
	case "", ProposalPending, ProposalAccepted, ProposalWithdrawn:
		return true
	}
	return false
}

// Offers lists offers matching f, newest first.
func (ix *Indexer) Offers(ctx context.Context, f OfferFilter) ([]OfferRow, error) {
	if !validOfferStatus(f.Status) {
		return nil, fmt.Errorf("%w: offer status %q", ErrInvalidFilter, f.Status)
	}
	db := ix.db.WithContext(ctx).Model(&OfferRow{})
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.Seller != "" {
		db = db.Where("seller = ?", f.Seller)
	}
	if f.AssetA != "" {
		db = db.Where("asset_a = ?", f.AssetA)
	}
	if f.AssetB != "" {
		db = db.Where("asset_b = ?", f.AssetB)
	}
	var rows []OfferRow
	err := f.Page.apply(db.Order("created_height DESC")).Find(&rows).Error
	return rows, err
}

// Proposals lists proposals matching f, newest first.
func (ix *Indexer) Proposals(ctx context.Context, f ProposalFilter) ([]ProposalRow, error) {
	if !validProposalStatus(f.Status) {
		return nil, fmt.Errorf("%w: proposal status %q", ErrInvalidFilter, f.Status)
	}
	db := ix.db.WithContext(ctx).Model(&ProposalRow{})
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.Offer != "" {
		db = db.Where("offer = ?", f.Offer)
	}
	if f.Buyer != "" {
		db = db.Where("buyer = ?", f.Buyer)
	}
	var rows []ProposalRow
	err := f.Page.apply(db.Order("created_height DESC")).Find(&rows).Error
	return rows, err
}

// Swaps lists settled swaps matching f, newest first.
func (ix *Indexer) Swaps(ctx context.Context, f SwapFilter) ([]SwapRow, error) {
	db := ix.db.WithContext(ctx).Model(&SwapRow{})
	if f.Offer != "" {
		db = db.Where("offer = ?", f.Offer)
	}
	if f.Buyer != "" {
		db = db.Where("buyer = ?", f.Buyer)
	}
	if f.Seller != "" {
		db = db.Where("seller = ?", f.Seller)
	}
	if f.Asset != "" {
		db = db.Where("(asset_a = ? OR asset_b = ?)", f.Asset, f.Asset)
	}
	var rows []SwapRow
	err := f.Page.apply(db.Order("height DESC")).Find(&rows).Error
	return rows, err
}

// Proposal looks a proposal up by row id or by account address.
func (ix *Indexer) Proposal(ctx context.Context, id string) (*ProposalRow, error) {
	var row ProposalRow
	db := ix.db.WithContext(ctx)
	if rowID, err := uuid.Parse(id); err == nil {
		db = db.Where("id = ?", rowID)
	} else {
		db = db.Where("address = ?", id).Order("created_height DESC")
	}
	if err := db.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// Swap looks a swap up by row id or by settling transaction hash.
func (ix *Indexer) Swap(ctx context.Context, id string) (*SwapRow, error) {
	var row SwapRow
	db := ix.db.WithContext(ctx)
	if rowID, err := uuid.Parse(id); err == nil {
		db = db.Where("id = ?", rowID)
	} else {
		db = db.Where("tx_hash = ?", id)
	}
	if err := db.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// ActiveOffers returns open offers, newest first.
func (ix *Indexer) ActiveOffers(ctx context.Context, limit int) ([]OfferRow, error) {
	var rows []OfferRow
	err := ix.db.WithContext(ctx).
		Where("status = ?", OfferActive).
		Order("created_height DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	return rows, err
}

func (ix *Indexer) OffersBySeller(ctx context.Context, seller string, limit int) ([]OfferRow, error) {
	var rows []OfferRow
	err := ix.db.WithContext(ctx).
		Where("seller = ?", seller).
		Order("created_height DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	return rows, err
}

// Offer returns the most recent offer created at address.
func (ix *Indexer) Offer(ctx context.Context, address string) (*OfferRow, error) {
	var row OfferRow
	err := ix.db.WithContext(ctx).
		Where("address = ?", address).
		Order("created_height DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (ix *Indexer) ProposalsByOffer(ctx context.Context, offer string, limit int) ([]ProposalRow, error) {
	var rows []ProposalRow
	err := ix.db.WithContext(ctx).
		Where("offer = ?", offer).
		Order("created_height DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	return rows, err
}

func (ix *Indexer) ProposalsByBuyer(ctx context.Context, buyer string, limit int) ([]ProposalRow, error) {
	var rows []ProposalRow
	err := ix.db.WithContext(ctx).
		Where("buyer = ?", buyer).
		Order("created_height DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	return rows, err
}

func (ix *Indexer) PendingProposals(ctx context.Context, limit int) ([]ProposalRow, error) {
	var rows []ProposalRow
	err := ix.db.WithContext(ctx).
		Where("status = ?", ProposalPending).
		Order("created_height DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	return rows, err
}

func (ix *Indexer) RecentSwaps(ctx context.Context, limit int) ([]SwapRow, error) {
	var rows []SwapRow
	err := ix.db.WithContext(ctx).
		Order("height DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	return rows, err
}

func (ix *Indexer) SwapsByBuyer(ctx context.Context, buyer string, limit int) ([]SwapRow, error) {
	var rows []SwapRow
	err := ix.db.WithContext(ctx).
		Where("buyer = ?", buyer).
		Order("height DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	return rows, err
}

func (ix *Indexer) SwapsBySeller(ctx context.Context, seller string, limit int) ([]SwapRow, error) {
	var rows []SwapRow
	err := ix.db.WithContext(ctx).
		Where("seller = ?", seller).
		Order("height DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	return rows, err
}

// Stats summarises the read model.
type Stats struct {
	TotalSwaps       int64  `json:"totalSwaps"`
	ActiveOffers     int64  `json:"activeOffers"`
	PendingProposals int64  `json:"pendingProposals"`
	LastHeight       uint64 `json:"lastHeight"`
}

func (ix *Indexer) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	db := ix.db.WithContext(ctx)
	if err := db.Model(&SwapRow{}).Count(&stats.TotalSwaps).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&OfferRow{}).Where("status = ?", OfferActive).Count(&stats.ActiveOffers).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&ProposalRow{}).Where("status = ?", ProposalPending).Count(&stats.PendingProposals).Error; err != nil {
		return stats, err
	}
	var cursor Cursor
	if err := db.Where("id = ?", cursorID).Limit(1).Find(&cursor).Error; err != nil {
		return stats, err
	}
	stats.LastHeight = cursor.Height
	return stats, nil
}
