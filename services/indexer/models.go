package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OfferStatus tracks an offer row through its lifecycle.
type OfferStatus string

const (
	OfferActive    OfferStatus = "active"
	OfferCancelled OfferStatus = "cancelled"
	OfferCompleted OfferStatus = "completed"
)

type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalAccepted  ProposalStatus = "accepted"
	ProposalWithdrawn ProposalStatus = "withdrawn"
)

// OfferRow is one offer lifetime, keyed by the creating transaction.
type OfferRow struct {
	ID                uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Address           string      `gorm:"size:80;index" json:"address"`
	OfferID           uint64      `gorm:"index" json:"offerId"`
	Seller            string      `gorm:"size:80;index" json:"seller"`
	Vault             string      `gorm:"size:80" json:"vault"`
	AssetA            string      `gorm:"size:16" json:"assetA"`
	AmountA           uint64      `json:"amountA"`
	AssetB            string      `gorm:"size:16" json:"assetB"`
	AmountB           uint64      `json:"amountB"`
	AllowAlternatives bool        `json:"allowAlternatives"`
	Status            OfferStatus `gorm:"size:16;index" json:"status"`
	CreatedTx         string      `gorm:"size:66;uniqueIndex" json:"createdTx"`
	CreatedHeight     uint64      `json:"createdHeight"`
	ClosedTx          string      `gorm:"size:66" json:"closedTx,omitempty"`
	ClosedHeight      uint64      `json:"closedHeight,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

type ProposalRow struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Address       string         `gorm:"size:80;index" json:"address"`
	Offer         string         `gorm:"size:80;index" json:"offer"`
	ProposalID    uint64         `json:"proposalId"`
	Buyer         string         `gorm:"size:80;index" json:"buyer"`
	Seller        string         `gorm:"size:80" json:"seller"`
	Vault         string         `gorm:"size:80" json:"vault"`
	Asset         string         `gorm:"size:16" json:"asset"`
	Amount        uint64         `json:"amount"`
	Status        ProposalStatus `gorm:"size:16;index" json:"status"`
	CreatedTx     string         `gorm:"size:66;uniqueIndex" json:"createdTx"`
	CreatedHeight uint64         `json:"createdHeight"`
	ClosedTx      string         `gorm:"size:66" json:"closedTx,omitempty"`
	ClosedHeight  uint64         `json:"closedHeight,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// SwapRow records a settlement. Proposal is nil for direct swaps.
type SwapRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Offer      string    `gorm:"size:80;index" json:"offer"`
	Proposal   *string   `gorm:"size:80" json:"proposal,omitempty"`
	Buyer      string    `gorm:"size:80;index" json:"buyer"`
	Seller     string    `gorm:"size:80;index" json:"seller"`
	AssetA     string    `gorm:"size:16" json:"assetA"`
	AmountA    uint64    `json:"amountA"`
	AssetB     string    `gorm:"size:16" json:"assetB"`
	AmountB    uint64    `json:"amountB"`
	TxHash     string    `gorm:"size:66;uniqueIndex" json:"txHash"`
	Height     uint64    `gorm:"index" json:"height"`
	ExecutedAt time.Time `gorm:"index" json:"executedAt"`
}

// Cursor holds the last ledger height the indexer applied.
type Cursor struct {
	ID        uint   `gorm:"primaryKey"`
	Height    uint64 `gorm:"not null"`
	TxHash    string `gorm:"size:66"`
	UpdatedAt time.Time
}

const cursorID = 1

// AutoMigrate creates or updates the indexer tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&OfferRow{}, &ProposalRow{}, &SwapRow{}, &Cursor{})
}
