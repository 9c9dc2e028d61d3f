package indexer

import (
	"time"

	"gorm.io/gorm"
)

// RequestRow mirrors one mint request.
type RequestRow struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement:false"`
	Requester   string `gorm:"size:42;index"`
	Paid        string `gorm:"not null"`
	Fulfilled   bool   `gorm:"index"`
	AssetID     *uint64
	Sequence    uint64
	IndexedAt   time.Time
	FulfilledAt *time.Time
}

// TableName implements gorm's tabler.
func (RequestRow) TableName() string { return "randomnft_requests" }

// AssetRow mirrors one minted asset.
type AssetRow struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement:false"`
	RequestID uint64 `gorm:"uniqueIndex"`
	Owner     string `gorm:"size:42;index"`
	Category  uint8  `gorm:"index"`
	URI       string
	Sequence  uint64
	MintedAt  time.Time
}

// TableName implements gorm's tabler.
func (AssetRow) TableName() string { return "randomnft_assets" }

// WithdrawalRow records one treasury withdrawal.
type WithdrawalRow struct {
	ID        uint64 `gorm:"primaryKey"`
	Owner     string `gorm:"size:42;index"`
	Amount    string `gorm:"not null"`
	Sequence  uint64
	IndexedAt time.Time
}

// TableName implements gorm's tabler.
func (WithdrawalRow) TableName() string { return "randomnft_withdrawals" }

// AutoMigrate creates or updates the indexer tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&RequestRow{},
		&AssetRow{},
		&WithdrawalRow{},
	)
}
