package models

import (
	"time"

	"gorm.io/gorm"
)

// Pair is a DEX liquidity pair whose swap history is synced
type Pair struct {
	gorm.Model
	Address         string `gorm:"size:42;uniqueIndex:idx_pair_chain_address;not null"`
	ChainID         int64  `gorm:"uniqueIndex:idx_pair_chain_address;not null"`
	FactoryAddress  string `gorm:"size:42;index"`
	Token0ID        uint   `gorm:"index;not null"`
	Token1ID        uint   `gorm:"index;not null"`
	PairIndex       int64
	FeePercentage   *float64
	BlockNumber     uint64
	TransactionHash string `gorm:"size:66"`
	LastSyncedAt    *time.Time

	// Relationships
	Token0    Token          `gorm:"foreignKey:Token0ID"`
	Token1    Token          `gorm:"foreignKey:Token1ID"`
	Intervals []SwapInterval `gorm:"foreignKey:PairID"`
}

// SwapInterval is one aggregated price bucket of a pair's swap feed
type SwapInterval struct {
	gorm.Model
	PairID    uint      `gorm:"uniqueIndex:idx_interval_pair_start;not null"`
	Start     time.Time `gorm:"uniqueIndex:idx_interval_pair_start;not null"`
	Open      float64
	Close     float64
	Min       float64
	Max       float64
	MinBlock  uint64 `gorm:"index"`
	MaxBlock  uint64
	TxCount   int64
	PrevClose float64

	Pair Pair `gorm:"foreignKey:PairID"`
}
