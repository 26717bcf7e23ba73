package models

import (
	"gorm.io/gorm"
)

// Token is an ERC-20 token seen while syncing pairs
type Token struct {
	gorm.Model
	TokenID  string `gorm:"size:36;uniqueIndex;not null"`
	Address  string `gorm:"size:42;index:idx_token_chain_address;not null"`
	ChainID  int64  `gorm:"index:idx_token_chain_address;not null"`
	Name     string
	Symbol   string `gorm:"size:32;index"`
	Decimals int    `gorm:"not null"`
}
