package models

import "gorm.io/gorm"

// Outcome result values.
const (
	ResultWin  = "WIN"
	ResultLoss = "LOSS"
)

// Outcome records the realized result of a closed trade.
// A trade is CLOSED exactly when one Outcome row references it; the
// unique index on TradeID enforces the at-most-once transition.
type Outcome struct {
	gorm.Model
	UserID     string  `gorm:"index;not null" json:"user_id"`
	TradeID    uint    `gorm:"uniqueIndex;not null" json:"trade_id"`
	Result     string  `gorm:"not null" json:"result"` // "WIN" or "LOSS"
	ProfitLoss float64 `json:"profit_loss"`
	Notes      string  `json:"notes,omitempty"`
}
