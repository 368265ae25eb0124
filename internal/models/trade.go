package models

import "gorm.io/gorm"

// Trade direction and lifecycle values.
const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"

	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Trade represents one opened position in a user's journal.
// Balance is the account balance at the moment the trade was opened,
// not a running total.
type Trade struct {
	gorm.Model
	UserID     string   `gorm:"index;not null" json:"user_id"`
	EntryPrice float64  `gorm:"not null" json:"entry_price"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	LotSize    float64  `gorm:"not null" json:"lot_size"`
	Balance    float64  `gorm:"not null" json:"balance"`
	Direction  string   `gorm:"not null" json:"direction"` // "LONG" or "SHORT"
	Instrument string   `json:"instrument"`
	Timeframe  string   `json:"timeframe,omitempty"`
	Style      string   `json:"trade_style,omitempty"`
	Strategy   string   `json:"strategy,omitempty"`
	RiskReward *float64 `json:"risk_reward,omitempty"` // reward distance / risk distance
	Status     string   `gorm:"default:OPEN" json:"status"`
	Notes      string   `json:"notes,omitempty"`
}
