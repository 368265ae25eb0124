package journal

import (
	"fmt"
	"math"

	"forex-journal-go/internal/models"
)

// DefaultContractMultiplier converts a price move into currency per lot.
// For XAU/USD a 0.01 lot earns $1 per $1 move, so P/L = move * lot * 100.
const DefaultContractMultiplier = 100.0

// Settlement is the computed close of a trade. The caller persists the
// matching Outcome and status transition as one atomic write.
type Settlement struct {
	TradeID         uint    `json:"trade_id"`
	Result          string  `json:"result"`
	ExitPrice       float64 `json:"exit_price"`
	ProfitLoss      float64 `json:"profit_loss"`
	PreviousBalance float64 `json:"previous_balance"`
	NewBalance      float64 `json:"new_balance"`
}

// Close computes the realized profit or loss of an OPEN trade for the
// given result. A WIN settles at the take profit, a LOSS at the stop
// loss; the sign is forced by the result, never by the price move.
func Close(trade *models.Trade, result string, multiplier float64) (*Settlement, error) {
	if result != models.ResultWin && result != models.ResultLoss {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidResult, result)
	}
	if trade.Status == models.StatusClosed {
		return nil, fmt.Errorf("%w: trade #%d", ErrTradeAlreadyClosed, trade.ID)
	}
	if multiplier <= 0 {
		multiplier = DefaultContractMultiplier
	}

	var exit float64
	if result == models.ResultWin {
		if trade.TakeProfit == nil {
			return nil, fmt.Errorf("%w: trade #%d has no take profit", ErrIncompleteTradeData, trade.ID)
		}
		exit = *trade.TakeProfit
	} else {
		if trade.StopLoss == nil {
			return nil, fmt.Errorf("%w: trade #%d has no stop loss", ErrIncompleteTradeData, trade.ID)
		}
		exit = *trade.StopLoss
	}

	magnitude := math.Abs(exit-trade.EntryPrice) * trade.LotSize * multiplier
	profitLoss := magnitude
	if result == models.ResultLoss {
		profitLoss = -magnitude
	}

	return &Settlement{
		TradeID:         trade.ID,
		Result:          result,
		ExitPrice:       exit,
		ProfitLoss:      profitLoss,
		PreviousBalance: trade.Balance,
		NewBalance:      trade.Balance + profitLoss,
	}, nil
}

// RiskReward returns the reward distance divided by the risk distance,
// or nil when either protective level is missing or the risk distance
// is zero.
func RiskReward(trade *models.Trade) *float64 {
	if trade.TakeProfit == nil || trade.StopLoss == nil {
		return nil
	}
	reward := math.Abs(*trade.TakeProfit - trade.EntryPrice)
	risk := math.Abs(trade.EntryPrice - *trade.StopLoss)
	if risk == 0 {
		return nil
	}
	ratio := reward / risk
	return &ratio
}

// RiskedAmount returns the currency amount lost if the trade's stop is
// hit, or nil when no stop loss is set.
func RiskedAmount(trade *models.Trade, multiplier float64) *float64 {
	if trade.StopLoss == nil {
		return nil
	}
	if multiplier <= 0 {
		multiplier = DefaultContractMultiplier
	}
	amount := math.Abs(trade.EntryPrice-*trade.StopLoss) * trade.LotSize * multiplier
	return &amount
}
