package journal

import (
	"fmt"
	"sort"
	"time"

	"forex-journal-go/internal/models"
)

// Severity grades an alert. Higher grades sort first in evaluator output.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Alert types, in detection order.
const (
	AlertConsecutiveLosses = "CONSECUTIVE_LOSSES"
	AlertRevengeTrading    = "REVENGE_TRADING"
	AlertOverconfidence    = "OVERCONFIDENCE"
	AlertOvertrading       = "OVERTRADING"
	AlertHighRiskPerTrade  = "HIGH_RISK_PER_TRADE"
	AlertDrawdown          = "DRAWDOWN"
	AlertEmotional         = "EMOTIONAL"
	AlertPoorRiskReward    = "POOR_RISK_REWARD"
	AlertMissingStopLoss   = "MISSING_STOP_LOSS"
	AlertAccountRisk       = "ACCOUNT_RISK_PERCENTAGE"
)

// Alert is one triggered risk rule. Computed fresh on every evaluation;
// persistence and acknowledgement belong to the caller.
type Alert struct {
	Type           string         `json:"alert_type"`
	Severity       Severity       `json:"severity"`
	Message        string         `json:"message"`
	Recommendation string         `json:"recommendation,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
}

// ClosedTrade pairs a trade with its outcome.
type ClosedTrade struct {
	Trade   models.Trade
	Outcome models.Outcome
}

// RiskConfig holds the thresholds the rules evaluate against.
type RiskConfig struct {
	RecentTradesCount         int
	ConsecutiveLossThreshold  int
	MaxTradesPerHour          int
	MaxRiskPerTradePercent    float64
	DrawdownThresholdPercent  float64
	AccountRiskCeilingPercent float64
	ContractMultiplier        float64
}

// DefaultRiskConfig returns the stock thresholds.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		RecentTradesCount:         10,
		ConsecutiveLossThreshold:  3,
		MaxTradesPerHour:          5,
		MaxRiskPerTradePercent:    2.0,
		DrawdownThresholdPercent:  10.0,
		AccountRiskCeilingPercent: 10.0,
		ContractMultiplier:        DefaultContractMultiplier,
	}
}

// Validate rejects thresholds that would make the rules meaningless.
func (c RiskConfig) Validate() error {
	if c.RecentTradesCount <= 0 {
		return fmt.Errorf("%w: recent trades count must be positive, got %d", ErrConfiguration, c.RecentTradesCount)
	}
	if c.ConsecutiveLossThreshold <= 0 {
		return fmt.Errorf("%w: consecutive loss threshold must be positive, got %d", ErrConfiguration, c.ConsecutiveLossThreshold)
	}
	if c.MaxTradesPerHour <= 0 {
		return fmt.Errorf("%w: max trades per hour must be positive, got %d", ErrConfiguration, c.MaxTradesPerHour)
	}
	if c.MaxRiskPerTradePercent <= 0 {
		return fmt.Errorf("%w: max risk per trade must be a positive percentage, got %.2f", ErrConfiguration, c.MaxRiskPerTradePercent)
	}
	if c.DrawdownThresholdPercent <= 0 {
		return fmt.Errorf("%w: drawdown threshold must be a positive percentage, got %.2f", ErrConfiguration, c.DrawdownThresholdPercent)
	}
	if c.AccountRiskCeilingPercent <= 0 {
		return fmt.Errorf("%w: account risk ceiling must be a positive percentage, got %.2f", ErrConfiguration, c.AccountRiskCeilingPercent)
	}
	return nil
}

// window is the shared snapshot every rule sees. Closed is ordered
// most-recent-first; Open holds the user's open positions.
type window struct {
	Closed []ClosedTrade
	Open   []models.Trade
	Cfg    RiskConfig
}

// scanDepth bounds the per-trade rules to the freshest part of the
// window so one old sloppy trade does not alert forever.
const (
	closedScanDepth = 5
	openScanDepth   = 3
	revengeWindow   = 5 * time.Minute
)

type ruleFunc func(w window) *Alert

// EvaluateRisk runs every rule over the snapshot and returns the
// triggered alerts grouped by severity descending; within one severity
// the detection order of the rules is preserved. An empty history
// yields an empty list, not an error.
func EvaluateRisk(closed []ClosedTrade, open []models.Trade, cfg RiskConfig) ([]Alert, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(closed) > cfg.RecentTradesCount {
		closed = closed[:cfg.RecentTradesCount]
	}

	w := window{Closed: closed, Open: open, Cfg: cfg}
	rules := []ruleFunc{
		checkConsecutiveLosses,
		checkRevengeTrading,
		checkOverconfidence,
		checkOvertrading,
		checkRiskPerTrade,
		checkDrawdown,
		checkEmotional,
		checkRiskReward,
		checkMissingStopLoss,
		checkAccountRisk,
	}

	alerts := make([]Alert, 0)
	for _, rule := range rules {
		if a := rule(w); a != nil {
			alerts = append(alerts, *a)
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.rank() > alerts[j].Severity.rank()
	})
	return alerts, nil
}

// checkConsecutiveLosses counts LOSS outcomes back from the most recent
// closed trade. 3+ is MEDIUM, 5+ HIGH, 8+ CRITICAL.
func checkConsecutiveLosses(w window) *Alert {
	streak := 0
	for _, ct := range w.Closed {
		if ct.Outcome.Result != models.ResultLoss {
			break
		}
		streak++
	}
	if streak < w.Cfg.ConsecutiveLossThreshold {
		return nil
	}

	severity := SeverityMedium
	if streak >= 8 {
		severity = SeverityCritical
	} else if streak >= 5 {
		severity = SeverityHigh
	}
	return &Alert{
		Type:           AlertConsecutiveLosses,
		Severity:       severity,
		Message:        fmt.Sprintf("%d consecutive losses detected.", streak),
		Recommendation: "Take a break and review your strategy before the next trade.",
		Details:        map[string]any{"consecutive_losses": streak, "threshold": w.Cfg.ConsecutiveLossThreshold},
	}
}

// checkRevengeTrading looks for a trade opened shortly after a loss was
// realized, with a larger lot size than the losing trade.
func checkRevengeTrading(w window) *Alert {
	for i := 0; i+1 < len(w.Closed); i++ {
		cur, prev := w.Closed[i], w.Closed[i+1]
		if prev.Outcome.Result != models.ResultLoss {
			continue
		}
		sinceLoss := cur.Trade.CreatedAt.Sub(prev.Outcome.CreatedAt)
		if sinceLoss < 0 || sinceLoss >= revengeWindow {
			continue
		}
		if cur.Trade.LotSize <= prev.Trade.LotSize {
			continue
		}
		return &Alert{
			Type:           AlertRevengeTrading,
			Severity:       SeverityHigh,
			Message:        fmt.Sprintf("New trade opened %.1f minutes after a loss, with a larger lot size.", sinceLoss.Minutes()),
			Recommendation: "Wait and analyze before re-entering the market after a loss.",
			Details: map[string]any{
				"minutes_since_loss": round2(sinceLoss.Minutes()),
				"lot_size":           cur.Trade.LotSize,
				"previous_lot_size":  prev.Trade.LotSize,
			},
		}
	}
	return nil
}

// checkOverconfidence flags a winning streak with escalating lot sizes:
// three or more wins in the last five closed trades, with the newest
// winning lot more than 20% above the oldest.
func checkOverconfidence(w window) *Alert {
	var wins []ClosedTrade
	for _, ct := range w.Closed[:minInt(closedScanDepth, len(w.Closed))] {
		if ct.Outcome.Result == models.ResultWin {
			wins = append(wins, ct)
		}
	}
	if len(wins) < 3 {
		return nil
	}

	newest, oldest := wins[0].Trade.LotSize, wins[len(wins)-1].Trade.LotSize
	if oldest <= 0 || newest <= oldest*1.2 {
		return nil
	}
	increase := (newest/oldest - 1) * 100
	return &Alert{
		Type:           AlertOverconfidence,
		Severity:       SeverityMedium,
		Message:        fmt.Sprintf("Winning streak with lot sizes up %.1f%%.", increase),
		Recommendation: "Maintain consistent position sizing regardless of recent results.",
		Details:        map[string]any{"win_streak": len(wins), "lot_size_increase_percent": round2(increase)},
	}
}

// checkOvertrading slides a half-open one hour window [t, t+1h) over
// the open times of every trade in the snapshot, oldest first, and
// fires once if any window holds more than the configured maximum.
func checkOvertrading(w window) *Alert {
	times := make([]time.Time, 0, len(w.Closed)+len(w.Open))
	for _, ct := range w.Closed {
		times = append(times, ct.Trade.CreatedAt)
	}
	for _, t := range w.Open {
		times = append(times, t.CreatedAt)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	for i, anchor := range times {
		count := 0
		for _, t := range times[i:] {
			if t.Sub(anchor) < time.Hour {
				count++
			}
		}
		if count > w.Cfg.MaxTradesPerHour {
			return &Alert{
				Type:           AlertOvertrading,
				Severity:       SeverityHigh,
				Message:        fmt.Sprintf("%d trades opened within one hour (limit %d).", count, w.Cfg.MaxTradesPerHour),
				Recommendation: "Slow down and be more selective with entries.",
				Details:        map[string]any{"trades_in_hour": count, "max_trades_per_hour": w.Cfg.MaxTradesPerHour},
			}
		}
	}
	return nil
}

// checkRiskPerTrade flags the first recent trade whose stop-loss risk
// exceeds the configured percentage of its balance at entry.
func checkRiskPerTrade(w window) *Alert {
	for _, t := range scannableTrades(w) {
		if t.Balance <= 0 {
			continue
		}
		risked := RiskedAmount(&t, w.Cfg.ContractMultiplier)
		if risked == nil {
			continue
		}
		percent := *risked / t.Balance * 100
		if percent <= w.Cfg.MaxRiskPerTradePercent {
			continue
		}
		severity := SeverityHigh
		if percent > 5.0 {
			severity = SeverityCritical
		}
		return &Alert{
			Type:           AlertHighRiskPerTrade,
			Severity:       severity,
			Message:        fmt.Sprintf("%.2f%% of balance at risk on a single trade (limit %.2f%%).", percent, w.Cfg.MaxRiskPerTradePercent),
			Recommendation: "Reduce the lot size or widen the stop loss.",
			Details:        map[string]any{"risk_percent": round2(percent), "risk_amount": round2(*risked), "trade_id": t.ID},
		}
	}
	return nil
}

// checkDrawdown walks the balance-at-entry sequence in chronological
// order plus the final settled balance, tracking the running peak. The
// peak never resets within the window.
func checkDrawdown(w window) *Alert {
	if len(w.Closed) < 2 {
		return nil
	}

	balances := make([]float64, 0, len(w.Closed)+1)
	for i := len(w.Closed) - 1; i >= 0; i-- { // oldest first
		balances = append(balances, w.Closed[i].Trade.Balance)
	}
	latest := w.Closed[0]
	balances = append(balances, latest.Trade.Balance+latest.Outcome.ProfitLoss)

	peak, current := balances[0], balances[len(balances)-1]
	for _, b := range balances {
		if b > peak {
			peak = b
		}
	}
	if peak <= 0 {
		return nil
	}
	drawdown := (peak - current) / peak * 100
	if drawdown < w.Cfg.DrawdownThresholdPercent {
		return nil
	}

	severity := SeverityHigh
	if drawdown > 20.0 {
		severity = SeverityCritical
	}
	return &Alert{
		Type:           AlertDrawdown,
		Severity:       severity,
		Message:        fmt.Sprintf("Balance is down %.2f%% from its recent peak.", drawdown),
		Recommendation: "Reduce risk or step away until the account stabilizes.",
		Details:        map[string]any{"drawdown_percent": round2(drawdown), "peak_balance": peak, "current_balance": current},
	}
}

// checkEmotional flags a heavy loss cluster: four or more losses within
// the last five closed trades.
func checkEmotional(w window) *Alert {
	recent := w.Closed[:minInt(closedScanDepth, len(w.Closed))]
	if len(recent) < closedScanDepth {
		return nil
	}
	losses, wins := 0, 0
	for _, ct := range recent {
		if ct.Outcome.Result == models.ResultLoss {
			losses++
		} else {
			wins++
		}
	}
	if losses < 4 {
		return nil
	}
	return &Alert{
		Type:           AlertEmotional,
		Severity:       SeverityHigh,
		Message:        fmt.Sprintf("%d of the last %d trades were losses.", losses, len(recent)),
		Recommendation: "Pause trading and review your emotional state.",
		Details:        map[string]any{"recent_losses": losses, "recent_wins": wins},
	}
}

// checkRiskReward flags recent trades whose reward does not cover the
// risk (ratio below 1:1 with both levels set).
func checkRiskReward(w window) *Alert {
	var poor []uint
	for _, t := range scannableTrades(w) {
		ratio := RiskReward(&t)
		if ratio != nil && *ratio < 1.0 {
			poor = append(poor, t.ID)
		}
	}
	if len(poor) == 0 {
		return nil
	}
	return &Alert{
		Type:           AlertPoorRiskReward,
		Severity:       SeverityMedium,
		Message:        fmt.Sprintf("%d trade(s) with risk:reward worse than 1:1.", len(poor)),
		Recommendation: "Aim for at least 1:2 before entering.",
		Details:        map[string]any{"trade_ids": poor},
	}
}

// checkMissingStopLoss flags recent trades without a protective stop.
func checkMissingStopLoss(w window) *Alert {
	var missing []uint
	for _, t := range scannableTrades(w) {
		if t.StopLoss == nil {
			missing = append(missing, t.ID)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &Alert{
		Type:           AlertMissingStopLoss,
		Severity:       SeverityCritical,
		Message:        fmt.Sprintf("%d trade(s) without a stop loss.", len(missing)),
		Recommendation: "Always set a stop loss to protect your capital.",
		Details:        map[string]any{"trade_ids": missing},
	}
}

// checkAccountRisk sums the stop-loss risk across all open positions
// and compares it to the most recent balance at entry.
func checkAccountRisk(w window) *Alert {
	if len(w.Open) == 0 {
		return nil
	}
	balance := w.Open[0].Balance
	if balance <= 0 {
		return nil
	}

	var total float64
	for _, t := range w.Open {
		if risked := RiskedAmount(&t, w.Cfg.ContractMultiplier); risked != nil {
			total += *risked
		}
	}
	percent := total / balance * 100
	if percent <= w.Cfg.AccountRiskCeilingPercent {
		return nil
	}

	severity := SeverityHigh
	if percent > 2*w.Cfg.AccountRiskCeilingPercent {
		severity = SeverityCritical
	}
	return &Alert{
		Type:           AlertAccountRisk,
		Severity:       severity,
		Message:        fmt.Sprintf("%.2f%% of balance at risk across %d open trade(s).", percent, len(w.Open)),
		Recommendation: "Consider reducing open positions.",
		Details:        map[string]any{"total_risk_percent": round2(percent), "total_risk_amount": round2(total), "open_trades": len(w.Open)},
	}
}

// scannableTrades is the shared per-trade view: the freshest closed
// trades followed by the freshest open ones.
func scannableTrades(w window) []models.Trade {
	trades := make([]models.Trade, 0, closedScanDepth+openScanDepth)
	for _, ct := range w.Closed[:minInt(closedScanDepth, len(w.Closed))] {
		trades = append(trades, ct.Trade)
	}
	for _, t := range w.Open[:minInt(openScanDepth, len(w.Open))] {
		trades = append(trades, t)
	}
	return trades
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
