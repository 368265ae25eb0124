package journal

import (
	"math"
	"sort"
	"time"

	"forex-journal-go/internal/models"
)

// Summary holds the headline counts for a trade set.
type Summary struct {
	TotalTrades     int     `json:"total_trades"`
	OpenTrades      int     `json:"open_trades"`
	ClosedTrades    int     `json:"closed_trades"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	WinRate         float64 `json:"win_rate"`
	TotalProfitLoss float64 `json:"total_profit_loss"`
}

// Performance holds per-outcome averages and the profit factor.
// ProfitFactor is nil when there are no losing trades; reporting
// infinity would be meaningless.
type Performance struct {
	AverageProfitPerWin float64  `json:"average_profit_per_win"`
	AverageLossPerLoss  float64  `json:"average_loss_per_loss"`
	ProfitFactor        *float64 `json:"profit_factor"`
}

// SideStats holds per-direction performance.
type SideStats struct {
	Trades          int     `json:"total_trades"`
	Wins            int     `json:"wins"`
	WinRate         float64 `json:"win_rate"`
	TotalProfitLoss float64 `json:"total_pl"`
}

// BestSide compares LONG against SHORT performance. Side is empty when
// no closed trades exist.
type BestSide struct {
	Side  string    `json:"side,omitempty"`
	Long  SideStats `json:"long_stats"`
	Short SideStats `json:"short_stats"`
}

// GroupStats holds performance for one timeframe or strategy group.
type GroupStats struct {
	Key             string  `json:"key"`
	Trades          int     `json:"total_trades"`
	Wins            int     `json:"wins"`
	WinRate         float64 `json:"win_rate"`
	TotalProfitLoss float64 `json:"total_pl"`
}

// GroupPerformance ranks the groups of one dimension. Best is the key
// of the top-ranked group, empty when no group has a closed trade.
type GroupPerformance struct {
	Best   string       `json:"best,omitempty"`
	Groups []GroupStats `json:"groups"`
}

// LotImpact compares position sizing between winning and losing trades.
type LotImpact struct {
	AverageLotWins   float64 `json:"average_lot_size_wins"`
	AverageLotLosses float64 `json:"average_lot_size_losses"`
	Difference       float64 `json:"difference"`
}

// RiskRewardAnalysis compares the planned risk:reward of winning trades
// against losing ones. An average is nil when no closed trade on that
// side carries a ratio.
type RiskRewardAnalysis struct {
	AverageWins   *float64 `json:"average_rr_winning_trades"`
	AverageLosses *float64 `json:"average_rr_losing_trades"`
}

// ComboStats holds performance for one (timeframe, strategy) pair.
type ComboStats struct {
	Timeframe       string  `json:"timeframe"`
	Strategy        string  `json:"strategy"`
	Trades          int     `json:"total_trades"`
	Wins            int     `json:"wins"`
	WinRate         float64 `json:"win_rate"`
	TotalProfitLoss float64 `json:"total_pl"`
}

// InsightReport is the full analytics output for one trade set.
type InsightReport struct {
	Summary          Summary            `json:"summary"`
	Performance      Performance        `json:"performance_metrics"`
	BestSide         BestSide           `json:"best_performing_side"`
	LotImpact        LotImpact          `json:"lot_size_impact"`
	Timeframes       GroupPerformance   `json:"timeframe_performance"`
	Strategies       GroupPerformance   `json:"strategy_performance"`
	RiskReward       RiskRewardAnalysis `json:"risk_reward_analysis"`
	BestCombinations []ComboStats       `json:"best_combinations"`
}

const maxCombinations = 5

// Aggregate computes an InsightReport over the user's trades and
// outcomes after applying the filters. A trade counts as closed exactly
// when an outcome references it. An empty trade set yields a zeroed
// report, never an error.
func Aggregate(trades []models.Trade, outcomes []models.Outcome, f Filters, now time.Time) (*InsightReport, error) {
	filtered, err := f.Apply(trades, now)
	if err != nil {
		return nil, err
	}

	byTrade := make(map[uint]models.Outcome, len(outcomes))
	for _, o := range outcomes {
		byTrade[o.TradeID] = o
	}

	report := &InsightReport{
		Timeframes:       GroupPerformance{Groups: []GroupStats{}},
		Strategies:       GroupPerformance{Groups: []GroupStats{}},
		BestCombinations: []ComboStats{},
	}

	var grossProfit, grossLoss float64
	var lotWinSum, lotLossSum float64
	var rrWinSum, rrLossSum float64
	var rrWinCount, rrLossCount int
	sides := map[string]*SideStats{
		models.DirectionLong:  {},
		models.DirectionShort: {},
	}
	timeframes := make(map[string]*GroupStats)
	strategies := make(map[string]*GroupStats)
	combos := make(map[[2]string]*ComboStats)

	for _, t := range filtered {
		report.Summary.TotalTrades++
		outcome, closed := byTrade[t.ID]
		if !closed {
			report.Summary.OpenTrades++
			continue
		}
		report.Summary.ClosedTrades++
		report.Summary.TotalProfitLoss += outcome.ProfitLoss

		win := outcome.Result == models.ResultWin
		if win {
			report.Summary.Wins++
			grossProfit += outcome.ProfitLoss
			lotWinSum += t.LotSize
			if t.RiskReward != nil {
				rrWinSum += *t.RiskReward
				rrWinCount++
			}
		} else {
			report.Summary.Losses++
			grossLoss += outcome.ProfitLoss
			lotLossSum += t.LotSize
			if t.RiskReward != nil {
				rrLossSum += *t.RiskReward
				rrLossCount++
			}
		}

		if s, ok := sides[t.Direction]; ok {
			s.Trades++
			s.TotalProfitLoss += outcome.ProfitLoss
			if win {
				s.Wins++
			}
		}
		if t.Timeframe != "" {
			tallyGroup(timeframes, t.Timeframe, outcome.ProfitLoss, win)
		}
		if t.Strategy != "" {
			tallyGroup(strategies, t.Strategy, outcome.ProfitLoss, win)
		}
		if t.Timeframe != "" && t.Strategy != "" {
			key := [2]string{t.Timeframe, t.Strategy}
			c, ok := combos[key]
			if !ok {
				c = &ComboStats{Timeframe: t.Timeframe, Strategy: t.Strategy}
				combos[key] = c
			}
			c.Trades++
			c.TotalProfitLoss += outcome.ProfitLoss
			if win {
				c.Wins++
			}
		}
	}

	report.Summary.WinRate = winRate(report.Summary.Wins, report.Summary.ClosedTrades)
	report.Summary.TotalProfitLoss = round2(report.Summary.TotalProfitLoss)

	if report.Summary.Wins > 0 {
		report.Performance.AverageProfitPerWin = round2(grossProfit / float64(report.Summary.Wins))
	}
	if report.Summary.Losses > 0 {
		report.Performance.AverageLossPerLoss = round2(grossLoss / float64(report.Summary.Losses))
		factor := round2(grossProfit / math.Abs(grossLoss))
		report.Performance.ProfitFactor = &factor
	}

	if report.Summary.Wins > 0 {
		report.LotImpact.AverageLotWins = round2(lotWinSum / float64(report.Summary.Wins))
	}
	if report.Summary.Losses > 0 {
		report.LotImpact.AverageLotLosses = round2(lotLossSum / float64(report.Summary.Losses))
	}
	report.LotImpact.Difference = round2(report.LotImpact.AverageLotWins - report.LotImpact.AverageLotLosses)

	if rrWinCount > 0 {
		avg := round2(rrWinSum / float64(rrWinCount))
		report.RiskReward.AverageWins = &avg
	}
	if rrLossCount > 0 {
		avg := round2(rrLossSum / float64(rrLossCount))
		report.RiskReward.AverageLosses = &avg
	}

	report.BestSide = bestSide(sides)
	report.Timeframes = rankGroups(timeframes)
	report.Strategies = rankGroups(strategies)
	report.BestCombinations = rankCombos(combos)

	return report, nil
}

func tallyGroup(groups map[string]*GroupStats, key string, profitLoss float64, win bool) {
	g, ok := groups[key]
	if !ok {
		g = &GroupStats{Key: key}
		groups[key] = g
	}
	g.Trades++
	g.TotalProfitLoss += profitLoss
	if win {
		g.Wins++
	}
}

// groupLess is the total order over groups: win rate descending, then
// total P/L descending, then key ascending so that ties are stable
// across runs.
func groupLess(a, b GroupStats) bool {
	if a.WinRate != b.WinRate {
		return a.WinRate > b.WinRate
	}
	if a.TotalProfitLoss != b.TotalProfitLoss {
		return a.TotalProfitLoss > b.TotalProfitLoss
	}
	return a.Key < b.Key
}

func rankGroups(groups map[string]*GroupStats) GroupPerformance {
	ranked := make([]GroupStats, 0, len(groups))
	for _, g := range groups {
		g.WinRate = winRate(g.Wins, g.Trades)
		g.TotalProfitLoss = round2(g.TotalProfitLoss)
		ranked = append(ranked, *g)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return groupLess(ranked[i], ranked[j]) })

	perf := GroupPerformance{Groups: ranked}
	if len(ranked) > 0 {
		perf.Best = ranked[0].Key
	}
	return perf
}

func rankCombos(combos map[[2]string]*ComboStats) []ComboStats {
	ranked := make([]ComboStats, 0, len(combos))
	for _, c := range combos {
		c.WinRate = winRate(c.Wins, c.Trades)
		c.TotalProfitLoss = round2(c.TotalProfitLoss)
		ranked = append(ranked, *c)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		return groupLess(
			GroupStats{Key: a.Timeframe + "|" + a.Strategy, WinRate: a.WinRate, TotalProfitLoss: a.TotalProfitLoss},
			GroupStats{Key: b.Timeframe + "|" + b.Strategy, WinRate: b.WinRate, TotalProfitLoss: b.TotalProfitLoss},
		)
	})
	if len(ranked) > maxCombinations {
		ranked = ranked[:maxCombinations]
	}
	return ranked
}

func bestSide(sides map[string]*SideStats) BestSide {
	long := *sides[models.DirectionLong]
	short := *sides[models.DirectionShort]
	long.WinRate = winRate(long.Wins, long.Trades)
	long.TotalProfitLoss = round2(long.TotalProfitLoss)
	short.WinRate = winRate(short.Wins, short.Trades)
	short.TotalProfitLoss = round2(short.TotalProfitLoss)

	best := BestSide{Long: long, Short: short}
	switch {
	case long.Trades == 0 && short.Trades == 0:
		// No closed trades on either side; leave Side empty.
	case short.Trades == 0:
		best.Side = models.DirectionLong
	case long.Trades == 0:
		best.Side = models.DirectionShort
	case groupLess(
		GroupStats{Key: models.DirectionShort, WinRate: short.WinRate, TotalProfitLoss: short.TotalProfitLoss},
		GroupStats{Key: models.DirectionLong, WinRate: long.WinRate, TotalProfitLoss: long.TotalProfitLoss},
	):
		// SHORT strictly outranks LONG; the key tiebreak keeps LONG
		// first on full ties because "LONG" < "SHORT".
		best.Side = models.DirectionShort
	default:
		best.Side = models.DirectionLong
	}
	return best
}

// winRate returns wins over total as a percentage, 0 for an empty set.
func winRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(wins) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
