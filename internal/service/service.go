package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"forex-journal-go/internal/config"
	"forex-journal-go/internal/journal"
	"forex-journal-go/internal/models"
	"forex-journal-go/internal/notify"
	"forex-journal-go/internal/store"
	"go.uber.org/zap"
)

// Chart timeframes and trading styles accepted on save.
var (
	validTimeframes = map[string]bool{
		"1m": true, "3m": true, "5m": true, "10m": true, "15m": true,
		"30m": true, "1h": true, "2h": true, "4h": true, "1d": true,
	}
	validStyles = map[string]bool{
		"swing": true, "day trade": true, "scalp": true,
	}
)

// Service wires the store, the engine and the notifier into the four
// journal operations. It holds no per-user state; every call derives
// its answer from a fresh ledger snapshot.
type Service struct {
	logger   *zap.Logger
	cfg      *config.Config
	store    *store.Store
	notifier notify.Notifier
}

// New creates a Service.
func New(logger *zap.Logger, cfg *config.Config, st *store.Store, notifier notify.Notifier) *Service {
	return &Service{
		logger:   logger.Named("service"),
		cfg:      cfg,
		store:    st,
		notifier: notifier,
	}
}

// TradeRequest carries the parameters of a new trade entry.
type TradeRequest struct {
	EntryPrice float64  `json:"entry_price"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	LotSize    float64  `json:"lot_size"`
	Balance    float64  `json:"balance"`
	Direction  string   `json:"direction"`
	Instrument string   `json:"instrument,omitempty"`
	Timeframe  string   `json:"timeframe,omitempty"`
	Style      string   `json:"trade_style,omitempty"`
	Strategy   string   `json:"strategy,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// SavedTrade is the response to a save operation, including the P/L
// the protective levels would realize.
type SavedTrade struct {
	Trade           models.Trade `json:"trade"`
	PotentialProfit *float64     `json:"potential_profit,omitempty"`
	PotentialLoss   *float64     `json:"potential_loss,omitempty"`
}

// SaveTrade validates and persists a new OPEN trade for the user.
func (s *Service) SaveTrade(userID string, req TradeRequest) (*SavedTrade, error) {
	if err := s.validateTrade(req); err != nil {
		return nil, err
	}

	instrument := req.Instrument
	if instrument == "" {
		instrument = s.cfg.Journal.DefaultInstrument
	}

	trade := models.Trade{
		UserID:     userID,
		EntryPrice: req.EntryPrice,
		TakeProfit: req.TakeProfit,
		StopLoss:   req.StopLoss,
		LotSize:    req.LotSize,
		Balance:    req.Balance,
		Direction:  req.Direction,
		Instrument: instrument,
		Timeframe:  req.Timeframe,
		Style:      req.Style,
		Strategy:   req.Strategy,
		Notes:      req.Notes,
	}
	trade.RiskReward = journal.RiskReward(&trade)

	if err := s.store.SaveTrade(&trade); err != nil {
		return nil, err
	}

	s.logger.Info("Trade saved",
		zap.String("user_id", userID),
		zap.Uint("trade_id", trade.ID),
		zap.String("instrument", instrument),
		zap.String("direction", trade.Direction),
	)

	saved := &SavedTrade{Trade: trade}
	multiplier := s.cfg.Journal.ContractMultiplier
	if req.TakeProfit != nil {
		profit := math.Abs(*req.TakeProfit-req.EntryPrice) * req.LotSize * multiplier
		saved.PotentialProfit = &profit
	}
	if req.StopLoss != nil {
		loss := math.Abs(req.EntryPrice-*req.StopLoss) * req.LotSize * multiplier
		saved.PotentialLoss = &loss
	}
	return saved, nil
}

func (s *Service) validateTrade(req TradeRequest) error {
	if req.EntryPrice <= 0 {
		return fmt.Errorf("%w: entry price must be positive", journal.ErrInvalidTrade)
	}
	if req.Balance <= 0 {
		return fmt.Errorf("%w: balance must be positive", journal.ErrInvalidTrade)
	}
	if req.LotSize < s.cfg.Journal.MinLotSize || req.LotSize > s.cfg.Journal.MaxLotSize {
		return fmt.Errorf("%w: lot size must be between %.2f and %.2f",
			journal.ErrInvalidTrade, s.cfg.Journal.MinLotSize, s.cfg.Journal.MaxLotSize)
	}
	if req.Direction != models.DirectionLong && req.Direction != models.DirectionShort {
		return fmt.Errorf("%w: direction must be LONG or SHORT", journal.ErrInvalidTrade)
	}
	if req.Timeframe != "" && !validTimeframes[req.Timeframe] {
		return fmt.Errorf("%w: unknown timeframe", journal.ErrInvalidTrade)
	}
	if req.Style != "" && !validStyles[req.Style] {
		return fmt.Errorf("%w: unknown trading style", journal.ErrInvalidTrade)
	}
	return nil
}

// LogResult settles an open trade as WIN or LOSS. The P/L is computed
// from the trade's own levels; the outcome write and the status
// transition happen atomically.
func (s *Service) LogResult(userID string, tradeID uint, result, notes string) (*journal.Settlement, error) {
	trade, err := s.store.FindTrade(userID, tradeID)
	if err != nil {
		return nil, err
	}

	settlement, err := journal.Close(trade, result, s.cfg.Journal.ContractMultiplier)
	if err != nil {
		return nil, err
	}

	outcome := models.Outcome{
		UserID:     userID,
		TradeID:    trade.ID,
		Result:     settlement.Result,
		ProfitLoss: settlement.ProfitLoss,
		Notes:      notes,
	}
	if err := s.store.CloseTrade(&outcome); err != nil {
		return nil, err
	}

	s.logger.Info("Trade closed",
		zap.String("user_id", userID),
		zap.Uint("trade_id", trade.ID),
		zap.String("result", settlement.Result),
		zap.Float64("profit_loss", settlement.ProfitLoss),
	)
	return settlement, nil
}

// Insights aggregates the user's full ledger under the given filters.
func (s *Service) Insights(userID string, f journal.Filters) (*journal.InsightReport, error) {
	trades, err := s.store.FetchTrades(userID)
	if err != nil {
		return nil, err
	}
	outcomes, err := s.store.FetchOutcomes(userID)
	if err != nil {
		return nil, err
	}
	return journal.Aggregate(trades, outcomes, f, time.Now())
}

// RiskConfig builds the engine thresholds from configuration.
func (s *Service) RiskConfig() journal.RiskConfig {
	return journal.RiskConfig{
		RecentTradesCount:         s.cfg.Risk.RecentTradesCount,
		ConsecutiveLossThreshold:  s.cfg.Risk.ConsecutiveLossThreshold,
		MaxTradesPerHour:          s.cfg.Risk.MaxTradesPerHour,
		MaxRiskPerTradePercent:    s.cfg.Risk.MaxRiskPerTradePercent,
		DrawdownThresholdPercent:  s.cfg.Risk.DrawdownThresholdPercent,
		AccountRiskCeilingPercent: s.cfg.Risk.AccountRiskCeilingPercent,
		ContractMultiplier:        s.cfg.Journal.ContractMultiplier,
	}
}

// CheckRisk evaluates the user's recent history against the thresholds,
// persists the alerts for later review and pushes critical ones to the
// webhook. Persistence and delivery failures are logged, never returned:
// the evaluation result stands on its own.
func (s *Service) CheckRisk(ctx context.Context, userID string, cfg journal.RiskConfig) ([]journal.Alert, error) {
	closed, err := s.store.RecentClosed(userID, cfg.RecentTradesCount)
	if err != nil {
		return nil, err
	}
	open, err := s.store.OpenTrades(userID)
	if err != nil {
		return nil, err
	}

	alerts, err := journal.EvaluateRisk(closed, open, cfg)
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return alerts, nil
	}

	if err := s.store.SaveAlerts(userID, alerts); err != nil {
		s.logger.Error("Failed to persist alerts", zap.String("user_id", userID), zap.Error(err))
	}

	var critical []journal.Alert
	for _, a := range alerts {
		if a.Severity == journal.SeverityCritical {
			critical = append(critical, a)
		}
	}
	if len(critical) > 0 {
		if err := s.notifier.Send(ctx, userID, critical); err != nil {
			s.logger.Error("Failed to deliver critical alerts", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return alerts, nil
}
