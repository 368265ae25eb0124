package store

import (
	"errors"
	"fmt"

	"forex-journal-go/internal/journal"
	"forex-journal-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store is the ledger read/write contract. Every query is scoped by
// user id; the engine trusts the snapshots it is handed.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a Store on top of an open gorm connection.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("store")}
}

// SaveTrade persists a new OPEN trade.
func (s *Store) SaveTrade(trade *models.Trade) error {
	trade.Status = models.StatusOpen
	if err := s.db.Create(trade).Error; err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

// FindTrade loads one trade owned by the user.
func (s *Store) FindTrade(userID string, tradeID uint) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.Where("id = ? AND user_id = ?", tradeID, userID).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: #%d", journal.ErrTradeNotFound, tradeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trade #%d: %w", tradeID, err)
	}
	return &trade, nil
}

// FetchTrades returns the user's full trade set, oldest first.
func (s *Store) FetchTrades(userID string) ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.Where("user_id = ?", userID).Order("created_at asc, id asc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch trades: %w", err)
	}
	return trades, nil
}

// FetchOutcomes returns the user's outcomes.
func (s *Store) FetchOutcomes(userID string) ([]models.Outcome, error) {
	var outcomes []models.Outcome
	if err := s.db.Where("user_id = ?", userID).Find(&outcomes).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch outcomes: %w", err)
	}
	return outcomes, nil
}

// RecentClosed returns up to limit closed trades with their outcomes,
// most recent first.
func (s *Store) RecentClosed(userID string, limit int) ([]journal.ClosedTrade, error) {
	var trades []models.Trade
	err := s.db.Where("user_id = ? AND status = ?", userID, models.StatusClosed).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch closed trades: %w", err)
	}
	if len(trades) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(trades))
	for _, t := range trades {
		ids = append(ids, t.ID)
	}
	var outcomes []models.Outcome
	if err := s.db.Where("user_id = ? AND trade_id IN ?", userID, ids).Find(&outcomes).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch outcomes: %w", err)
	}
	byTrade := make(map[uint]models.Outcome, len(outcomes))
	for _, o := range outcomes {
		byTrade[o.TradeID] = o
	}

	closed := make([]journal.ClosedTrade, 0, len(trades))
	for _, t := range trades {
		outcome, ok := byTrade[t.ID]
		if !ok {
			// CLOSED without an outcome breaks the ledger invariant;
			// skip the row rather than feed the evaluator bad data.
			s.logger.Warn("Closed trade has no outcome, skipping", zap.Uint("trade_id", t.ID))
			continue
		}
		closed = append(closed, journal.ClosedTrade{Trade: t, Outcome: outcome})
	}
	return closed, nil
}

// OpenTrades returns the user's open positions, most recent first.
func (s *Store) OpenTrades(userID string) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.Where("user_id = ? AND status = ?", userID, models.StatusOpen).
		Order("created_at desc, id desc").
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open trades: %w", err)
	}
	return trades, nil
}

// CloseTrade writes the outcome and flips the trade to CLOSED in one
// transaction. The status is re-checked inside the transaction so a
// trade can never be closed twice.
func (s *Store) CloseTrade(outcome *models.Outcome) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var trade models.Trade
		err := tx.Where("id = ? AND user_id = ?", outcome.TradeID, outcome.UserID).First(&trade).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: #%d", journal.ErrTradeNotFound, outcome.TradeID)
		}
		if err != nil {
			return fmt.Errorf("failed to load trade #%d: %w", outcome.TradeID, err)
		}
		if trade.Status == models.StatusClosed {
			return fmt.Errorf("%w: trade #%d", journal.ErrTradeAlreadyClosed, outcome.TradeID)
		}

		if err := tx.Create(outcome).Error; err != nil {
			return fmt.Errorf("failed to save outcome: %w", err)
		}
		if err := tx.Model(&trade).Update("status", models.StatusClosed).Error; err != nil {
			return fmt.Errorf("failed to close trade #%d: %w", outcome.TradeID, err)
		}
		return nil
	})
}

// SaveAlerts persists evaluated alerts for later review. Alert rows are
// advisory; a failed write is the caller's to log, not to fail on.
func (s *Store) SaveAlerts(userID string, alerts []journal.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	rows := make([]models.RiskAlert, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, models.RiskAlert{
			UserID:         userID,
			AlertType:      a.Type,
			Severity:       string(a.Severity),
			Message:        a.Message,
			Recommendation: a.Recommendation,
		})
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to save alerts: %w", err)
	}
	return nil
}
