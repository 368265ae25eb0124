package store

import (
	"testing"

	"forex-journal-go/internal/journal"
	"forex-journal-go/internal/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTest creates a Store backed by a fresh in-memory database.
func setupTest(t *testing.T) *Store {
	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.Trade{}, &models.Outcome{}, &models.RiskAlert{})
	assert.NoError(t, err)

	return New(db, zap.NewNop())
}

func fp(v float64) *float64 { return &v }

func newTrade(userID string) *models.Trade {
	return &models.Trade{
		UserID:     userID,
		EntryPrice: 2000,
		TakeProfit: fp(2010),
		StopLoss:   fp(1990),
		LotSize:    0.1,
		Balance:    1000,
		Direction:  models.DirectionLong,
		Instrument: "XAU/USD",
	}
}

func TestSaveAndFindTrade(t *testing.T) {
	s := setupTest(t)

	trade := newTrade("u1")
	assert.NoError(t, s.SaveTrade(trade))
	assert.NotZero(t, trade.ID)
	assert.Equal(t, models.StatusOpen, trade.Status)

	found, err := s.FindTrade("u1", trade.ID)
	assert.NoError(t, err)
	assert.Equal(t, trade.ID, found.ID)
	assert.Equal(t, "XAU/USD", found.Instrument)
}

func TestFindTradeIsolatedByUser(t *testing.T) {
	s := setupTest(t)

	trade := newTrade("u1")
	assert.NoError(t, s.SaveTrade(trade))

	_, err := s.FindTrade("u2", trade.ID)
	assert.ErrorIs(t, err, journal.ErrTradeNotFound)
}

func TestFindTradeNotFound(t *testing.T) {
	s := setupTest(t)

	_, err := s.FindTrade("u1", 42)
	assert.ErrorIs(t, err, journal.ErrTradeNotFound)
}

func TestCloseTrade(t *testing.T) {
	s := setupTest(t)

	trade := newTrade("u1")
	assert.NoError(t, s.SaveTrade(trade))

	outcome := &models.Outcome{
		UserID:     "u1",
		TradeID:    trade.ID,
		Result:     models.ResultWin,
		ProfitLoss: 100,
	}
	assert.NoError(t, s.CloseTrade(outcome))

	closed, err := s.FindTrade("u1", trade.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)

	outcomes, err := s.FetchOutcomes("u1")
	assert.NoError(t, err)
	assert.Len(t, outcomes, 1)
	assert.Equal(t, trade.ID, outcomes[0].TradeID)
}

func TestCloseTradeTwiceLeavesLedgerUnchanged(t *testing.T) {
	s := setupTest(t)

	trade := newTrade("u1")
	assert.NoError(t, s.SaveTrade(trade))

	first := &models.Outcome{UserID: "u1", TradeID: trade.ID, Result: models.ResultWin, ProfitLoss: 100}
	assert.NoError(t, s.CloseTrade(first))

	second := &models.Outcome{UserID: "u1", TradeID: trade.ID, Result: models.ResultLoss, ProfitLoss: -100}
	err := s.CloseTrade(second)
	assert.ErrorIs(t, err, journal.ErrTradeAlreadyClosed)

	// Exactly one outcome row survives, and it is the first one.
	outcomes, err := s.FetchOutcomes("u1")
	assert.NoError(t, err)
	assert.Len(t, outcomes, 1)
	assert.Equal(t, models.ResultWin, outcomes[0].Result)
}

func TestCloseTradeUnknownTrade(t *testing.T) {
	s := setupTest(t)

	outcome := &models.Outcome{UserID: "u1", TradeID: 42, Result: models.ResultWin, ProfitLoss: 10}
	assert.ErrorIs(t, s.CloseTrade(outcome), journal.ErrTradeNotFound)
}

func TestRecentClosedAndOpenTrades(t *testing.T) {
	s := setupTest(t)

	// Two closed, one open, plus a foreign user's trade.
	for i := 0; i < 2; i++ {
		trade := newTrade("u1")
		assert.NoError(t, s.SaveTrade(trade))
		assert.NoError(t, s.CloseTrade(&models.Outcome{
			UserID: "u1", TradeID: trade.ID, Result: models.ResultLoss, ProfitLoss: -50,
		}))
	}
	openTrade := newTrade("u1")
	assert.NoError(t, s.SaveTrade(openTrade))
	assert.NoError(t, s.SaveTrade(newTrade("u2")))

	closed, err := s.RecentClosed("u1", 10)
	assert.NoError(t, err)
	assert.Len(t, closed, 2)
	for _, ct := range closed {
		assert.Equal(t, ct.Trade.ID, ct.Outcome.TradeID)
		assert.Equal(t, models.ResultLoss, ct.Outcome.Result)
	}

	open, err := s.OpenTrades("u1")
	assert.NoError(t, err)
	assert.Len(t, open, 1)
	assert.Equal(t, openTrade.ID, open[0].ID)
}

func TestRecentClosedRespectsLimit(t *testing.T) {
	s := setupTest(t)

	for i := 0; i < 4; i++ {
		trade := newTrade("u1")
		assert.NoError(t, s.SaveTrade(trade))
		assert.NoError(t, s.CloseTrade(&models.Outcome{
			UserID: "u1", TradeID: trade.ID, Result: models.ResultWin, ProfitLoss: 10,
		}))
	}

	closed, err := s.RecentClosed("u1", 2)
	assert.NoError(t, err)
	assert.Len(t, closed, 2)
}

func TestSaveAlerts(t *testing.T) {
	s := setupTest(t)

	alerts := []journal.Alert{
		{Type: journal.AlertMissingStopLoss, Severity: journal.SeverityCritical, Message: "no stop"},
		{Type: journal.AlertOvertrading, Severity: journal.SeverityHigh, Message: "slow down"},
	}
	assert.NoError(t, s.SaveAlerts("u1", alerts))

	var rows []models.RiskAlert
	assert.NoError(t, s.db.Where("user_id = ?", "u1").Find(&rows).Error)
	assert.Len(t, rows, 2)
	assert.False(t, rows[0].Acknowledged)
}
