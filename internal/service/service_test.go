package service

import (
	"context"
	"testing"

	"forex-journal-go/internal/config"
	"forex-journal-go/internal/journal"
	"forex-journal-go/internal/models"
	"forex-journal-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockNotifier is a mock implementation of notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, userID string, alerts []journal.Alert) error {
	args := m.Called(ctx, userID, alerts)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		Journal: config.Journal{
			DefaultInstrument:  "XAU/USD",
			ContractMultiplier: 100,
			MinLotSize:         0.01,
			MaxLotSize:         0.6,
		},
		Risk: config.Risk{
			RecentTradesCount:         10,
			ConsecutiveLossThreshold:  3,
			MaxTradesPerHour:          5,
			MaxRiskPerTradePercent:    2.0,
			DrawdownThresholdPercent:  10.0,
			AccountRiskCeilingPercent: 10.0,
		},
	}
}

func setupTest(t *testing.T) (*Service, *store.Store, *MockNotifier) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	err = db.AutoMigrate(&models.Trade{}, &models.Outcome{}, &models.RiskAlert{})
	assert.NoError(t, err)

	st := store.New(db, zap.NewNop())
	notifier := new(MockNotifier)
	svc := New(zap.NewNop(), testConfig(), st, notifier)
	return svc, st, notifier
}

func fp(v float64) *float64 { return &v }

func validRequest() TradeRequest {
	return TradeRequest{
		EntryPrice: 2000,
		TakeProfit: fp(2020),
		StopLoss:   fp(1990),
		LotSize:    0.1,
		Balance:    10000,
		Direction:  models.DirectionLong,
		Timeframe:  "1h",
		Style:      "day trade",
		Strategy:   "smc",
	}
}

func TestSaveTrade(t *testing.T) {
	svc, _, _ := setupTest(t)

	saved, err := svc.SaveTrade("u1", validRequest())
	assert.NoError(t, err)
	assert.NotZero(t, saved.Trade.ID)
	assert.Equal(t, models.StatusOpen, saved.Trade.Status)

	// Instrument falls back to the configured default.
	assert.Equal(t, "XAU/USD", saved.Trade.Instrument)

	// Reward 20, risk 10.
	assert.NotNil(t, saved.Trade.RiskReward)
	assert.InDelta(t, 2.0, *saved.Trade.RiskReward, 1e-9)

	assert.NotNil(t, saved.PotentialProfit)
	assert.InDelta(t, 200, *saved.PotentialProfit, 1e-9)
	assert.NotNil(t, saved.PotentialLoss)
	assert.InDelta(t, 100, *saved.PotentialLoss, 1e-9)
}

func TestSaveTradeWithoutLevels(t *testing.T) {
	svc, _, _ := setupTest(t)

	req := validRequest()
	req.TakeProfit = nil
	req.StopLoss = nil

	saved, err := svc.SaveTrade("u1", req)
	assert.NoError(t, err)
	assert.Nil(t, saved.Trade.RiskReward)
	assert.Nil(t, saved.PotentialProfit)
	assert.Nil(t, saved.PotentialLoss)
}

func TestSaveTradeValidation(t *testing.T) {
	svc, _, _ := setupTest(t)

	testCases := []struct {
		name   string
		mutate func(*TradeRequest)
	}{
		{"Zero entry price", func(r *TradeRequest) { r.EntryPrice = 0 }},
		{"Negative balance", func(r *TradeRequest) { r.Balance = -100 }},
		{"Lot below minimum", func(r *TradeRequest) { r.LotSize = 0.001 }},
		{"Lot above maximum", func(r *TradeRequest) { r.LotSize = 1.5 }},
		{"Unknown direction", func(r *TradeRequest) { r.Direction = "BUY" }},
		{"Unknown timeframe", func(r *TradeRequest) { r.Timeframe = "7m" }},
		{"Unknown style", func(r *TradeRequest) { r.Style = "yolo" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			_, err := svc.SaveTrade("u1", req)
			assert.ErrorIs(t, err, journal.ErrInvalidTrade)
		})
	}
}

func TestLogResult(t *testing.T) {
	svc, st, _ := setupTest(t)

	saved, err := svc.SaveTrade("u1", validRequest())
	assert.NoError(t, err)

	settlement, err := svc.LogResult("u1", saved.Trade.ID, models.ResultWin, "clean breakout")
	assert.NoError(t, err)
	assert.InDelta(t, 200, settlement.ProfitLoss, 1e-9) // 20 * 0.1 * 100
	assert.InDelta(t, 10200, settlement.NewBalance, 1e-9)

	trade, err := st.FindTrade("u1", saved.Trade.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusClosed, trade.Status)

	outcomes, err := st.FetchOutcomes("u1")
	assert.NoError(t, err)
	assert.Len(t, outcomes, 1)
	assert.Equal(t, "clean breakout", outcomes[0].Notes)
}

func TestLogResultTwiceFails(t *testing.T) {
	svc, st, _ := setupTest(t)

	saved, err := svc.SaveTrade("u1", validRequest())
	assert.NoError(t, err)

	_, err = svc.LogResult("u1", saved.Trade.ID, models.ResultWin, "")
	assert.NoError(t, err)

	_, err = svc.LogResult("u1", saved.Trade.ID, models.ResultLoss, "")
	assert.ErrorIs(t, err, journal.ErrTradeAlreadyClosed)

	outcomes, err := st.FetchOutcomes("u1")
	assert.NoError(t, err)
	assert.Len(t, outcomes, 1)
	assert.Equal(t, models.ResultWin, outcomes[0].Result)
}

func TestLogResultUnknownTrade(t *testing.T) {
	svc, _, _ := setupTest(t)

	_, err := svc.LogResult("u1", 42, models.ResultWin, "")
	assert.ErrorIs(t, err, journal.ErrTradeNotFound)
}

func TestLogResultForeignUser(t *testing.T) {
	svc, _, _ := setupTest(t)

	saved, err := svc.SaveTrade("u1", validRequest())
	assert.NoError(t, err)

	_, err = svc.LogResult("u2", saved.Trade.ID, models.ResultWin, "")
	assert.ErrorIs(t, err, journal.ErrTradeNotFound)
}

func TestInsights(t *testing.T) {
	svc, _, _ := setupTest(t)

	first, err := svc.SaveTrade("u1", validRequest())
	assert.NoError(t, err)
	_, err = svc.LogResult("u1", first.Trade.ID, models.ResultWin, "")
	assert.NoError(t, err)

	_, err = svc.SaveTrade("u1", validRequest()) // stays open
	assert.NoError(t, err)

	report, err := svc.Insights("u1", journal.Filters{})
	assert.NoError(t, err)
	assert.Equal(t, 2, report.Summary.TotalTrades)
	assert.Equal(t, 1, report.Summary.OpenTrades)
	assert.Equal(t, 100.0, report.Summary.WinRate)
	assert.InDelta(t, 200, report.Summary.TotalProfitLoss, 1e-9)
}

func TestInsightsInvalidFilter(t *testing.T) {
	svc, _, _ := setupTest(t)

	_, err := svc.Insights("u1", journal.Filters{DateRange: "yesterday"})
	assert.ErrorIs(t, err, journal.ErrInvalidFilter)
}

func TestCheckRiskNoAlerts(t *testing.T) {
	svc, _, notifier := setupTest(t)

	saved, err := svc.SaveTrade("u1", validRequest())
	assert.NoError(t, err)
	_, err = svc.LogResult("u1", saved.Trade.ID, models.ResultWin, "")
	assert.NoError(t, err)

	alerts, err := svc.CheckRisk(context.Background(), "u1", svc.RiskConfig())
	assert.NoError(t, err)
	assert.Empty(t, alerts)
	notifier.AssertNotCalled(t, "Send")
}

func TestCheckRiskNotifiesOnCritical(t *testing.T) {
	svc, st, notifier := setupTest(t)

	// An open trade without a stop loss raises a critical alert.
	req := validRequest()
	req.StopLoss = nil
	_, err := svc.SaveTrade("u1", req)
	assert.NoError(t, err)

	notifier.On("Send", mock.Anything, "u1", mock.MatchedBy(func(alerts []journal.Alert) bool {
		return len(alerts) == 1 && alerts[0].Type == journal.AlertMissingStopLoss
	})).Return(nil)

	alerts, err := svc.CheckRisk(context.Background(), "u1", svc.RiskConfig())
	assert.NoError(t, err)
	assert.NotEmpty(t, alerts)
	assert.Equal(t, journal.AlertMissingStopLoss, alerts[0].Type)
	assert.Equal(t, journal.SeverityCritical, alerts[0].Severity)

	notifier.AssertExpectations(t)

	// Alerts land in the review table as well.
	closed, err := st.RecentClosed("u1", 10)
	assert.NoError(t, err)
	assert.Empty(t, closed)
}

func TestCheckRiskPersistsAlerts(t *testing.T) {
	svc, _, notifier := setupTest(t)

	req := validRequest()
	req.StopLoss = nil
	_, err := svc.SaveTrade("u1", req)
	assert.NoError(t, err)

	notifier.On("Send", mock.Anything, "u1", mock.Anything).Return(nil)

	alerts, err := svc.CheckRisk(context.Background(), "u1", svc.RiskConfig())
	assert.NoError(t, err)
	assert.NotEmpty(t, alerts)

	// Run a second check: alert rows accumulate rather than overwrite.
	_, err = svc.CheckRisk(context.Background(), "u1", svc.RiskConfig())
	assert.NoError(t, err)
}

func TestCheckRiskInvalidConfig(t *testing.T) {
	svc, _, _ := setupTest(t)

	cfg := svc.RiskConfig()
	cfg.MaxTradesPerHour = 0

	_, err := svc.CheckRisk(context.Background(), "u1", cfg)
	assert.ErrorIs(t, err, journal.ErrConfiguration)
}

func TestCheckRiskSurvivesNotifierFailure(t *testing.T) {
	svc, _, notifier := setupTest(t)

	req := validRequest()
	req.StopLoss = nil
	_, err := svc.SaveTrade("u1", req)
	assert.NoError(t, err)

	notifier.On("Send", mock.Anything, "u1", mock.Anything).Return(assert.AnError)

	alerts, err := svc.CheckRisk(context.Background(), "u1", svc.RiskConfig())
	assert.NoError(t, err)
	assert.NotEmpty(t, alerts)
	notifier.AssertExpectations(t)
}
