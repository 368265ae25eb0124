package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"forex-journal-go/internal/journal"
	"forex-journal-go/internal/service"
	"go.uber.org/zap"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log *zap.Logger
	svc *service.Service
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, svc *service.Service) *APIHandler {
	return &APIHandler{log: log.Named("api"), svc: svc}
}

// userID extracts the caller's opaque user id. All data access is
// scoped by it.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// SaveTradeHandler persists a new trade entry.
func (h *APIHandler) SaveTradeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid := userID(r)
	if uid == "" {
		http.Error(w, "missing X-User-ID header", http.StatusBadRequest)
		return
	}

	var req service.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := h.svc.SaveTrade(uid, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, saved)
}

// logResultRequest is the body of POST /api/results.
type logResultRequest struct {
	TradeID uint   `json:"trade_id"`
	Result  string `json:"result"`
	Notes   string `json:"notes,omitempty"`
}

// LogResultHandler settles an open trade as WIN or LOSS.
func (h *APIHandler) LogResultHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	uid := userID(r)
	if uid == "" {
		http.Error(w, "missing X-User-ID header", http.StatusBadRequest)
		return
	}

	var req logResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	settlement, err := h.svc.LogResult(uid, req.TradeID, req.Result, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, settlement)
}

// InsightsHandler returns the aggregated analytics report.
func (h *APIHandler) InsightsHandler(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		http.Error(w, "missing X-User-ID header", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	filters := journal.Filters{
		Instrument: q.Get("instrument"),
		Timeframe:  q.Get("timeframe"),
		Strategy:   q.Get("strategy"),
		DateRange:  q.Get("date"),
	}

	report, err := h.svc.Insights(uid, filters)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// AlertsHandler evaluates risk alerts over the user's recent history.
// Thresholds default from configuration; query parameters override.
func (h *APIHandler) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		http.Error(w, "missing X-User-ID header", http.StatusBadRequest)
		return
	}

	cfg := h.svc.RiskConfig()
	if err := overrideThresholds(&cfg, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	alerts, err := h.svc.CheckRisk(r.Context(), uid, cfg)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := struct {
		Alerts      []journal.Alert `json:"alerts"`
		TotalAlerts int             `json:"total_alerts"`
	}{Alerts: alerts, TotalAlerts: len(alerts)}
	h.writeJSON(w, http.StatusOK, response)
}

// overrideThresholds applies per-request risk threshold overrides from
// the query string. A malformed value is an error; overrides must never
// be silently dropped in favor of the configured defaults.
func overrideThresholds(cfg *journal.RiskConfig, q url.Values) error {
	intParams := map[string]*int{
		"recent_trades_count":        &cfg.RecentTradesCount,
		"consecutive_loss_threshold": &cfg.ConsecutiveLossThreshold,
		"max_trades_per_hour":        &cfg.MaxTradesPerHour,
	}
	for key, dst := range intParams {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a whole number", key)
		}
		*dst = n
	}

	floatParams := map[string]*float64{
		"max_risk_per_trade_percent":   &cfg.MaxRiskPerTradePercent,
		"drawdown_threshold_percent":   &cfg.DrawdownThresholdPercent,
		"account_risk_ceiling_percent": &cfg.AccountRiskCeilingPercent,
	}
	for key, dst := range floatParams {
		v := q.Get(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number", key)
		}
		*dst = f
	}
	return nil
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}

// writeError maps engine errors to status codes and actionable
// messages. Internal details never reach the client.
func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, journal.ErrTradeNotFound):
		http.Error(w, "The requested trade does not exist.", http.StatusNotFound)
	case errors.Is(err, journal.ErrTradeAlreadyClosed):
		http.Error(w, "This trade has already been closed.", http.StatusConflict)
	case errors.Is(err, journal.ErrIncompleteTradeData):
		http.Error(w, "The trade is missing the price level needed to settle this result. Set it when saving the trade.", http.StatusUnprocessableEntity)
	case errors.Is(err, journal.ErrInvalidResult):
		http.Error(w, "A trade result must be either WIN or LOSS.", http.StatusBadRequest)
	case errors.Is(err, journal.ErrInvalidTrade):
		http.Error(w, "The trade parameters are invalid. Check prices, lot size and direction.", http.StatusBadRequest)
	case errors.Is(err, journal.ErrInvalidFilter):
		http.Error(w, "Unrecognized date filter. Use today, this_week or this_month.", http.StatusBadRequest)
	case errors.Is(err, journal.ErrConfiguration):
		http.Error(w, "One or more risk thresholds are out of range.", http.StatusBadRequest)
	default:
		h.log.Error("Request failed", zap.Error(err))
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
	}
}
