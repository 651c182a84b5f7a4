package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"fxjournal/internal/analytics"
	"fxjournal/internal/database"
	"fxjournal/internal/importer"
	"fxjournal/internal/journal"
)

// maxImportBytes bounds how much CSV a single import request may carry.
const maxImportBytes = 10 << 20 // 10MB

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db        *database.DB
	journal   *journal.Service
	importer  *importer.Importer
	analytics *analytics.Service
}

// NewHandler creates a new Handler
func NewHandler(db *database.DB, j *journal.Service, imp *importer.Importer, a *analytics.Service) *Handler {
	return &Handler{
		db:        db,
		journal:   j,
		importer:  imp,
		analytics: a,
	}
}

// tradeRequest is the JSON body for trade create/update. Timestamps are
// RFC3339; numeric fields accept JSON numbers or strings.
type tradeRequest struct {
	UserID     string           `json:"user_id"`
	Symbol     string           `json:"symbol"`
	EntryAt    *time.Time       `json:"entry_at"`
	ExitAt     *time.Time       `json:"exit_at"`
	EntryPrice *decimal.Decimal `json:"entry_price"`
	ExitPrice  *decimal.Decimal `json:"exit_price"`
	LotSize    *decimal.Decimal `json:"lot_size"`
	Pips       *decimal.Decimal `json:"pips"`
	ProfitLoss *decimal.Decimal `json:"profit_loss"`
	TradeType  *int             `json:"trade_type"`
	Memo       string           `json:"memo"`
	Tags       []string         `json:"tags"`
	Emotions   []string         `json:"emotions"`
}

func (req *tradeRequest) toInput() journal.TradeInput {
	return journal.TradeInput{
		Symbol:     req.Symbol,
		EntryAt:    req.EntryAt,
		ExitAt:     req.ExitAt,
		EntryPrice: req.EntryPrice,
		ExitPrice:  req.ExitPrice,
		LotSize:    req.LotSize,
		Pips:       req.Pips,
		ProfitLoss: req.ProfitLoss,
		TradeType:  req.TradeType,
		Memo:       req.Memo,
		Tags:       req.Tags,
		Emotions:   req.Emotions,
	}
}

// CreateTrade handles POST /trades
func (h *Handler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Symbol == "" {
		http.Error(w, "user_id and symbol are required", http.StatusBadRequest)
		return
	}

	trade, err := h.journal.CreateTrade(r.Context(), req.UserID, req.toInput())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, trade)
}

// GetTrade handles GET /trades/{id}
func (h *Handler) GetTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid trade id", http.StatusBadRequest)
		return
	}

	trade, err := h.db.GetTradeByID(id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, trade)
}

// ListTrades handles GET /trades?user_id=&limit=
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	trades, err := h.db.GetTradesByUser(userID, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, trades)
}

// UpdateTrade handles PUT /trades/{id}
func (h *Handler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid trade id", http.StatusBadRequest)
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	trade, err := h.journal.UpdateTrade(r.Context(), id, req.toInput())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, trade)
}

// DeleteTrade handles DELETE /trades/{id}
func (h *Handler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid trade id", http.StatusBadRequest)
		return
	}

	if err := h.journal.DeleteTrade(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ImportCSV handles POST /import?user_id= with the raw broker export as body
func (h *Handler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(raw) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}

	result, err := h.importer.ImportCSV(r.Context(), userID, raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// MonthlyAnalytics handles GET /analytics/monthly?user_id=&year=&tags=&emotions=
func (h *Handler) MonthlyAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}

	buckets, err := h.analytics.MonthlyBreakdown(r.Context(), userID, year, filterFromQuery(r))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, buckets)
}

// HourlyAnalytics handles GET /analytics/hourly?user_id=&year=&month=&tags=&emotions=
func (h *Handler) HourlyAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return
	}

	buckets, err := h.analytics.HourlyBreakdown(r.Context(), userID, year, time.Month(month), filterFromQuery(r))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, buckets)
}

// GetMetrics handles GET /metrics?user_id=&period_type=
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	periodType := r.URL.Query().Get("period_type")
	if periodType == "" {
		http.Error(w, "period_type is required", http.StatusBadRequest)
		return
	}

	metrics, err := h.db.GetMetricsByPeriodType(userID, periodType)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, metrics)
}

// GetTags handles GET /tags?user_id=
func (h *Handler) GetTags(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	tags, err := h.db.GetTagsByUser(userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tags)
}

// GetEmotions handles GET /emotions?user_id=
func (h *Handler) GetEmotions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	emotions, err := h.db.GetEmotionsByUser(userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, emotions)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// filterFromQuery reads comma-separated tags= and emotions= params.
func filterFromQuery(r *http.Request) analytics.Filter {
	return analytics.Filter{
		Tags:     splitParam(r.URL.Query().Get("tags")),
		Emotions: splitParam(r.URL.Query().Get("emotions")),
	}
}

func splitParam(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, journal.ErrExitBeforeEntry):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
