package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"MarketScanner/internal/collector"
	"MarketScanner/internal/model"
	"MarketScanner/internal/orchestrator"
	"MarketScanner/internal/strategy"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

type handler struct {
	deps Deps
}

// RegisterRoutes mounts the health and v1 endpoints.
func (h *handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api/v1")
	g.GET("/results", h.Results)
	g.GET("/results/:detector", h.Result)
	g.GET("/errors", h.Errors)
	g.DELETE("/errors", h.ClearErrors)
	g.GET("/cache", h.Cache)
	g.DELETE("/cache", h.ClearCache)
	g.GET("/history", h.History)
	g.GET("/history/:symbol", h.SymbolHistory)
	g.GET("/price/:symbol", h.Price)
	g.GET("/indices", h.Indices)
	g.POST("/scan", h.Scan)
}

// ResultsRequest selects the presentation of result tables.
type ResultsRequest struct {
	Ranked bool `query:"ranked"`
	Limit  int  `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// HistoryRequest pages persisted cycles.
type HistoryRequest struct {
	Limit int `query:"limit" default:"20" validate:"gte=1,lte=500"`
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	if err := defaults.Set(req); err != nil {
		return err
	}
	return validate.StructCtx(c.Request().Context(), req)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func (h *handler) Health(c echo.Context) error {
	resp := map[string]interface{}{"status": "ok", "cycles": h.deps.Cycles.Count()}
	if last := h.deps.Cycles.Last(); last != nil {
		resp["last_scan"] = last.FinishedAt
	}
	return c.JSON(http.StatusOK, resp)
}

type tableView struct {
	Detector  string               `json:"detector"`
	Columns   []string             `json:"columns"`
	Records   []model.SignalRecord `json:"records"`
	Failed    []string             `json:"failed,omitempty"`
	ScannedAt time.Time            `json:"scanned_at"`
}

func view(t *model.ResultTable, req ResultsRequest) tableView {
	records := t.Records
	if req.Ranked {
		records = strategy.PriorityRank(t)
	}
	if len(records) > req.Limit {
		records = records[:req.Limit]
	}
	return tableView{Detector: t.Detector, Columns: t.Columns, Records: records, Failed: t.Failed, ScannedAt: t.ScannedAt}
}

func (h *handler) lastCycle(c echo.Context) (*orchestrator.Cycle, error) {
	last := h.deps.Cycles.Last()
	if last == nil {
		return nil, errorJSON(c, http.StatusNotFound, "no scan completed yet")
	}
	return last, nil
}

func (h *handler) Results(c echo.Context) error {
	req := &ResultsRequest{}
	if err := bindAndValidate(c, req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	last, err := h.lastCycle(c)
	if last == nil {
		return err
	}
	tables := make([]tableView, 0, len(last.Order))
	for _, t := range last.Tables() {
		tables = append(tables, view(t, *req))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cycle":       last.Number,
		"started_at":  last.StartedAt,
		"finished_at": last.FinishedAt,
		"signals":     last.TotalSignals(),
		"tables":      tables,
	})
}

func (h *handler) Result(c echo.Context) error {
	req := &ResultsRequest{}
	if err := bindAndValidate(c, req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	last, err := h.lastCycle(c)
	if last == nil {
		return err
	}
	name := c.Param("detector")
	for _, t := range last.Tables() {
		if strings.EqualFold(t.Detector, name) {
			return c.JSON(http.StatusOK, view(t, *req))
		}
	}
	return errorJSON(c, http.StatusNotFound, "unknown detector: "+name)
}

func (h *handler) Errors(c echo.Context) error {
	errs := h.deps.Cycles.Errors()
	if errs == nil {
		errs = []model.ScanError{}
	}
	return c.JSON(http.StatusOK, errs)
}

func (h *handler) ClearErrors(c echo.Context) error {
	h.deps.Cycles.ClearErrors()
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) Cache(c echo.Context) error {
	stats := h.deps.Data.CacheStats()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"total_entries": stats.TotalEntries,
		"valid_entries": stats.ValidEntries,
		"ttl_seconds":   stats.TTL.Seconds(),
	})
}

func (h *handler) ClearCache(c echo.Context) error {
	h.deps.Data.ClearCache()
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) History(c echo.Context) error {
	req := &HistoryRequest{}
	if err := bindAndValidate(c, req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if h.deps.History == nil {
		return errorJSON(c, http.StatusNotImplemented, "history not configured")
	}
	cycles, err := h.deps.History.RecentCycles(c.Request().Context(), req.Limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cycles)
}

// SymbolHistory reports how many signals were stored for a symbol. Symbols
// are stored without the .NS suffix.
func (h *handler) SymbolHistory(c echo.Context) error {
	if h.deps.History == nil {
		return errorJSON(c, http.StatusNotImplemented, "history not configured")
	}
	symbol := model.DisplaySymbol(collector.NormalizeSymbol(c.Param("symbol")))
	n, err := h.deps.History.SignalCount(c.Request().Context(), symbol)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"symbol": symbol, "signals": n})
}

func (h *handler) Price(c echo.Context) error {
	symbol := collector.NormalizeSymbol(c.Param("symbol"))
	price, err := h.deps.Data.CurrentPrice(c.Request().Context(), symbol)
	if err != nil {
		return errorJSON(c, http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"symbol": symbol, "price": price})
}

func (h *handler) Indices(c echo.Context) error {
	quotes, err := h.deps.Data.Indices(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, quotes)
}

func (h *handler) Scan(c echo.Context) error {
	if h.deps.Trigger == nil {
		return errorJSON(c, http.StatusNotImplemented, "manual scans disabled")
	}
	cycle, err := h.deps.Trigger(c.Request().Context())
	switch {
	case err == nil:
	case h.deps.Busy != nil && errors.Is(err, h.deps.Busy):
		return errorJSON(c, http.StatusConflict, err.Error())
	case errors.Is(err, orchestrator.ErrNoDetectors):
		return errorJSON(c, http.StatusUnprocessableEntity, err.Error())
	default:
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"cycle":   cycle.Number,
		"signals": cycle.TotalSignals(),
		"errors":  cycle.Errors,
	})
}
