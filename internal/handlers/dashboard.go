package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inventory-dashboard/internal/apperror"
	"inventory-dashboard/internal/config"
	"inventory-dashboard/internal/inventoryapi"
	"inventory-dashboard/internal/logger"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/services"
	"inventory-dashboard/internal/validation"
)

const (
	defaultDashboardTimeout = 10 * time.Second
	dataSourceHeader        = "X-Data-Source"
)

// DashboardHandler отдаёт ресурсы дашборда в конверте HybridResult.
// Ошибка расчёта не меняет код ответа: она приходит в поле error конверта.
type DashboardHandler struct {
	service DashboardProvider
	log     *logger.Logger
	cfg     *config.DashboardConfig
}

// NewDashboardHandler создает обработчик дашборда
func NewDashboardHandler(service DashboardProvider, log *logger.Logger, cfg *config.DashboardConfig) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		log:     log,
		cfg:     cfg,
	}
}

// dashboardQuery содержит параметры запросов дашборда
type dashboardQuery struct {
	TimeFilter string `validate:"omitempty,oneof=week month quarter year"`
	Segment    string `validate:"omitempty,oneof=all fast slow stockout reorder"`
	Type       string `validate:"omitempty,oneof=critical warning info"`
	Format     string `validate:"omitempty,oneof=json csv"`
	Cached     bool
	Refresh    bool
}

func (q *dashboardQuery) filter(defaultFilter models.TimeFilter) models.TimeFilter {
	if q.TimeFilter == "" {
		return defaultFilter
	}
	return models.TimeFilter(q.TimeFilter)
}

// Overview возвращает KPI за период time_filter
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	query, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	filter := query.filter(h.service.DefaultFilter())
	respond(w, query.Cached,
		func() services.HybridResult[models.AnalyticsOverview] { return h.service.CurrentOverview(filter) },
		func() services.HybridResult[models.AnalyticsOverview] { return h.service.FetchOverview(ctx, filter) })
}

// Trends возвращает дневные снимки периода, в том числе в CSV (format=csv)
func (h *DashboardHandler) Trends(w http.ResponseWriter, r *http.Request) {
	query, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	filter := query.filter(h.service.DefaultFilter())
	current := func() services.HybridResult[[]models.DailySnapshot] { return h.service.CurrentTrends(filter) }
	fetch := func() services.HybridResult[[]models.DailySnapshot] { return h.service.FetchTrends(ctx, filter) }

	if query.Format != "csv" {
		respond(w, query.Cached, current, fetch)
		return
	}

	env := resolveEnvelope(query.Cached, current, fetch)
	if env.Data == nil || env.IsLoading {
		writeJSONResponse(w, http.StatusOK, env)
		return
	}
	if err := writeTrendsCSV(w, *env.Data, env.Source); err != nil {
		h.log.WithError(err).Warn("Failed to stream trends CSV")
	}
}

// Categories возвращает показатели по категориям
func (h *DashboardHandler) Categories(w http.ResponseWriter, r *http.Request) {
	query, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	respond(w, query.Cached, h.service.CurrentCategories,
		func() services.HybridResult[[]models.CategoryMetric] { return h.service.FetchCategories(ctx) })
}

// Velocity возвращает скорость оборота, сегмент задаётся параметром segment
func (h *DashboardHandler) Velocity(w http.ResponseWriter, r *http.Request) {
	query, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	segment, err := services.ParseVelocitySegment(query.Segment)
	if err != nil {
		writeServiceError(w, h.log, err, "Invalid segment")
		return
	}
	respond(w, query.Cached,
		func() services.HybridResult[[]models.VelocityRecord] { return h.service.CurrentVelocity(segment) },
		func() services.HybridResult[[]models.VelocityRecord] { return h.service.FetchVelocity(ctx, segment) })
}

// Alerts возвращает оповещения, тип задаётся параметром type
func (h *DashboardHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	query, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	alertType := models.AlertType(query.Type)
	respond(w, query.Cached,
		func() services.HybridResult[[]models.StockAlert] { return h.service.CurrentAlerts(alertType) },
		func() services.HybridResult[[]models.StockAlert] { return h.service.FetchAlerts(ctx, alertType) })
}

// Insights возвращает инсайты за период time_filter
func (h *DashboardHandler) Insights(w http.ResponseWriter, r *http.Request) {
	query, ctx, cancel, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer cancel()

	filter := query.filter(h.service.DefaultFilter())
	respond(w, query.Cached,
		func() services.HybridResult[[]models.Insight] { return h.service.CurrentInsights(filter) },
		func() services.HybridResult[[]models.Insight] { return h.service.FetchInsights(ctx, filter) })
}

// Products возвращает каталог с фильтрами category, status и limit
func (h *DashboardHandler) Products(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query()
	limit, err := parseOptionalInt(q.Get("limit"))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "limit must be a number")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout(h.cfg))
	defer cancel()

	env, err := h.service.FetchProducts(ctx, inventoryapi.ProductsParams{
		Category: strings.TrimSpace(q.Get("category")),
		Status:   strings.ToLower(strings.TrimSpace(q.Get("status"))),
		Limit:    limit,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load products")
		return
	}
	writeJSONResponse(w, http.StatusOK, env)
}

func (h *DashboardHandler) begin(w http.ResponseWriter, r *http.Request) (*dashboardQuery, context.Context, context.CancelFunc, bool) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return nil, nil, nil, false
	}

	query, err := parseDashboardQuery(r)
	if err != nil {
		writeServiceError(w, h.log, err, "Invalid query")
		return nil, nil, nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout(h.cfg))
	if query.Refresh {
		// refresh=true всегда запускает новый цикл мимо кеша удалённых ответов
		query.Cached = false
		if err := h.service.InvalidateRemoteCache(ctx); err != nil {
			h.log.WithError(err).Warn("Failed to invalidate remote cache")
		}
	}
	return query, ctx, cancel, true
}

func parseDashboardQuery(r *http.Request) (*dashboardQuery, error) {
	values := r.URL.Query()

	cached, err := parseBool(values.Get("cached"))
	if err != nil {
		return nil, apperror.Validation("cached must be true or false", err)
	}
	refresh, err := parseBool(values.Get("refresh"))
	if err != nil {
		return nil, apperror.Validation("refresh must be true or false", err)
	}

	query := &dashboardQuery{
		TimeFilter: normalizeParam(values.Get("time_filter")),
		Segment:    normalizeParam(values.Get("segment")),
		Type:       normalizeParam(values.Get("type")),
		Format:     normalizeParam(values.Get("format")),
		Cached:     cached,
		Refresh:    refresh,
	}
	if err := validation.Struct(r.Context(), query); err != nil {
		return nil, err
	}
	return query, nil
}

func normalizeParam(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// resolveEnvelope отдаёт последний конверт при cached=true, если цикл уже был, иначе запускает новый.
// Если пока шёл запрос завершился более новый цикл, отдаётся он.
func resolveEnvelope[T any](cached bool, current, fetch func() services.HybridResult[T]) services.HybridResult[T] {
	if cached {
		if env := current(); env.Cycle > 0 {
			return env
		}
	}
	env := fetch()
	if latest := current(); latest.Cycle > env.Cycle && latest.Terminal() {
		return latest
	}
	return env
}

func respond[T any](w http.ResponseWriter, cached bool, current, fetch func() services.HybridResult[T]) {
	env := resolveEnvelope(cached, current, fetch)
	w.Header().Set(dataSourceHeader, string(env.Source))
	writeJSONResponse(w, http.StatusOK, env)
}

func writeTrendsCSV(w http.ResponseWriter, points []models.DailySnapshot, source services.Source) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=trends.csv")
	w.Header().Set(dataSourceHeader, string(source))
	w.WriteHeader(http.StatusOK)

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"date", "total_products", "total_value", "low_stock_count", "out_of_stock_count", "stock_movements"})

	for _, p := range points {
		_ = writer.Write([]string{
			p.Date.String(),
			strconv.Itoa(p.TotalProducts),
			fmt.Sprintf("%.2f", p.TotalValue),
			strconv.Itoa(p.LowStockCount),
			strconv.Itoa(p.OutOfStockCount),
			strconv.Itoa(p.StockMovements),
		})
	}

	writer.Flush()
	return writer.Error()
}

func dashboardTimeout(cfg *config.DashboardConfig) time.Duration {
	if cfg != nil && cfg.RequestTimeoutSeconds > 0 {
		// запас сверх таймаута удалённого вызова на локальный расчёт
		return time.Duration(cfg.RequestTimeoutSeconds)*time.Second + time.Second
	}
	return defaultDashboardTimeout
}
