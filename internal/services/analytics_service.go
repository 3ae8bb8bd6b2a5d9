package services

import (
	"fmt"
	"math"
	"strings"

	"inventory-dashboard/internal/apperror"
	"inventory-dashboard/internal/dataset"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/store"
)

// Пороги сегментации скорости оборота
const (
	FastTurnoverThreshold = 40.0
	SlowTurnoverThreshold = 10.0
	StockoutDaysThreshold = 7
)

// VelocitySegment выбирает подмножество записей скорости оборота
type VelocitySegment string

const (
	SegmentAll      VelocitySegment = "all"
	SegmentFast     VelocitySegment = "fast"
	SegmentSlow     VelocitySegment = "slow"
	SegmentStockout VelocitySegment = "stockout"
	SegmentReorder  VelocitySegment = "reorder"
)

// ParseVelocitySegment нормализует сегмент. Пустая строка означает all.
func ParseVelocitySegment(value string) (VelocitySegment, error) {
	segment := VelocitySegment(strings.ToLower(strings.TrimSpace(value)))
	switch segment {
	case "":
		return SegmentAll, nil
	case SegmentAll, SegmentFast, SegmentSlow, SegmentStockout, SegmentReorder:
		return segment, nil
	}
	return "", apperror.Validation(fmt.Sprintf("unknown velocity segment %q", value), nil)
}

// ComputeOverview считает KPI за окно из days последних снимков.
// Точечные показатели берутся из последнего снимка окна, стоимость усредняется по окну.
func ComputeOverview(series []models.DailySnapshot, days int) (models.AnalyticsOverview, error) {
	if err := validateSeries(series); err != nil {
		return models.AnalyticsOverview{}, err
	}
	current := WindowOf(series, days)
	if len(current) == 0 {
		return models.AnalyticsOverview{}, apperror.Computation(fmt.Sprintf("window of %d days is empty", days), nil)
	}
	latest := current[len(current)-1]

	meanCurrent := meanValue(current)
	movements := 0
	for _, s := range current {
		movements += s.StockMovements
	}
	avgMovements := float64(movements) / float64(len(current))

	overview := models.AnalyticsOverview{
		TotalProducts:       latest.TotalProducts,
		TotalValue:          meanCurrent,
		TotalValueGrowthPct: growthPct(meanCurrent, previousWindow(series, days)),
		LowStockCount:       latest.LowStockCount,
		OutOfStockCount:     latest.OutOfStockCount,
		StockMovements:      movements,
		AvgDailyMovements:   avgMovements,
		StockHealthScore:    StockHealth(latest.LowStockCount, latest.OutOfStockCount),
	}
	if latest.TotalProducts > 0 {
		overview.TurnoverRatePct = avgMovements / float64(latest.TotalProducts) * 100
	}
	return overview, nil
}

// StockHealth = 100 - 10*low - 20*out, ограничено диапазоном [0, 100]
func StockHealth(lowStock, outOfStock int) float64 {
	score := 100 - 10*float64(lowStock) - 20*float64(outOfStock)
	return math.Max(0, math.Min(100, score))
}

// PlaceholderOverview строит грубую оценку KPI по каталогу для состояния загрузки
func PlaceholderOverview(catalog []models.Product) models.AnalyticsOverview {
	var overview models.AnalyticsOverview
	overview.TotalProducts = len(catalog)
	for _, p := range catalog {
		overview.TotalValue += p.Price * float64(p.Stock)
		switch p.Status {
		case models.ProductStatusLowStock:
			overview.LowStockCount++
		case models.ProductStatusOutOfStock:
			overview.OutOfStockCount++
		}
	}
	overview.StockHealthScore = StockHealth(overview.LowStockCount, overview.OutOfStockCount)
	return overview
}

// growthPct возвращает nil, если предыдущего окна нет или его среднее равно нулю
func growthPct(meanCurrent float64, previous []models.DailySnapshot) *float64 {
	if len(previous) == 0 {
		return nil
	}
	meanPrev := meanValue(previous)
	if meanPrev == 0 {
		return nil
	}
	growth := (meanCurrent - meanPrev) / meanPrev * 100
	return &growth
}

func meanValue(window []models.DailySnapshot) float64 {
	sum := 0.0
	for _, s := range window {
		sum += s.TotalValue
	}
	return sum / float64(len(window))
}

func validateSeries(series []models.DailySnapshot) error {
	if len(series) == 0 {
		return apperror.Computation("historical series is empty", nil)
	}
	for i, s := range series {
		if err := s.Validate(); err != nil {
			return apperror.Computation("historical series is malformed", err)
		}
		if i > 0 && !s.Date.After(series[i-1].Date.Time) {
			return apperror.Computation(fmt.Sprintf("historical series is not ordered at %s", s.Date), nil)
		}
	}
	return nil
}

// Trends возвращает окно снимков (проекция без вычислений)
func Trends(series []models.DailySnapshot, days int) []models.DailySnapshot {
	return WindowOf(series, days)
}

// CategoryBreakdown возвращает копию показателей по категориям в исходном порядке
func CategoryBreakdown(categories []models.CategoryMetric) []models.CategoryMetric {
	out := make([]models.CategoryMetric, len(categories))
	copy(out, categories)
	return out
}

// FilterVelocity отбирает записи сегмента с сохранением порядка
func FilterVelocity(records []models.VelocityRecord, segment VelocitySegment) []models.VelocityRecord {
	out := make([]models.VelocityRecord, 0, len(records))
	for _, r := range records {
		if segment.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s VelocitySegment) matches(r models.VelocityRecord) bool {
	switch s {
	case SegmentFast:
		return r.TurnoverRate > FastTurnoverThreshold
	case SegmentSlow:
		return r.TurnoverRate < SlowTurnoverThreshold
	case SegmentStockout:
		return r.DaysUntilOutOfStock < StockoutDaysThreshold
	case SegmentReorder:
		return r.ReorderRecommended
	default:
		return true
	}
}

// AlertsByType отбирает оповещения заданного типа. Пустой тип возвращает все.
func AlertsByType(alerts []models.StockAlert, alertType models.AlertType) []models.StockAlert {
	out := make([]models.StockAlert, 0, len(alerts))
	for _, a := range alerts {
		if alertType == "" || a.Type == alertType {
			out = append(out, a)
		}
	}
	return out
}

// FilterProducts отбирает товары по категории (без учёта регистра) и статусу. limit <= 0 снимает ограничение.
func FilterProducts(catalog []models.Product, category string, status models.ProductStatus, limit int) []models.Product {
	out := make([]models.Product, 0, len(catalog))
	for _, p := range catalog {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, p)
	}
	return out
}

// AnalyticsService выполняет локальные расчёты поверх истории и справочных данных
type AnalyticsService struct {
	series *store.Series
	data   *dataset.Dataset
}

// NewAnalyticsService создает сервис локальной аналитики
func NewAnalyticsService(series *store.Series, data *dataset.Dataset) *AnalyticsService {
	return &AnalyticsService{series: series, data: data}
}

// Overview считает KPI по текущей истории
func (s *AnalyticsService) Overview(filter models.TimeFilter) (models.AnalyticsOverview, error) {
	return ComputeOverview(s.series.Snapshots(), filter.Days())
}

// Trends возвращает окно истории
func (s *AnalyticsService) Trends(filter models.TimeFilter) ([]models.DailySnapshot, error) {
	series := s.series.Snapshots()
	if err := validateSeries(series); err != nil {
		return nil, err
	}
	return Trends(series, filter.Days()), nil
}

// Categories возвращает показатели по категориям
func (s *AnalyticsService) Categories() ([]models.CategoryMetric, error) {
	return CategoryBreakdown(s.data.Categories), nil
}

// Velocity возвращает все записи скорости оборота
func (s *AnalyticsService) Velocity() ([]models.VelocityRecord, error) {
	return FilterVelocity(s.data.Velocity, SegmentAll), nil
}

// Alerts возвращает все оповещения
func (s *AnalyticsService) Alerts() ([]models.StockAlert, error) {
	return AlertsByType(s.data.Alerts, ""), nil
}

// Catalog возвращает копию каталога
func (s *AnalyticsService) Catalog() []models.Product {
	return append([]models.Product(nil), s.data.Products...)
}

// Snapshots возвращает копию истории
func (s *AnalyticsService) Snapshots() []models.DailySnapshot {
	return s.series.Snapshots()
}

// SeriesLength возвращает длину истории
func (s *AnalyticsService) SeriesLength() int {
	return s.series.Len()
}
