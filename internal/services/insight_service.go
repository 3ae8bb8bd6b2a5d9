package services

import (
	"fmt"

	"inventory-dashboard/internal/models"

	"github.com/shopspring/decimal"
)

const (
	maxExampleProducts = 3
	targetTurnoverRate = 60.0
)

var (
	slowMoverSavingsRate = decimal.NewFromFloat(0.1)
	percent              = decimal.NewFromInt(100)
)

// InsightRule представляет одно независимое правило движка
type InsightRule func(in InsightInput) models.Insight

// InsightInput содержит входные данные правил
type InsightInput struct {
	Catalog  []models.Product
	Velocity []models.VelocityRecord
	Alerts   []models.StockAlert
}

func (in InsightInput) product(id string) (models.Product, bool) {
	for _, p := range in.Catalog {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// InsightEngine генерирует шесть инсайтов в фиксированном порядке (id 1..6)
type InsightEngine struct {
	rules []InsightRule
}

// NewInsightEngine создаёт движок со стандартным набором правил
func NewInsightEngine() *InsightEngine {
	return &InsightEngine{rules: []InsightRule{
		SlowMoverRule,
		StockoutRule,
		SeasonalRule,
		TurnoverEfficiencyRule,
		ReorderRule,
		TemporalPatternRule,
	}}
}

// Generate применяет все правила. Пустой каталог не ошибка и не даёт пустой список:
// все шесть инсайтов строятся всегда, поля, зависящие от каталога, нулевые.
// Медленные товары при этом берутся из скорости оборота, даже если их нет в каталоге.
func (e *InsightEngine) Generate(catalog []models.Product, velocity []models.VelocityRecord, alerts []models.StockAlert) []models.Insight {
	in := InsightInput{Catalog: catalog, Velocity: velocity, Alerts: alerts}
	out := make([]models.Insight, 0, len(e.rules))
	for i, rule := range e.rules {
		insight := rule(in)
		insight.ID = i + 1
		out = append(out, models.NewInsight(insight))
	}
	return out
}

// Critical отбирает инсайты с impact=critical
func Critical(insights []models.Insight) []models.Insight {
	var out []models.Insight
	for _, i := range insights {
		if i.IsCritical() {
			out = append(out, i)
		}
	}
	return out
}

// SlowMoverRule: товары с оборотом ниже 10 и потенциальная экономия 10% их стоимости
func SlowMoverRule(in InsightInput) models.Insight {
	slow := FilterVelocity(in.Velocity, SegmentSlow)
	savings := decimal.Zero
	for _, v := range slow {
		if p, ok := in.product(v.ProductID); ok {
			savings = savings.Add(stockValue(p.Price, p.Stock).Mul(slowMoverSavingsRate))
		}
	}
	return models.Insight{
		Title:      "Stock optimisation opportunity",
		Message:    fmt.Sprintf("%d products have a low turnover rate. Consider reducing stock or running a promotion.", len(slow)),
		Impact:     models.ImpactHigh,
		Timeframe:  "1-2 weeks",
		Actionable: true,
		Source:     models.InsightSourceComputed,
		Data: models.SlowMoverData{
			Products:         productNames(slow),
			PotentialSavings: savings.InexactFloat64(),
		},
	}
}

// StockoutRule: товары, которые закончатся меньше чем за 7 дней
func StockoutRule(in InsightInput) models.Insight {
	atRisk := FilterVelocity(in.Velocity, SegmentStockout)
	critical := len(AlertsByType(in.Alerts, models.AlertTypeCritical))
	return models.Insight{
		Title:      "Stockout forecast",
		Message:    fmt.Sprintf("%d products are predicted to run out within %d days based on consumption patterns.", len(atRisk), StockoutDaysThreshold),
		Impact:     models.ImpactCritical,
		Timeframe:  "3-7 days",
		Actionable: true,
		Source:     models.InsightSourceComputed,
		Data: models.StockoutData{
			Products:       productNames(atRisk),
			Urgency:        "immediate",
			CriticalAlerts: critical,
		},
	}
}

// SeasonalRule возвращает статичную сезонную подсказку
func SeasonalRule(InsightInput) models.Insight {
	return models.Insight{
		Title:      "Seasonal pattern analysis",
		Message:    "Network Equipment shows 30% more activity than the previous period. Prepare for higher demand.",
		Impact:     models.ImpactMedium,
		Timeframe:  "2-4 weeks",
		Actionable: true,
		Source:     models.InsightSourceStatic,
		Data: models.SeasonalData{
			Category:       "Network Equipment",
			GrowthRate:     30,
			Recommendation: "Increase stock by 25%",
		},
	}
}

// TurnoverEfficiencyRule: доля быстро оборачиваемых товаров относительно каталога
func TurnoverEfficiencyRule(in InsightInput) models.Insight {
	fast := FilterVelocity(in.Velocity, SegmentFast)
	current := 0.0
	if len(in.Catalog) > 0 {
		current = decimal.NewFromInt(int64(len(fast))).
			Div(decimal.NewFromInt(int64(len(in.Catalog)))).
			Mul(percent).
			InexactFloat64()
	}
	return models.Insight{
		Title:      "Inventory efficiency",
		Message:    fmt.Sprintf("Current inventory turnover is %.1f%%. The optimal target is %.0f%%.", current, targetTurnoverRate),
		Impact:     models.ImpactMedium,
		Timeframe:  "Ongoing",
		Actionable: true,
		Source:     models.InsightSourceComputed,
		Data: models.EfficiencyData{
			CurrentRate: current,
			TargetRate:  targetTurnoverRate,
			Gap:         targetTurnoverRate - current,
		},
	}
}

// ReorderRule: количество товаров к дозаказу и оценка стоимости по минимальному остатку
func ReorderRule(in InsightInput) models.Insight {
	reorder := FilterVelocity(in.Velocity, SegmentReorder)
	cost := decimal.Zero
	for _, v := range reorder {
		if p, ok := in.product(v.ProductID); ok {
			cost = cost.Add(stockValue(p.Price, p.MinStock))
		}
	}
	return models.Insight{
		Title:      "Purchase recommendation",
		Message:    fmt.Sprintf("Based on velocity analysis, %d products should be reordered.", len(reorder)),
		Impact:     models.ImpactHigh,
		Timeframe:  "Immediate",
		Actionable: true,
		Source:     models.InsightSourceComputed,
		Data: models.ReorderData{
			ReorderCount:  len(reorder),
			EstimatedCost: cost.InexactFloat64(),
		},
	}
}

// TemporalPatternRule возвращает статичное наблюдение о пиковых днях
func TemporalPatternRule(InsightInput) models.Insight {
	return models.Insight{
		Title:      "Temporal trend",
		Message:    "Stock movement peaks from Tuesday to Thursday. Adjust delivery schedules accordingly.",
		Impact:     models.ImpactLow,
		Timeframe:  "Ongoing",
		Actionable: false,
		Source:     models.InsightSourceStatic,
		Data: models.TemporalData{
			PeakDays:    []string{"Tuesday", "Wednesday", "Thursday"},
			Improvement: "15% efficiency gain",
		},
	}
}

func stockValue(price float64, qty int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty)))
}

func productNames(records []models.VelocityRecord) []string {
	n := len(records)
	if n > maxExampleProducts {
		n = maxExampleProducts
	}
	names := make([]string, 0, n)
	for _, r := range records[:n] {
		names = append(names, r.ProductName)
	}
	return names
}
