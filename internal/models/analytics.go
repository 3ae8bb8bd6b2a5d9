package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TimeFilter описывает грубый период выборки (week/month/quarter/year).
type TimeFilter string

const (
	TimeFilterWeek    TimeFilter = "week"
	TimeFilterMonth   TimeFilter = "month"
	TimeFilterQuarter TimeFilter = "quarter"
	TimeFilterYear    TimeFilter = "year"
)

// DefaultWindowDays используется для нераспознанных периодов.
const DefaultWindowDays = 30

// Days переводит период в количество дней. Нераспознанный период даёт 30.
func (f TimeFilter) Days() int {
	switch f {
	case TimeFilterWeek:
		return 7
	case TimeFilterMonth:
		return 30
	case TimeFilterQuarter:
		return 90
	case TimeFilterYear:
		return 365
	default:
		return DefaultWindowDays
	}
}

// Valid сообщает, является ли период одним из известных.
func (f TimeFilter) Valid() bool {
	switch f {
	case TimeFilterWeek, TimeFilterMonth, TimeFilterQuarter, TimeFilterYear:
		return true
	}
	return false
}

// ParseTimeFilter нормализует строку периода (регистр, пробелы).
func ParseTimeFilter(value string) TimeFilter {
	return TimeFilter(strings.ToLower(strings.TrimSpace(value)))
}

// Date хранит календарный день снимка. В JSON пишется как YYYY-MM-DD,
// при чтении принимается и RFC3339.
type Date struct {
	time.Time
}

// NewDate обрезает время до начала дня в UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf возвращает календарный день для произвольного момента времени.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		*d = DateOf(parsed)
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	*d = DateOf(parsed)
	return nil
}

// MarshalYAML / UnmarshalYAML позволяют хранить даты в фикстурах как YYYY-MM-DD.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.Parse("2006-01-02", value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid date %q, expected YYYY-MM-DD", value.Line, value.Value)
	}
	*d = DateOf(parsed)
	return nil
}

// DailySnapshot представляет неизменяемый дневной снимок склада.
type DailySnapshot struct {
	Date            Date    `json:"date" yaml:"date"`
	TotalProducts   int     `json:"totalProducts" yaml:"total_products"`
	TotalValue      float64 `json:"totalValue" yaml:"total_value"`
	LowStockCount   int     `json:"lowStockCount" yaml:"low_stock_count"`
	OutOfStockCount int     `json:"outOfStockCount" yaml:"out_of_stock_count"`
	StockMovements  int     `json:"stockMovements" yaml:"stock_movements"`
}

// Validate проверяет неотрицательность полей снимка.
func (s DailySnapshot) Validate() error {
	if s.Date.IsZero() {
		return fmt.Errorf("snapshot date is required")
	}
	if s.TotalProducts < 0 || s.LowStockCount < 0 || s.OutOfStockCount < 0 || s.StockMovements < 0 {
		return fmt.Errorf("snapshot %s has negative counts", s.Date)
	}
	if s.TotalValue < 0 {
		return fmt.Errorf("snapshot %s has negative total value", s.Date)
	}
	return nil
}

// TrendPoint представляет снимок внутри окна тренда.
type TrendPoint = DailySnapshot

// AnalyticsOverview описывает KPI за окно. Не хранится, пересчитывается на каждый запрос.
// TotalValueGrowthPct равен nil, если предыдущее окно пустое или его среднее равно нулю.
type AnalyticsOverview struct {
	TotalProducts       int      `json:"totalProducts"`
	TotalValue          float64  `json:"totalValue"`
	TotalValueGrowthPct *float64 `json:"totalValueGrowth"`
	LowStockCount       int      `json:"lowStockCount"`
	OutOfStockCount     int      `json:"outOfStockCount"`
	StockMovements      int      `json:"stockMovements"`
	AvgDailyMovements   float64  `json:"avgDailyMovements"`
	TurnoverRatePct     float64  `json:"turnoverRate"`
	StockHealthScore    float64  `json:"stockHealth"`
}

// CategoryMetric агрегирует показатели по категории. Category уникальна в пределах ответа.
type CategoryMetric struct {
	Category      string  `json:"category" yaml:"category"`
	TotalProducts int     `json:"totalProducts" yaml:"total_products"`
	TotalValue    float64 `json:"totalValue" yaml:"total_value"`
	Movements     int     `json:"movements" yaml:"movements"`
	GrowthRate    float64 `json:"growthRate" yaml:"growth_rate"`
}
