package models

import (
	"encoding/json"
	"fmt"
)

// InsightType определяет правило, породившее инсайт, и форму его данных
type InsightType string

const (
	InsightTypeOpportunity    InsightType = "opportunity"
	InsightTypeAlert          InsightType = "alert"
	InsightTypeInsight        InsightType = "insight"
	InsightTypePerformance    InsightType = "performance"
	InsightTypeRecommendation InsightType = "recommendation"
	InsightTypeTrend          InsightType = "trend"
)

// Impact представляет важность инсайта
type Impact string

const (
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

// InsightSource различает вычисленные инсайты и статичные подсказки
type InsightSource string

const (
	InsightSourceComputed InsightSource = "computed"
	InsightSourceStatic   InsightSource = "static"
)

// InsightPayload представляет данные конкретного правила. Реализуется только типами этого пакета.
type InsightPayload interface {
	insightType() InsightType
}

// SlowMoverData содержит данные правила о медленно оборачиваемых товарах
type SlowMoverData struct {
	Products         []string `json:"products"`
	PotentialSavings float64  `json:"potentialSavings"`
}

// StockoutData содержит данные правила о скором исчерпании запаса
type StockoutData struct {
	Products       []string `json:"products"`
	Urgency        string   `json:"urgency"`
	CriticalAlerts int      `json:"criticalAlerts"`
}

// SeasonalData содержит данные сезонной подсказки по категории
type SeasonalData struct {
	Category       string  `json:"category"`
	GrowthRate     float64 `json:"growthRate"`
	Recommendation string  `json:"recommendation"`
}

// EfficiencyData содержит данные правила об эффективности оборота
type EfficiencyData struct {
	CurrentRate float64 `json:"currentRate"`
	TargetRate  float64 `json:"targetRate"`
	Gap         float64 `json:"gap"`
}

// ReorderData содержит данные рекомендации по дозаказу
type ReorderData struct {
	ReorderCount  int     `json:"reorderCount"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// TemporalData содержит данные подсказки о временных паттернах
type TemporalData struct {
	PeakDays    []string `json:"peakDays"`
	Improvement string   `json:"improvement"`
}

func (SlowMoverData) insightType() InsightType  { return InsightTypeOpportunity }
func (StockoutData) insightType() InsightType   { return InsightTypeAlert }
func (SeasonalData) insightType() InsightType   { return InsightTypeInsight }
func (EfficiencyData) insightType() InsightType { return InsightTypePerformance }
func (ReorderData) insightType() InsightType    { return InsightTypeRecommendation }
func (TemporalData) insightType() InsightType   { return InsightTypeTrend }

// Insight представляет рекомендацию, построенную правилом. Создаётся заново на каждый запрос.
type Insight struct {
	ID         int            `json:"id"`
	Type       InsightType    `json:"type"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Impact     Impact         `json:"impact"`
	Timeframe  string         `json:"timeframe"`
	Actionable bool           `json:"actionable"`
	Source     InsightSource  `json:"source,omitempty"`
	Data       InsightPayload `json:"data,omitempty"`
}

// NewInsight нормализует инсайт: critical всегда actionable, тип берётся из данных.
func NewInsight(i Insight) Insight {
	if i.Impact == ImpactCritical {
		i.Actionable = true
	}
	if i.Data != nil {
		i.Type = i.Data.insightType()
	}
	return i
}

// IsCritical сообщает, требует ли инсайт немедленной реакции
func (i Insight) IsCritical() bool {
	return i.Impact == ImpactCritical
}

// UnmarshalJSON восстанавливает типизированные данные по полю type.
// Инсайты удалённого API могут приходить без data.
func (i *Insight) UnmarshalJSON(data []byte) error {
	type plain Insight
	var raw struct {
		plain
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	decoded := Insight(raw.plain)
	decoded.Data = nil

	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		payload, err := payloadFor(decoded.Type)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw.Data, payload); err != nil {
			return fmt.Errorf("decode %s insight data: %w", decoded.Type, err)
		}
		decoded.Data = derefPayload(payload)
	}

	*i = NewInsight(decoded)
	return nil
}

func payloadFor(t InsightType) (interface{}, error) {
	switch t {
	case InsightTypeOpportunity:
		return &SlowMoverData{}, nil
	case InsightTypeAlert:
		return &StockoutData{}, nil
	case InsightTypeInsight:
		return &SeasonalData{}, nil
	case InsightTypePerformance:
		return &EfficiencyData{}, nil
	case InsightTypeRecommendation:
		return &ReorderData{}, nil
	case InsightTypeTrend:
		return &TemporalData{}, nil
	default:
		return nil, fmt.Errorf("unknown insight type %q", t)
	}
}

func derefPayload(p interface{}) InsightPayload {
	switch v := p.(type) {
	case *SlowMoverData:
		return *v
	case *StockoutData:
		return *v
	case *SeasonalData:
		return *v
	case *EfficiencyData:
		return *v
	case *ReorderData:
		return *v
	case *TemporalData:
		return *v
	}
	return nil
}
