package services

import (
	"reflect"
	"strings"
	"testing"

	"inventory-dashboard/internal/models"
)

func TestInsightEngine_Generate_OrderAndIDs(t *testing.T) {
	insights := NewInsightEngine().Generate(nil, nil, nil)
	if len(insights) != 6 {
		t.Fatalf("expected 6 insights, got %d", len(insights))
	}

	wantTypes := []models.InsightType{
		models.InsightTypeOpportunity,
		models.InsightTypeAlert,
		models.InsightTypeInsight,
		models.InsightTypePerformance,
		models.InsightTypeRecommendation,
		models.InsightTypeTrend,
	}
	for i, insight := range insights {
		if insight.ID != i+1 {
			t.Fatalf("expected id %d, got %d", i+1, insight.ID)
		}
		if insight.Type != wantTypes[i] {
			t.Fatalf("insight %d: expected type %s, got %s", insight.ID, wantTypes[i], insight.Type)
		}
		if insight.Impact == models.ImpactCritical && !insight.Actionable {
			t.Fatalf("critical insight %d must be actionable", insight.ID)
		}
		if insight.Data == nil {
			t.Fatalf("insight %d has no payload", insight.ID)
		}
	}
}

func TestInsightEngine_Generate_EmptyCatalogWithVelocity(t *testing.T) {
	velocity := []models.VelocityRecord{
		{ProductID: "A", ProductName: "A", TurnoverRate: 5, DaysUntilOutOfStock: 30},
		{ProductID: "B", ProductName: "B", TurnoverRate: 45, DaysUntilOutOfStock: 30},
	}

	insights := NewInsightEngine().Generate(nil, velocity, nil)

	slow := insights[0].Data.(models.SlowMoverData)
	if len(slow.Products) != 1 || slow.Products[0] != "A" {
		t.Fatalf("expected slow mover A, got %+v", slow.Products)
	}
	if slow.PotentialSavings != 0 {
		t.Fatalf("expected zero savings for unmatched products, got %f", slow.PotentialSavings)
	}
	if !strings.HasPrefix(insights[0].Message, "1 products") {
		t.Fatalf("unexpected message: %q", insights[0].Message)
	}

	efficiency := insights[3].Data.(models.EfficiencyData)
	if efficiency.CurrentRate != 0 || efficiency.TargetRate != 60 || efficiency.Gap != 60 {
		t.Fatalf("unexpected efficiency payload for empty catalog: %+v", efficiency)
	}
}

func TestSlowMoverRule_NoSlowProducts(t *testing.T) {
	insight := SlowMoverRule(InsightInput{
		Catalog:  []models.Product{{ID: "1", Price: 100, Stock: 10}},
		Velocity: []models.VelocityRecord{{ProductID: "1", TurnoverRate: 10}},
	})

	data := insight.Data.(models.SlowMoverData)
	if data.Products == nil || len(data.Products) != 0 {
		t.Fatalf("expected empty non-nil product list, got %#v", data.Products)
	}
	if data.PotentialSavings != 0 {
		t.Fatalf("expected zero savings, got %f", data.PotentialSavings)
	}
	if !strings.HasPrefix(insight.Message, "0 products") {
		t.Fatalf("unexpected message: %q", insight.Message)
	}
}

func TestSlowMoverRule_Savings(t *testing.T) {
	insight := SlowMoverRule(InsightInput{
		Catalog: []models.Product{
			{ID: "1", Name: "Cable", Price: 100, Stock: 50},
			{ID: "2", Name: "Hub", Price: 0.1, Stock: 3},
		},
		Velocity: []models.VelocityRecord{
			{ProductID: "1", ProductName: "Cable", TurnoverRate: 5},
			{ProductID: "2", ProductName: "Hub", TurnoverRate: 2},
			{ProductID: "404", ProductName: "Ghost", TurnoverRate: 1},
		},
	})

	data := insight.Data.(models.SlowMoverData)
	if !almostEqual(data.PotentialSavings, 500.03) {
		t.Fatalf("expected savings 500.03, got %f", data.PotentialSavings)
	}
	if !reflect.DeepEqual(data.Products, []string{"Cable", "Hub", "Ghost"}) {
		t.Fatalf("unexpected products: %v", data.Products)
	}
}

func TestStockoutRule(t *testing.T) {
	velocity := []models.VelocityRecord{
		{ProductName: "p1", DaysUntilOutOfStock: 0},
		{ProductName: "p2", DaysUntilOutOfStock: 3},
		{ProductName: "p3", DaysUntilOutOfStock: 6},
		{ProductName: "p4", DaysUntilOutOfStock: 2},
		{ProductName: "p5", DaysUntilOutOfStock: 7},
	}
	alerts := []models.StockAlert{
		{Type: models.AlertTypeCritical},
		{Type: models.AlertTypeWarning},
		{Type: models.AlertTypeCritical},
	}

	insight := models.NewInsight(StockoutRule(InsightInput{Velocity: velocity, Alerts: alerts}))
	if !insight.IsCritical() || !insight.Actionable {
		t.Fatalf("stockout insight must be critical and actionable: %+v", insight)
	}

	data := insight.Data.(models.StockoutData)
	if !reflect.DeepEqual(data.Products, []string{"p1", "p2", "p3"}) {
		t.Fatalf("expected first three products, got %v", data.Products)
	}
	if data.CriticalAlerts != 2 || data.Urgency != "immediate" {
		t.Fatalf("unexpected payload: %+v", data)
	}
	if !strings.HasPrefix(insight.Message, "4 products") {
		t.Fatalf("unexpected message: %q", insight.Message)
	}
}

func TestTurnoverEfficiencyRule(t *testing.T) {
	catalog := []models.Product{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}
	velocity := []models.VelocityRecord{
		{ProductID: "1", TurnoverRate: 41},
		{ProductID: "2", TurnoverRate: 40},
		{ProductID: "3", TurnoverRate: 12},
	}

	data := TurnoverEfficiencyRule(InsightInput{Catalog: catalog, Velocity: velocity}).Data.(models.EfficiencyData)
	if data.CurrentRate != 25 || data.Gap != 35 {
		t.Fatalf("unexpected efficiency payload: %+v", data)
	}
}

func TestReorderRule(t *testing.T) {
	insight := ReorderRule(InsightInput{
		Catalog: []models.Product{
			{ID: "1", Price: 100, MinStock: 10},
			{ID: "2", Price: 2.5, MinStock: 4},
		},
		Velocity: []models.VelocityRecord{
			{ProductID: "1", ReorderRecommended: true},
			{ProductID: "2", ReorderRecommended: true},
			{ProductID: "3", ReorderRecommended: true},
			{ProductID: "4"},
		},
	})

	data := insight.Data.(models.ReorderData)
	if data.ReorderCount != 3 || data.EstimatedCost != 1010 {
		t.Fatalf("unexpected reorder payload: %+v", data)
	}
	if insight.Impact != models.ImpactHigh || insight.Timeframe != "Immediate" {
		t.Fatalf("unexpected reorder insight: %+v", insight)
	}
}

func TestStaticRules(t *testing.T) {
	seasonal := SeasonalRule(InsightInput{})
	if seasonal.Source != models.InsightSourceStatic {
		t.Fatalf("seasonal rule must be marked static")
	}
	if data := seasonal.Data.(models.SeasonalData); data.Category != "Network Equipment" || data.GrowthRate != 30 {
		t.Fatalf("unexpected seasonal payload: %+v", data)
	}

	temporal := TemporalPatternRule(InsightInput{})
	if temporal.Actionable || temporal.Impact != models.ImpactLow {
		t.Fatalf("unexpected temporal insight: %+v", temporal)
	}
	if data := temporal.Data.(models.TemporalData); !reflect.DeepEqual(data.PeakDays, []string{"Tuesday", "Wednesday", "Thursday"}) {
		t.Fatalf("unexpected peak days: %v", data.PeakDays)
	}
}

func TestCritical(t *testing.T) {
	insights := NewInsightEngine().Generate(nil, nil, nil)
	critical := Critical(insights)
	if len(critical) != 1 || critical[0].ID != 2 {
		t.Fatalf("expected only the stockout insight, got %+v", critical)
	}
}
