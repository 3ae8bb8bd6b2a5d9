package handlers

import (
	"context"

	"inventory-dashboard/internal/inventoryapi"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/services"
)

// ----- Dashboard -----

type DashboardProvider interface {
	DefaultFilter() models.TimeFilter

	FetchOverview(ctx context.Context, filter models.TimeFilter) services.HybridResult[models.AnalyticsOverview]
	CurrentOverview(filter models.TimeFilter) services.HybridResult[models.AnalyticsOverview]

	FetchTrends(ctx context.Context, filter models.TimeFilter) services.HybridResult[[]models.DailySnapshot]
	CurrentTrends(filter models.TimeFilter) services.HybridResult[[]models.DailySnapshot]

	FetchCategories(ctx context.Context) services.HybridResult[[]models.CategoryMetric]
	CurrentCategories() services.HybridResult[[]models.CategoryMetric]

	FetchVelocity(ctx context.Context, segment services.VelocitySegment) services.HybridResult[[]models.VelocityRecord]
	CurrentVelocity(segment services.VelocitySegment) services.HybridResult[[]models.VelocityRecord]

	FetchAlerts(ctx context.Context, alertType models.AlertType) services.HybridResult[[]models.StockAlert]
	CurrentAlerts(alertType models.AlertType) services.HybridResult[[]models.StockAlert]

	FetchInsights(ctx context.Context, filter models.TimeFilter) services.HybridResult[[]models.Insight]
	CurrentInsights(filter models.TimeFilter) services.HybridResult[[]models.Insight]

	FetchProducts(ctx context.Context, params inventoryapi.ProductsParams) (services.HybridResult[[]models.Product], error)

	InvalidateRemoteCache(ctx context.Context) error
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}

type RemoteHealth interface {
	Enabled() bool
	Health(ctx context.Context) (inventoryapi.HealthStatus, error)
}
