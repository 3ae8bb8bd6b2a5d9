package inventoryapi

import (
	"context"
	"encoding/json"
	"time"

	"inventory-dashboard/internal/apperror"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/validation"
)

// Пути удалённого API
const (
	EndpointHealth           = "/health"
	EndpointOverview         = "/api/analytics/overview"
	EndpointTrends           = "/api/analytics/trends"
	EndpointCategoryAnalysis = "/api/analytics/category-analysis"
	EndpointStockVelocity    = "/api/analytics/stock-velocity"
	EndpointAlerts           = "/api/analytics/alerts"
	EndpointInsights         = "/api/analytics/insights"
	EndpointProducts         = "/api/products"
)

// HealthStatus представляет ответ /health
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health проверяет доступность удалённого API (без кеша)
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	raw, err := c.Request(ctx, EndpointHealth, &RequestOptions{NoCache: true})
	if err != nil {
		return out, err
	}
	return out, decode(raw, &out)
}

// AnalyticsOverview возвращает KPI за период
func (c *Client) AnalyticsOverview(ctx context.Context, p OverviewParams) (models.AnalyticsOverview, error) {
	var out models.AnalyticsOverview
	if err := c.prepare(ctx, &p); err != nil {
		return out, err
	}
	err := c.getInto(ctx, EndpointOverview, &RequestOptions{Query: p.query()}, &out)
	return out, err
}

// AnalyticsTrends возвращает дневные снимки за окно
func (c *Client) AnalyticsTrends(ctx context.Context, p TrendsParams) ([]models.DailySnapshot, error) {
	var out []models.DailySnapshot
	if err := c.prepare(ctx, &p); err != nil {
		return nil, err
	}
	err := c.getInto(ctx, EndpointTrends, &RequestOptions{Query: p.query()}, &out)
	return out, err
}

// CategoryAnalysis возвращает показатели по категориям
func (c *Client) CategoryAnalysis(ctx context.Context) ([]models.CategoryMetric, error) {
	var out []models.CategoryMetric
	err := c.getInto(ctx, EndpointCategoryAnalysis, nil, &out)
	return out, err
}

// StockVelocity возвращает скорость оборота товаров
func (c *Client) StockVelocity(ctx context.Context) ([]models.VelocityRecord, error) {
	var out []models.VelocityRecord
	err := c.getInto(ctx, EndpointStockVelocity, nil, &out)
	return out, err
}

// StockAlerts возвращает складские оповещения
func (c *Client) StockAlerts(ctx context.Context) ([]models.StockAlert, error) {
	var out []models.StockAlert
	err := c.getInto(ctx, EndpointAlerts, nil, &out)
	return out, err
}

// SmartInsights возвращает инсайты, посчитанные удалённой стороной
func (c *Client) SmartInsights(ctx context.Context, p InsightsParams) ([]models.Insight, error) {
	var out []models.Insight
	if err := c.prepare(ctx, &p); err != nil {
		return nil, err
	}
	err := c.getInto(ctx, EndpointInsights, &RequestOptions{Query: p.query()}, &out)
	return out, err
}

// Products возвращает каталог
func (c *Client) Products(ctx context.Context, p ProductsParams) ([]models.Product, error) {
	var out []models.Product
	if err := c.prepare(ctx, &p); err != nil {
		return nil, err
	}
	err := c.getInto(ctx, EndpointProducts, &RequestOptions{Query: p.query()}, &out)
	return out, err
}

// prepare проверяет параметры до обращения к сети. Выключенный клиент отвечает ErrNotConfigured.
func (c *Client) prepare(ctx context.Context, params interface{}) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	return validation.Struct(ctx, params)
}

func (c *Client) getInto(ctx context.Context, endpoint string, opts *RequestOptions, dest interface{}) error {
	raw, err := c.Request(ctx, endpoint, opts)
	if err != nil {
		return err
	}
	return decode(raw, dest)
}

func decode(raw json.RawMessage, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return apperror.Remote("unexpected inventory api payload", err)
	}
	return nil
}
