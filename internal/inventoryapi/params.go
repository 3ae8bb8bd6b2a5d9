package inventoryapi

import (
	"net/url"
	"strconv"

	"inventory-dashboard/internal/models"
)

// OverviewParams содержит параметры /api/analytics/overview
type OverviewParams struct {
	TimeFilter string `json:"timeFilter" default:"month" validate:"oneof=week month quarter year"`
}

func (p OverviewParams) query() url.Values {
	return url.Values{"timeFilter": {p.TimeFilter}}
}

// TrendsParams содержит параметры /api/analytics/trends. Days=0 означает длину периода TimeFilter.
type TrendsParams struct {
	TimeFilter string `json:"timeFilter" default:"month" validate:"oneof=week month quarter year"`
	Days       int    `json:"days" validate:"gte=0,lte=365"`
}

func (p TrendsParams) query() url.Values {
	days := p.Days
	if days == 0 {
		days = models.TimeFilter(p.TimeFilter).Days()
	}
	return url.Values{
		"timeFilter": {p.TimeFilter},
		"days":       {strconv.Itoa(days)},
	}
}

// InsightsParams содержит параметры /api/analytics/insights
type InsightsParams struct {
	TimeFilter string `json:"timeFilter" default:"month" validate:"oneof=week month quarter year"`
}

func (p InsightsParams) query() url.Values {
	return url.Values{"timeFilter": {p.TimeFilter}}
}

// ProductsParams содержит параметры /api/products
type ProductsParams struct {
	Category string `json:"category" validate:"omitempty,max=100"`
	Status   string `json:"status" validate:"omitempty,oneof=in_stock low_stock out_of_stock"`
	Limit    int    `json:"limit" default:"50" validate:"gte=1,lte=500"`
}

func (p ProductsParams) query() url.Values {
	q := url.Values{"limit": {strconv.Itoa(p.Limit)}}
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	return q
}
