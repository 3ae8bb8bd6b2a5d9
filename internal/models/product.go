package models

import "time"

// ProductStatus представляет состояние остатка товара
type ProductStatus string

const (
	ProductStatusInStock    ProductStatus = "in_stock"
	ProductStatusLowStock   ProductStatus = "low_stock"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
)

// Product представляет позицию справочного каталога (только чтение)
type Product struct {
	ID       string        `json:"id" yaml:"id"`
	Name     string        `json:"name" yaml:"name"`
	Category string        `json:"category" yaml:"category"`
	Price    float64       `json:"price" yaml:"price"`
	Stock    int           `json:"stock" yaml:"stock"`
	MinStock int           `json:"minStock" yaml:"min_stock"`
	Status   ProductStatus `json:"status" yaml:"status"`
}

// StatusFor вычисляет статус по остатку и минимальному порогу
func StatusFor(stock, minStock int) ProductStatus {
	switch {
	case stock <= 0:
		return ProductStatusOutOfStock
	case stock <= minStock:
		return ProductStatusLowStock
	default:
		return ProductStatusInStock
	}
}

// VelocityRecord описывает скорость оборота товара
type VelocityRecord struct {
	ProductID           string  `json:"productId" yaml:"product_id"`
	ProductName         string  `json:"productName" yaml:"product_name"`
	Category            string  `json:"category" yaml:"category"`
	TurnoverRate        float64 `json:"turnoverRate" yaml:"turnover_rate"`
	DaysUntilOutOfStock int     `json:"daysUntilOutOfStock" yaml:"days_until_out_of_stock"`
	ReorderRecommended  bool    `json:"reorderRecommended" yaml:"reorder_recommended"`
}

// AlertType представляет уровень складского оповещения
type AlertType string

const (
	AlertTypeCritical AlertType = "critical"
	AlertTypeWarning  AlertType = "warning"
	AlertTypeInfo     AlertType = "info"
)

// Valid сообщает, является ли тип оповещения известным
func (t AlertType) Valid() bool {
	switch t {
	case AlertTypeCritical, AlertTypeWarning, AlertTypeInfo:
		return true
	}
	return false
}

// StockAlert представляет складское оповещение
type StockAlert struct {
	ID           string    `json:"id" yaml:"id"`
	ProductID    string    `json:"productId" yaml:"product_id"`
	ProductName  string    `json:"productName" yaml:"product_name"`
	Type         AlertType `json:"type" yaml:"type"`
	Message      string    `json:"message" yaml:"message"`
	CurrentStock int       `json:"currentStock" yaml:"current_stock"`
	MinStock     int       `json:"minStock" yaml:"min_stock"`
	CreatedAt    time.Time `json:"createdAt" yaml:"created_at"`
}
