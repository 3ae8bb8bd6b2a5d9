package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"inventory-dashboard/internal/logger"
	"inventory-dashboard/internal/models"
)

const selectSnapshotsQuery = `
	SELECT snapshot_date, total_products, total_value, low_stock_count, out_of_stock_count, stock_movements
	FROM daily_snapshots
	ORDER BY snapshot_date ASC`

// Querier описывает доступ загрузчика к базе. Реализуется database.DB.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// SeriesLoader читает историю дневных снимков из PostgreSQL (только чтение)
type SeriesLoader struct {
	db  Querier
	log *logger.Logger
}

// NewSeriesLoader создает загрузчик истории
func NewSeriesLoader(db Querier, log *logger.Logger) *SeriesLoader {
	return &SeriesLoader{db: db, log: log}
}

// Load возвращает снимки в порядке возрастания даты. Снимки не проверяются: этим занимается store.Series.
func (l *SeriesLoader) Load(ctx context.Context) ([]models.DailySnapshot, error) {
	rows, err := l.db.QueryContext(ctx, selectSnapshotsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.DailySnapshot
	for rows.Next() {
		var (
			snap models.DailySnapshot
			date time.Time
		)
		if err := rows.Scan(
			&date,
			&snap.TotalProducts,
			&snap.TotalValue,
			&snap.LowStockCount,
			&snap.OutOfStockCount,
			&snap.StockMovements,
		); err != nil {
			return nil, fmt.Errorf("failed to scan daily snapshot: %w", err)
		}
		snap.Date = models.DateOf(date)
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily snapshots: %w", err)
	}

	l.log.WithField("count", len(snapshots)).Info("Daily snapshots loaded from database")
	return snapshots, nil
}
