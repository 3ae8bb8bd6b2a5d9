package services

import (
	"strings"
	"testing"

	"inventory-dashboard/internal/config"
	"inventory-dashboard/internal/logger"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/redis"

	"github.com/alicebob/miniredis/v2"
)

var seriesStart = models.NewDate(2024, 1, 1)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "debug", Format: "json"})
}

// linearSeries строит n снимков: стоимость растёт на step, движения равны номеру дня (с 1)
func linearSeries(n int, base, step float64) []models.DailySnapshot {
	series := make([]models.DailySnapshot, 0, n)
	for i := 0; i < n; i++ {
		series = append(series, models.DailySnapshot{
			Date:            models.DateOf(seriesStart.AddDate(0, 0, i)),
			TotalProducts:   100,
			TotalValue:      base + float64(i)*step,
			LowStockCount:   2,
			OutOfStockCount: 1,
			StockMovements:  i + 1,
		})
	}
	return series
}

func newTestRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skip: cannot start miniredis in this environment: %v", err)
		}
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	parts := strings.Split(mr.Addr(), ":")
	rdb, err := redis.Connect(&config.RedisConfig{Host: parts[0], Port: parts[1]}, newTestLogger())
	if err != nil {
		t.Fatalf("failed to connect redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
