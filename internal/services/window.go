package services

import "inventory-dashboard/internal/models"

// WindowOf возвращает последние min(days, len(series)) снимков в хронологическом порядке.
// Результат всегда новый срез, исходный не изменяется.
func WindowOf(series []models.DailySnapshot, days int) []models.DailySnapshot {
	if days <= 0 || len(series) == 0 {
		return []models.DailySnapshot{}
	}
	n := days
	if n > len(series) {
		n = len(series)
	}
	out := make([]models.DailySnapshot, n)
	copy(out, series[len(series)-n:])
	return out
}

// previousWindow возвращает до days снимков, идущих непосредственно перед текущим окном.
// С текущим окном не пересекается; при len(series) < 2*days короче или пустое.
func previousWindow(series []models.DailySnapshot, days int) []models.DailySnapshot {
	if days <= 0 || len(series) == 0 {
		return []models.DailySnapshot{}
	}
	current := days
	if current > len(series) {
		current = len(series)
	}
	end := len(series) - current
	start := len(series) - 2*days
	if start < 0 {
		start = 0
	}
	out := make([]models.DailySnapshot, end-start)
	copy(out, series[start:end])
	return out
}
