package dataset

import (
	"math"
	"time"

	"inventory-dashboard/internal/models"

	"github.com/google/uuid"
)

// HistoryDays задаёт длину встроенной истории снимков
const HistoryDays = 365

// alertNamespace фиксирует идентификаторы оповещений между запусками
var alertNamespace = uuid.MustParse("6f1c2a4e-3b7d-4c55-9a41-8d2e7b0c9f13")

type productSeed struct {
	id, name, category string
	price              float64
	stock, minStock    int
}

var productSeeds = []productSeed{
	{"1", "Cisco Catalyst 2960 Switch", "Network Equipment", 12500000, 8, 5},
	{"2", "Ubiquiti UniFi Access Point", "Network Equipment", 2800000, 3, 10},
	{"3", "MikroTik RB4011 Router", "Network Equipment", 4200000, 0, 4},
	{"4", "Dell Latitude 5440", "Computers", 18000000, 14, 5},
	{"5", "HP ProDesk 400 G9", "Computers", 11500000, 6, 4},
	{"6", "Lenovo ThinkPad T14", "Computers", 21000000, 2, 5},
	{"7", "Logitech MX Keys", "Peripherals", 1650000, 45, 15},
	{"8", "Dell P2423 Monitor", "Peripherals", 3900000, 22, 10},
	{"9", "Samsung 870 EVO 1TB", "Storage", 1450000, 30, 12},
	{"10", "Synology DS923+ NAS", "Storage", 9800000, 1, 2},
	{"11", "APC Back-UPS 1500VA", "Power", 3100000, 9, 6},
	{"12", "HP 26A Toner Cartridge", "Office Supplies", 1200000, 0, 8},
}

type velocitySeed struct {
	productID    string
	turnoverRate float64
	daysLeft     int
	reorder      bool
}

var velocitySeeds = []velocitySeed{
	{"1", 32.5, 18, false},
	{"2", 48.0, 4, true},
	{"3", 55.0, 0, true},
	{"4", 22.0, 35, false},
	{"5", 8.5, 60, false},
	{"6", 41.5, 5, true},
	{"7", 6.0, 120, false},
	{"8", 15.0, 44, false},
	{"9", 44.0, 12, false},
	{"10", 4.5, 9, true},
	{"11", 9.0, 75, false},
	{"12", 62.0, 0, true},
}

// categoryTrend хранит движение и рост по категории, остальное считается по каталогу
var categoryTrend = []struct {
	category  string
	movements int
	growth    float64
}{
	{"Network Equipment", 420, 30},
	{"Computers", 310, 12.5},
	{"Peripherals", 280, 8},
	{"Storage", 190, -4.5},
	{"Power", 75, 2},
	{"Office Supplies", 240, 15},
}

// Builtin собирает детерминированный справочный набор с историей, заканчивающейся в end
func Builtin(end models.Date) *Dataset {
	products := make([]models.Product, 0, len(productSeeds))
	byID := make(map[string]models.Product, len(productSeeds))
	for _, seed := range productSeeds {
		p := models.Product{
			ID:       seed.id,
			Name:     seed.name,
			Category: seed.category,
			Price:    seed.price,
			Stock:    seed.stock,
			MinStock: seed.minStock,
			Status:   models.StatusFor(seed.stock, seed.minStock),
		}
		products = append(products, p)
		byID[p.ID] = p
	}

	velocity := make([]models.VelocityRecord, 0, len(velocitySeeds))
	for _, seed := range velocitySeeds {
		p := byID[seed.productID]
		velocity = append(velocity, models.VelocityRecord{
			ProductID:           p.ID,
			ProductName:         p.Name,
			Category:            p.Category,
			TurnoverRate:        seed.turnoverRate,
			DaysUntilOutOfStock: seed.daysLeft,
			ReorderRecommended:  seed.reorder,
		})
	}

	return &Dataset{
		Products:   products,
		Velocity:   velocity,
		Alerts:     alertsFor(products, end),
		Categories: CategoriesFor(products),
		History:    GenerateHistory(end, HistoryDays),
	}
}

// CategoriesFor агрегирует каталог по категориям в порядке первого появления
func CategoriesFor(products []models.Product) []models.CategoryMetric {
	index := make(map[string]int)
	var out []models.CategoryMetric
	for _, p := range products {
		i, ok := index[p.Category]
		if !ok {
			i = len(out)
			index[p.Category] = i
			out = append(out, models.CategoryMetric{Category: p.Category})
		}
		out[i].TotalProducts++
		out[i].TotalValue += p.Price * float64(p.Stock)
	}
	for _, trend := range categoryTrend {
		if i, ok := index[trend.category]; ok {
			out[i].Movements = trend.movements
			out[i].GrowthRate = trend.growth
		}
	}
	return out
}

func alertsFor(products []models.Product, end models.Date) []models.StockAlert {
	var alerts []models.StockAlert
	for i, p := range products {
		var (
			alertType models.AlertType
			message   string
		)
		switch p.Status {
		case models.ProductStatusOutOfStock:
			alertType, message = models.AlertTypeCritical, p.Name+" is out of stock"
		case models.ProductStatusLowStock:
			alertType, message = models.AlertTypeWarning, p.Name+" is below minimum stock"
		default:
			continue
		}
		alerts = append(alerts, models.StockAlert{
			ID:           uuid.NewSHA1(alertNamespace, []byte(p.ID+"/"+string(alertType))).String(),
			ProductID:    p.ID,
			ProductName:  p.Name,
			Type:         alertType,
			Message:      message,
			CurrentStock: p.Stock,
			MinStock:     p.MinStock,
			CreatedAt:    end.Add(-time.Duration(i+1) * time.Hour),
		})
	}

	// быстро оборачиваемый товар с нормальным остатком
	alerts = append(alerts, models.StockAlert{
		ID:           uuid.NewSHA1(alertNamespace, []byte("9/info")).String(),
		ProductID:    "9",
		ProductName:  "Samsung 870 EVO 1TB",
		Type:         models.AlertTypeInfo,
		Message:      "Samsung 870 EVO 1TB is moving faster than usual",
		CurrentStock: 30,
		MinStock:     12,
		CreatedAt:    end.Add(-30 * time.Hour),
	})
	return alerts
}

// GenerateHistory строит days дневных снимков, последний из которых датирован end.
// Значения зависят только от номера дня, поэтому повторный вызов даёт ту же историю.
func GenerateHistory(end models.Date, days int) []models.DailySnapshot {
	if days <= 0 {
		return nil
	}
	out := make([]models.DailySnapshot, 0, days)
	start := end.AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		date := models.DateOf(start.AddDate(0, 0, i))
		season := math.Sin(2 * math.Pi * float64(i) / 30)

		movements := 40 + (i*13)%35
		switch date.Weekday() {
		case time.Tuesday, time.Wednesday, time.Thursday:
			movements += 15
		case time.Saturday, time.Sunday:
			movements -= 20
		}

		out = append(out, models.DailySnapshot{
			Date:            date,
			TotalProducts:   140 + i/15,
			TotalValue:      math.Round(450000000 + float64(i)*350000 + 25000000*season),
			LowStockCount:   5 + (i*7)%6,
			OutOfStockCount: (i * 3) % 4,
			StockMovements:  movements,
		})
	}
	return out
}
