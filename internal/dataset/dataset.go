package dataset

import (
	"fmt"
	"os"

	"inventory-dashboard/internal/models"

	"gopkg.in/yaml.v3"
)

// Dataset содержит справочные данные для локального расчёта (каталог, скорость оборота,
// оповещения, категории и история снимков)
type Dataset struct {
	Products   []models.Product        `yaml:"products"`
	Velocity   []models.VelocityRecord `yaml:"velocity"`
	Alerts     []models.StockAlert     `yaml:"alerts"`
	Categories []models.CategoryMetric `yaml:"categories"`
	History    []models.DailySnapshot  `yaml:"history"`
}

// LoadFile читает набор из YAML. Пустые разделы дополняются встроенными данными:
// категории считаются по каталогу, история генерируется до end.
func LoadFile(path string, end models.Date) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset file: %w", err)
	}
	return Parse(raw, end)
}

// Parse разбирает YAML-набор и проверяет его
func Parse(raw []byte, end models.Date) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	for i := range ds.Products {
		if ds.Products[i].Status == "" {
			ds.Products[i].Status = models.StatusFor(ds.Products[i].Stock, ds.Products[i].MinStock)
		}
	}
	if len(ds.Categories) == 0 {
		ds.Categories = CategoriesFor(ds.Products)
	}
	if len(ds.History) == 0 {
		ds.History = GenerateHistory(end, HistoryDays)
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate проверяет уникальность ключей и допустимость значений
func (d *Dataset) Validate() error {
	ids := make(map[string]struct{}, len(d.Products))
	for _, p := range d.Products {
		if p.ID == "" {
			return fmt.Errorf("product %q has empty id", p.Name)
		}
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("duplicate product id %q", p.ID)
		}
		ids[p.ID] = struct{}{}
		if p.Price < 0 || p.Stock < 0 || p.MinStock < 0 {
			return fmt.Errorf("product %q has negative price or stock", p.ID)
		}
	}

	categories := make(map[string]struct{}, len(d.Categories))
	for _, c := range d.Categories {
		if _, dup := categories[c.Category]; dup {
			return fmt.Errorf("duplicate category %q", c.Category)
		}
		categories[c.Category] = struct{}{}
	}

	for _, v := range d.Velocity {
		if v.TurnoverRate < 0 || v.DaysUntilOutOfStock < 0 {
			return fmt.Errorf("velocity record for %q has negative values", v.ProductID)
		}
	}

	for _, a := range d.Alerts {
		if !a.Type.Valid() {
			return fmt.Errorf("alert %q has unknown type %q", a.ID, a.Type)
		}
	}
	return nil
}
