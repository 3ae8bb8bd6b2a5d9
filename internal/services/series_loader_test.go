package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"inventory-dashboard/internal/database"
	"inventory-dashboard/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
)

var snapshotColumns = []string{"snapshot_date", "total_products", "total_value", "low_stock_count", "out_of_stock_count", "stock_movements"}

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &database.DB{DB: db}, mock
}

func TestSeriesLoader_Load(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT snapshot_date, total_products").
		WillReturnRows(sqlmock.NewRows(snapshotColumns).
			AddRow(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 140, 450000000.0, 5, 1, 40).
			AddRow(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), 141, 452000000.0, 6, 0, 55))

	snapshots, err := NewSeriesLoader(db, newTestLogger()).Load(context.Background())
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snapshots))
	}
	if snapshots[1].Date.String() != "2024-03-02" || snapshots[1].StockMovements != 55 {
		t.Fatalf("unexpected snapshot: %+v", snapshots[1])
	}

	series, err := store.NewSeries(snapshots)
	if err != nil || series.Len() != 2 {
		t.Fatalf("loaded snapshots must seed the series: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSeriesLoader_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT snapshot_date").WillReturnError(errors.New("relation does not exist"))

	if _, err := NewSeriesLoader(db, newTestLogger()).Load(context.Background()); err == nil {
		t.Fatalf("expected query error")
	}
}

func TestSeriesLoader_ScanError(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT snapshot_date").
		WillReturnRows(sqlmock.NewRows(snapshotColumns).
			AddRow(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "many", 1.0, 0, 0, 0))

	if _, err := NewSeriesLoader(db, newTestLogger()).Load(context.Background()); err == nil {
		t.Fatalf("expected scan error")
	}
}
