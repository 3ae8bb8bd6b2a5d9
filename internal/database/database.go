package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inventory-dashboard/internal/config"
	"inventory-dashboard/internal/logger"

	_ "github.com/lib/pq"
)

// DB оборачивает подключение к PostgreSQL. Сервис только читает историю снимков.
type DB struct {
	*sql.DB
}

// Connect открывает подключение и проверяет его ping-ом
func Connect(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"host": cfg.Host,
		"db":   cfg.DBName,
	}).Info("Successfully connected to PostgreSQL")

	return &DB{DB: sqlDB}, nil
}

// Health проверяет доступность базы
func (db *DB) Health() error {
	if db == nil || db.DB == nil {
		return errors.New("database is not initialized")
	}
	return db.Ping()
}

// Close закрывает подключение
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}
