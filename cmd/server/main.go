package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory-dashboard/internal/config"
	"inventory-dashboard/internal/database"
	"inventory-dashboard/internal/dataset"
	"inventory-dashboard/internal/handlers"
	"inventory-dashboard/internal/inventoryapi"
	"inventory-dashboard/internal/kafka"
	"inventory-dashboard/internal/logger"
	"inventory-dashboard/internal/metrics"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/redis"
	"inventory-dashboard/internal/services"
	"inventory-dashboard/internal/store"
)

const seriesSourcePostgres = "postgres"

// Фабричные функции для подключения внешних сервисов (подменяемые в тестах).
var (
	dbConnect        = database.Connect
	redisConnect     = redis.Connect
	newKafkaProducer = kafka.NewProducer
	newKafkaConsumer = kafka.NewConsumer
	kafkaHealthCheck = handlers.CheckKafkaHealth
	loadConfig       = config.Load
	newLogger        = logger.New
	today            = func() models.Date { return models.DateOf(time.Now()) }
)

// application агрегирует собранные зависимости.
type application struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	redis     *redis.Client
	producer  *kafka.Producer
	consumer  *kafka.Consumer
	dashboard *services.DashboardService
	mux       *http.ServeMux
	server    *http.Server
}

func main() {
	app, err := buildApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build app: %v\n", err)
		os.Exit(1)
	}
	app.log.Info("Starting inventory dashboard server...")

	ctx, stopRefresh := context.WithCancel(context.Background())
	app.dashboard.StartAutoRefresh(ctx)

	go func() {
		app.log.WithField("address", app.server.Addr).Info("HTTP server starting")
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("Shutting down server...")

	stopRefresh()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.log.WithError(err).Error("Server forced to shutdown")
	}
	app.close()
	app.log.Info("Server exited")
}

// buildApplication создает все зависимости (подменяемые в тестах).
// Выключенные в конфигурации компоненты не создаются: дашборд работает на локальных данных.
func buildApplication() (*application, error) {
	cfg := loadConfig()
	log := newLogger(&cfg.Logger)
	app := &application{cfg: cfg, log: log}

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
	}

	if cfg.Database.Enabled {
		db, err := dbConnect(&cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		app.db = db
	}

	if cfg.Redis.Enabled {
		redisClient, err := redisConnect(&cfg.Redis, log)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		app.redis = redisClient
	}

	data, err := loadDataset(&cfg.Dashboard)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("dataset: %w", err)
	}

	history, err := loadHistory(app, data)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("series: %w", err)
	}
	series, err := store.NewSeries(history)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("series: %w", err)
	}
	recorder.SetSeriesLength(series.Len())

	var clientOpts []inventoryapi.Option
	if recorder != nil {
		clientOpts = append(clientOpts, inventoryapi.WithObserver(recorder))
	}
	if app.redis != nil && cfg.InventoryAPI.CacheTTLSeconds > 0 {
		clientOpts = append(clientOpts, inventoryapi.WithCache(app.redis, time.Duration(cfg.InventoryAPI.CacheTTLSeconds)*time.Second))
	}
	remote := inventoryapi.NewClient(&cfg.InventoryAPI, log, clientOpts...)

	var dashboardOpts []services.DashboardOption
	if recorder != nil {
		dashboardOpts = append(dashboardOpts, services.WithDashboardObserver(recorder))
	}

	if cfg.Kafka.Enabled {
		producer, err := newKafkaProducer(&cfg.Kafka, log)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.producer = producer

		var guard services.PublishGuard
		if app.redis != nil {
			guard = app.redis
		}
		dashboardOpts = append(dashboardOpts, services.WithPublisher(producer, guard))
	}

	analyticsService := services.NewAnalyticsService(series, data)
	app.dashboard = services.NewDashboardService(analyticsService, remote, log, &cfg.Dashboard, dashboardOpts...)

	if cfg.Kafka.Enabled {
		consumer, err := newKafkaConsumer(&cfg.Kafka, log)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		app.consumer = consumer

		var snapshotObserver services.SnapshotObserver
		if recorder != nil {
			snapshotObserver = recorder
		}
		services.NewSnapshotIngestor(series, log, snapshotObserver).Register(consumer)
		if err := consumer.Start(); err != nil {
			app.close()
			return nil, fmt.Errorf("kafka consumer start: %w", err)
		}
	}

	dashboardHandler := handlers.NewDashboardHandler(app.dashboard, log, &cfg.Dashboard)
	healthHandler := newHealthHandler(app, remote)

	app.mux = setupRoutes(dashboardHandler, healthHandler, recorder, cfg.Metrics.Path)
	app.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      app.mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return app, nil
}

// loadDataset читает справочные данные из файла или берёт встроенный набор
func loadDataset(cfg *config.DashboardConfig) (*dataset.Dataset, error) {
	if cfg.DatasetFile == "" {
		return dataset.Builtin(today()), nil
	}
	return dataset.LoadFile(cfg.DatasetFile, today())
}

// loadHistory берёт историю снимков из Postgres, если это указано в конфигурации и база подключена.
// Пустая таблица заменяется историей из набора данных.
func loadHistory(app *application, data *dataset.Dataset) ([]models.DailySnapshot, error) {
	if app.cfg.Dashboard.SeriesSource != seriesSourcePostgres {
		return data.History, nil
	}
	if app.db == nil {
		app.log.Warn("SERIES_SOURCE=postgres but database is disabled, using dataset history")
		return data.History, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	history, err := services.NewSeriesLoader(app.db, app.log).Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		app.log.Warn("daily_snapshots is empty, using dataset history")
		return data.History, nil
	}
	return history, nil
}

// newHealthHandler передаёт в проверки только подключённые компоненты
func newHealthHandler(app *application, remote *inventoryapi.Client) *handlers.HealthHandler {
	var (
		db          handlers.DBHealth
		redisHealth handlers.RedisHealth
		brokers     []string
	)
	if app.db != nil {
		db = app.db
	}
	if app.redis != nil {
		redisHealth = app.redis
	}
	if app.cfg.Kafka.Enabled {
		brokers = app.cfg.Kafka.Brokers
	}
	return handlers.NewHealthHandler(db, redisHealth, remote, brokers, kafkaHealthCheck)
}

// close освобождает ресурсы в обратном порядке. Отсутствующие компоненты пропускаются.
func (app *application) close() {
	if app.consumer != nil {
		_ = app.consumer.Stop()
	}
	_ = app.producer.Close()
	_ = app.redis.Close()
	_ = app.db.Close()
}

// setupRoutes настраивает маршруты HTTP сервера
func setupRoutes(dashboardHandler *handlers.DashboardHandler, healthHandler *handlers.HealthHandler, recorder *metrics.Recorder, metricsPath string) *http.ServeMux {
	mux := http.NewServeMux()

	route := func(path string, h http.HandlerFunc) {
		mux.Handle(path, recorder.Middleware(path, corsMiddleware(h)))
	}

	// Health check endpoints
	route("/health", healthHandler.Health)
	route("/health/readiness", healthHandler.Readiness)
	route("/health/liveness", healthHandler.Liveness)

	// Dashboard endpoints
	route("/api/dashboard/overview", dashboardHandler.Overview)
	route("/api/dashboard/trends", dashboardHandler.Trends)
	route("/api/dashboard/categories", dashboardHandler.Categories)
	route("/api/dashboard/velocity", dashboardHandler.Velocity)
	route("/api/dashboard/alerts", dashboardHandler.Alerts)
	route("/api/dashboard/insights", dashboardHandler.Insights)
	route("/api/dashboard/products", dashboardHandler.Products)

	if recorder != nil {
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		mux.Handle(metricsPath, recorder.Handler())
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusNotFound, "Route not found")
	})

	return mux
}

// corsMiddleware и другие helper функции
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "X-Data-Source")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	type errorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
