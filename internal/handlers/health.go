package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/IBM/sarama"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
	statusDisabled  = "disabled"
)

// HealthHandler представляет обработчик для проверки здоровья системы.
// Отключённые компоненты передаются как nil и в проверках не участвуют.
type HealthHandler struct {
	db           DBHealth
	redisClient  RedisHealth
	remote       RemoteHealth
	kafkaBrokers []string
	kafkaCheck   func([]string) error
}

// NewHealthHandler создает новый обработчик здоровья. Пустой список брокеров отключает проверку Kafka.
func NewHealthHandler(db DBHealth, redisClient RedisHealth, remote RemoteHealth, kafkaBrokers []string, kafkaCheck func([]string) error) *HealthHandler {
	if kafkaCheck == nil {
		kafkaCheck = CheckKafkaHealth
	}
	return &HealthHandler{
		db:           db,
		redisClient:  redisClient,
		remote:       remote,
		kafkaBrokers: kafkaBrokers,
		kafkaCheck:   kafkaCheck,
	}
}

// HealthResponse представляет ответ проверки здоровья
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
	Version  string            `json:"version"`
	Uptime   string            `json:"uptime"`
}

var startTime = time.Now()

// Health проверяет состояние всех компонентов системы.
// Недоступный inventory API не делает сервис нездоровым: данные считаются локально.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string)
	overallStatus := statusHealthy

	for name, err := range h.checkDependencies(ctx) {
		if err != nil {
			services[name] = statusUnhealthy + ": " + err.Error()
			overallStatus = statusUnhealthy
		} else {
			services[name] = statusHealthy
		}
	}
	for _, name := range h.disabledDependencies() {
		services[name] = statusDisabled
	}

	switch {
	case h.remote == nil || !h.remote.Enabled():
		services["inventory_api"] = statusDisabled
	default:
		if _, err := h.remote.Health(ctx); err != nil {
			services["inventory_api"] = statusDegraded + ": " + err.Error()
			if overallStatus == statusHealthy {
				overallStatus = statusDegraded
			}
		} else {
			services["inventory_api"] = statusHealthy
		}
	}

	response := HealthResponse{
		Status:   overallStatus,
		Services: services,
		Version:  "1.0.0",
		Uptime:   time.Since(startTime).String(),
	}

	statusCode := http.StatusOK
	if overallStatus == statusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSONResponse(w, statusCode, response)
}

// Readiness проверяет готовность приложения к обработке запросов
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Health(); err != nil {
			writeErrorResponse(w, http.StatusServiceUnavailable, "Database not ready")
			return
		}
	}

	if h.redisClient != nil {
		if err := h.redisClient.Health(ctx); err != nil {
			writeErrorResponse(w, http.StatusServiceUnavailable, "Redis not ready")
			return
		}
	}

	if len(h.kafkaBrokers) > 0 {
		if err := h.kafkaCheck(h.kafkaBrokers); err != nil {
			writeErrorResponse(w, http.StatusServiceUnavailable, "Kafka not ready")
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Liveness проверяет, что приложение живо
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(startTime).String(),
	})
}

func (h *HealthHandler) checkDependencies(ctx context.Context) map[string]error {
	results := make(map[string]error)
	if h.db != nil {
		results["database"] = h.db.Health()
	}
	if h.redisClient != nil {
		results["redis"] = h.redisClient.Health(ctx)
	}
	if len(h.kafkaBrokers) > 0 {
		results["kafka"] = h.kafkaCheck(h.kafkaBrokers)
	}
	return results
}

func (h *HealthHandler) disabledDependencies() []string {
	var disabled []string
	if h.db == nil {
		disabled = append(disabled, "database")
	}
	if h.redisClient == nil {
		disabled = append(disabled, "redis")
	}
	if len(h.kafkaBrokers) == 0 {
		disabled = append(disabled, "kafka")
	}
	return disabled
}

// CheckKafkaHealth проверяет доступность Kafka брокеров
func CheckKafkaHealth(brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}

	cfg := sarama.NewConfig()
	cfg.Net.DialTimeout = 3 * time.Second
	cfg.Net.ReadTimeout = 5 * time.Second
	cfg.Net.WriteTimeout = 5 * time.Second
	cfg.Metadata.Retry.Max = 1
	cfg.Metadata.Retry.Backoff = 500 * time.Millisecond

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	return nil
}
