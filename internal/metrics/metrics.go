package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder собирает метрики гибридного слоя. Нулевой (nil) Recorder ничего не пишет.
type Recorder struct {
	gatherer prometheus.Gatherer

	resolutions     *prometheus.CounterVec
	remoteDuration  *prometheus.HistogramVec
	snapshots       *prometheus.CounterVec
	seriesLength    prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	publishedEvents *prometheus.CounterVec
}

// New регистрирует коллекторы в собственном реестре
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		gatherer: reg,
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_resolutions_total",
				Help: "Data resolutions by resource and outcome (remote, fallback, error)",
			},
			[]string{"resource", "outcome"},
		),
		remoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inventory_remote_request_duration_seconds",
				Help:    "Duration of inventory API requests",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "result"},
		),
		snapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_snapshots_ingested_total",
				Help: "Daily snapshots received from Kafka by result",
			},
			[]string{"result"},
		),
		seriesLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_series_length",
			Help: "Number of daily snapshots in the history",
		}),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inventory_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		publishedEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_events_published_total",
				Help: "Events published to Kafka by type and result",
			},
			[]string{"type", "result"},
		),
	}

	reg.MustRegister(
		r.resolutions,
		r.remoteDuration,
		r.snapshots,
		r.seriesLength,
		r.httpRequests,
		r.httpDuration,
		r.publishedEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Gatherer возвращает реестр (для тестов и /metrics)
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.gatherer
}

// Handler отдаёт метрики в формате Prometheus
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// ObserveResolution учитывает исход цикла разрешения данных
func (r *Recorder) ObserveResolution(resource, outcome string) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(resource, outcome).Inc()
}

// ObserveRemoteRequest учитывает длительность запроса к inventory API
func (r *Recorder) ObserveRemoteRequest(endpoint string, err error, duration time.Duration) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.remoteDuration.WithLabelValues(endpoint, result).Observe(duration.Seconds())
}

// ObserveSnapshot учитывает принятый или отклонённый снимок
func (r *Recorder) ObserveSnapshot(accepted bool, seriesLength int) {
	if r == nil {
		return
	}
	if accepted {
		r.snapshots.WithLabelValues("accepted").Inc()
	} else {
		r.snapshots.WithLabelValues("rejected").Inc()
	}
	r.seriesLength.Set(float64(seriesLength))
}

// SetSeriesLength обновляет размер истории
func (r *Recorder) SetSeriesLength(n int) {
	if r == nil {
		return
	}
	r.seriesLength.Set(float64(n))
}

// ObservePublish учитывает публикацию события
func (r *Recorder) ObservePublish(eventType string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.publishedEvents.WithLabelValues(eventType, result).Inc()
}

// Middleware считает HTTP-запросы. route задаётся при регистрации, чтобы не раздувать кардинальность.
func (r *Recorder) Middleware(route string, next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, req)

		r.httpRequests.WithLabelValues(route, req.Method, strconv.Itoa(rw.status)).Inc()
		r.httpDuration.WithLabelValues(route, req.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
