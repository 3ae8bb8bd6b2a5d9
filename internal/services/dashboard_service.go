package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"inventory-dashboard/internal/config"
	"inventory-dashboard/internal/inventoryapi"
	"inventory-dashboard/internal/logger"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/redis"
	"inventory-dashboard/internal/validation"
)

const publishDedupTTL = time.Hour

// Имена ресурсов для логов и метрик
const (
	ResourceOverview   = "overview"
	ResourceTrends     = "trends"
	ResourceCategories = "categories"
	ResourceVelocity   = "velocity"
	ResourceAlerts     = "alerts"
	ResourceInsights   = "insights"
	ResourceProducts   = "products"
)

// RemoteProvider представляет удалённый источник аналитики. Реализуется inventoryapi.Client.
type RemoteProvider interface {
	Enabled() bool
	AnalyticsOverview(ctx context.Context, p inventoryapi.OverviewParams) (models.AnalyticsOverview, error)
	AnalyticsTrends(ctx context.Context, p inventoryapi.TrendsParams) ([]models.DailySnapshot, error)
	CategoryAnalysis(ctx context.Context) ([]models.CategoryMetric, error)
	StockVelocity(ctx context.Context) ([]models.VelocityRecord, error)
	StockAlerts(ctx context.Context) ([]models.StockAlert, error)
	SmartInsights(ctx context.Context, p inventoryapi.InsightsParams) ([]models.Insight, error)
	Products(ctx context.Context, p inventoryapi.ProductsParams) ([]models.Product, error)
}

// RemoteCache сбрасывает кеш ответов удалённого источника. Реализуется inventoryapi.Client.
type RemoteCache interface {
	InvalidateCache(ctx context.Context) (int, error)
}

// InsightPublisher отправляет критичные инсайты дальше (Kafka)
type InsightPublisher interface {
	PublishCriticalInsight(insight models.Insight, filter models.TimeFilter, fromAPI bool) error
}

// PublishGuard не даёт публиковать один и тот же инсайт на каждом цикле
type PublishGuard interface {
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// DashboardObserver получает метрики дашборда. Реализуется metrics.Recorder.
type DashboardObserver interface {
	ResolutionObserver
	ObservePublish(eventType string, err error)
}

// DashboardOption настраивает DashboardService
type DashboardOption func(*DashboardService)

// WithPublisher включает публикацию критичных инсайтов
func WithPublisher(publisher InsightPublisher, guard PublishGuard) DashboardOption {
	return func(s *DashboardService) {
		s.publisher = publisher
		if guard != nil {
			s.guard = guard
		}
	}
}

// WithDashboardObserver подключает метрики
func WithDashboardObserver(observer DashboardObserver) DashboardOption {
	return func(s *DashboardService) {
		s.observer = observer
	}
}

// DashboardService держит по контроллеру на каждый ресурс дашборда и фильтр времени
type DashboardService struct {
	analytics *AnalyticsService
	engine    *InsightEngine
	remote    RemoteProvider
	log       *logger.Logger
	cfg       *config.DashboardConfig

	publisher InsightPublisher
	guard     PublishGuard
	observer  DashboardObserver

	mu         sync.Mutex
	overview   map[models.TimeFilter]*Controller[models.AnalyticsOverview]
	trends     map[models.TimeFilter]*Controller[[]models.DailySnapshot]
	insights   map[models.TimeFilter]*Controller[[]models.Insight]
	categories *Controller[[]models.CategoryMetric]
	velocity   *Controller[[]models.VelocityRecord]
	alerts     *Controller[[]models.StockAlert]

	autoCtx      context.Context
	autoInterval time.Duration

	productCycles uint64
}

// NewDashboardService создает сервис дашборда. remote может быть nil: тогда всегда используется локальный расчёт.
func NewDashboardService(analytics *AnalyticsService, remote RemoteProvider, log *logger.Logger, cfg *config.DashboardConfig, opts ...DashboardOption) *DashboardService {
	s := &DashboardService{
		analytics: analytics,
		engine:    NewInsightEngine(),
		remote:    remote,
		log:       log,
		cfg:       cfg,
		guard:     newMemoryGuard(),
		overview:  make(map[models.TimeFilter]*Controller[models.AnalyticsOverview]),
		trends:    make(map[models.TimeFilter]*Controller[[]models.DailySnapshot]),
		insights:  make(map[models.TimeFilter]*Controller[[]models.Insight]),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.categories = newController(s, ResourceCategories,
		func(ctx context.Context) ([]models.CategoryMetric, error) { return s.remote.CategoryAnalysis(ctx) },
		s.analytics.Categories,
		func() *[]models.CategoryMetric {
			data, _ := s.analytics.Categories()
			return &data
		}, nil)
	s.velocity = newController(s, ResourceVelocity,
		func(ctx context.Context) ([]models.VelocityRecord, error) { return s.remote.StockVelocity(ctx) },
		s.analytics.Velocity,
		func() *[]models.VelocityRecord {
			data, _ := s.analytics.Velocity()
			return &data
		}, nil)
	s.alerts = newController(s, ResourceAlerts,
		func(ctx context.Context) ([]models.StockAlert, error) { return s.remote.StockAlerts(ctx) },
		s.analytics.Alerts,
		func() *[]models.StockAlert {
			data, _ := s.analytics.Alerts()
			return &data
		}, nil)

	return s
}

// DefaultFilter возвращает фильтр из конфигурации (month, если он не задан или неизвестен)
func (s *DashboardService) DefaultFilter() models.TimeFilter {
	if s.cfg == nil {
		return models.TimeFilterMonth
	}
	return normalizeFilter(models.ParseTimeFilter(s.cfg.DefaultTimeFilter))
}

// FetchOverview запускает новый цикл для KPI и ждёт его результат
func (s *DashboardService) FetchOverview(ctx context.Context, filter models.TimeFilter) HybridResult[models.AnalyticsOverview] {
	return s.overviewController(filter).Fetch(ctx)
}

// CurrentOverview возвращает последний конверт KPI без нового запроса
func (s *DashboardService) CurrentOverview(filter models.TimeFilter) HybridResult[models.AnalyticsOverview] {
	return s.overviewController(filter).Current()
}

// FetchTrends запускает новый цикл для трендов
func (s *DashboardService) FetchTrends(ctx context.Context, filter models.TimeFilter) HybridResult[[]models.DailySnapshot] {
	return s.trendsController(filter).Fetch(ctx)
}

// CurrentTrends возвращает последний конверт трендов
func (s *DashboardService) CurrentTrends(filter models.TimeFilter) HybridResult[[]models.DailySnapshot] {
	return s.trendsController(filter).Current()
}

// FetchCategories запускает новый цикл для категорий
func (s *DashboardService) FetchCategories(ctx context.Context) HybridResult[[]models.CategoryMetric] {
	return s.categories.Fetch(ctx)
}

// CurrentCategories возвращает последний конверт категорий
func (s *DashboardService) CurrentCategories() HybridResult[[]models.CategoryMetric] {
	return s.categories.Current()
}

// FetchVelocity запускает новый цикл и отдаёт записи выбранного сегмента
func (s *DashboardService) FetchVelocity(ctx context.Context, segment VelocitySegment) HybridResult[[]models.VelocityRecord] {
	return segmentOf(s.velocity.Fetch(ctx), segment)
}

// CurrentVelocity возвращает последний конверт скорости оборота, отфильтрованный по сегменту
func (s *DashboardService) CurrentVelocity(segment VelocitySegment) HybridResult[[]models.VelocityRecord] {
	return segmentOf(s.velocity.Current(), segment)
}

// FetchAlerts запускает новый цикл и отдаёт оповещения заданного типа (пустой тип означает все)
func (s *DashboardService) FetchAlerts(ctx context.Context, alertType models.AlertType) HybridResult[[]models.StockAlert] {
	return alertsOf(s.alerts.Fetch(ctx), alertType)
}

// CurrentAlerts возвращает последний конверт оповещений
func (s *DashboardService) CurrentAlerts(alertType models.AlertType) HybridResult[[]models.StockAlert] {
	return alertsOf(s.alerts.Current(), alertType)
}

// FetchInsights запускает новый цикл генерации инсайтов
func (s *DashboardService) FetchInsights(ctx context.Context, filter models.TimeFilter) HybridResult[[]models.Insight] {
	return s.insightsController(filter).Fetch(ctx)
}

// CurrentInsights возвращает последний конверт инсайтов
func (s *DashboardService) CurrentInsights(filter models.TimeFilter) HybridResult[[]models.Insight] {
	return s.insightsController(filter).Current()
}

// FetchProducts отдаёт каталог с фильтрами. Параметры свои у каждого запроса, поэтому контроллер не используется.
func (s *DashboardService) FetchProducts(ctx context.Context, params inventoryapi.ProductsParams) (HybridResult[[]models.Product], error) {
	if err := validation.Struct(ctx, &params); err != nil {
		return HybridResult[[]models.Product]{}, err
	}

	remoteCtx := ctx
	if timeout := s.requestTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		remoteCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res := Resolve(remoteCtx,
		func(ctx context.Context) ([]models.Product, error) { return s.remote.Products(ctx, params) },
		s.remoteEnabled(),
		func() ([]models.Product, error) {
			return FilterProducts(s.analytics.Catalog(), params.Category, models.ProductStatus(params.Status), params.Limit), nil
		})
	logResolution(s.log.WithComponent("hybrid").WithField("resource", ResourceProducts), res)
	if s.observer != nil {
		s.observer.ObserveResolution(ResourceProducts, string(res.Outcome))
	}
	return res.Envelope(atomic.AddUint64(&s.productCycles, 1)), nil
}

// InvalidateRemoteCache сбрасывает кеш удалённых ответов, чтобы следующий цикл дошёл до API.
// Если удалённый источник не кеширует ответы, ничего не делает.
func (s *DashboardService) InvalidateRemoteCache(ctx context.Context) error {
	cache, ok := s.remote.(RemoteCache)
	if !ok {
		return nil
	}
	n, err := cache.InvalidateCache(ctx)
	if err != nil {
		return err
	}
	s.log.WithComponent("hybrid").WithField("count", n).Info("Remote response cache invalidated")
	return nil
}

// StartAutoRefresh обновляет все ресурсы сразу и затем с интервалом из конфигурации.
// Контроллеры, созданные позже, подключаются к автообновлению при создании.
func (s *DashboardService) StartAutoRefresh(ctx context.Context) {
	interval := time.Duration(0)
	if s.cfg != nil {
		interval = time.Duration(s.cfg.AutoRefreshSeconds) * time.Second
	}

	filter := s.DefaultFilter()
	s.overviewController(filter)
	s.trendsController(filter)
	s.insightsController(filter)

	s.mu.Lock()
	s.autoCtx = ctx
	s.autoInterval = interval
	runners := []func(context.Context, time.Duration){s.categories.Run, s.velocity.Run, s.alerts.Run}
	for _, c := range s.overview {
		runners = append(runners, c.Run)
	}
	for _, c := range s.trends {
		runners = append(runners, c.Run)
	}
	for _, c := range s.insights {
		runners = append(runners, c.Run)
	}
	s.mu.Unlock()

	for _, run := range runners {
		go run(ctx, interval)
	}

	s.log.WithFields(map[string]interface{}{
		"interval":    interval.String(),
		"controllers": len(runners),
	}).Info("Dashboard auto-refresh started")
}

func (s *DashboardService) overviewController(filter models.TimeFilter) *Controller[models.AnalyticsOverview] {
	filter = normalizeFilter(filter)
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.overview[filter]; ok {
		return c
	}
	c := newController(s, ResourceOverview,
		func(ctx context.Context) (models.AnalyticsOverview, error) {
			return s.remote.AnalyticsOverview(ctx, inventoryapi.OverviewParams{TimeFilter: string(filter)})
		},
		func() (models.AnalyticsOverview, error) { return s.analytics.Overview(filter) },
		func() *models.AnalyticsOverview {
			placeholder := PlaceholderOverview(s.analytics.Catalog())
			return &placeholder
		}, nil)
	s.overview[filter] = c
	s.autoStartLocked(c.Run)
	return c
}

func (s *DashboardService) trendsController(filter models.TimeFilter) *Controller[[]models.DailySnapshot] {
	filter = normalizeFilter(filter)
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.trends[filter]; ok {
		return c
	}
	c := newController(s, ResourceTrends,
		func(ctx context.Context) ([]models.DailySnapshot, error) {
			return s.remote.AnalyticsTrends(ctx, inventoryapi.TrendsParams{TimeFilter: string(filter), Days: filter.Days()})
		},
		func() ([]models.DailySnapshot, error) { return s.analytics.Trends(filter) },
		func() *[]models.DailySnapshot {
			window := WindowOf(s.analytics.Snapshots(), filter.Days())
			return &window
		}, nil)
	s.trends[filter] = c
	s.autoStartLocked(c.Run)
	return c
}

func (s *DashboardService) insightsController(filter models.TimeFilter) *Controller[[]models.Insight] {
	filter = normalizeFilter(filter)
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.insights[filter]; ok {
		return c
	}
	c := newController(s, ResourceInsights,
		func(ctx context.Context) ([]models.Insight, error) {
			return s.remote.SmartInsights(ctx, inventoryapi.InsightsParams{TimeFilter: string(filter)})
		},
		s.localInsights,
		func() *[]models.Insight {
			empty := []models.Insight{}
			return &empty
		},
		func(ctx context.Context, env HybridResult[[]models.Insight]) {
			s.publishCritical(ctx, filter, env)
		})
	s.insights[filter] = c
	s.autoStartLocked(c.Run)
	return c
}

func (s *DashboardService) localInsights() ([]models.Insight, error) {
	velocity, err := s.analytics.Velocity()
	if err != nil {
		return nil, err
	}
	alerts, err := s.analytics.Alerts()
	if err != nil {
		return nil, err
	}
	return s.engine.Generate(s.analytics.Catalog(), velocity, alerts), nil
}

func (s *DashboardService) autoStartLocked(run func(context.Context, time.Duration)) {
	if s.autoCtx == nil {
		return
	}
	go run(s.autoCtx, s.autoInterval)
}

// publishCritical отправляет критичные инсайты цикла, пропуская уже опубликованные
func (s *DashboardService) publishCritical(ctx context.Context, filter models.TimeFilter, env HybridResult[[]models.Insight]) {
	if s.publisher == nil || env.Data == nil {
		return
	}
	for _, insight := range Critical(*env.Data) {
		key := redis.GenerateKey(redis.KeyPrefixPublished, string(filter), strconv.Itoa(insight.ID), messageHash(insight.Message))
		fresh, err := s.guard.SetIfAbsent(ctx, key, publishDedupTTL)
		if err != nil {
			s.log.WithError(err).WithField("key", key).Warn("Publish guard unavailable, publishing anyway")
			fresh = true
		}
		if !fresh {
			continue
		}

		err = s.publisher.PublishCriticalInsight(insight, filter, env.IsFromAPI)
		if s.observer != nil {
			s.observer.ObservePublish(string(models.EventTypeInsightCritical), err)
		}
		if err != nil {
			s.log.WithError(err).WithField("insight_id", insight.ID).Error("Failed to publish critical insight")
			continue
		}
		s.log.WithFields(map[string]interface{}{
			"insight_id":  insight.ID,
			"time_filter": filter,
			"from_api":    env.IsFromAPI,
		}).Info("Critical insight published")
	}
}

func newController[T any](s *DashboardService, resource string, remote RemoteFunc[T], local LocalFunc[T], placeholder func() *T, onResolved func(context.Context, HybridResult[T])) *Controller[T] {
	opts := ControllerOptions[T]{
		Resource:    resource,
		Local:       local,
		Placeholder: placeholder,
		Timeout:     s.requestTimeout(),
		Log:         s.log,
		OnResolved:  onResolved,
		Enabled:     s.remoteEnabled,
	}
	if s.remote != nil {
		opts.Remote = remote
	}
	if s.observer != nil {
		opts.Observer = s.observer
	}
	return NewController(opts)
}

func (s *DashboardService) requestTimeout() time.Duration {
	if s.cfg == nil {
		return 0
	}
	return time.Duration(s.cfg.RequestTimeoutSeconds) * time.Second
}

func (s *DashboardService) remoteEnabled() bool {
	return s.remote != nil && s.remote.Enabled()
}

func normalizeFilter(filter models.TimeFilter) models.TimeFilter {
	if filter.Valid() {
		return filter
	}
	return models.TimeFilterMonth
}

func segmentOf(env HybridResult[[]models.VelocityRecord], segment VelocitySegment) HybridResult[[]models.VelocityRecord] {
	return MapResult(env, func(records []models.VelocityRecord) []models.VelocityRecord {
		return FilterVelocity(records, segment)
	})
}

func alertsOf(env HybridResult[[]models.StockAlert], alertType models.AlertType) HybridResult[[]models.StockAlert] {
	return MapResult(env, func(alerts []models.StockAlert) []models.StockAlert {
		return AlertsByType(alerts, alertType)
	})
}

func messageHash(message string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(message))
	return fmt.Sprintf("%08x", h.Sum32())
}

// memoryGuard хранит ключи публикаций в памяти процесса, когда Redis не подключён
type memoryGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{seen: make(map[string]time.Time)}
}

func (g *memoryGuard) SetIfAbsent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if expires, ok := g.seen[key]; ok && now.Before(expires) {
		return false, nil
	}
	g.seen[key] = now.Add(ttl)
	return true, nil
}
