package inventoryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"inventory-dashboard/internal/apperror"
	"inventory-dashboard/internal/config"
	"inventory-dashboard/internal/logger"
	"inventory-dashboard/internal/redis"
)

// ErrNotConfigured возвращается синхронно, если провайдер выключен или не настроен
var ErrNotConfigured = apperror.Unavailable("inventory api is not configured or disabled", nil)

// ErrNoData возвращается, если удалённая сторона ответила успехом без данных.
// Такой ответ не кешируется и считается сбоем для выбора резервного источника.
var ErrNoData = apperror.Remote("inventory api returned no data", nil)

const maxErrorBody = 4096

// RemoteError описывает не-2xx ответ удалённого API или success=false в конверте
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Cache описывает кеш ответов удалённого API (best effort)
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CacheInvalidator удаляет закешированные ответы по префиксу ключа
type CacheInvalidator interface {
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// RequestObserver получает длительность и результат каждого запроса
type RequestObserver interface {
	ObserveRemoteRequest(endpoint string, err error, duration time.Duration)
}

// RequestOptions уточняет запрос. Nil означает GET без параметров.
type RequestOptions struct {
	Method  string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
	NoCache bool
}

// Option настраивает клиента
type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache включает кеш успешных GET-ответов
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithObserver подключает сбор метрик
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// Client обращается к удалённому inventory API. Экземпляр передаётся явно, глобального нет.
type Client struct {
	baseURL    string
	apiKey     string
	enabled    bool
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	observer   RequestObserver
	log        *logger.Logger
}

// NewClient создаёт клиента по конфигурации
func NewClient(cfg *config.InventoryAPIConfig, log *logger.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled сообщает, настроен ли провайдер. Nil-клиент считается выключенным.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.baseURL != ""
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Request выполняет запрос к endpoint и возвращает поле data из ответа.
// Ответ без конверта {success, data, error} возвращается целиком.
func (c *Client) Request(ctx context.Context, endpoint string, opts *RequestOptions) (json.RawMessage, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.baseURL + endpoint
	if len(opts.Query) > 0 {
		target += "?" + opts.Query.Encode()
	}

	cacheable := c.cache != nil && method == http.MethodGet && !opts.NoCache
	cacheKey := redis.GenerateKey(redis.KeyPrefixRemote, endpoint, opts.Query.Encode())
	if cacheable {
		var cached json.RawMessage
		err := c.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			c.log.WithField("endpoint", endpoint).Debug("Inventory API response served from cache")
			return cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			c.log.WithError(err).WithField("endpoint", endpoint).Debug("Inventory API cache read failed")
		}
	}

	start := time.Now()
	data, err := c.do(ctx, method, target, opts)
	if c.observer != nil {
		c.observer.ObserveRemoteRequest(endpoint, err, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	if cacheable && c.cacheTTL > 0 {
		if err := c.cache.Set(ctx, cacheKey, data, c.cacheTTL); err != nil {
			c.log.WithError(err).WithField("endpoint", endpoint).Warn("Failed to cache inventory API response")
		}
	}
	return data, nil
}

// InvalidateCache сбрасывает все закешированные ответы удалённого API.
// Без кеша или без поддержки удаления ничего не делает.
func (c *Client) InvalidateCache(ctx context.Context) (int, error) {
	if c == nil {
		return 0, nil
	}
	inv, ok := c.cache.(CacheInvalidator)
	if !ok {
		return 0, nil
	}
	n, err := inv.DeleteByPrefix(ctx, redis.KeyPrefixRemote+":")
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate inventory api cache: %w", err)
	}
	c.log.WithField("count", n).Debug("Inventory API cache invalidated")
	return n, nil
}

func (c *Client) do(ctx context.Context, method, target string, opts *RequestOptions) (json.RawMessage, error) {
	var body io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Remote("inventory api request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var errBody envelope
		msg := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		return nil, apperror.Remote(msg, &RemoteError{Status: resp.StatusCode, Message: msg})
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Remote("failed to read inventory api response", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Success == nil {
		if !json.Valid(raw) {
			return nil, apperror.Remote("inventory api returned invalid JSON", err)
		}
		if isEmptyPayload(raw) {
			return nil, ErrNoData
		}
		return raw, nil
	}
	if !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = "inventory api reported failure"
		}
		return nil, apperror.Remote(msg, &RemoteError{Status: resp.StatusCode, Message: msg})
	}
	if isEmptyPayload(env.Data) {
		return nil, ErrNoData
	}
	return env.Data, nil
}

// isEmptyPayload сообщает, что успешный ответ не содержит данных
func isEmptyPayload(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
