package inventoryapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"inventory-dashboard/internal/apperror"
	"inventory-dashboard/internal/config"
	"inventory-dashboard/internal/logger"
	"inventory-dashboard/internal/models"
	"inventory-dashboard/internal/redis"

	"github.com/alicebob/miniredis/v2"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func testLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

func newClient(baseURL string, opts ...Option) *Client {
	return NewClient(&config.InventoryAPIConfig{BaseURL: baseURL, APIKey: "k-123", Enabled: true, TimeoutSeconds: 2}, testLogger(), opts...)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type observerStub struct {
	endpoints []string
	errs      int
}

func (o *observerStub) ObserveRemoteRequest(endpoint string, err error, _ time.Duration) {
	o.endpoints = append(o.endpoints, endpoint)
	if err != nil {
		o.errs++
	}
}

func TestRequest_DisabledNeverCallsNetwork(t *testing.T) {
	var calls int32
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(200, `{}`), nil
	})}

	disabled := NewClient(&config.InventoryAPIConfig{BaseURL: "http://inventory.local", Enabled: false}, testLogger(), WithHTTPClient(hc))
	if _, err := disabled.Request(context.Background(), EndpointOverview, nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := disabled.AnalyticsOverview(context.Background(), OverviewParams{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured from typed endpoint, got %v", err)
	}

	noURL := NewClient(&config.InventoryAPIConfig{Enabled: true}, testLogger(), WithHTTPClient(hc))
	if _, err := noURL.StockVelocity(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for empty base url, got %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatalf("nil client must be disabled")
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("network must not be touched, got %d calls", calls)
	}
	if !apperror.Is(ErrNotConfigured, apperror.KindUnavailable) {
		t.Fatalf("ErrNotConfigured must be of unavailable kind")
	}
}

func TestRequest_SendsHeadersAndUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k-123" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing content type")
		}
		if r.URL.Path != EndpointTrends || r.URL.Query().Get("timeFilter") != "week" || r.URL.Query().Get("days") != "7" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[{"date":"2024-01-01","totalProducts":3,"totalValue":100,"lowStockCount":1,"outOfStockCount":0,"stockMovements":5}]}`))
	}))
	defer srv.Close()

	trends, err := newClient(srv.URL+"/").AnalyticsTrends(context.Background(), TrendsParams{TimeFilter: "week"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trends) != 1 || trends[0].TotalValue != 100 || trends[0].Date.String() != "2024-01-01" {
		t.Fatalf("unexpected trends %+v", trends)
	}
}

func TestRequest_BarePayloadWithoutEnvelope(t *testing.T) {
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"status":"ok","timestamp":"2024-01-01T00:00:00Z"}`), nil
	})}
	status, err := newClient("http://inventory.local", WithHTTPClient(hc)).Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != "ok" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestRequest_ErrorMessages(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"body error field", http.StatusUnauthorized, `{"success":false,"error":"Invalid API key"}`, "Invalid API key"},
		{"status text fallback", http.StatusBadGateway, `<html>`, "HTTP 502: Bad Gateway"},
		{"success false on 200", http.StatusOK, `{"success":false,"error":"quota exceeded"}`, "quota exceeded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				return jsonResponse(tc.status, tc.body), nil
			})}
			_, err := newClient("http://inventory.local", WithHTTPClient(hc)).Request(context.Background(), EndpointAlerts, nil)
			if err == nil {
				t.Fatalf("expected error")
			}
			if err.Error() != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, err.Error())
			}
			var remoteErr *RemoteError
			if !errors.As(err, &remoteErr) || remoteErr.Status != tc.status {
				t.Fatalf("expected RemoteError with status %d, got %v", tc.status, err)
			}
			if !apperror.Is(err, apperror.KindRemote) {
				t.Fatalf("expected remote kind")
			}
		})
	}
}

func TestRequest_TransportErrorIsRemote(t *testing.T) {
	obs := &observerStub{}
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}
	_, err := newClient("http://inventory.local", WithHTTPClient(hc), WithObserver(obs)).Request(context.Background(), EndpointOverview, nil)
	if !apperror.Is(err, apperror.KindRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if len(obs.endpoints) != 1 || obs.errs != 1 {
		t.Fatalf("expected failed request observed, got %+v", obs)
	}
}

func TestRequest_HonoursContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := newClient(srv.URL).Request(ctx, EndpointOverview, nil); err == nil {
		t.Fatalf("expected deadline error")
	}
}

func TestRequest_InvalidJSON(t *testing.T) {
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"success":`), nil
	})}
	if _, err := newClient("http://inventory.local", WithHTTPClient(hc)).Request(context.Background(), EndpointOverview, nil); err == nil {
		t.Fatalf("expected invalid json error")
	}
}

func TestRequest_NullDataIsRemoteError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := redis.Connect(&config.RedisConfig{Host: "127.0.0.1", Port: mr.Port()}, testLogger())
	if err != nil {
		t.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()

	for _, body := range []string{`{"success":true,"data":null}`, `{"success":true}`, `null`} {
		hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(200, body), nil
		})}
		c := newClient("http://inventory.local", WithHTTPClient(hc), WithCache(rdb, time.Minute))

		if _, err := c.Request(context.Background(), EndpointTrends, nil); !errors.Is(err, ErrNoData) || !apperror.Is(err, apperror.KindRemote) {
			t.Fatalf("%s: expected no data remote error, got %v", body, err)
		}
		trends, err := c.AnalyticsTrends(context.Background(), TrendsParams{})
		if !apperror.Is(err, apperror.KindRemote) || trends != nil {
			t.Fatalf("%s: expected typed endpoint to fail, got %v / %v", body, trends, err)
		}
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected empty responses not cached, got %v", mr.Keys())
	}
}

func TestTypedEndpoint_InvalidParamsSkipNetwork(t *testing.T) {
	var calls int32
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(200, `[]`), nil
	})}
	c := newClient("http://inventory.local", WithHTTPClient(hc))

	if _, err := c.AnalyticsTrends(context.Background(), TrendsParams{TimeFilter: "decade"}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := c.Products(context.Background(), ProductsParams{Limit: 10000}); !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("invalid params must not reach the network")
	}
}

func TestTypedEndpoints_QueryParams(t *testing.T) {
	var seen []string
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = append(seen, r.URL.RequestURI())
		return jsonResponse(200, `{"success":true,"data":[]}`), nil
	})}
	c := newClient("http://inventory.local", WithHTTPClient(hc))
	ctx := context.Background()

	if _, err := c.Products(ctx, ProductsParams{Category: "Storage", Status: "low_stock"}); err != nil {
		t.Fatalf("products: %v", err)
	}
	if _, err := c.SmartInsights(ctx, InsightsParams{}); err != nil {
		t.Fatalf("insights: %v", err)
	}

	want := []string{
		"/api/products?category=Storage&limit=50&status=low_stock",
		"/api/analytics/insights?timeFilter=month",
	}
	if len(seen) != len(want) {
		t.Fatalf("expected %d requests, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("request %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}

func TestSmartInsights_TypedPayload(t *testing.T) {
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"success":true,"data":[{"id":4,"type":"performance","impact":"medium","actionable":true,"data":{"currentRate":25,"targetRate":60,"gap":35}}]}`), nil
	})}
	insights, err := newClient("http://inventory.local", WithHTTPClient(hc)).SmartInsights(context.Background(), InsightsParams{TimeFilter: "week"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, ok := insights[0].Data.(models.EfficiencyData)
	if !ok || data.Gap != 35 {
		t.Fatalf("unexpected payload %#v", insights[0].Data)
	}
}

func TestRequest_CachesSuccessfulGet(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := redis.Connect(&config.RedisConfig{Host: "127.0.0.1", Port: mr.Port()}, testLogger())
	if err != nil {
		t.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()

	var calls int32
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(200, `{"success":true,"data":{"totalProducts":42}}`), nil
	})}
	c := newClient("http://inventory.local", WithHTTPClient(hc), WithCache(rdb, time.Minute))

	for i := 0; i < 2; i++ {
		overview, err := c.AnalyticsOverview(context.Background(), OverviewParams{TimeFilter: "week"})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if overview.TotalProducts != 42 {
			t.Fatalf("unexpected overview %+v", overview)
		}
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected second call served from cache, got %d network calls", calls)
	}
	if !mr.Exists(redis.GenerateKey(redis.KeyPrefixRemote, EndpointOverview, "timeFilter=week")) {
		t.Fatalf("expected cache key written")
	}

	if _, err := c.Request(context.Background(), EndpointOverview, &RequestOptions{NoCache: true, Query: map[string][]string{"timeFilter": {"week"}}}); err != nil {
		t.Fatalf("no-cache request: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected NoCache request to reach network")
	}
}

func TestRequest_FailedResponsesAreNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := redis.Connect(&config.RedisConfig{Host: "127.0.0.1", Port: mr.Port()}, testLogger())
	if err != nil {
		t.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()

	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(500, `{"error":"boom"}`), nil
	})}
	c := newClient("http://inventory.local", WithHTTPClient(hc), WithCache(rdb, time.Minute))
	if _, err := c.Request(context.Background(), EndpointAlerts, nil); err == nil {
		t.Fatalf("expected error")
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected nothing cached, got %v", mr.Keys())
	}
}

func TestInvalidateCache_DropsRemoteKeysOnly(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := redis.Connect(&config.RedisConfig{Host: "127.0.0.1", Port: mr.Port()}, testLogger())
	if err != nil {
		t.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()

	var calls int32
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(200, `{"success":true,"data":[]}`), nil
	})}
	c := newClient("http://inventory.local", WithHTTPClient(hc), WithCache(rdb, time.Minute))
	ctx := context.Background()

	if _, err := c.StockAlerts(ctx); err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if _, err := c.CategoryAnalysis(ctx); err != nil {
		t.Fatalf("categories: %v", err)
	}
	guardKey := redis.GenerateKey(redis.KeyPrefixPublished, "low-stock")
	if _, err := rdb.SetIfAbsent(ctx, guardKey, time.Minute); err != nil {
		t.Fatalf("guard: %v", err)
	}

	n, err := c.InvalidateCache(ctx)
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 remote keys dropped, got %d", n)
	}
	if !mr.Exists(guardKey) {
		t.Fatalf("publish guard must survive invalidation")
	}

	if _, err := c.StockAlerts(ctx); err != nil {
		t.Fatalf("alerts after invalidate: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected request after invalidation to reach network, got %d calls", calls)
	}
}

func TestInvalidateCache_WithoutCache(t *testing.T) {
	n, err := newClient("http://inventory.local").InvalidateCache(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected no-op without cache, got %d, %v", n, err)
	}

	var nilClient *Client
	if n, err := nilClient.InvalidateCache(context.Background()); err != nil || n != 0 {
		t.Fatalf("expected no-op for nil client, got %d, %v", n, err)
	}
}

func TestRequest_PostBody(t *testing.T) {
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["message"] != "hi" {
			t.Errorf("unexpected body %v", body)
		}
		return jsonResponse(200, `{"success":true,"data":{"ok":true}}`), nil
	})}
	raw, err := newClient("http://inventory.local", WithHTTPClient(hc)).Request(context.Background(), "/api/echo", &RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"message": "hi"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Fatalf("unexpected data %s", raw)
	}
}
