package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/listing-features/internal/cache"
	"github.com/sells-group/listing-features/internal/categories"
	"github.com/sells-group/listing-features/internal/feature"
	"github.com/sells-group/listing-features/internal/fetcher"
	"github.com/sells-group/listing-features/internal/provider"
)

const samplePayload = `[[{"Ask":"450","Bedrooms":"1","Longitude":-122,"Latitude":37,"PostedDate":"1000","PostingURL":"u1","ImageThumb":"t1","PostingTitle":"sunny 1br"},{"NumPosts":4}]]`

type testEnv struct {
	srv   *Server
	cache *cache.Cache[*feature.Collection]
	calls *atomic.Int32
}

func newTestEnv(t *testing.T, f fetcher.FetchFunc) testEnv {
	t.Helper()
	var calls atomic.Int32
	counted := fetcher.FetchFunc(func(ctx context.Context, url string) ([]byte, error) {
		calls.Add(1)
		return f(ctx, url)
	})
	c := cache.New[*feature.Collection](16, time.Hour)
	p := provider.New(counted, categories.New(), provider.Options{
		TTL:    90 * time.Second,
		Source: rand.New(rand.NewPCG(1, 2)),
		Cache:  c,
	})
	return testEnv{srv: New(p, c, nil), cache: c, calls: &calls}
}

func okFetch(context.Context, string) ([]byte, error) {
	return []byte(samplePayload), nil
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, okFetch)

	w := do(t, env.srv, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestProviderInfo(t *testing.T) {
	env := newTestEnv(t, okFetch)

	w := do(t, env.srv, http.MethodGet, "/provider")
	require.Equal(t, http.StatusOK, w.Code)

	body := gjson.ParseBytes(w.Body.Bytes())
	assert.Equal(t, "craigslist", body.Get("name").String())
	assert.Equal(t, "featureId", body.Get("idField").String())
	assert.Equal(t, int64(90), body.Get("ttl").Int())
	assert.Equal(t, "apartments", body.Get("categories.0").String())
}

func TestCollection(t *testing.T) {
	env := newTestEnv(t, okFetch)

	w := do(t, env.srv, http.MethodGet, "/sfbay/apartments")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContentTypeGeoJSON, w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=90", w.Header().Get("Cache-Control"))
	assert.Equal(t, "miss", w.Header().Get("X-Cache"))
	assert.NotEmpty(t, w.Header().Get(TraceHeader))

	body := gjson.ParseBytes(w.Body.Bytes())
	assert.Equal(t, "FeatureCollection", body.Get("type").String())
	assert.Equal(t, int64(90), body.Get("ttl").Int())
	assert.Equal(t, "sfbay apartments", body.Get("metadata.name").String())
	assert.False(t, body.Get("metadata.hasStaticData").Bool())
	assert.Equal(t, "featureId", body.Get("metadata.idField").String())
	require.Equal(t, int64(1), body.Get("features.#").Int())

	f := body.Get("features.0")
	assert.Equal(t, "Point", f.Get("geometry.type").String())
	assert.Equal(t, "sunny 1br", f.Get("properties.title").String())
	assert.Equal(t, 450.0, f.Get("properties.pricePerBedroom").Float())
	assert.Equal(t, "1970-01-01T00:16:40.000Z", f.Get("properties.postDate").String())
	id := f.Get("properties.featureId")
	require.True(t, id.Exists())
	assert.GreaterOrEqual(t, id.Int(), int64(0))
	assert.LessOrEqual(t, id.Int(), int64(2147483647))
}

func TestCollection_CacheHit(t *testing.T) {
	env := newTestEnv(t, okFetch)

	first := do(t, env.srv, http.MethodGet, "/sfbay/apartments")
	second := do(t, env.srv, http.MethodGet, "/sfbay/apartments")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "miss", first.Header().Get("X-Cache"))
	assert.Equal(t, "hit", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int32(1), env.calls.Load())

	stats := gjson.ParseBytes(do(t, env.srv, http.MethodGet, "/cache/stats").Body.Bytes())
	assert.Equal(t, int64(1), stats.Get("entries").Int())
	assert.Equal(t, int64(1), stats.Get("hits").Int())
}

func TestCollection_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		fetch  fetcher.FetchFunc
		status int
		msg    string
	}{
		{"invalid city", "/bad_city/apartments", okFetch, http.StatusBadRequest, "invalid city"},
		{"unknown category", "/sfbay/jobs", okFetch, http.StatusNotFound, "unknown category"},
		{
			"upstream failure", "/sfbay/apartments",
			func(context.Context, string) ([]byte, error) {
				return nil, &fetcher.StatusError{StatusCode: 503, URL: "https://sfbay.craigslist.org"}
			},
			http.StatusBadGateway, "upstream listing search failed",
		},
		{
			"malformed payload", "/sfbay/apartments",
			func(context.Context, string) ([]byte, error) { return []byte("<html>"), nil },
			http.StatusBadGateway, "upstream listing search failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.fetch)
			w := do(t, env.srv, http.MethodGet, tt.path)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.msg, gjson.Get(w.Body.String(), "error").String())
			assert.Empty(t, w.Header().Get("X-Cache"))
		})
	}
}

func TestCacheInvalidate(t *testing.T) {
	env := newTestEnv(t, okFetch)
	do(t, env.srv, http.MethodGet, "/sfbay/apartments")
	do(t, env.srv, http.MethodGet, "/sfbay/rooms")
	do(t, env.srv, http.MethodGet, "/seattle/rooms")

	w := do(t, env.srv, http.MethodDelete, "/cache/SFBay")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), gjson.Get(w.Body.String(), "removed").Int())
	assert.Equal(t, 1, env.cache.Stats().Entries)

	w = do(t, env.srv, http.MethodGet, "/sfbay/apartments")
	assert.Equal(t, "miss", w.Header().Get("X-Cache"))
}

func TestNilCache(t *testing.T) {
	p := provider.New(fetcher.FetchFunc(okFetch), nil, provider.Options{})
	srv := New(p, nil, nil)

	w := do(t, srv, http.MethodGet, "/cache/stats")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), gjson.Get(w.Body.String(), "entries").Int())

	w = do(t, srv, http.MethodDelete, "/cache/sfbay")
	assert.Equal(t, int64(0), gjson.Get(w.Body.String(), "removed").Int())

	w = do(t, srv, http.MethodGet, "/sfbay/apartments")
	assert.Equal(t, "miss", w.Header().Get("X-Cache"))
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, okFetch)

	req := httptest.NewRequest(http.MethodOptions, "/sfbay/apartments", nil)
	req.Header.Set("Origin", "https://maps.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	env.srv.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, env.calls.Load())
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := LoggerMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/pot", nil)
	req.Header.Set(TraceHeader, "trace-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "trace-123", w.Header().Get(TraceHeader))
	entries := logs.FilterMessage("request finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "trace-123", fields["trace_id"])
	assert.Equal(t, "/pot", fields["http_path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status_code"])
	assert.Equal(t, int64(15), fields["bytes_written"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(provider.ErrInvalidCity))
	assert.Equal(t, http.StatusNotFound, statusFor(provider.ErrUnknownCategory))
	assert.Equal(t, statusClientClosed, statusFor(context.Canceled))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusBadGateway, statusFor(errors.New("boom")))
}
