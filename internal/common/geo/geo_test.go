package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"afh-workers/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func zipServer(t *testing.T, hits *int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch {
		case status != http.StatusOK:
			w.WriteHeader(status)
		case r.URL.Path == "/us/98107":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"post code":"98107","country":"United States","places":[{"place name":"Seattle","state":"Washington","latitude":"47.6689","longitude":"-122.3819"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGeocoder(t *testing.T, baseURL string, cache *redis.Client) *ZipGeocoder {
	return NewZipGeocoder(Config{
		BaseURL:          baseURL,
		Timeout:          2 * time.Second,
		CacheTTL:         time.Hour,
		BreakerFailures:  2,
		BreakerOpenDelay: time.Minute,
	}, cache, logger.NewTestLogger(t))
}

// ==========================
// Distance
// ==========================

func TestDistanceMiles(t *testing.T) {
	seattle := Point{Latitude: 47.6062, Longitude: -122.3321}
	tacoma := Point{Latitude: 47.2529, Longitude: -122.4443}
	spokane := Point{Latitude: 47.6588, Longitude: -117.4260}

	assert.InDelta(t, 25.0, DistanceMiles(seattle, tacoma), 1.0)
	assert.InDelta(t, 228.0, DistanceMiles(seattle, spokane), 3.0)
	assert.InDelta(t, DistanceMiles(seattle, tacoma), DistanceMiles(tacoma, seattle), 1e-9)
	assert.Zero(t, DistanceMiles(seattle, seattle))
}

// ==========================
// Geocoder
// ==========================

func TestZipGeocoder_CachesResults(t *testing.T) {
	var hits int32
	srv := zipServer(t, &hits, http.StatusOK)
	mr, cache := setupRedis(t)
	g := newTestGeocoder(t, srv.URL, cache)

	p, err := g.Geocode(context.Background(), "98107")
	require.NoError(t, err)
	assert.InDelta(t, 47.6689, p.Latitude, 1e-6)
	assert.InDelta(t, -122.3819, p.Longitude, 1e-6)

	again, err := g.Geocode(context.Background(), "98107")
	require.NoError(t, err)
	assert.Equal(t, p, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	assert.True(t, mr.Exists("geo:us:zip:98107"))
	assert.Equal(t, time.Hour, mr.TTL("geo:us:zip:98107"))
}

func TestZipGeocoder_UnknownZip(t *testing.T) {
	var hits int32
	srv := zipServer(t, &hits, http.StatusOK)
	g := newTestGeocoder(t, srv.URL, nil)

	for i := 0; i < 3; i++ {
		_, err := g.Geocode(context.Background(), "00000")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrZipNotFound))
	}
	// not-found answers never trip the breaker
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestZipGeocoder_BreakerOpensOnFailures(t *testing.T) {
	var hits int32
	srv := zipServer(t, &hits, http.StatusBadGateway)
	g := newTestGeocoder(t, srv.URL, nil)

	for i := 0; i < 2; i++ {
		_, err := g.Geocode(context.Background(), "98107")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrGeocodeFailed))
	}

	_, err := g.Geocode(context.Background(), "98107")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeocoderClosed))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}
