package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	httpclient "afh-workers/internal/common/http"
	"afh-workers/internal/common/logger"
	"afh-workers/internal/common/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

var (
	ErrZipNotFound    = errors.New("zip code not found")
	ErrGeocodeFailed  = errors.New("geocoding request failed")
	ErrGeocoderClosed = errors.New("geocoder circuit open")
)

// Geocoder resolves a postal code to a point.
type Geocoder interface {
	Geocode(ctx context.Context, zip string) (Point, error)
}

// Config configures ZipGeocoder.
type Config struct {
	BaseURL          string
	Country          string
	Timeout          time.Duration
	RetryCount       int
	CacheTTL         time.Duration
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

// ZipGeocoder looks zip codes up against a zippopotam.us style API
// (GET /{country}/{zip}), caching results in Redis and shedding load
// through a circuit breaker while the upstream is failing.
type ZipGeocoder struct {
	client  *resty.Client
	cache   *redis.Client
	breaker *gobreaker.CircuitBreaker
	config  Config
	logger  logger.Logger
}

type zipResponse struct {
	PostCode string `json:"post code"`
	Places   []struct {
		PlaceName string `json:"place name"`
		State     string `json:"state"`
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"places"`
}

// NewZipGeocoder builds the geocoder. cache may be nil.
func NewZipGeocoder(cfg Config, cache *redis.Client, log logger.Logger) *ZipGeocoder {
	if cfg.Country == "" {
		cfg.Country = "us"
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenDelay == 0 {
		cfg.BreakerOpenDelay = 30 * time.Second
	}

	g := &ZipGeocoder{
		client: httpclient.NewClient(httpclient.ClientConfig{
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			RetryCount: cfg.RetryCount,
		}),
		cache:  cache,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "geocoder"}),
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "zip-geocoder",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
		// An unknown zip is a valid answer, not an upstream failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrZipNotFound)
		},
	})

	return g
}

func cacheKey(country, zip string) string {
	return fmt.Sprintf("geo:%s:zip:%s", country, zip)
}

// Geocode returns the centroid of zip.
func (g *ZipGeocoder) Geocode(ctx context.Context, zip string) (Point, error) {
	key := cacheKey(g.config.Country, zip)

	if g.cache != nil {
		if val, err := g.cache.Get(ctx, key).Result(); err == nil {
			var p Point
			if err := json.Unmarshal([]byte(val), &p); err == nil {
				metrics.GeocodeLookups.WithLabelValues("cache", "hit").Inc()
				return p, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			g.logger.Warn("geocode cache read failed", map[string]interface{}{"zip": zip, "error": err.Error()})
		}
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.lookup(ctx, zip)
	})
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, ErrZipNotFound):
			outcome = "not_found"
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			outcome = "rejected"
			err = fmt.Errorf("%w: %v", ErrGeocoderClosed, err)
		}
		metrics.GeocodeLookups.WithLabelValues("api", outcome).Inc()
		return Point{}, err
	}

	p := result.(Point)
	metrics.GeocodeLookups.WithLabelValues("api", "hit").Inc()

	if g.cache != nil {
		if data, err := json.Marshal(p); err == nil {
			if err := g.cache.Set(ctx, key, data, g.config.CacheTTL).Err(); err != nil {
				g.logger.Warn("geocode cache write failed", map[string]interface{}{"zip": zip, "error": err.Error()})
			}
		}
	}
	return p, nil
}

func (g *ZipGeocoder) lookup(ctx context.Context, zip string) (Point, error) {
	var body zipResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"country": g.config.Country, "zip": zip}).
		SetResult(&body).
		Get("/{country}/{zip}")
	if err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrGeocodeFailed, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return Point{}, fmt.Errorf("%w: %s", ErrZipNotFound, zip)
	case resp.IsError():
		return Point{}, fmt.Errorf("%w: status %d", ErrGeocodeFailed, resp.StatusCode())
	case len(body.Places) == 0:
		return Point{}, fmt.Errorf("%w: %s", ErrZipNotFound, zip)
	}

	lat, err := strconv.ParseFloat(body.Places[0].Latitude, 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: bad latitude %q", ErrGeocodeFailed, body.Places[0].Latitude)
	}
	lng, err := strconv.ParseFloat(body.Places[0].Longitude, 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: bad longitude %q", ErrGeocodeFailed, body.Places[0].Longitude)
	}

	return Point{Latitude: lat, Longitude: lng}, nil
}
