package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-features/internal/cache"
	"github.com/sells-group/listing-features/internal/categories"
	"github.com/sells-group/listing-features/internal/config"
	"github.com/sells-group/listing-features/internal/feature"
	"github.com/sells-group/listing-features/internal/fetcher"
	"github.com/sells-group/listing-features/internal/provider"
	"github.com/sells-group/listing-features/internal/resilience"
)

// providerEnv holds the provider and the collaborators the serve and get
// commands share.
type providerEnv struct {
	Provider *provider.Provider
	Cache    *cache.Cache[*feature.Collection]
	Breaker  *resilience.CircuitBreaker
}

// initProvider builds the category table, HTTP fetcher, response cache and
// provider from c.
func initProvider(c *config.Config, mode string) (*providerEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	cats, err := loadCategories(c.Provider)
	if err != nil {
		return nil, err
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             provider.Name,
		FailureThreshold: c.Fetch.CircuitThreshold,
		ResetTimeout:     time.Duration(c.Fetch.CircuitResetSecs) * time.Second,
	})

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.Provider.UserAgent,
		Timeout:    time.Duration(c.Fetch.TimeoutSecs) * time.Second,
		RatePerSec: c.Fetch.RatePerSec,
		Retry:      resilience.NewRetryConfig(c.Fetch.MaxAttempts, 0, 0),
		Breaker:    breaker,
	})

	ttl := time.Duration(c.Provider.TTLSecs) * time.Second
	var respCache *cache.Cache[*feature.Collection]
	if ttl > 0 && c.Cache.MaxEntries > 0 {
		respCache = cache.New[*feature.Collection](c.Cache.MaxEntries, ttl)
	}

	p := provider.New(f, cats, provider.Options{
		TTL:         ttl,
		IDField:     c.Provider.IDField,
		URLTemplate: c.Provider.URLTemplate,
		Cache:       respCache,
	})

	zap.L().Debug("provider initialized",
		zap.String("id_field", p.IDField()),
		zap.Int("ttl_secs", p.TTL()),
		zap.Int("categories", len(p.Categories())),
		zap.Bool("cache", respCache != nil),
	)

	return &providerEnv{Provider: p, Cache: respCache, Breaker: breaker}, nil
}

// loadCategories overlays the categories file, then the inline map, on the
// built-in table.
func loadCategories(pc config.ProviderConfig) (*categories.Table, error) {
	var overrides []map[string]string
	if pc.CategoriesFile != "" {
		m, err := categories.LoadFile(pc.CategoriesFile)
		if err != nil {
			return nil, eris.Wrap(err, "load categories")
		}
		overrides = append(overrides, m)
	}
	if len(pc.Categories) > 0 {
		overrides = append(overrides, pc.Categories)
	}
	return categories.New(overrides...), nil
}
