// Package provider serves Craigslist listings as feature collections for a
// city and category.
package provider

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/listing-features/internal/cache"
	"github.com/sells-group/listing-features/internal/categories"
	"github.com/sells-group/listing-features/internal/feature"
	"github.com/sells-group/listing-features/internal/fetcher"
	"github.com/sells-group/listing-features/internal/objectid"
	"github.com/sells-group/listing-features/internal/translate"
)

// Name identifies the provider to feature-service hosts.
const Name = "craigslist"

// DefaultURLTemplate is the map-search endpoint. {city} and {path} are substituted.
const DefaultURLTemplate = "https://{city}.craigslist.org/jsonsearch/{path}/?map=1"

// DefaultTTL is the response lifetime when none is configured.
const DefaultTTL = time.Hour

var (
	// ErrUnknownCategory is returned for a category missing from the table.
	ErrUnknownCategory = eris.New("provider: unknown category")
	// ErrInvalidCity is returned when the city is not a valid host label.
	ErrInvalidCity = eris.New("provider: invalid city")
)

var cityLabel = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// Options configures a Provider.
type Options struct {
	// TTL is reported on every collection and bounds cache lifetime.
	TTL time.Duration
	// IDField names the object id property.
	IDField string
	// URLTemplate overrides DefaultURLTemplate.
	URLTemplate string
	// Source draws id prefixes and must be safe for concurrent use.
	// Defaults to objectid.DefaultSource().
	Source objectid.Source
	// Cache stores finished collections. Nil disables caching.
	Cache *cache.Cache[*feature.Collection]
}

// Provider fetches, translates and annotates listing collections.
type Provider struct {
	fetcher    fetcher.Fetcher
	categories *categories.Table
	opts       Options
	group      singleflight.Group
}

// New creates a Provider.
func New(f fetcher.Fetcher, cats *categories.Table, opts Options) *Provider {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.IDField == "" {
		opts.IDField = translate.DefaultIDField
	}
	if opts.URLTemplate == "" {
		opts.URLTemplate = DefaultURLTemplate
	}
	if opts.Source == nil {
		opts.Source = objectid.DefaultSource()
	}
	if cats == nil {
		cats = categories.New()
	}
	return &Provider{fetcher: f, categories: cats, opts: opts}
}

// IDField returns the property that carries object ids.
func (p *Provider) IDField() string { return p.opts.IDField }

// TTL returns the response lifetime in whole seconds.
func (p *Provider) TTL() int { return int(p.opts.TTL / time.Second) }

// Categories returns the known category names.
func (p *Provider) Categories() []string { return p.categories.Names() }

// URL builds the upstream map-search URL for a city and category.
func (p *Provider) URL(city, category string) (string, error) {
	city = strings.ToLower(strings.TrimSpace(city))
	if !cityLabel.MatchString(city) {
		return "", eris.Wrapf(ErrInvalidCity, "%q", city)
	}
	path, ok := p.categories.Path(category)
	if !ok {
		return "", eris.Wrapf(ErrUnknownCategory, "%q", category)
	}
	return strings.NewReplacer("{city}", city, "{path}", path).Replace(p.opts.URLTemplate), nil
}

// GetData returns the feature collection for a city and category.
func (p *Provider) GetData(ctx context.Context, city, category string) (*feature.Collection, error) {
	fc, _, err := p.Lookup(ctx, city, category)
	return fc, err
}

// Lookup is GetData that also reports whether the collection came from cache.
// Concurrent misses for the same key share one upstream fetch. The shared fetch
// is detached from ctx, so one caller going away does not fail the others; each
// caller still stops waiting when its own ctx is done.
func (p *Provider) Lookup(ctx context.Context, city, category string) (*feature.Collection, bool, error) {
	city = strings.ToLower(strings.TrimSpace(city))
	category = strings.ToLower(strings.TrimSpace(category))
	url, err := p.URL(city, category)
	if err != nil {
		return nil, false, err
	}

	key := cache.Key(city, category)
	if p.opts.Cache != nil {
		if fc, ok := p.opts.Cache.Get(key); ok {
			return fc, true, nil
		}
	}

	fill := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (interface{}, error) {
		fc, err := p.load(fill, url, city, category)
		if err != nil {
			return nil, err
		}
		if p.opts.Cache != nil {
			p.opts.Cache.Put(key, fc)
		}
		return fc, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*feature.Collection), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (p *Provider) load(ctx context.Context, url, city, category string) (*feature.Collection, error) {
	start := time.Now()
	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: fetch %s %s", city, category)
	}

	fc, err := translate.Translate(body, translate.Options{
		IDField: p.opts.IDField,
		Source:  p.opts.Source,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "provider: translate %s %s", city, category)
	}

	fc.TTL = p.TTL()
	fc.Metadata = &feature.Metadata{
		Name:          fmt.Sprintf("%s %s", city, category),
		Description:   fmt.Sprintf("Craigslist %s listings proxied by listing-features", category),
		HasStaticData: false,
		IDField:       p.opts.IDField,
	}

	zap.L().Info("provider: collection built",
		zap.String("city", city),
		zap.String("category", category),
		zap.Int("features", len(fc.Features)),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return fc, nil
}
