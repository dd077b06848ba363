// Package translate turns a raw map-search payload into a feature collection.
package translate

import (
	"go.uber.org/zap"

	"github.com/sells-group/listing-features/internal/feature"
	"github.com/sells-group/listing-features/internal/listing"
	"github.com/sells-group/listing-features/internal/objectid"
)

// DefaultIDField is the property that carries the object id when none is configured.
const DefaultIDField = "featureId"

// Options configures a translation.
type Options struct {
	// IDField names the property that receives the object id.
	IDField string
	// Source draws the batch id prefix. Defaults to objectid.DefaultSource().
	Source objectid.Source
	// Logger receives format warnings. Defaults to zap.L().
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.IDField == "" {
		o.IDField = DefaultIDField
	}
	if o.Source == nil {
		o.Source = objectid.DefaultSource()
	}
	if o.Logger == nil {
		o.Logger = zap.L()
	}
	return o
}

// Translate parses data, keeps genuine listings and formats each one with a
// batch-unique object id. Feature order follows the payload. TTL and Metadata
// are left for the caller. A malformed payload returns an error wrapping
// listing.ErrParse and no collection.
func Translate(data []byte, opts Options) (*feature.Collection, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	payload, err := listing.Parse(data)
	if err != nil {
		return nil, err
	}

	candidates := listing.Filter(payload)
	n := int64(len(candidates))
	batch := objectid.NewBatch(n, opts.Source)
	if batch.Truncated(n) {
		log.Warn("translate: listing count exceeds object id space, truncating",
			zap.Int64("listings", n),
			zap.Int64("kept", batch.Size()),
		)
		candidates = candidates[:batch.Size()]
	}

	fc := feature.NewCollection(len(candidates))
	warned := 0
	for i, raw := range candidates {
		f, warnings := feature.Format(raw, batch.ID(int64(i)), opts.IDField)
		for _, w := range warnings {
			log.Debug("translate: unparsable listing field",
				zap.Int("index", i),
				zap.String("field", w.Field),
				zap.String("value", w.Value),
			)
		}
		if len(warnings) > 0 {
			warned++
		}
		fc.Features = append(fc.Features, f)
	}

	log.Debug("translate: complete",
		zap.Int("features", len(fc.Features)),
		zap.Int("with_warnings", warned),
		zap.Bool("sequential_ids", batch.Sequential()),
	)

	return fc, nil
}
