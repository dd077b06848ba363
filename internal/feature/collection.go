package feature

import (
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Metadata describes a collection for feature-service hosts.
type Metadata struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	HasStaticData bool   `json:"hasStaticData"`
	IDField       string `json:"idField"`
}

// Collection is a GeoJSON FeatureCollection extended with cache lifetime and
// host metadata. TTL and Metadata are filled by the caller.
type Collection struct {
	Type     string             `json:"type"`
	Features []*geojson.Feature `json:"features"`
	TTL      int                `json:"ttl"`
	Metadata *Metadata          `json:"metadata,omitempty"`
}

// NewCollection returns an empty collection with room for n features.
func NewCollection(n int) *Collection {
	return &Collection{
		Type:     "FeatureCollection",
		Features: make([]*geojson.Feature, 0, n),
	}
}

// IDs returns the identifier of every feature, read from idField.
func (c *Collection) IDs(idField string) []int32 {
	ids := make([]int32, 0, len(c.Features))
	for _, f := range c.Features {
		if id, ok := f.Properties[idField].(int32); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
