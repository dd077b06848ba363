// Package feature formats raw listings as GeoJSON point features.
package feature

import (
	"encoding/json"
	"math"
	"time"

	"github.com/tidwall/gjson"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/listing-features/internal/listing"
)

// Property keys written on every feature.
const (
	PropTitle           = "title"
	PropPrice           = "price"
	PropBedrooms        = "bedrooms"
	PropPostDate        = "postDate"
	PropPosting         = "posting"
	PropThumbnail       = "thumbnail"
	PropPricePerBedroom = "pricePerBedroom"
)

// isoMillis matches the millisecond-precision UTC layout used by GeoJSON consumers.
const isoMillis = "2006-01-02T15:04:05.000Z"

// maxEpochMillis is the largest magnitude a calendar instant may have.
const maxEpochMillis = 8.64e15

// Number is a float64 that encodes NaN and infinities as JSON null.
type Number float64

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// Float returns the underlying value.
func (n Number) Float() float64 { return float64(n) }

// Warning records a field that could not be parsed. The feature is still
// emitted with a sentinel or absent value for that field.
type Warning struct {
	Field string
	Value string
}

// Format maps one raw listing and its assigned id to a GeoJSON feature. The id
// is written under idField. Format never fails; unparsable fields degrade to
// sentinels and are reported as warnings.
func Format(raw listing.Raw, id int32, idField string) (*geojson.Feature, []Warning) {
	var warnings []Warning
	warn := func(field string, v gjson.Result) {
		warnings = append(warnings, Warning{Field: field, Value: v.Raw})
	}

	price := ParseFloat(raw.Ask().String())
	if math.IsNaN(price) {
		warn(listing.FieldAsk, raw.Ask())
	}
	bedrooms := ParseFloat(raw.Bedrooms().String())
	if math.IsNaN(bedrooms) {
		warn(listing.FieldBedrooms, raw.Bedrooms())
	}

	props := map[string]interface{}{
		PropPrice:    Number(price),
		PropBedrooms: Number(bedrooms),
	}
	// Absent text fields are left out rather than encoded as null.
	for prop, v := range map[string]gjson.Result{
		PropTitle:     raw.PostingTitle(),
		PropPosting:   raw.PostingURL(),
		PropThumbnail: raw.ImageThumb(),
	} {
		if v.Exists() {
			props[prop] = v.Value()
		}
	}

	if date, ok := PostDate(raw.PostedDate()); ok {
		props[PropPostDate] = date
	} else {
		props[PropPostDate] = nil
		warn(listing.FieldPostedDate, raw.PostedDate())
	}

	if ppbr, ok := PricePerBedroom(price, bedrooms); ok {
		props[PropPricePerBedroom] = ppbr
	}
	props[idField] = id

	f := &geojson.Feature{Properties: props}
	lon, lonOK := coordinate(raw.Longitude())
	lat, latOK := coordinate(raw.Latitude())
	if !lonOK {
		warn(listing.FieldLongitude, raw.Longitude())
	}
	if !latOK {
		warn(listing.FieldLatitude, raw.Latitude())
	}
	if lonOK && latOK {
		f.Geometry = geom.NewPointFlat(geom.XY, []float64{lon, lat})
	}

	return f, warnings
}

// PricePerBedroom returns price/bedrooms when both are finite, bedrooms is
// non-zero and the quotient is finite and non-zero.
func PricePerBedroom(price, bedrooms float64) (float64, bool) {
	if !finite(price) || !finite(bedrooms) || bedrooms == 0 {
		return 0, false
	}
	ppbr := price / bedrooms
	if !finite(ppbr) || ppbr == 0 {
		return 0, false
	}
	return ppbr, true
}

// PostDate converts unix epoch seconds to an ISO-8601 UTC instant with
// millisecond precision. ok is false for non-numeric or out-of-range values.
func PostDate(v gjson.Result) (string, bool) {
	secs, ok := ParseInt(v.String())
	if !ok {
		return "", false
	}
	ms := float64(secs) * 1000
	if math.Abs(ms) > maxEpochMillis {
		return "", false
	}
	t := time.UnixMilli(secs * 1000).UTC()
	if t.Year() < 0 || t.Year() > 9999 {
		return "", false
	}
	return t.Format(isoMillis), true
}

func coordinate(v gjson.Result) (float64, bool) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		f = ParseFloat(v.Str)
	default:
		return 0, false
	}
	return f, finite(f)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
