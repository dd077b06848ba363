package feature

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/listing-features/internal/listing"
)

const idField = "featureId"

func TestFormat_CompleteListing(t *testing.T) {
	raw := listing.NewRaw(`{"Ask":"450","Bedrooms":"1","Longitude":-122,"Latitude":37,"PostedDate":"1000","PostingURL":"u1","ImageThumb":"t1","PostingTitle":"Studio"}`)

	f, warnings := Format(raw, 1234, idField)
	require.NotNil(t, f)
	assert.Empty(t, warnings)

	pt, ok := f.Geometry.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, geom.Coord{-122, 37}, pt.Coords())

	p := f.Properties
	assert.Equal(t, "Studio", p[PropTitle])
	assert.Equal(t, Number(450), p[PropPrice])
	assert.Equal(t, Number(1), p[PropBedrooms])
	assert.Equal(t, 450.0, p[PropPricePerBedroom])
	assert.Equal(t, "1970-01-01T00:16:40.000Z", p[PropPostDate])
	assert.Equal(t, "u1", p[PropPosting])
	assert.Equal(t, "t1", p[PropThumbnail])
	assert.Equal(t, int32(1234), p[idField])
}

func TestFormat_MissingBedrooms(t *testing.T) {
	raw := listing.NewRaw(`{"Ask":"900","Longitude":-122,"Latitude":37,"PostedDate":"1000"}`)

	f, warnings := Format(raw, 1, idField)
	assert.True(t, math.IsNaN(f.Properties[PropBedrooms].(Number).Float()))
	assert.NotContains(t, f.Properties, PropPricePerBedroom)
	assert.Contains(t, warnings, Warning{Field: listing.FieldBedrooms})
}

func TestFormat_ZeroBedrooms(t *testing.T) {
	raw := listing.NewRaw(`{"Ask":"900","Bedrooms":"0","Longitude":-122,"Latitude":37,"PostedDate":"1000"}`)

	f, _ := Format(raw, 1, idField)
	assert.Equal(t, Number(0), f.Properties[PropBedrooms])
	assert.NotContains(t, f.Properties, PropPricePerBedroom)
}

func TestFormat_UnparsablePrice(t *testing.T) {
	raw := listing.NewRaw(`{"Ask":"call me","Bedrooms":"2","Longitude":-122,"Latitude":37,"PostedDate":"1000"}`)

	f, warnings := Format(raw, 1, idField)
	require.NotNil(t, f)
	assert.True(t, math.IsNaN(f.Properties[PropPrice].(Number).Float()))
	assert.NotContains(t, f.Properties, PropPricePerBedroom)
	assert.Contains(t, warnings, Warning{Field: listing.FieldAsk, Value: `"call me"`})
}

func TestFormat_MalformedPostedDate(t *testing.T) {
	raw := listing.NewRaw(`{"Ask":"900","Bedrooms":"2","Longitude":-122,"Latitude":37,"PostedDate":"yesterday"}`)

	f, warnings := Format(raw, 1, idField)
	assert.Contains(t, f.Properties, PropPostDate)
	assert.Nil(t, f.Properties[PropPostDate])
	assert.Contains(t, warnings, Warning{Field: listing.FieldPostedDate, Value: `"yesterday"`})
}

func TestFormat_MissingCoordinates(t *testing.T) {
	raw := listing.NewRaw(`{"Ask":"900","Bedrooms":"2","Latitude":37,"PostedDate":"1000"}`)

	f, warnings := Format(raw, 1, idField)
	assert.Nil(t, f.Geometry)
	assert.Contains(t, warnings, Warning{Field: listing.FieldLongitude})
}

func TestFormat_NoCoordinatesWarnsForBoth(t *testing.T) {
	raw := listing.NewRaw(`{"Ask":"900","Bedrooms":"2","PostedDate":"1000"}`)

	f, warnings := Format(raw, 1, idField)
	assert.Nil(t, f.Geometry)
	assert.Contains(t, warnings, Warning{Field: listing.FieldLongitude})
	assert.Contains(t, warnings, Warning{Field: listing.FieldLatitude})
}

func TestFormat_AbsentTextFieldsAreOmitted(t *testing.T) {
	raw := listing.NewRaw(`{"Ask":"900","Bedrooms":"2","Longitude":-122,"Latitude":37,"PostedDate":"1000"}`)

	f, _ := Format(raw, 1, idField)
	assert.NotContains(t, f.Properties, PropTitle)
	assert.NotContains(t, f.Properties, PropPosting)
	assert.NotContains(t, f.Properties, PropThumbnail)

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(data, "properties.title").Exists())
	assert.False(t, gjson.GetBytes(data, "properties.thumbnail").Exists())

	raw = listing.NewRaw(`{"Ask":"900","PostingTitle":null}`)
	f, _ = Format(raw, 1, idField)
	assert.Contains(t, f.Properties, PropTitle)
	assert.Nil(t, f.Properties[PropTitle])
}

func TestFormat_StringCoordinatesAreNotRangeChecked(t *testing.T) {
	raw := listing.NewRaw(`{"Ask":"900","Longitude":"-500.5","Latitude":"95","PostedDate":"1000"}`)

	f, _ := Format(raw, 1, idField)
	pt, ok := f.Geometry.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, geom.Coord{-500.5, 95}, pt.Coords())
}

func TestFormat_ConfigurableIDField(t *testing.T) {
	raw := listing.NewRaw(`{"Ask":"900"}`)

	f, _ := Format(raw, 77, "OBJECTID")
	assert.Equal(t, int32(77), f.Properties["OBJECTID"])
	assert.NotContains(t, f.Properties, idField)
}

func TestFormat_IDFieldWinsOverBuiltinKey(t *testing.T) {
	raw := listing.NewRaw(`{"Ask":"900","PostingTitle":"x"}`)

	f, _ := Format(raw, 5, PropTitle)
	assert.Equal(t, int32(5), f.Properties[PropTitle])
}

func TestFormat_JSONEncoding(t *testing.T) {
	raw := listing.NewRaw(`{"Ask":"n/a","Bedrooms":"3","Longitude":-122.25,"Latitude":37.5,"PostedDate":1700000000,"PostingURL":"u","ImageThumb":"t","PostingTitle":"Loft"}`)

	f, _ := Format(raw, 42, idField)
	data, err := json.Marshal(f)
	require.NoError(t, err)

	doc := gjson.ParseBytes(data)
	assert.Equal(t, "Feature", doc.Get("type").String())
	assert.Equal(t, "Point", doc.Get("geometry.type").String())
	assert.InDelta(t, -122.25, doc.Get("geometry.coordinates.0").Float(), 0)
	assert.InDelta(t, 37.5, doc.Get("geometry.coordinates.1").Float(), 0)
	assert.Equal(t, gjson.Null, doc.Get("properties.price").Type)
	assert.InDelta(t, 3.0, doc.Get("properties.bedrooms").Float(), 0)
	assert.False(t, doc.Get("properties.pricePerBedroom").Exists())
	assert.Equal(t, "2023-11-14T22:13:20.000Z", doc.Get("properties.postDate").String())
	assert.Equal(t, int64(42), doc.Get("properties.featureId").Int())
}

func TestPricePerBedroom(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		bedrooms float64
		want     float64
		ok       bool
	}{
		{"normal", 3000, 2, 1500, true},
		{"fractional", 1000, 0.5, 2000, true},
		{"zero bedrooms", 3000, 0, 0, false},
		{"zero price", 0, 2, 0, false},
		{"nan price", math.NaN(), 2, 0, false},
		{"nan bedrooms", 3000, math.NaN(), 0, false},
		{"infinite price", math.Inf(1), 2, 0, false},
		{"negative infinite price", math.Inf(-1), 2, 0, false},
		{"overflowing quotient", math.MaxFloat64, 0.5, 0, false},
		{"underflowing quotient", 5e-324, 4, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PricePerBedroom(tt.price, tt.bedrooms)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPostDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{`"1000"`, "1970-01-01T00:16:40.000Z", true},
		{`1000`, "1970-01-01T00:16:40.000Z", true},
		{`"1000.9"`, "1970-01-01T00:16:40.000Z", true},
		{`"0"`, "1970-01-01T00:00:00.000Z", true},
		{`"-86400"`, "1969-12-31T00:00:00.000Z", true},
		{`"abc"`, "", false},
		{`""`, "", false},
		{`null`, "", false},
		{`"99999999999999"`, "", false},
	}
	for _, tt := range tests {
		got, ok := PostDate(gjson.Parse(tt.raw))
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
	_, ok := PostDate(gjson.Result{})
	assert.False(t, ok)
}

func TestNumber_MarshalJSON(t *testing.T) {
	for _, n := range []Number{Number(math.NaN()), Number(math.Inf(1)), Number(math.Inf(-1))} {
		data, err := json.Marshal(n)
		require.NoError(t, err)
		assert.Equal(t, "null", string(data))
	}
	data, err := json.Marshal(Number(12.5))
	require.NoError(t, err)
	assert.Equal(t, "12.5", string(data))
}

func TestCollection_IDs(t *testing.T) {
	c := NewCollection(2)
	assert.Equal(t, "FeatureCollection", c.Type)
	for i, id := range []int32{10, 11} {
		f, _ := Format(listing.NewRaw(`{"Ask":"1"}`), id, idField)
		c.Features = append(c.Features, f)
		assert.Len(t, c.Features, i+1)
	}
	assert.Equal(t, []int32{10, 11}, c.IDs(idField))
}
