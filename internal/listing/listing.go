// Package listing selects genuine listings out of a Craigslist map-search payload.
//
// The payload is an array whose first element is an array of nodes. Nodes with
// a truthy "Ask" are listings; the rest are map cluster markers.
package listing

import (
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// Field names used by the map-search payload.
const (
	FieldAsk          = "Ask"
	FieldLongitude    = "Longitude"
	FieldLatitude     = "Latitude"
	FieldPostingTitle = "PostingTitle"
	FieldBedrooms     = "Bedrooms"
	FieldPostedDate   = "PostedDate"
	FieldPostingURL   = "PostingURL"
	FieldImageThumb   = "ImageThumb"
)

// ErrParse is returned when the payload does not have the expected shape.
var ErrParse = eris.New("listing: malformed payload")

// Raw is a single untyped listing node. Any field may be missing or malformed.
type Raw struct {
	node gjson.Result
}

// NewRaw wraps a JSON object as a Raw listing.
func NewRaw(json string) Raw {
	return Raw{node: gjson.Parse(json)}
}

func (r Raw) field(name string) gjson.Result {
	if !r.node.IsObject() {
		return gjson.Result{}
	}
	return r.node.Get(name)
}

// Ask returns the asking price field.
func (r Raw) Ask() gjson.Result { return r.field(FieldAsk) }

// Longitude returns the longitude field.
func (r Raw) Longitude() gjson.Result { return r.field(FieldLongitude) }

// Latitude returns the latitude field.
func (r Raw) Latitude() gjson.Result { return r.field(FieldLatitude) }

// PostingTitle returns the title field.
func (r Raw) PostingTitle() gjson.Result { return r.field(FieldPostingTitle) }

// Bedrooms returns the bedroom count field.
func (r Raw) Bedrooms() gjson.Result { return r.field(FieldBedrooms) }

// PostedDate returns the posting time field, in unix seconds.
func (r Raw) PostedDate() gjson.Result { return r.field(FieldPostedDate) }

// PostingURL returns the listing URL field.
func (r Raw) PostingURL() gjson.Result { return r.field(FieldPostingURL) }

// ImageThumb returns the thumbnail URL field.
func (r Raw) ImageThumb() gjson.Result { return r.field(FieldImageThumb) }

// JSON returns the node as raw JSON text.
func (r Raw) JSON() string { return r.node.Raw }

// Parse validates the top-level shape of a map-search payload.
//
// The text must be a JSON array. If its first element is present and truthy it
// must itself be an array, otherwise the nodes cannot be traversed.
func Parse(data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, eris.Wrap(ErrParse, "invalid json")
	}
	payload := gjson.ParseBytes(data)
	if !payload.IsArray() {
		return gjson.Result{}, eris.Wrapf(ErrParse, "expected array, got %s", payload.Type)
	}
	first := payload.Get("0")
	if Truthy(first) && !first.IsArray() {
		return gjson.Result{}, eris.Wrap(ErrParse, "first element is not an array")
	}
	return payload, nil
}

// Filter returns the nodes of payload[0] that carry a truthy Ask, in order.
// A missing or non-array first element yields an empty slice.
func Filter(payload gjson.Result) []Raw {
	nodes := payload.Get("0")
	if !nodes.IsArray() {
		return []Raw{}
	}

	out := make([]Raw, 0, len(nodes.Raw)/256)
	nodes.ForEach(func(_, node gjson.Result) bool {
		if !node.IsObject() {
			return true
		}
		if Truthy(node.Get(FieldAsk)) {
			out = append(out, Raw{node: node})
		}
		return true
	})
	return out
}

// Truthy reports whether a JSON value would pass a loose boolean test:
// non-empty strings, non-zero numbers, true, objects and arrays.
func Truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}
