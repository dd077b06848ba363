// Package categories maps public category names to Craigslist search paths.
package categories

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Defaults is the built-in housing category table.
var Defaults = map[string]string{
	"apartments":       "apa",
	"rooms":            "roo",
	"sublets":          "sub",
	"housing":          "hhh",
	"vacation-rentals": "vac",
	"parking":          "prk",
	"office":           "off",
	"real-estate":      "rea",
}

// Table is an immutable category lookup. Names are matched case-insensitively.
type Table struct {
	paths map[string]string
}

// New builds a table from the defaults overlaid with each override map in order.
// An empty path in an override removes the category.
func New(overrides ...map[string]string) *Table {
	paths := make(map[string]string, len(Defaults))
	for name, path := range Defaults {
		paths[name] = path
	}
	for _, o := range overrides {
		for name, path := range o {
			key := normalize(name)
			if path == "" {
				delete(paths, key)
				continue
			}
			paths[key] = strings.Trim(path, "/ ")
		}
	}
	return &Table{paths: paths}
}

// LoadFile reads a YAML mapping of category name to search path.
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "categories: read %s", path)
	}
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "categories: parse %s", path)
	}
	return m, nil
}

// Path returns the search path for a category name.
func (t *Table) Path(name string) (string, bool) {
	p, ok := t.paths[normalize(name)]
	return p, ok
}

// Names returns every known category name, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.paths))
	for name := range t.paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
