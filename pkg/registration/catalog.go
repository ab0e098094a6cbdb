package registration

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	"github.com/gabrielmiguelok/agentsignup/pkg/forms"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog holds the select options offered by the wizard.
type Catalog struct {
	States             []forms.Option `yaml:"states"`
	Brokerages         []forms.Option `yaml:"brokerages"`
	Experience         []forms.Option `yaml:"experience"`
	TransactionVolumes []forms.Option `yaml:"transactionVolumes"`
	Specializations    []forms.Option `yaml:"specializations"`
	Timezones          []forms.Option `yaml:"timezones"`
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Brokerages) == 0 || len(c.Specializations) < MinSpecializations {
		return nil, fmt.Errorf("parse catalog: incomplete option lists")
	}
	return &c, nil
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseCatalog(catalogYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Label returns the label of value within options, or value itself.
func Label(options []forms.Option, value string) string {
	for _, o := range options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

// maxTypoRatio bounds the edit distance, relative to the query length, for a
// fuzzy timezone match.
const maxTypoRatio = 0.34

type rankedOption struct {
	opt  forms.Option
	rank int
	dist int
}

// SearchTimezones returns at most limit timezones matching query. Prefix
// matches come first, then substring matches, then near misses by edit
// distance. An empty query returns the first limit timezones.
func (c *Catalog) SearchTimezones(query string, limit int) []forms.Option {
	if limit <= 0 {
		return nil
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		if len(c.Timezones) <= limit {
			return append([]forms.Option{}, c.Timezones...)
		}
		return append([]forms.Option{}, c.Timezones[:limit]...)
	}

	matches := make([]rankedOption, 0, len(c.Timezones))
	for _, tz := range c.Timezones {
		if r, ok := rankTimezone(tz, query); ok {
			matches = append(matches, r)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].opt.Label < matches[j].opt.Label
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]forms.Option, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.opt)
	}
	return out
}

func rankTimezone(tz forms.Option, query string) (rankedOption, bool) {
	words := searchWords(tz)
	for _, w := range words {
		if strings.HasPrefix(w, query) {
			return rankedOption{opt: tz, rank: 0}, true
		}
	}

	haystack := strings.ToLower(tz.Label + " " + tz.Value)
	if strings.Contains(haystack, query) {
		return rankedOption{opt: tz, rank: 1}, true
	}

	maxDist := int(float64(len(query))*maxTypoRatio + 0.5)
	if maxDist == 0 {
		return rankedOption{}, false
	}
	best := -1
	for _, w := range words {
		// Compare against a same-length prefix so partial words still match.
		if len(w) > len(query) {
			w = w[:len(query)]
		}
		d := levenshtein.ComputeDistance(query, w)
		if best < 0 || d < best {
			best = d
		}
	}
	if best >= 0 && best <= maxDist {
		return rankedOption{opt: tz, rank: 2, dist: best}, true
	}
	return rankedOption{}, false
}

func searchWords(tz forms.Option) []string {
	split := func(r rune) bool {
		return r == ' ' || r == '/' || r == '_' || r == '(' || r == ')' || r == '-'
	}
	words := strings.FieldsFunc(strings.ToLower(tz.Label), split)
	return append(words, strings.FieldsFunc(strings.ToLower(tz.Value), split)...)
}
