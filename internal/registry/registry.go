// Package registry describes the remote datasets the service knows how to fetch.
//
// Static datasets are listed one by one. Families describe a set of datasets that
// share an endpoint template, such as one price series per tracked altcoin; their
// members are discovered by id prefix.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/apperrors"
)

// Response formats.
const (
	FormatJSON   = "json"
	FormatBinary = "binary"
)

const symbolPlaceholder = "{symbol}"

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,20}$`)

//go:embed datasets.yaml
var defaultRegistry []byte

// Dataset describes how one series is fetched and normalized.
type Dataset struct {
	ID         string `yaml:"id" json:"id"`
	Path       string `yaml:"path" json:"path"`
	DateField  string `yaml:"date_field" json:"dateField"`
	ValueField string `yaml:"value_field" json:"valueField"`
	Format     string `yaml:"format" json:"format"`
	Family     string `yaml:"-" json:"family,omitempty"` // Prefix of the family the dataset belongs to
}

// Family is an endpoint template shared by datasets with a common id prefix.
type Family struct {
	Prefix     string `yaml:"prefix"`
	Path       string `yaml:"path"`
	DateField  string `yaml:"date_field"`
	ValueField string `yaml:"value_field"`
	// Members lists symbols that are served before the metadata endpoint announces them.
	Members []string `yaml:"members"`
}

// Registry is an immutable set of datasets and families.
type Registry struct {
	order    []string
	datasets map[string]Dataset
	families []Family
}

type file struct {
	Datasets []Dataset `yaml:"datasets"`
	Families []Family  `yaml:"families"`
}

// Load reads a registry file. An empty path loads the embedded default registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Parse(defaultRegistry)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the embedded registry.
func Default() *Registry {
	r, err := Parse(defaultRegistry)
	if err != nil {
		panic(fmt.Sprintf("embedded registry is invalid: %v", err))
	}
	return r
}

// Parse builds a registry from YAML and validates it.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRegistry, err)
	}
	return New(f.Datasets, f.Families)
}

// New builds a registry from explicit definitions.
func New(datasets []Dataset, families []Family) (*Registry, error) {
	r := &Registry{datasets: make(map[string]Dataset, len(datasets))}

	for _, d := range datasets {
		if d.Format == "" {
			d.Format = FormatJSON
		}
		if err := validateDataset(d); err != nil {
			return nil, err
		}
		if _, dup := r.datasets[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate dataset id %q", apperrors.ErrInvalidRegistry, d.ID)
		}
		r.datasets[d.ID] = d
		r.order = append(r.order, d.ID)
	}

	for _, fam := range families {
		if fam.Prefix == "" || !strings.Contains(fam.Path, symbolPlaceholder) || fam.ValueField == "" {
			return nil, fmt.Errorf("%w: family %q needs a prefix, a value field and a %s path", apperrors.ErrInvalidRegistry, fam.Prefix, symbolPlaceholder)
		}
		for _, sym := range fam.Members {
			if !symbolPattern.MatchString(sym) {
				return nil, fmt.Errorf("%w: family %q has invalid member %q", apperrors.ErrInvalidRegistry, fam.Prefix, sym)
			}
		}
		for _, id := range r.order {
			if strings.HasPrefix(id, fam.Prefix) {
				return nil, fmt.Errorf("%w: dataset %q shadows family %q", apperrors.ErrInvalidRegistry, id, fam.Prefix)
			}
		}
		r.families = append(r.families, fam)
	}

	return r, nil
}

func validateDataset(d Dataset) error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: dataset without id", apperrors.ErrInvalidRegistry)
	case d.Path == "":
		return fmt.Errorf("%w: dataset %q has no path", apperrors.ErrInvalidRegistry, d.ID)
	case d.Format != FormatJSON && d.Format != FormatBinary:
		return fmt.Errorf("%w: dataset %q has unknown format %q", apperrors.ErrInvalidRegistry, d.ID, d.Format)
	case d.Format == FormatJSON && (d.DateField == "" || d.ValueField == ""):
		return fmt.Errorf("%w: dataset %q needs date_field and value_field", apperrors.ErrInvalidRegistry, d.ID)
	}
	return nil
}

// Resolve returns the dataset definition for id, expanding family templates.
func (r *Registry) Resolve(id string) (Dataset, bool) {
	if d, ok := r.datasets[id]; ok {
		return d, true
	}
	for _, fam := range r.families {
		symbol, ok := strings.CutPrefix(id, fam.Prefix)
		if !ok || !symbolPattern.MatchString(symbol) {
			continue
		}
		return Dataset{
			ID:         id,
			Path:       strings.ReplaceAll(fam.Path, symbolPlaceholder, symbol),
			DateField:  fam.DateField,
			ValueField: fam.ValueField,
			Format:     FormatJSON,
			Family:     fam.Prefix,
		}, true
	}
	return Dataset{}, false
}

// IDs returns the static dataset ids in registry order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Families returns the configured family prefixes.
func (r *Registry) Families() []string {
	out := make([]string, 0, len(r.families))
	for _, fam := range r.families {
		out = append(out, fam.Prefix)
	}
	return out
}

// Members returns the ids of the family members listed in the registry, sorted.
func (r *Registry) Members() []string {
	var out []string
	for _, fam := range r.families {
		for _, sym := range fam.Members {
			out = append(out, fam.Prefix+sym)
		}
	}
	sort.Strings(out)
	return out
}

// Expand returns the static ids followed by every key that resolves to a family member.
// Keys matching neither are ignored.
func (r *Registry) Expand(keys []string) []string {
	ids := r.IDs()
	var members []string
	for _, k := range keys {
		if _, static := r.datasets[k]; static {
			continue
		}
		if d, ok := r.Resolve(k); ok && d.Family != "" {
			members = append(members, k)
		}
	}
	sort.Strings(members)
	return append(ids, members...)
}
