package querydef

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Suite is a set of validations loaded from a YAML checks file.
type Suite struct {
	Version string `yaml:"version,omitempty"`

	// ColumnAliases resolves engine-specific column naming to a canonical
	// name, e.g. {"customerid": "customer_id"}. Keys and values are
	// case-folded on load.
	ColumnAliases map[string]string `yaml:"column_aliases,omitempty"`

	Checks []QueryDefinition `yaml:"checks"`
}

// ParseSuite decodes and validates a checks file.
func ParseSuite(in []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(in, &s); err != nil {
		return nil, errors.Wrap(err, "error decoding checks file")
	}
	if len(s.Checks) == 0 {
		return nil, errors.Newf("checks file declares no checks")
	}
	seen := make(map[string]struct{}, len(s.Checks))
	for i := range s.Checks {
		def := &s.Checks[i]
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seen[def.Name]; ok {
			return nil, errors.Newf("duplicate check name %q", def.Name)
		}
		seen[def.Name] = struct{}{}
	}
	if len(s.ColumnAliases) > 0 {
		folded := make(map[string]string, len(s.ColumnAliases))
		for k, v := range s.ColumnAliases {
			folded[strings.ToLower(k)] = strings.ToLower(v)
		}
		s.ColumnAliases = folded
	}
	return &s, nil
}

// LoadSuite reads and parses a checks file from disk.
func LoadSuite(path string) (*Suite, error) {
	in, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading checks file %s", path)
	}
	return ParseSuite(in)
}
