package policy

import (
	"fmt"
	"os"

	"github.com/dikshantks/trino-mcp-server/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Rules holds operator-controlled extensions to the query gate, loaded from
// a YAML file. Rules only ever add to the built-in pattern set; there is no
// way to relax it.
//
//	forbidden:
//	  - name: CALL
//	    pattern: '\bCALL\s+\w'
//	  - name: system.runtime.kill_query
//	    pattern: '\bSYSTEM\.RUNTIME\.KILL_QUERY\b'
//	allowed_prefixes:
//	  - USE
type Rules struct {
	Forbidden       []ForbiddenRule `yaml:"forbidden"`
	AllowedPrefixes []string        `yaml:"allowed_prefixes"`
}

// ForbiddenRule is one additional mutation-indicating pattern. The pattern
// is a regular expression matched against the uppercased normalized
// statement, so it should be written in uppercase.
type ForbiddenRule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// LoadFromFile reads a YAML rules file and returns validated Rules.
func LoadFromFile(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading gate rules file: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing gate rules YAML: %w", err)
	}

	if err := validate(&rules); err != nil {
		return nil, fmt.Errorf("validating gate rules: %w", err)
	}

	return &rules, nil
}

func validate(rules *Rules) error {
	for i, fr := range rules.Forbidden {
		if fr.Name == "" {
			return fmt.Errorf("forbidden[%d]: name is required", i)
		}
		if fr.Pattern == "" {
			return fmt.Errorf("forbidden[%d] (%s): pattern is required", i, fr.Name)
		}
	}
	return nil
}

// Apply extends the gate with the loaded rules. Pattern compile errors
// surface here rather than at load time so the gate owns regex semantics.
func (r *Rules) Apply(gate *domain.Gate) error {
	for _, fr := range r.Forbidden {
		if err := gate.ExtendForbidden(fr.Name, fr.Pattern); err != nil {
			return err
		}
	}
	gate.ExtendPrefixes(r.AllowedPrefixes...)
	return nil
}
