package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML (or JSON) rule table of the form
//
//	ADMIN:
//	  - method: GET
//	    path: /api/user
func LoadFile(path string) (map[string][]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a rule table.
func Parse(data []byte) (map[string][]Rule, error) {
	var rules map[string][]Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("policy defines no roles")
	}

	for role, list := range rules {
		if strings.TrimSpace(role) == "" {
			return nil, fmt.Errorf("policy contains an empty role name")
		}
		for i, r := range list {
			if !knownMethods[strings.ToUpper(r.Method)] {
				return nil, fmt.Errorf("role %s rule %d: unsupported method %q", role, i, r.Method)
			}
			// An empty path would be contained in every path.
			if r.Path == "" {
				return nil, fmt.Errorf("role %s rule %d: path is required", role, i)
			}
		}
	}
	return rules, nil
}
