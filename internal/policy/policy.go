// Package policy decides whether a role may call a (method, path) pair.
//
// The rule table is fixed when an Engine is built and never mutated
// afterwards, so one Engine is shared by all requests without locking.
package policy

import (
	"net/http"
	"sort"
	"strings"
)

// Rule grants a role access to requests with Method whose path equals or
// contains Path.
type Rule struct {
	Method string `json:"method" yaml:"method"`
	Path   string `json:"path" yaml:"path"`
}

// Engine evaluates requests against an immutable role -> rules table.
type Engine struct {
	rules map[string][]Rule
}

// NewEngine copies rules into a new Engine. Methods are upper-cased.
func NewEngine(rules map[string][]Rule) *Engine {
	table := make(map[string][]Rule, len(rules))
	for role, list := range rules {
		copied := make([]Rule, 0, len(list))
		for _, r := range list {
			copied = append(copied, Rule{Method: strings.ToUpper(r.Method), Path: r.Path})
		}
		table[role] = copied
	}
	return &Engine{rules: table}
}

// Allowed reports whether role may perform method on rawPath. The query
// string is stripped first. A rule matches when the methods are equal and
// the path either equals the rule path or contains it anywhere as a
// substring, so "/api/resource" also authorizes "/api/resource/42" and
// "/v2/api/resource".
func (e *Engine) Allowed(role, method, rawPath string) bool {
	rules, ok := e.rules[role]
	if !ok {
		return false
	}

	path := NormalizePath(rawPath)
	for _, r := range rules {
		if r.Method != method {
			continue
		}
		if r.Path == path || strings.Contains(path, r.Path) {
			return true
		}
	}
	return false
}

// Roles lists the roles that have at least one table entry.
func (e *Engine) Roles() []string {
	roles := make([]string, 0, len(e.rules))
	for role := range e.rules {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// Rules returns a copy of the rules registered for role.
func (e *Engine) Rules(role string) []Rule {
	return append([]Rule(nil), e.rules[role]...)
}

// NormalizePath drops the query string.
func NormalizePath(rawPath string) string {
	if i := strings.IndexByte(rawPath, '?'); i >= 0 {
		return rawPath[:i]
	}
	return rawPath
}

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}
