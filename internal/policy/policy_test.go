package policy

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/neogan74/catalog/internal/account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_DefaultTable(t *testing.T) {
	engine := NewEngine(DefaultRules())

	tests := []struct {
		name    string
		role    string
		method  string
		path    string
		allowed bool
	}{
		{"content manager adds resource", account.RoleContentManager, "POST", "/api/resource/add", true},
		{"content manager cannot purge logs", account.RoleContentManager, "DELETE", "/api/activity/logs", false},
		{"content manager cannot read logs", account.RoleContentManager, "GET", "/api/activity/logs", false},
		{"viewer lists resources", account.RoleViewer, "GET", "/api/resource/list", true},
		{"viewer reads one resource", account.RoleViewer, "GET", "/api/resource/abc", true},
		{"viewer cannot add", account.RoleViewer, "POST", "/api/resource/add", false},
		{"admin reads logs with query", account.RoleAdmin, "GET", "/api/activity/logs?page=2&userId=u-1", true},
		{"admin item level delete by prefix", account.RoleAdmin, "DELETE", "/api/resource/delete/42", true},
		{"method must match", account.RoleAdmin, "PATCH", "/api/resource/update/1", false},
		{"unknown role", "GUEST", "GET", "/api/resource/list", false},
		{"empty role", "", "GET", "/api/resource/list", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, engine.Allowed(tt.role, tt.method, tt.path))
		})
	}
}

func TestEngine_SubstringMatchIsPermissive(t *testing.T) {
	engine := NewEngine(map[string][]Rule{
		"R": {{Method: "GET", Path: "/api/resource/"}},
	})

	assert.True(t, engine.Allowed("R", "GET", "/api/resource/"))
	assert.True(t, engine.Allowed("R", "GET", "/api/resource/7"))
	assert.True(t, engine.Allowed("R", "GET", "/other/api/resource/x"))
	assert.False(t, engine.Allowed("R", "GET", "/api/resource"))
	// Only the path part takes part in matching.
	assert.False(t, engine.Allowed("R", "GET", "/api/other?next=/api/resource/"))
}

func TestEngine_MethodsAreNormalizedAtBuild(t *testing.T) {
	engine := NewEngine(map[string][]Rule{"R": {{Method: "post", Path: "/x"}}})
	assert.True(t, engine.Allowed("R", "POST", "/x"))
}

func TestEngine_IsolatedFromCallerMutation(t *testing.T) {
	rules := map[string][]Rule{"R": {{Method: "GET", Path: "/x"}}}
	engine := NewEngine(rules)

	rules["R"][0].Path = "/y"
	rules["S"] = []Rule{{Method: "GET", Path: "/x"}}

	assert.True(t, engine.Allowed("R", "GET", "/x"))
	assert.False(t, engine.Allowed("S", "GET", "/x"))

	copied := engine.Rules("R")
	copied[0].Path = "/z"
	assert.Equal(t, "/x", engine.Rules("R")[0].Path)
}

func TestEngine_DecisionIsStableUnderConcurrency(t *testing.T) {
	engine := NewEngine(DefaultRules())
	inputs := []struct{ role, method, path string }{
		{account.RoleAdmin, "GET", "/api/activity/logs"},
		{account.RoleViewer, "DELETE", "/api/resource/delete/1"},
		{account.RoleContentManager, "PUT", "/api/resource/update/1?x=1"},
	}
	want := make([]bool, len(inputs))
	for i, in := range inputs {
		want[i] = engine.Allowed(in.role, in.method, in.path)
	}

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				for i, in := range inputs {
					if engine.Allowed(in.role, in.method, in.path) != want[i] {
						t.Errorf("decision changed for %+v", in)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestEngine_Roles(t *testing.T) {
	engine := NewEngine(DefaultRules())
	assert.Equal(t, []string{account.RoleAdmin, account.RoleContentManager, account.RoleViewer}, engine.Roles())
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/a/b", NormalizePath("/a/b?c=d"))
	assert.Equal(t, "/a/b", NormalizePath("/a/b"))
	assert.Equal(t, "", NormalizePath("?only=query"))
}

func TestParse(t *testing.T) {
	rules, err := Parse([]byte(`{"EDITOR":[{"method":"put","path":"/api/resource/update"}]}`))
	require.NoError(t, err)
	assert.True(t, NewEngine(rules).Allowed("EDITOR", "PUT", "/api/resource/update/9"))

	for name, doc := range map[string]string{
		"invalid document": `{`,
		"no roles":         `{}`,
		"bad method":       `{"R":[{"method":"FETCH","path":"/x"}]}`,
		"empty path":       `{"R":[{"method":"GET","path":""}]}`,
		"blank role":       `{" ":[{"method":"GET","path":"/x"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"VIEWER":[{"method":"GET","path":"/api/resource"}]}`), 0o600))

	rules, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, rules["VIEWER"], 1)

	yamlPath := filepath.Join(t.TempDir(), "policy.yaml")
	doc := "CONTENT_MANAGER:\n  - method: post\n    path: /api/resource/add\n"
	require.NoError(t, os.WriteFile(yamlPath, []byte(doc), 0o600))

	rules, err = LoadFile(yamlPath)
	require.NoError(t, err)
	assert.True(t, NewEngine(rules).Allowed("CONTENT_MANAGER", "POST", "/api/resource/add"))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
