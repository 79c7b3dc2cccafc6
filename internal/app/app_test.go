package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neogan74/catalog/internal/account"
	"github.com/neogan74/catalog/internal/auth"
	"github.com/neogan74/catalog/internal/config"
	"github.com/neogan74/catalog/internal/logger"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Log:    config.LogConfig{Level: "error", Format: "text"},
		Auth: config.AuthConfig{
			JWTSecret:   "test-secret",
			JWTExpiry:   time.Hour,
			Issuer:      "catalog-test",
			PublicPaths: []string{"/health", "/metrics", "/api/auth/login"},
			Bootstrap: config.BootstrapConfig{
				Email:    "admin@example.com",
				Password: "admin-password",
				Name:     "Admin",
			},
		},
		Storage: config.StorageConfig{Type: "memory"},
		Audit: config.AuditConfig{
			Enabled:         true,
			BufferSize:      64,
			DropPolicy:      "drop",
			SubmitTimeout:   100 * time.Millisecond,
			WriteTimeout:    time.Second,
			AgentMaxLength:  255,
			EntityParam:     "id",
			MaxPageSize:     100,
			DefaultPageSize: 20,
		},
	}
}

func buildTestApp(t *testing.T) (*Builder, *App) {
	t.Helper()

	b := NewBuilder(testConfig(), "test").WithLogger(logger.NewNop())
	a, err := b.Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return b, a
}

func call(t *testing.T, a *App, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.Handler().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func login(t *testing.T, a *App, email, password string) string {
	t.Helper()

	status, env := call(t, a, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func createViewer(t *testing.T, b *Builder) {
	t.Helper()

	hash, err := auth.HashPassword("viewer-password")
	require.NoError(t, err)
	_, err = b.backend.Accounts.Create(context.Background(), account.Account{
		Email:        "viewer@example.com",
		Role:         account.RoleViewer,
		Name:         "Viewer",
		PasswordHash: hash,
	})
	require.NoError(t, err)
}

func TestHealthIsPublic(t *testing.T) {
	_, a := buildTestApp(t)

	resp, err := a.Handler().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRouteWithoutCredential(t *testing.T) {
	_, a := buildTestApp(t)

	status, env := call(t, a, http.MethodGet, "/api/resource/list", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 0, env.Status)
	assert.Equal(t, "{}", string(env.Data))
}

func TestLoginRejectsBadPassword(t *testing.T) {
	_, a := buildTestApp(t)

	status, env := call(t, a, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", env.Message)
}

func TestCreateIsAudited(t *testing.T) {
	_, a := buildTestApp(t)
	token := login(t, a, "admin@example.com", "admin-password")

	status, env := call(t, a, http.MethodPost, "/api/resource/add", token, map[string]string{
		"name":        "Handbook",
		"description": "Onboarding material",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ID)

	type record struct {
		ActorID          string  `json:"actorId"`
		AffectedEntityID *string `json:"affectedEntityId"`
		Action           string  `json:"action"`
		Detail           struct {
			Method string          `json:"method"`
			Path   string          `json:"path"`
			Body   json.RawMessage `json:"body"`
		} `json:"detail"`
	}
	var page struct {
		Records []record `json:"records"`
		Total   int      `json:"total"`
	}

	require.Eventually(t, func() bool {
		status, env := call(t, a, http.MethodGet, "/api/activity/logs?entityId="+created.ID, token, nil)
		if status != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(env.Data, &page); err != nil {
			return false
		}
		return page.Total == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec := page.Records[0]
	assert.Equal(t, "CREATE", rec.Action)
	require.NotNil(t, rec.AffectedEntityID)
	assert.Equal(t, created.ID, *rec.AffectedEntityID)
	assert.NotEmpty(t, rec.ActorID)
	assert.Equal(t, http.MethodPost, rec.Detail.Method)
	assert.Equal(t, "/api/resource/add", rec.Detail.Path)
	assert.JSONEq(t, `{"name":"Handbook","description":"Onboarding material"}`, string(rec.Detail.Body))
}

func TestViewerCannotCreate(t *testing.T) {
	b, a := buildTestApp(t)
	createViewer(t, b)
	token := login(t, a, "viewer@example.com", "viewer-password")

	status, env := call(t, a, http.MethodPost, "/api/resource/add", token, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotAcceptable, status)
	assert.Equal(t, "You do not have permission to perform this action", env.Message)

	status, _ = call(t, a, http.MethodGet, "/api/resource/list", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, a, http.MethodGet, "/api/activity/logs", token, nil)
	assert.Equal(t, http.StatusNotAcceptable, status)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	b, _ := buildTestApp(t)

	require.NoError(t, b.initAccounts(context.Background()))
	acc, err := b.backend.Accounts.FindByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, acc.Role)
}

func TestCloseIsRepeatable(t *testing.T) {
	_, a := buildTestApp(t)
	a.Close()
	a.Close()
}
