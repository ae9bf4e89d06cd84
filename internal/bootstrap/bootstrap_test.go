package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/classroom/internal/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Mode = "test"
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.Database.Driver = "memory"
	cfg.JWT.Secret = "bootstrap-test-secret"
	cfg.JWT.AccessTokenExpiration = "1h"
	cfg.JWT.RefreshTokenExpiration = "24h"
	cfg.JWT.Issuer = "classroom-test"
	cfg.Storage.Driver = "local"
	cfg.Storage.LocalPath = t.TempDir()
	cfg.Storage.PublicURL = "/uploads"
	cfg.Storage.MaxUploadMB = 1
	cfg.Grading.DefaultRelease = "IMMEDIATELY"
	return cfg
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestBuildDependencies_MemoryDriver(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := memoryConfig(t)
	ctx := context.Background()

	pool, err := SetupDatabase(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, pool)

	deps, err := BuildDependencies(ctx, cfg, pool, zerolog.Nop())
	require.NoError(t, err)
	defer deps.Close()
	assert.Nil(t, deps.Relay)

	router := SetupRouter(cfg, deps, zerolog.Nop())

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":  "alice",
		"email":     "alice@school.edu",
		"password":  "secret123",
		"firstName": "Alice",
		"lastName":  "Liddell",
		"roleType":  "STUDENT",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var tokens struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	require.NotEmpty(t, tokens.AccessToken)

	w, env = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "alice", me.Username)

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/admin/users", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/classes", tokens.AccessToken, map[string]string{"name": "Physics"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNewMailer_Disabled(t *testing.T) {
	cfg := memoryConfig(t)
	mailer, err := NewMailer(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, mailer)

	cfg.Email.Enabled = true
	cfg.Email.Driver = "sendgrid"
	_, err = NewMailer(cfg, zerolog.Nop())
	assert.Error(t, err)
}
