package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "middleware-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "classroom-test",
	})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body
}

func TestJWTAuth(t *testing.T) {
	jwtService := newJWT()
	m := NewAuthMiddleware(jwtService)
	pair, err := jwtService.GenerateTokenPair(&models.User{ID: 4, Username: "ada", RoleType: models.RoleTeacher})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", m.JWTAuth(), func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, "%d:%s:%s", actor.UserID, actor.Role, c.GetString(ContextUsername))
	})

	tests := []struct {
		name   string
		header string
		query  string
		status int
		code   dto.ErrorCode
	}{
		{name: "bearer header", header: "Bearer " + pair.AccessToken, status: http.StatusOK},
		{name: "raw token", header: pair.AccessToken, status: http.StatusOK},
		{name: "query token", query: "?token=" + pair.AccessToken, status: http.StatusOK},
		{name: "missing", status: http.StatusUnauthorized, code: dto.ErrorCodeUnauthorized},
		{name: "bad format", header: "Basic abc", status: http.StatusUnauthorized, code: dto.ErrorCodeUnauthorized},
		{name: "bad signature", header: "Bearer " + pair.AccessToken + "x", status: http.StatusUnauthorized, code: dto.ErrorCodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "4:TEACHER:ada", w.Body.String())
				return
			}
			assert.Equal(t, tt.code, decodeError(t, w).Error.Code)
		})
	}
}

func TestRoleRequired(t *testing.T) {
	jwtService := newJWT()
	m := NewAuthMiddleware(jwtService)

	router := gin.New()
	router.POST("/classes", m.JWTAuth(), m.RoleRequired(models.RoleTeacher, models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	for role, status := range map[models.RoleType]int{
		models.RoleTeacher: http.StatusCreated,
		models.RoleAdmin:   http.StatusCreated,
		models.RoleStudent: http.StatusForbidden,
	} {
		pair, err := jwtService.GenerateTokenPair(&models.User{ID: 1, Username: "u", RoleType: role})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/classes", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, status, w.Code, string(role))
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		code    dto.ErrorCode
		message string
	}{
		{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "invalid credentials"},
		{fmt.Errorf("%w: signature is invalid", apperrors.ErrTokenInvalid), http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "invalid token"},
		{apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled, "account is disabled"},
		{fmt.Errorf("load: %w", apperrors.ErrFormNotFound), http.StatusNotFound, dto.ErrorCodeResourceNotFound, "form not found"},
		{apperrors.ErrAlreadyResponded, http.StatusConflict, dto.ErrorCodeConflict, "form only accepts one response per user"},
		{apperrors.ErrAttemptNotStarted, http.StatusConflict, dto.ErrorCodeConflict, "timed form was not started"},
		{apperrors.ErrUsernameExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "username already exists"},
		{apperrors.NewForbiddenError("only the class teacher can do this"), http.StatusForbidden, dto.ErrorCodeForbidden, "only the class teacher can do this"},
		{apperrors.ErrDeadlinePassed, http.StatusForbidden, dto.ErrorCodeForbidden, "deadline has passed"},
		{apperrors.NewCustomError(apperrors.ErrMissingAnswer, "question q1 is required"), http.StatusBadRequest, dto.ErrorCodeValidationFailed, "question q1 is required"},
		{apperrors.ErrInvalidClassCode, http.StatusBadRequest, dto.ErrorCodeBadRequest, "invalid class code"},
		{errors.New("connection refused"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error"},
	}

	for _, tt := range tests {
		status, detail := ErrorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, detail.Code, tt.err.Error())
		assert.Equal(t, tt.message, detail.Message)
	}

	_, detail := ErrorStatus(apperrors.NewValidationError("invalid form", map[string]interface{}{"title": "required"}))
	assert.Equal(t, map[string]interface{}{"title": "required"}, detail.Details)
}

func TestHandleAPIError(t *testing.T) {
	router := gin.New()
	router.GET("/x", func(c *gin.Context) {
		HandleAPIError(c, apperrors.ErrClassArchived)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeError(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "class is archived", body.Error.Message)
}

func TestBindJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title" binding:"required"`
	}
	router := gin.New()
	router.POST("/x", func(c *gin.Context) {
		var p payload
		if !BindJSON(c, &p) {
			return
		}
		c.String(http.StatusOK, p.Title)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"title":"Essay"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Essay", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrorCodeValidationFailed, decodeError(t, w).Error.Code)
}

func TestCORSAndRequestLogger(t *testing.T) {
	var logs strings.Builder
	router := gin.New()
	router.Use(RequestLogger(zerolog.New(&logs)), CORS([]string{"https://app.school.edu"}))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.school.edu")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.school.edu", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set(RequestIDHeader, "req-1")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
	assert.Contains(t, logs.String(), `"requestID":"req-1"`)
	assert.Contains(t, logs.String(), `"status":200`)
}
