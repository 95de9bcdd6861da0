package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/devconnector/devconnector/backend/go-services/internal/config"
	"github.com/devconnector/devconnector/backend/go-services/internal/sessions"
	"github.com/devconnector/devconnector/backend/go-services/internal/tokens"
	"github.com/devconnector/devconnector/backend/go-services/internal/users"
	"github.com/devconnector/devconnector/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fake sessions repo
type fakeSessionsRepo struct {
	store map[string]*sessions.Session
}

func (f *fakeSessionsRepo) Create(ctx context.Context, s *sessions.Session) error {
	if f.store == nil {
		f.store = map[string]*sessions.Session{}
	}
	f.store[s.RefreshToken] = s
	return nil
}

func (f *fakeSessionsRepo) GetByRefresh(ctx context.Context, refresh string) (*sessions.Session, error) {
	s, ok := f.store[refresh]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (f *fakeSessionsRepo) DeleteByRefresh(ctx context.Context, refresh string) error {
	delete(f.store, refresh)
	return nil
}

func (f *fakeSessionsRepo) DeleteByUser(ctx context.Context, userID string) error {
	for k, s := range f.store {
		if s.UserID == userID {
			delete(f.store, k)
		}
	}
	return nil
}

type authFixture struct {
	g        *gin.Engine
	cfg      *config.Config
	sessions *fakeSessionsRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.JWT.Secret = "auth-handler-secret-xxxxxxxxxxxxxxxx"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = time.Hour

	sr := &fakeSessionsRepo{}
	uSvc := users.NewService(users.NewMemoryUserRepository()).WithBcryptCost(bcrypt.MinCost)
	h := NewAuthHandler(cfg, uSvc, sessions.NewService(sr))
	g := gin.New()
	h.Register(g, middleware.AuthMiddleware(tokens.NewVerifier(cfg.JWT.Secret)))
	return &authFixture{g: g, cfg: cfg, sessions: sr}
}

func (f *authFixture) post(path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.g.ServeHTTP(w, req)
	return w
}

type tokenResp struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

func TestSignUpLoginAndMe(t *testing.T) {
	f := newAuthFixture(t)

	w := f.post("/api/users", `{"name":"Alice","email":"alice@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reg tokenResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	assert.NotEmpty(t, reg.Token)
	assert.Len(t, reg.RefreshToken, 64)
	assert.Equal(t, 900, reg.ExpiresIn)

	w = f.post("/api/users", `{"name":"Alice","email":"alice@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":[{"msg":"User already exists"}]}`, w.Body.String())

	w = f.post("/api/auth", `{"email":"alice@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login tokenResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	req := httptest.NewRequest(http.MethodGet, "/api/auth", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	w = httptest.NewRecorder()
	f.g.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "Alice", me["name"])
	assert.NotContains(t, me, "password")
	assert.True(t, strings.HasPrefix(me["avatar"].(string), "//www.gravatar.com/avatar/"))
}

func TestSignUp_ValidationErrors(t *testing.T) {
	f := newAuthFixture(t)
	w := f.post("/api/users", `{"name":"","email":"nope","password":"1"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Errors []struct {
			Msg   string `json:"msg"`
			Param string `json:"param"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Errors, 3)
	assert.Equal(t, "email", body.Errors[0].Param)
	assert.Equal(t, "name", body.Errors[1].Param)
	assert.Equal(t, "password", body.Errors[2].Param)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.post("/api/users", `{"name":"Bob","email":"bob@example.com","password":"secret1"}`, "")

	for _, body := range []string{
		`{"email":"bob@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"secret1"}`,
		`{"email":"","password":""}`,
	} {
		w := f.post("/api/auth", body, "")
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), "Invalid Credentials", body)
	}
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t)
	w := f.post("/api/users", `{"name":"Cy","email":"cy@example.com","password":"secret1"}`, "")
	var reg tokenResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	w = f.post("/api/auth/refresh", `{"refreshToken":"`+reg.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var out tokenResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	claims, err := tokens.ParseAccessToken(f.cfg.JWT.Secret, out.Token)
	require.NoError(t, err)
	assert.Equal(t, "Cy", claims["name"])

	w = f.post("/api/auth/refresh", `{"refreshToken":"unknown"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.post("/api/auth/refresh", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout_BlacklistsAccessToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	sessions.SetBlacklistClient(client)
	defer sessions.SetBlacklistClient(nil)

	f := newAuthFixture(t)
	w := f.post("/api/users", `{"name":"Di","email":"di@example.com","password":"secret1"}`, "")
	var reg tokenResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	w = f.post("/api/auth/logout", `{"refreshToken":"`+reg.RefreshToken+`"}`, reg.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.sessions.store)

	blacklisted, err := sessions.IsAccessTokenBlacklisted(context.Background(), reg.Token)
	require.NoError(t, err)
	assert.True(t, blacklisted)

	req := httptest.NewRequest(http.MethodGet, "/api/auth", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	w = httptest.NewRecorder()
	f.g.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token has been revoked")
}
