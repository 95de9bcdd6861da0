package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/devconnector/devconnector/backend/go-services/internal/config"
	"github.com/devconnector/devconnector/backend/go-services/internal/models"
	"github.com/devconnector/devconnector/backend/go-services/internal/profile"
	"github.com/devconnector/devconnector/backend/go-services/internal/profile/service"
	"github.com/devconnector/devconnector/backend/go-services/internal/sessions"
	"github.com/devconnector/devconnector/backend/go-services/internal/tokens"
	"github.com/devconnector/devconnector/backend/go-services/internal/users"
	"github.com/devconnector/devconnector/backend/go-services/pkg/metrics"
	"github.com/devconnector/devconnector/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testUserHeader = "X-Test-User"

// fakeAuth trusts a test header instead of a token.
func fakeAuth(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.GetHeader(testUserHeader))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "No token, authorization denied"})
		return
	}
	c.Set(middleware.UserIDKey, id)
	c.Next()
}

func setup(t *testing.T) (*gin.Engine, *users.MemoryUserRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	userRepo := users.NewMemoryUserRepository()
	g := gin.New()
	RegisterProfileRoutes(g, service.NewMemoryService(userRepo), fakeAuth)
	return g, userRepo
}

func do(g *gin.Engine, method, path, body string, uid primitive.ObjectID) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if !uid.IsZero() {
		req.Header.Set(testUserHeader, uid.Hex())
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestProfileRoutes_Lifecycle(t *testing.T) {
	g, userRepo := setup(t)
	u := &models.User{Name: "Jane", Email: "jane@example.com", Avatar: "//a"}
	require.NoError(t, userRepo.Create(context.Background(), u))

	// no profile yet
	w := do(g, http.MethodGet, "/api/profile/me", "", u.ID)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"msg":"There is no profile for this user"}`, w.Body.String())

	// create
	w = do(g, http.MethodPost, "/api/profile", `{"status":"Developer","skills":"go, sql","website":"example.com","youtube":"youtube.com/c/jane"}`, u.ID)
	require.Equal(t, http.StatusOK, w.Code)
	var v profile.View
	decode(t, w, &v)
	require.Equal(t, []string{"go", "sql"}, v.Skills)
	require.Equal(t, "https://example.com", v.Website)
	require.Equal(t, "https://youtube.com/c/jane", v.Social.YouTube)
	require.Equal(t, "Jane", v.User.Name)

	// public lookups
	w = do(g, http.MethodGet, "/api/profile/user/"+u.ID.Hex(), "", primitive.NilObjectID)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(g, http.MethodGet, "/api/profile", "", primitive.NilObjectID)
	require.Equal(t, http.StatusOK, w.Code)
	var list []profile.View
	decode(t, w, &list)
	require.Len(t, list, 1)

	// experience
	w = do(g, http.MethodPut, "/api/profile/experience", `{"title":"Dev","company":"Acme","from":"2019-01-01","to":"2020-01-01"}`, u.ID)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &v)
	require.Len(t, v.Experience, 1)
	expID := v.Experience[0].ID.Hex()

	w = do(g, http.MethodDelete, "/api/profile/experience/"+expID, "", u.ID)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &v)
	require.Empty(t, v.Experience)

	// education
	w = do(g, http.MethodPut, "/api/profile/education", `{"school":"MIT","degree":"BSc","fieldofstudy":"CS","from":"2010-09-01"}`, u.ID)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &v)
	require.Len(t, v.Education, 1)

	w = do(g, http.MethodDelete, "/api/profile/education/"+v.Education[0].ID.Hex(), "", u.ID)
	require.Equal(t, http.StatusOK, w.Code)

	// delete account
	w = do(g, http.MethodDelete, "/api/profile", "", u.ID)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"msg":"User deleted"}`, w.Body.String())
	_, err := userRepo.GetByID(context.Background(), u.ID)
	require.ErrorIs(t, err, users.ErrNotFound)
}

func TestProfileRoutes_ValidationErrors(t *testing.T) {
	g, _ := setup(t)
	uid := primitive.NewObjectID()

	before := testutil.ToFloat64(metrics.ProfileOperations.WithLabelValues("upsert", "invalid"))
	w := do(g, http.MethodPost, "/api/profile", `{}`, uid)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Errors []service.FieldError `json:"errors"`
	}
	decode(t, w, &body)
	require.Len(t, body.Errors, 2)
	require.Equal(t, service.FieldError{Msg: "Status is required", Param: "status", Location: "body"}, body.Errors[0])
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ProfileOperations.WithLabelValues("upsert", "invalid")))

	w = do(g, http.MethodPost, "/api/profile", `{"status":`, uid)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "errors")
}

func TestProfileRoutes_NotFoundIsBadRequest(t *testing.T) {
	g, _ := setup(t)
	for _, id := range []string{"not-an-id", primitive.NewObjectID().Hex()} {
		w := do(g, http.MethodGet, "/api/profile/user/"+id, "", primitive.NilObjectID)
		require.Equal(t, http.StatusBadRequest, w.Code, id)
		require.JSONEq(t, `{"msg":"Profile not found"}`, w.Body.String(), id)
	}

	w := do(g, http.MethodPut, "/api/profile/experience", `{"title":"Dev","company":"A","from":"2020-01-01"}`, primitive.NewObjectID())
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"msg":"There is no profile for this user"}`, w.Body.String())
}

func TestProfileRoutes_RequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	cfg := &config.Config{}
	cfg.JWT.Secret = "handler-test-secret-xxxxxxxxxxxxxxx"
	RegisterProfileRoutes(g, service.NewMemoryService(users.NewMemoryUserRepository()), middleware.AuthMiddleware(tokens.NewVerifier(cfg.JWT.Secret)))

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/profile/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	raw, err := tokens.GenerateAccessToken(cfg, &models.User{ID: primitive.NewObjectID()}, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/profile/me", nil)
	req.Header.Set("x-auth-token", raw)
	w = httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code, "authenticated but no profile")

	// public routes need no token
	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]", w.Body.String())
}

func TestProfileRoutes_DeleteRevokesTokenAndBlocksOrphans(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	sessions.SetBlacklistClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer sessions.SetBlacklistClient(nil)

	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.JWT.Secret = "delete-test-secret-xxxxxxxxxxxxxxxx"
	userRepo := users.NewMemoryUserRepository()
	u := &models.User{Name: "Del", Email: "del@example.com"}
	require.NoError(t, userRepo.Create(context.Background(), u))
	svc := service.NewMemoryService(userRepo)
	g := gin.New()
	RegisterProfileRoutes(g, svc, middleware.AuthMiddleware(tokens.NewVerifier(cfg.JWT.Secret)))

	raw, err := tokens.GenerateAccessToken(cfg, u, time.Minute)
	require.NoError(t, err)
	call := func(method, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/profile", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+raw)
		w := httptest.NewRecorder()
		g.ServeHTTP(w, req)
		return w
	}
	profileBody := `{"status":"Developer","skills":"go"}`

	require.Equal(t, http.StatusOK, call(http.MethodPost, profileBody).Code)
	require.Equal(t, http.StatusOK, call(http.MethodDelete, "").Code)

	w := call(http.MethodPost, profileBody)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "revoked")

	// a token that escaped the blacklist still cannot recreate the profile
	sessions.SetBlacklistClient(nil)
	w = call(http.MethodPost, profileBody)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"msg":"User not found"}`, w.Body.String())

	list, err := svc.ListProfiles(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)
}

type mockService struct {
	mock.Mock
	service.Service
}

func (m *mockService) ListProfiles(ctx context.Context) ([]*profile.View, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]*profile.View)
	return list, args.Error(1)
}

func TestProfileRoutes_ServerErrorIsPlainText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &mockService{}
	svc.On("ListProfiles", mock.Anything).Return(nil, errors.New("connection reset"))
	g := gin.New()
	RegisterProfileRoutes(g, svc, fakeAuth)

	before := testutil.ToFloat64(metrics.ProfileOperations.WithLabelValues("list", "error"))
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Server Error", w.Body.String())
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ProfileOperations.WithLabelValues("list", "error")))
	svc.AssertExpectations(t)
}
