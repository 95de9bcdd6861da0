package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/devconnector/devconnector/backend/go-services/internal/models"
	"github.com/devconnector/devconnector/backend/go-services/internal/users"
	"github.com/devconnector/devconnector/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) UploadFile(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = b
	m.types[key] = contentType
	return nil
}

func (m *memStore) GetPresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, ok := m.objects[key]; !ok {
		return "", errors.New("no such key")
	}
	return "https://objects.example.com/" + key + "?sig=x", nil
}

type changedUsers struct{ ids []primitive.ObjectID }

func (c *changedUsers) UserChanged(_ context.Context, id primitive.ObjectID) {
	c.ids = append(c.ids, id)
}

func multipartBody(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAvatarUploadAndRedirect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := users.NewMemoryUserRepository()
	u := &models.User{Name: "Eve", Email: "eve@example.com", Avatar: "//gravatar"}
	require.NoError(t, repo.Create(context.Background(), u))
	store := newMemStore()
	changed := &changedUsers{}

	g := gin.New()
	auth := func(c *gin.Context) { c.Set(middleware.UserIDKey, u.ID); c.Next() }
	RegisterAvatarRoutes(g, store, users.NewService(repo), changed, auth)

	// gravatar users have nothing to redirect to
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/"+u.ID.Hex()+"/avatar", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	body, ct := multipartBody(t, "image/png", []byte("\x89PNG fake"))
	req := httptest.NewRequest(http.MethodPost, "/api/users/me/avatar", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "image/png", store.types["avatars/"+u.ID.Hex()])

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, AvatarPath(u.ID), got.Avatar)
	require.Equal(t, []primitive.ObjectID{u.ID}, changed.ids)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, AvatarPath(u.ID), nil))
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://objects.example.com/avatars/"+u.ID.Hex()+"?sig=x", w.Header().Get("Location"))
}

func TestAvatarUpload_Rejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	uid := primitive.NewObjectID()
	store := newMemStore()
	changed := &changedUsers{}
	g := gin.New()
	auth := func(c *gin.Context) { c.Set(middleware.UserIDKey, uid); c.Next() }
	RegisterAvatarRoutes(g, store, users.NewService(users.NewMemoryUserRepository()), changed, auth)

	cases := []struct {
		name string
		ct   string
		data []byte
	}{
		{"not an image", "text/plain", []byte("hello")},
		{"too large", "image/jpeg", bytes.Repeat([]byte("x"), maxAvatarBytes+1)},
	}
	for _, tc := range cases {
		body, ct := multipartBody(t, tc.ct, tc.data)
		req := httptest.NewRequest(http.MethodPost, "/api/users/me/avatar", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		g.ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code, tc.name)
	}
	require.Empty(t, store.objects)
	require.Empty(t, changed.ids)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/garbage/avatar", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
