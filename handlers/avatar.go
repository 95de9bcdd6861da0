package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devconnector/devconnector/backend/go-services/internal/models"
	"github.com/devconnector/devconnector/backend/go-services/internal/storage"
	"github.com/devconnector/devconnector/backend/go-services/internal/users"
	"github.com/devconnector/devconnector/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxAvatarBytes  = 2 << 20
	avatarURLExpiry = 15 * time.Minute
)

// AvatarStore is the object storage used for uploaded avatars.
type AvatarStore interface {
	UploadFile(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

type avatarUsers interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	SetAvatar(ctx context.Context, id primitive.ObjectID, avatar string) error
}

// ProfileRefresher drops cached profile views that embed a user's avatar.
type ProfileRefresher interface {
	UserChanged(ctx context.Context, userID primitive.ObjectID)
}

// AvatarPath is the public URL stored on a user with an uploaded avatar.
func AvatarPath(userID primitive.ObjectID) string {
	return "/api/users/" + userID.Hex() + "/avatar"
}

// RegisterAvatarRoutes mounts avatar upload and download.
func RegisterAvatarRoutes(r gin.IRouter, store AvatarStore, u avatarUsers, profiles ProfileRefresher, auth gin.HandlerFunc) {
	r.POST("/api/users/me/avatar", auth, func(c *gin.Context) {
		uid, _ := middleware.UserID(c)
		// multipart framing needs some headroom over the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes+64<<10)
		fh, err := c.FormFile("avatar")
		if err != nil {
			badRequest(c, "An image file under 2MB is required in field avatar")
			return
		}
		ct := fh.Header.Get("Content-Type")
		if fh.Size > maxAvatarBytes || !strings.HasPrefix(ct, "image/") {
			badRequest(c, "An image file under 2MB is required in field avatar")
			return
		}
		f, err := fh.Open()
		if err != nil {
			serverError(c, "open avatar", err)
			return
		}
		defer f.Close()

		if err := store.UploadFile(c.Request.Context(), storage.AvatarKey(uid.Hex()), f, fh.Size, ct); err != nil {
			serverError(c, "upload avatar", err)
			return
		}
		avatar := AvatarPath(uid)
		if err := u.SetAvatar(c.Request.Context(), uid, avatar); err != nil {
			serverError(c, "set avatar", err)
			return
		}
		profiles.UserChanged(c.Request.Context(), uid)
		c.JSON(http.StatusOK, gin.H{"avatar": avatar})
	})

	r.GET("/api/users/:id/avatar", func(c *gin.Context) {
		uid, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"msg": "Avatar not found"})
			return
		}
		usr, err := u.GetByID(c.Request.Context(), uid)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"msg": "Avatar not found"})
				return
			}
			serverError(c, "avatar user lookup", err)
			return
		}
		if usr.Avatar != AvatarPath(uid) {
			c.JSON(http.StatusNotFound, gin.H{"msg": "Avatar not found"})
			return
		}
		loc, err := store.GetPresignedURL(c.Request.Context(), storage.AvatarKey(uid.Hex()), avatarURLExpiry)
		if err != nil {
			serverError(c, "presign avatar", err)
			return
		}
		c.Redirect(http.StatusFound, loc)
	})
}
