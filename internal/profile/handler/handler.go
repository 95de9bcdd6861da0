package handler

import (
	"errors"
	"net/http"

	"github.com/devconnector/devconnector/backend/go-services/internal/profile/service"
	"github.com/devconnector/devconnector/backend/go-services/pkg/logger"
	"github.com/devconnector/devconnector/backend/go-services/pkg/metrics"
	"github.com/devconnector/devconnector/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
)

const (
	msgNoProfile       = "There is no profile for this user"
	msgProfileNotFound = "Profile not found"
	msgUserNotFound    = "User not found"
)

// RegisterProfileRoutes mounts the profile API under /api/profile. auth
// guards every route that acts on the caller's own profile.
func RegisterProfileRoutes(r gin.IRouter, svc service.Service, auth gin.HandlerFunc) {
	g := r.Group("/api/profile")

	g.GET("/me", auth, func(c *gin.Context) {
		uid, _ := middleware.UserID(c)
		v, err := svc.GetOwnProfile(c.Request.Context(), uid)
		if err != nil {
			fail(c, "get_own", err, msgNoProfile)
			return
		}
		ok(c, "get_own", v)
	})

	g.POST("", auth, func(c *gin.Context) {
		var in service.ProfileInput
		if !bind(c, "upsert", &in) {
			return
		}
		uid, _ := middleware.UserID(c)
		v, err := svc.CreateOrUpdateProfile(c.Request.Context(), uid, in)
		if err != nil {
			fail(c, "upsert", err, msgUserNotFound)
			return
		}
		ok(c, "upsert", v)
	})

	g.GET("", func(c *gin.Context) {
		list, err := svc.ListProfiles(c.Request.Context())
		if err != nil {
			fail(c, "list", err, msgProfileNotFound)
			return
		}
		ok(c, "list", list)
	})

	g.GET("/user/:user_id", func(c *gin.Context) {
		v, err := svc.GetProfileByUser(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			fail(c, "get_by_user", err, msgProfileNotFound)
			return
		}
		ok(c, "get_by_user", v)
	})

	g.DELETE("", auth, func(c *gin.Context) {
		uid, _ := middleware.UserID(c)
		if err := svc.DeleteOwnProfile(c.Request.Context(), uid); err != nil {
			fail(c, "delete", err, msgNoProfile)
			return
		}
		if err := middleware.RevokeToken(c); err != nil {
			logger.Warnf("revoke token of deleted user %s: %v", uid.Hex(), err)
		}
		ok(c, "delete", gin.H{"msg": "User deleted"})
	})

	g.PUT("/experience", auth, func(c *gin.Context) {
		var in service.ExperienceInput
		if !bind(c, "add_experience", &in) {
			return
		}
		uid, _ := middleware.UserID(c)
		v, err := svc.AddExperience(c.Request.Context(), uid, in)
		if err != nil {
			fail(c, "add_experience", err, msgNoProfile)
			return
		}
		ok(c, "add_experience", v)
	})

	g.DELETE("/experience/:exp_id", auth, func(c *gin.Context) {
		uid, _ := middleware.UserID(c)
		v, err := svc.RemoveExperience(c.Request.Context(), uid, c.Param("exp_id"))
		if err != nil {
			fail(c, "remove_experience", err, msgNoProfile)
			return
		}
		ok(c, "remove_experience", v)
	})

	g.PUT("/education", auth, func(c *gin.Context) {
		var in service.EducationInput
		if !bind(c, "add_education", &in) {
			return
		}
		uid, _ := middleware.UserID(c)
		v, err := svc.AddEducation(c.Request.Context(), uid, in)
		if err != nil {
			fail(c, "add_education", err, msgNoProfile)
			return
		}
		ok(c, "add_education", v)
	})

	g.DELETE("/education/:edu_id", auth, func(c *gin.Context) {
		uid, _ := middleware.UserID(c)
		v, err := svc.RemoveEducation(c.Request.Context(), uid, c.Param("edu_id"))
		if err != nil {
			fail(c, "remove_education", err, msgNoProfile)
			return
		}
		ok(c, "remove_education", v)
	})
}

func bind(c *gin.Context, op string, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		metrics.ProfileOperations.WithLabelValues(op, "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"errors": []service.FieldError{{Msg: "Request body must be valid JSON", Location: "body"}}})
		return false
	}
	return true
}

func ok(c *gin.Context, op string, body interface{}) {
	metrics.ProfileOperations.WithLabelValues(op, "ok").Inc()
	c.JSON(http.StatusOK, body)
}

// fail maps service errors to responses. Missing profiles are reported as
// 400 with notFoundMsg, which existing clients depend on.
func fail(c *gin.Context, op string, err error, notFoundMsg string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		metrics.ProfileOperations.WithLabelValues(op, "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"errors": ve.Errors})
	case errors.Is(err, service.ErrNotFound):
		metrics.ProfileOperations.WithLabelValues(op, "not_found").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"msg": notFoundMsg})
	default:
		metrics.ProfileOperations.WithLabelValues(op, "error").Inc()
		logger.WithFields(logger.Fields{"op": op, "rid": c.GetString(middleware.RequestIDKey)}).Errorf("profile %s failed: %v", op, err)
		c.String(http.StatusInternalServerError, "Server Error")
	}
}
