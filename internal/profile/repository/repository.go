package repository

import (
	"context"
	"errors"

	"github.com/devconnector/devconnector/backend/go-services/internal/profile"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound = errors.New("profile not found")
	ErrExists   = errors.New("profile already exists")
)

// Repository persists profiles. All list mutations are applied atomically
// to a single document and return the updated profile.
type Repository interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*profile.Profile, error)
	List(ctx context.Context) ([]*profile.Profile, error)
	// Upsert sets f on the user's profile, creating it with defaults when missing.
	Upsert(ctx context.Context, userID primitive.ObjectID, f profile.Fields) (*profile.Profile, error)
	// Insert stores p as-is. Used to restore a profile after a failed delete.
	Insert(ctx context.Context, p *profile.Profile) error
	// DeleteByUser removes and returns the user's profile, or (nil, nil) when there is none.
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) (*profile.Profile, error)

	PrependExperience(ctx context.Context, userID primitive.ObjectID, e profile.Experience) (*profile.Profile, error)
	RemoveExperience(ctx context.Context, userID, entryID primitive.ObjectID) (*profile.Profile, error)
	PrependEducation(ctx context.Context, userID primitive.ObjectID, e profile.Education) (*profile.Profile, error)
	RemoveEducation(ctx context.Context, userID, entryID primitive.ObjectID) (*profile.Profile, error)
}
