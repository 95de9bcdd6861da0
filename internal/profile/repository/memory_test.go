package repository

import (
	"context"
	"testing"
	"time"

	"github.com/devconnector/devconnector/backend/go-services/internal/profile"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func strPtr(s string) *string { return &s }

func TestMemoryRepo_UpsertIsKeyedByUser(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	uid := primitive.NewObjectID()

	first, err := r.Upsert(ctx, uid, profile.Fields{Status: "Developer", Skills: []string{"go"}, Company: strPtr("Acme")})
	require.NoError(t, err)
	require.Equal(t, uid, first.User)
	require.NotNil(t, first.Experience)
	require.False(t, first.Date.IsZero())

	second, err := r.Upsert(ctx, uid, profile.Fields{Status: "Senior Developer", Skills: []string{"go", "sql"}})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Date, second.Date)
	require.Equal(t, "Senior Developer", second.Status)
	require.Equal(t, "Acme", second.Company, "nil optional field keeps stored value")

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMemoryRepo_ReturnsCopies(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	uid := primitive.NewObjectID()
	_, err := r.Upsert(ctx, uid, profile.Fields{Status: "s", Skills: []string{"a"}})
	require.NoError(t, err)

	got, err := r.FindByUser(ctx, uid)
	require.NoError(t, err)
	got.Skills[0] = "mutated"

	again, err := r.FindByUser(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, "a", again.Skills[0])
}

func TestMemoryRepo_ExperiencePrependAndRemove(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	uid := primitive.NewObjectID()
	_, err := r.Upsert(ctx, uid, profile.Fields{Status: "s", Skills: []string{"a"}})
	require.NoError(t, err)

	older := profile.Experience{ID: primitive.NewObjectID(), Title: "Junior", Company: "A", From: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := profile.Experience{ID: primitive.NewObjectID(), Title: "Senior", Company: "B", From: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)}
	_, err = r.PrependExperience(ctx, uid, older)
	require.NoError(t, err)
	p, err := r.PrependExperience(ctx, uid, newer)
	require.NoError(t, err)
	require.Equal(t, []primitive.ObjectID{newer.ID, older.ID}, []primitive.ObjectID{p.Experience[0].ID, p.Experience[1].ID})

	p, err = r.RemoveExperience(ctx, uid, primitive.NewObjectID())
	require.NoError(t, err)
	require.Len(t, p.Experience, 2)

	p, err = r.RemoveExperience(ctx, uid, newer.ID)
	require.NoError(t, err)
	require.Len(t, p.Experience, 1)
	require.Equal(t, older.ID, p.Experience[0].ID)
}

func TestMemoryRepo_EducationWithoutProfile(t *testing.T) {
	r := NewMemoryRepo()
	_, err := r.PrependEducation(context.Background(), primitive.NewObjectID(), profile.Education{ID: primitive.NewObjectID()})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.RemoveEducation(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepo_DeleteAndInsert(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()
	uid := primitive.NewObjectID()

	none, err := r.DeleteByUser(ctx, uid)
	require.NoError(t, err)
	require.Nil(t, none)

	created, err := r.Upsert(ctx, uid, profile.Fields{Status: "s", Skills: []string{"a"}})
	require.NoError(t, err)

	deleted, err := r.DeleteByUser(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, created.ID, deleted.ID)
	_, err = r.FindByUser(ctx, uid)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Insert(ctx, deleted))
	restored, err := r.FindByUser(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, created.ID, restored.ID)
	require.ErrorIs(t, r.Insert(ctx, deleted), ErrExists)
}
