package main

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/devconnector/devconnector/backend/go-services/internal/profile/service"
	"github.com/devconnector/devconnector/backend/go-services/internal/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	userSvc := users.NewService(users.NewMemoryUserRepository()).WithBcryptCost(bcrypt.MinCost)
	profileSvc := service.NewMemoryService(userSvc)

	created, err := run(ctx, gofakeit.New(42), userSvc, profileSvc, 5, "password123")
	require.NoError(t, err)
	require.Equal(t, 5, created)

	list, err := profileSvc.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 5)
	for _, p := range list {
		require.NotNil(t, p.User)
		require.NotEmpty(t, p.Skills)
		require.NotEmpty(t, p.Experience)
		require.Len(t, p.Education, 1)
		require.Contains(t, p.Website, "https://")
	}
}
