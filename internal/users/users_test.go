package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dishdash-backend/pkg/db"
	"github.com/angelmondragon/dishdash-backend/pkg/db/dbtest"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Email: "ana@example.com", PasswordHash: "h", Name: "Ana", Role: enums.UserRoleCustomer})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)

	found, err := repo.FindByEmail(ctx, "  Ana@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.True(t, found.IsActive)
	assert.Equal(t, enums.UserRoleCustomer, found.Role)

	_, err = repo.Create(ctx, CreateUserDTO{Email: "ana@example.com", PasswordHash: "h", Name: "Ana 2", Role: enums.UserRoleCustomer})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestServiceMeAndAgents(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	rider, err := repo.Create(ctx, CreateUserDTO{Email: "rider@example.com", PasswordHash: "h", Name: "Zed", Role: enums.UserRoleDelivery})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateUserDTO{Email: "rider2@example.com", PasswordHash: "h", Name: "Amy", Role: enums.UserRoleDelivery})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateUserDTO{Email: "eater@example.com", PasswordHash: "h", Name: "Bo", Role: enums.UserRoleCustomer})
	require.NoError(t, err)

	svc, err := NewService(repo)
	require.NoError(t, err)

	me, err := svc.Me(ctx, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, "rider@example.com", me.Email)

	_, err = svc.Me(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	agents, err := svc.ListDeliveryAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "Amy", agents[0].Name)
}
