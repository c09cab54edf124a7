package asset_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxera/fluxera/internal/asset"
	"github.com/fluxera/fluxera/internal/database/dbtest"
)

func TestAssetRepository_Lifecycle(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := asset.NewRepository(pool)
	ctx := context.Background()

	owner := dbtest.CreateUser(t, pool, "owner")
	bob := dbtest.CreateUser(t, pool, "bob")
	acme := dbtest.CreateAccount(t, pool, "acme", owner)

	a := &asset.Asset{AccountID: acme, Name: "MacBook", Category: "laptop"}
	require.NoError(t, repo.Create(ctx, a))
	assert.Equal(t, asset.StatusAvailable, a.Status)

	updated, err := repo.UpdateStatus(ctx, acme, a.ID, asset.StatusUpdate{Status: asset.StatusAssigned, AssignedTo: &bob})
	require.NoError(t, err)
	assert.Equal(t, asset.StatusAssigned, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, bob, *updated.AssignedTo)

	updated, err = repo.UpdateStatus(ctx, acme, a.ID, asset.StatusUpdate{Status: asset.StatusRetired})
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedTo)

	require.NoError(t, repo.Delete(ctx, acme, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, acme, a.ID), asset.ErrAssetNotFound)
}

func TestAssetRepository_ListFiltersByStatus(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := asset.NewRepository(pool)
	ctx := context.Background()

	owner := dbtest.CreateUser(t, pool, "owner")
	acme := dbtest.CreateAccount(t, pool, "acme", owner)
	globex := dbtest.CreateAccount(t, pool, "globex", owner)

	require.NoError(t, repo.Create(ctx, &asset.Asset{AccountID: acme, Name: "Dell", Category: "laptop"}))
	require.NoError(t, repo.Create(ctx, &asset.Asset{AccountID: acme, Name: "Printer", Category: "office", Status: asset.StatusInMaintenance}))
	require.NoError(t, repo.Create(ctx, &asset.Asset{AccountID: globex, Name: "Other", Category: "laptop"}))

	all, err := repo.List(ctx, acme, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	status := asset.StatusInMaintenance
	filtered, err := repo.List(ctx, acme, &status)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Printer", filtered[0].Name)
}

func TestAssetRepository_UpdateOtherAccount(t *testing.T) {
	pool := dbtest.Pool(t)
	repo := asset.NewRepository(pool)
	ctx := context.Background()

	owner := dbtest.CreateUser(t, pool, "owner")
	acme := dbtest.CreateAccount(t, pool, "acme", owner)
	globex := dbtest.CreateAccount(t, pool, "globex", owner)

	a := &asset.Asset{AccountID: acme, Name: "Dell", Category: "laptop"}
	require.NoError(t, repo.Create(ctx, a))

	_, err := repo.UpdateStatus(ctx, globex, a.ID, asset.StatusUpdate{Status: asset.StatusRetired})
	assert.ErrorIs(t, err, asset.ErrAssetNotFound)

	_, err = repo.UpdateStatus(ctx, acme, uuid.New(), asset.StatusUpdate{Status: asset.StatusRetired})
	assert.ErrorIs(t, err, asset.ErrAssetNotFound)
}
