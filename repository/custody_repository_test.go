package repository

import (
	"context"
	"math"
	"testing"

	"raffler/models"
	"raffler/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustodyRepository_Wallets(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewCustodyRepository(testDB.DB)
	ctx := context.Background()

	address := testutil.CreateTestAddress(0x01)

	wallet, err := repo.GetWallet(ctx, address)
	require.NoError(t, err)
	assert.Nil(t, wallet)

	require.NoError(t, repo.SaveWallet(ctx, &models.Wallet{Address: address, Lamports: 1_000}))
	require.NoError(t, repo.SaveWallet(ctx, &models.Wallet{Address: address, Lamports: 2_500}))

	wallet, err = repo.GetWallet(ctx, address)
	require.NoError(t, err)
	require.NotNil(t, wallet)
	assert.Equal(t, uint64(2_500), wallet.Lamports)

	err = repo.SaveWallet(ctx, &models.Wallet{Address: address, Lamports: math.MaxUint64})
	assert.Error(t, err)

	require.NoError(t, repo.DeleteWallet(ctx, address))
	wallet, err = repo.GetWallet(ctx, address)
	require.NoError(t, err)
	assert.Nil(t, wallet)
}

func TestCustodyRepository_AccountsAndAssets(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewCustodyRepository(testDB.DB)
	ctx := context.Background()

	owner := testutil.CreateTestAddress(0x01)
	collection := testutil.CreateTestAddress(0x02)
	assetAddress := testutil.CreateTestAddress(0x03)

	asset := &models.AssetType{
		Address:            assetAddress,
		Supply:             1,
		Collection:         &collection,
		CollectionVerified: true,
		MetadataDeposit:    5_000_000,
	}
	require.NoError(t, repo.SaveAssetType(ctx, asset))

	got, err := repo.GetAssetType(ctx, assetAddress)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsUnique())
	assert.True(t, got.InCollection(collection))
	assert.Equal(t, uint64(5_000_000), got.MetadataDeposit)

	// Burning zeroes supply and deposit, membership stays
	got.Supply = 0
	got.MetadataDeposit = 0
	require.NoError(t, repo.SaveAssetType(ctx, got))
	burned, err := repo.GetAssetType(ctx, assetAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), burned.Supply)
	assert.True(t, burned.InCollection(collection))

	account := testutil.CreateTestTokenAccount(owner, assetAddress, 1)
	require.NoError(t, repo.SaveAccount(ctx, account))

	stored, err := repo.GetAccount(ctx, account.Address)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, owner, stored.Owner)
	assert.Equal(t, assetAddress, stored.AssetType)
	assert.Equal(t, uint64(1), stored.Amount)
	assert.Equal(t, models.RentExemptMinimum(models.TokenAccountSize), stored.Lamports)

	stored.Amount = 0
	require.NoError(t, repo.SaveAccount(ctx, stored))
	drained, err := repo.GetAccount(ctx, account.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), drained.Amount)

	require.NoError(t, repo.DeleteAccount(ctx, account.Address))
	gone, err := repo.GetAccount(ctx, account.Address)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
