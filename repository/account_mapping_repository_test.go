package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autocheckin/models"
	"autocheckin/repository/testutil"
)

func TestAccountMappingRepository_Upsert(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountMappingRepository(testDB.DB)
	ctx := context.Background()

	t.Run("absent email", func(t *testing.T) {
		mapping, err := repo.GetByEmail(ctx, "a@example.test")
		require.NoError(t, err)
		assert.Nil(t, mapping)
	})

	t.Run("insert and read back", func(t *testing.T) {
		err := repo.Upsert(ctx, &models.AccountRemoteMapping{
			RemoteUID:  42,
			Email:      "a@example.test",
			LastUpdate: time.Now(),
		})
		require.NoError(t, err)

		mapping, err := repo.GetByEmail(ctx, "a@example.test")
		require.NoError(t, err)
		require.NotNil(t, mapping)
		assert.Equal(t, int64(42), mapping.RemoteUID)
	})

	t.Run("same uid changes email", func(t *testing.T) {
		err := repo.Upsert(ctx, &models.AccountRemoteMapping{
			RemoteUID:  42,
			Email:      "renamed@example.test",
			LastUpdate: time.Now(),
		})
		require.NoError(t, err)

		mapping, err := repo.GetByEmail(ctx, "renamed@example.test")
		require.NoError(t, err)
		require.NotNil(t, mapping)
		assert.Equal(t, int64(42), mapping.RemoteUID)

		old, err := repo.GetByEmail(ctx, "a@example.test")
		require.NoError(t, err)
		assert.Nil(t, old)
	})

	t.Run("email moving to a new uid drops the stale row", func(t *testing.T) {
		err := repo.Upsert(ctx, &models.AccountRemoteMapping{
			RemoteUID:  77,
			Email:      "renamed@example.test",
			LastUpdate: time.Now(),
		})
		require.NoError(t, err)

		mapping, err := repo.GetByEmail(ctx, "renamed@example.test")
		require.NoError(t, err)
		require.NotNil(t, mapping)
		assert.Equal(t, int64(77), mapping.RemoteUID)
	})
}
