package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autocheckin/repository/testutil"
)

func TestTransactionRecordRepository_ExistsAndInsert(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTransactionRecordRepository(testDB.DB)
	ctx := context.Background()

	t.Run("absent record", func(t *testing.T) {
		exists, err := repo.Exists(ctx, 1001)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("insert then exists", func(t *testing.T) {
		record := testutil.CreateTestRecord(1001, "a@example.test", 25)
		ip := "203.0.113.7"
		record.OriginIP = &ip
		record.Remark = `{"ip":"203.0.113.7"}`
		record.APIID = 3

		err := repo.Insert(ctx, record)
		require.NoError(t, err)
		assert.False(t, record.CreatedAt.IsZero())

		exists, err := repo.Exists(ctx, 1001)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("duplicate remote id is rejected", func(t *testing.T) {
		record := testutil.CreateTestRecord(1002, "a@example.test", 10)
		require.NoError(t, repo.Insert(ctx, record))

		err := repo.Insert(ctx, testutil.CreateTestRecord(1002, "a@example.test", 10))
		assert.Error(t, err)
	})
}

func TestTransactionRecordRepository_GetByAccountSince(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTransactionRecordRepository(testDB.DB)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	seed := []struct {
		id     int64
		email  string
		tokens int64
		source string
		at     time.Time
	}{
		{1, "a@example.test", 25, "checkin", now.Add(-time.Hour)},
		{2, "a@example.test", -10, "chat", now.Add(-2 * time.Hour)},
		{3, "a@example.test", 25, "checkin", now.Add(-40 * 24 * time.Hour)},
		{4, "b@example.test", 25, "checkin", now.Add(-time.Hour)},
	}
	for _, s := range seed {
		record := testutil.CreateTestRecordAt(s.id, s.email, s.tokens, s.at)
		record.Source = s.source
		require.NoError(t, repo.Insert(ctx, record))
	}

	since := now.Add(-30 * 24 * time.Hour)

	t.Run("window bounds and account filter", func(t *testing.T) {
		records, err := repo.GetByAccountSince(ctx, "a@example.test", since, "")
		require.NoError(t, err)
		require.Len(t, records, 2)
		// Newest first
		assert.Equal(t, int64(1), records[0].ID)
		assert.Equal(t, int64(2), records[1].ID)
	})

	t.Run("source filter", func(t *testing.T) {
		records, err := repo.GetByAccountSince(ctx, "a@example.test", since, "chat")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, int64(2), records[0].ID)
		assert.Equal(t, int64(-10), records[0].Tokens)
	})

	t.Run("no matches", func(t *testing.T) {
		records, err := repo.GetByAccountSince(ctx, "c@example.test", since, "")
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestTransactionRecordRepository_GetDailySummary(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTransactionRecordRepository(testDB.DB)
	ctx := context.Background()

	today := time.Now().Truncate(time.Second)
	yesterday := today.Add(-24 * time.Hour)

	seed := []struct {
		id     int64
		email  string
		tokens int64
		at     time.Time
	}{
		{1, "a@example.test", 25, today},
		{2, "a@example.test", -10, today},
		{3, "a@example.test", 30, yesterday},
		{4, "b@example.test", 100, today},
	}
	for _, s := range seed {
		require.NoError(t, repo.Insert(ctx, testutil.CreateTestRecordAt(s.id, s.email, s.tokens, s.at)))
	}

	t.Run("single account", func(t *testing.T) {
		summaries, err := repo.GetDailySummary(ctx, "a@example.test", 7)
		require.NoError(t, err)
		require.Len(t, summaries, 2)

		// Newest date first
		assert.Equal(t, today.Format("2006-01-02"), summaries[0].Date)
		assert.Equal(t, int64(25), summaries[0].Earned)
		assert.Equal(t, int64(10), summaries[0].Spent)
		assert.Equal(t, int64(15), summaries[0].Net)
		assert.Equal(t, 2, summaries[0].Records)

		assert.Equal(t, yesterday.Format("2006-01-02"), summaries[1].Date)
		assert.Equal(t, int64(30), summaries[1].Earned)
		assert.Equal(t, int64(0), summaries[1].Spent)
	})

	t.Run("all accounts", func(t *testing.T) {
		summaries, err := repo.GetDailySummary(ctx, "", 7)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, int64(125), summaries[0].Earned)
		assert.Equal(t, 3, summaries[0].Records)
	})
}

func TestTransactionRecordRepository_GetLedgerStats(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTransactionRecordRepository(testDB.DB)
	ctx := context.Background()

	t.Run("no records", func(t *testing.T) {
		stats, err := repo.GetLedgerStats(ctx, "a@example.test")
		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalRecords)
		assert.Equal(t, int64(0), stats.NetTokens)
	})

	t.Run("earned and spent are split", func(t *testing.T) {
		require.NoError(t, repo.Insert(ctx, testutil.CreateTestRecord(1, "a@example.test", 25)))
		require.NoError(t, repo.Insert(ctx, testutil.CreateTestRecord(2, "a@example.test", 25)))
		require.NoError(t, repo.Insert(ctx, testutil.CreateTestRecord(3, "a@example.test", -20)))

		stats, err := repo.GetLedgerStats(ctx, "a@example.test")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalRecords)
		assert.Equal(t, int64(50), stats.TotalEarned)
		assert.Equal(t, int64(20), stats.TotalSpent)
		assert.Equal(t, int64(30), stats.NetTokens)
	})
}

func TestTransactionRecordRepository_DeleteBefore(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewTransactionRecordRepository(testDB.DB)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	require.NoError(t, repo.Insert(ctx, testutil.CreateTestRecordAt(1, "a@example.test", 25, now.Add(-100*24*time.Hour))))
	require.NoError(t, repo.Insert(ctx, testutil.CreateTestRecordAt(2, "a@example.test", 25, now.Add(-50*24*time.Hour))))
	require.NoError(t, repo.Insert(ctx, testutil.CreateTestRecordAt(3, "a@example.test", 25, now)))

	removed, err := repo.DeleteBefore(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	exists, err := repo.Exists(ctx, 3)
	require.NoError(t, err)
	assert.True(t, exists)

	removed, err = repo.DeleteBefore(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}
