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

func TestRunRepository_CreateAndGetByID(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRunRepository(testDB.DB)
	ctx := context.Background()

	t.Run("no run found", func(t *testing.T) {
		run, err := repo.GetByID(ctx, 99999)
		require.NoError(t, err)
		assert.Nil(t, run)
	})

	t.Run("create sets id and created_at", func(t *testing.T) {
		run := testutil.CreateTestRun(3)
		err := repo.Create(ctx, run)
		require.NoError(t, err)
		assert.NotZero(t, run.ID)
		assert.False(t, run.CreatedAt.IsZero())

		retrieved, err := repo.GetByID(ctx, run.ID)
		require.NoError(t, err)
		require.NotNil(t, retrieved)
		assert.Equal(t, models.TriggerManual, retrieved.TriggerKind)
		assert.Equal(t, "test", retrieved.TriggerBy)
		assert.Equal(t, 3, retrieved.TotalAccounts)
		assert.Equal(t, models.RunStatusRunning, retrieved.Status)
		assert.Nil(t, retrieved.EndTime)
	})
}

func TestRunRepository_IncrementOutcome(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRunRepository(testDB.DB)
	ctx := context.Background()

	run := testutil.CreateTestRun(4)
	require.NoError(t, repo.Create(ctx, run))

	t.Run("each outcome bumps its own counter", func(t *testing.T) {
		require.NoError(t, repo.IncrementOutcome(ctx, run.ID, models.OutcomeSuccess))
		require.NoError(t, repo.IncrementOutcome(ctx, run.ID, models.OutcomeSuccess))
		require.NoError(t, repo.IncrementOutcome(ctx, run.ID, models.OutcomeFailed))
		require.NoError(t, repo.IncrementOutcome(ctx, run.ID, models.OutcomeAlreadyDone))

		retrieved, err := repo.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, retrieved.SuccessCount)
		assert.Equal(t, 1, retrieved.FailedCount)
		assert.Equal(t, 1, retrieved.AlreadyDoneCount)
	})

	t.Run("unknown outcome counts as failed", func(t *testing.T) {
		require.NoError(t, repo.IncrementOutcome(ctx, run.ID, models.Outcome("weird")))

		retrieved, err := repo.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, retrieved.FailedCount)
	})

	t.Run("missing run", func(t *testing.T) {
		err := repo.IncrementOutcome(ctx, 99999, models.OutcomeSuccess)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestRunRepository_Finalize(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRunRepository(testDB.DB)
	ctx := context.Background()

	t.Run("stamps end time and duration", func(t *testing.T) {
		run := testutil.CreateTestRun(2)
		require.NoError(t, repo.Create(ctx, run))
		require.NoError(t, repo.IncrementOutcome(ctx, run.ID, models.OutcomeSuccess))

		finalized, err := repo.Finalize(ctx, run.ID, true)
		require.NoError(t, err)
		require.NotNil(t, finalized)

		assert.Equal(t, models.RunStatusCompleted, finalized.Status)
		assert.True(t, finalized.NotificationSent)
		require.NotNil(t, finalized.EndTime)
		assert.GreaterOrEqual(t, finalized.DurationSeconds, 0.0)
		assert.Equal(t, 1, finalized.SuccessCount)
	})

	t.Run("second finalize is rejected", func(t *testing.T) {
		run := testutil.CreateTestRun(1)
		require.NoError(t, repo.Create(ctx, run))

		_, err := repo.Finalize(ctx, run.ID, false)
		require.NoError(t, err)

		_, err = repo.Finalize(ctx, run.ID, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not running")
	})
}

func TestRunRepository_MarkNotified(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRunRepository(testDB.DB)
	ctx := context.Background()

	t.Run("flips the flag on a finalized run", func(t *testing.T) {
		run := testutil.CreateTestRun(1)
		require.NoError(t, repo.Create(ctx, run))
		finalized, err := repo.Finalize(ctx, run.ID, false)
		require.NoError(t, err)
		assert.False(t, finalized.NotificationSent)

		require.NoError(t, repo.MarkNotified(ctx, run.ID))

		retrieved, err := repo.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.True(t, retrieved.NotificationSent)
	})

	t.Run("missing run", func(t *testing.T) {
		err := repo.MarkNotified(ctx, 99999)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestRunRepository_GetRecent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRunRepository(testDB.DB)
	ctx := context.Background()

	t.Run("empty table", func(t *testing.T) {
		runs, err := repo.GetRecent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("newest first with limit", func(t *testing.T) {
		base := time.Now().Add(-time.Hour)
		var ids []int64
		for i := 0; i < 5; i++ {
			run := testutil.CreateTestRun(1)
			run.StartTime = base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, repo.Create(ctx, run))
			ids = append(ids, run.ID)
		}

		runs, err := repo.GetRecent(ctx, 3)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, ids[4], runs[0].ID)
		assert.Equal(t, ids[3], runs[1].ID)
		assert.Equal(t, ids[2], runs[2].ID)
	})
}

func TestRunRepository_GetWindowStats(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRunRepository(testDB.DB)
	ctx := context.Background()

	seedRun := func(startedAgo time.Duration, success, failed, alreadyDone int, finalize bool) {
		run := testutil.CreateTestRun(success + failed + alreadyDone)
		run.StartTime = time.Now().Add(-startedAgo)
		require.NoError(t, repo.Create(ctx, run))
		for i := 0; i < success; i++ {
			require.NoError(t, repo.IncrementOutcome(ctx, run.ID, models.OutcomeSuccess))
		}
		for i := 0; i < failed; i++ {
			require.NoError(t, repo.IncrementOutcome(ctx, run.ID, models.OutcomeFailed))
		}
		for i := 0; i < alreadyDone; i++ {
			require.NoError(t, repo.IncrementOutcome(ctx, run.ID, models.OutcomeAlreadyDone))
		}
		if finalize {
			_, err := repo.Finalize(ctx, run.ID, false)
			require.NoError(t, err)
		}
	}

	seedRun(48*time.Hour, 2, 1, 0, true)
	seedRun(time.Hour, 3, 0, 1, true)
	// Still running, must be excluded from every window
	seedRun(time.Minute, 5, 5, 5, false)

	t.Run("all time counts only completed runs", func(t *testing.T) {
		stats, err := repo.GetWindowStats(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalRuns)
		assert.Equal(t, 7, stats.Total)
		assert.Equal(t, 5, stats.Success)
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, 1, stats.AlreadyDone)
	})

	t.Run("bounded window excludes older runs", func(t *testing.T) {
		since := time.Now().Add(-24 * time.Hour)
		stats, err := repo.GetWindowStats(ctx, &since)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalRuns)
		assert.Equal(t, 3, stats.Success)
		assert.Equal(t, 0, stats.Failed)
		assert.Equal(t, 1, stats.AlreadyDone)
	})

	t.Run("empty window", func(t *testing.T) {
		since := time.Now().Add(time.Hour)
		stats, err := repo.GetWindowStats(ctx, &since)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.TotalRuns)
		assert.Equal(t, 0, stats.Success)
	})
}
