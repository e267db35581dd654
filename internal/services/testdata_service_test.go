package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/certprep-labs/analysis-service/internal/models"
	"github.com/certprep-labs/analysis-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserTestData_EmptyUserID(t *testing.T) {
	svc := NewTestDataService(newFakeRepository(), testLogger())

	_, err := svc.GetUserTestData(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestGetUserTestData_NoAttempts(t *testing.T) {
	svc := NewTestDataService(newFakeRepository(), testLogger())

	_, err := svc.GetUserTestData(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoDataAvailable)
}

func TestGetUserTestData_RepositoryError(t *testing.T) {
	repo := newFakeRepository()
	repo.attempt.err = errors.New("connection refused")
	svc := NewTestDataService(repo, testLogger())

	_, err := svc.GetUserTestData(context.Background(), "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDataAvailable)
}

func TestGetUserTestData_AggregatesOverRecentAttempts(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	repo := newFakeRepository()
	repo.attempt.attempts = []*models.QuizAttempt{
		buildAttempt(2, "user-1", 75, base.AddDate(0, 0, 2)),
		buildAttempt(1, "user-1", 60, base),
	}
	repo.attempt.categoryRows = []repositories.PerformanceRow{
		{Dimension: "Security", TotalCount: 4, CorrectCount: 2, AccuracyPct: 50},
	}
	repo.attempt.timeRows = []repositories.TimeByDifficultyRow{
		{Level: "EASY", AverageTime: 55},
	}

	svc := NewTestDataService(repo, testLogger())

	data, err := svc.GetUserTestData(context.Background(), "user-1")
	require.NoError(t, err)

	// Only the five most recent attempts ever feed a run.
	assert.Equal(t, 5, repo.attempt.lastLimit)

	require.Len(t, data.QuizAttempts, 2)
	assert.Equal(t, uint(2), data.QuizAttempts[0].ID, "newest attempt first")

	// The aggregates are computed over exactly the fetched attempt ids.
	assert.Equal(t, []uint{2, 1}, repo.attempt.lastAttemptIDs)

	require.Len(t, data.CategoryPerformance, 1)
	assert.Equal(t, "Security", data.CategoryPerformance[0].Dimension)
}

func TestGetUserTestData_TimeMetrics(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	repo := newFakeRepository()
	repo.attempt.attempts = []*models.QuizAttempt{
		buildAttempt(2, "user-1", 75, base.AddDate(0, 0, 2)),
		buildAttempt(1, "user-1", 60, base),
	}

	svc := NewTestDataService(repo, testLogger())

	data, err := svc.GetUserTestData(context.Background(), "user-1")
	require.NoError(t, err)

	// Each fixture attempt is 1800s over 2 questions.
	assert.Equal(t, 3600, data.TimeMetrics.TotalTimeSecs)
	assert.InDelta(t, 900, data.TimeMetrics.AverageTimePerQuestion, 1e-9)
}

func TestGetUserTestData_LoadsUserProfile(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	experience := "2 years"

	repo := newFakeRepository()
	repo.attempt.attempts = []*models.QuizAttempt{
		buildAttempt(1, "user-1", 60, base),
	}
	repo.user.user = &models.User{
		UserID:    "user-1",
		FirstName: "Grace",
		LastName:  "Hopper",
		Onboarding: &models.Onboarding{
			Experience: &experience,
			Goals:      []string{"Pass SAA-C03"},
		},
	}

	svc := NewTestDataService(repo, testLogger())

	data, err := svc.GetUserTestData(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, data.User)
	assert.Equal(t, "Grace", data.User.FirstName)

	// A profile lookup failure degrades gracefully instead of failing the run.
	repo.user.user = nil
	repo.user.err = errors.New("user service down")
	data, err = svc.GetUserTestData(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, data.User)
}

func TestComputeTimeMetrics_NoQuestions(t *testing.T) {
	attempts := []*models.QuizAttempt{
		{TimeSpentSecs: 600},
	}

	metrics := computeTimeMetrics(attempts, nil)
	assert.Equal(t, 600, metrics.TotalTimeSecs)
	assert.Equal(t, 0.0, metrics.AverageTimePerQuestion)
}
