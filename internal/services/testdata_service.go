package services

import (
	"context"
	"fmt"

	"github.com/certprep-labs/analysis-service/internal/models"
	"github.com/certprep-labs/analysis-service/internal/repositories"
	"github.com/certprep-labs/analysis-service/internal/utils"
)

// recentAttemptLimit bounds how many completed attempts feed one analysis run.
const recentAttemptLimit = 5

// TestData is the aggregator's output: the raw attempt rows plus the grouped
// aggregates computed over exactly those attempts. Read-only downstream.
type TestData struct {
	User                  *models.User
	QuizAttempts          []*models.QuizAttempt
	CategoryPerformance   []repositories.PerformanceRow
	ServicePerformance    []repositories.PerformanceRow
	DifficultyPerformance []repositories.PerformanceRow
	TimeMetrics           TimeMetrics
}

type TimeMetrics struct {
	TotalTimeSecs          int
	AverageTimePerQuestion float64
	TimeByDifficulty       []repositories.TimeByDifficultyRow
}

// TestDataService aggregates a user's recent graded attempts for analysis.
type TestDataService interface {
	GetUserTestData(ctx context.Context, userID string) (*TestData, error)
}

type testDataService struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewTestDataService(repo repositories.Repository, logger utils.Logger) TestDataService {
	return &testDataService{
		repo:   repo,
		logger: logger,
	}
}

// GetUserTestData returns the user's most recent completed attempts
// (newest first) enriched with question detail, plus grouped aggregates by
// category, AWS service and difficulty, plus scalar time metrics. Read-only;
// no writes happen here.
func (s *testDataService) GetUserTestData(ctx context.Context, userID string) (*TestData, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	attempts, err := s.repo.Attempt().GetRecentCompleted(ctx, userID, recentAttemptLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quiz attempts: %w", err)
	}
	if len(attempts) == 0 {
		return nil, ErrNoDataAvailable
	}

	attemptIDs := make([]uint, len(attempts))
	for i, a := range attempts {
		attemptIDs[i] = a.ID
	}

	categoryRows, err := s.repo.Attempt().AggregateByCategory(ctx, attemptIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate category performance: %w", err)
	}

	serviceRows, err := s.repo.Attempt().AggregateByService(ctx, attemptIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate service performance: %w", err)
	}

	difficultyRows, err := s.repo.Attempt().AggregateByDifficulty(ctx, attemptIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate difficulty performance: %w", err)
	}

	timeByDifficulty, err := s.repo.Attempt().AverageTimeByDifficulty(ctx, attemptIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate time by difficulty: %w", err)
	}

	// The onboarding profile personalizes the prompts. A missing profile is
	// not fatal; the formatter falls back to the attempt's user row.
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load user profile", "user_id", userID, "error", err)
		user = nil
	}

	s.logger.Debug("Aggregated test data",
		"user_id", userID,
		"attempts", len(attempts),
		"categories", len(categoryRows),
		"services", len(serviceRows))

	return &TestData{
		User:                  user,
		QuizAttempts:          attempts,
		CategoryPerformance:   categoryRows,
		ServicePerformance:    serviceRows,
		DifficultyPerformance: difficultyRows,
		TimeMetrics:           computeTimeMetrics(attempts, timeByDifficulty),
	}, nil
}

// computeTimeMetrics derives the scalar time totals from the attempt rows.
// Average per question averages each attempt's per-question pace, matching
// the reporting semantics rather than a flat question-weighted mean.
func computeTimeMetrics(attempts []*models.QuizAttempt, byDifficulty []repositories.TimeByDifficultyRow) TimeMetrics {
	total := 0
	perQuestionSum := 0.0
	counted := 0

	for _, a := range attempts {
		total += a.TimeSpentSecs
		if n := len(a.Questions); n > 0 {
			perQuestionSum += float64(a.TimeSpentSecs) / float64(n)
			counted++
		}
	}

	avg := 0.0
	if counted > 0 {
		avg = perQuestionSum / float64(counted)
	}

	return TimeMetrics{
		TotalTimeSecs:          total,
		AverageTimePerQuestion: avg,
		TimeByDifficulty:       byDifficulty,
	}
}
