package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/certprep-labs/analysis-service/internal/cache"
	"github.com/certprep-labs/analysis-service/internal/models"
	"github.com/certprep-labs/analysis-service/internal/repositories"
	"github.com/certprep-labs/analysis-service/internal/utils"
)

func testLogger() utils.Logger {
	return utils.NewDevelopmentLogger()
}

// ===== FAKE REPOSITORIES =====

type fakeAttemptRepo struct {
	attempts       []*models.QuizAttempt
	categoryRows   []repositories.PerformanceRow
	serviceRows    []repositories.PerformanceRow
	difficultyRows []repositories.PerformanceRow
	timeRows       []repositories.TimeByDifficultyRow
	err            error
	lastAttemptIDs []uint
	lastLimit      int
}

func (f *fakeAttemptRepo) GetRecentCompleted(_ context.Context, _ string, limit int) ([]*models.QuizAttempt, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.attempts) {
		return f.attempts[:limit], nil
	}
	return f.attempts, nil
}

func (f *fakeAttemptRepo) AggregateByCategory(_ context.Context, ids []uint) ([]repositories.PerformanceRow, error) {
	f.lastAttemptIDs = ids
	return f.categoryRows, f.err
}

func (f *fakeAttemptRepo) AggregateByService(_ context.Context, ids []uint) ([]repositories.PerformanceRow, error) {
	return f.serviceRows, f.err
}

func (f *fakeAttemptRepo) AggregateByDifficulty(_ context.Context, ids []uint) ([]repositories.PerformanceRow, error) {
	return f.difficultyRows, f.err
}

func (f *fakeAttemptRepo) AverageTimeByDifficulty(_ context.Context, ids []uint) ([]repositories.TimeByDifficultyRow, error) {
	return f.timeRows, f.err
}

type fakeReportRepo struct {
	mu sync.Mutex

	reports      []*models.AnalysisReport
	nextID       uint
	refreshUsers []string

	createErr   error
	getErr      error
	refreshErr  error
	touchCalls  int
	lastTouchID uint
}

func (f *fakeReportRepo) Create(_ context.Context, report *models.AnalysisReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	report.ID = f.nextID
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeReportRepo) GetLatestUnexpired(_ context.Context, userID string, now time.Time) (*models.AnalysisReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	var newest *models.AnalysisReport
	for _, r := range f.reports {
		if r.UserID != userID || !r.Latest || r.IsExpired(now) {
			continue
		}
		if newest == nil || r.GeneratedAt.After(newest.GeneratedAt) {
			newest = r
		}
	}
	return newest, nil
}

func (f *fakeReportRepo) TouchLastRequested(_ context.Context, reportID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touchCalls++
	f.lastTouchID = reportID
	for _, r := range f.reports {
		if r.ID == reportID {
			stamp := at
			r.LastRequestedAt = &stamp
		}
	}
	return nil
}

func (f *fakeReportRepo) DemoteLatest(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reports {
		if r.UserID == userID {
			r.Latest = false
		}
	}
	return nil
}

func (f *fakeReportRepo) UsersNeedingRefresh(_ context.Context, _ time.Time) ([]string, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshUsers, nil
}

type fakeUserRepo struct {
	user *models.User
	err  error
}

func (f *fakeUserRepo) GetByID(_ context.Context, _ string) (*models.User, error) {
	return f.user, f.err
}

type fakeRepository struct {
	attempt *fakeAttemptRepo
	report  *fakeReportRepo
	user    *fakeUserRepo
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		attempt: &fakeAttemptRepo{},
		report:  &fakeReportRepo{},
		user:    &fakeUserRepo{},
	}
}

func (f *fakeRepository) Attempt() repositories.AttemptRepository { return f.attempt }
func (f *fakeRepository) Report() repositories.ReportRepository   { return f.report }
func (f *fakeRepository) User() repositories.UserRepository       { return f.user }

// ===== FAKE CACHE =====

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = encoded
	f.ttls[key] = ttl
	f.sets++
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return f.getErr
	}
	raw, ok := f.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

// ===== FIXTURES =====

// buildAttempt creates a completed attempt with two questions, one correct
// and one incorrect.
func buildAttempt(id uint, userID string, score float64, completedAt time.Time) *models.QuizAttempt {
	started := completedAt.Add(-30 * time.Minute)
	catName := "Security"
	cat := &models.Category{ID: 1, Name: catName}

	return &models.QuizAttempt{
		ID:              id,
		UserID:          userID,
		QuizID:          id,
		PercentageScore: score,
		TimeSpentSecs:   1800,
		StartedAt:       started,
		CompletedAt:     &completedAt,
		User: models.User{
			UserID:    userID,
			FirstName: "Ada",
			LastName:  "Lovelace",
		},
		Quiz: models.Quiz{
			ID:       id,
			Title:    fmt.Sprintf("Practice Test %d", id),
			Category: cat,
		},
		Questions: []models.QuestionAttempt{
			{
				ID:            id*10 + 1,
				QuizAttemptID: id,
				QuestionID:    id*10 + 1,
				IsCorrect:     true,
				TimeSpentSecs: 60,
				UserAnswer:    "A",
				Question: models.Question{
					ID:              id*10 + 1,
					Content:         "Which service stores objects?",
					Category:        cat,
					AwsService:      "S3",
					DifficultyLevel: models.DifficultyEasy,
					CorrectAnswer:   []string{"A"},
				},
			},
			{
				ID:            id*10 + 2,
				QuizAttemptID: id,
				QuestionID:    id*10 + 2,
				IsCorrect:     false,
				TimeSpentSecs: 90,
				UserAnswer:    "B,C",
				Question: models.Question{
					ID:              id*10 + 2,
					Content:         "Which service manages identities?",
					Category:        cat,
					AwsService:      "IAM",
					DifficultyLevel: models.DifficultyHard,
					CorrectAnswer:   []string{"A", "C"},
				},
			},
		},
	}
}
