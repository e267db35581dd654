package repositories

import (
	"context"
	"time"

	"github.com/certprep-labs/analysis-service/internal/models"
)

// ===== AGGREGATE ROW STRUCTS =====

// PerformanceRow is one grouped-aggregate result over question attempts.
// Dimension holds the group key (category name, AWS service or difficulty
// level); it may be empty when the underlying join found no label.
type PerformanceRow struct {
	Dimension     string  `json:"dimension"`
	TotalCount    int64   `json:"total_count"`
	CorrectCount  int64   `json:"correct_count"`
	AccuracyPct   float64 `json:"accuracy_pct"`
	AvgTimeSecs   float64 `json:"avg_time_secs"`
}

// TimeByDifficultyRow carries the average per-question time for one
// difficulty level.
type TimeByDifficultyRow struct {
	Level       string  `json:"level"`
	AverageTime float64 `json:"average_time"`
}

// ===== REPOSITORY INTERFACES =====

type AttemptRepository interface {
	// GetRecentCompleted returns up to limit completed attempts for the user,
	// newest first, with quiz, category, question and option detail loaded.
	GetRecentCompleted(ctx context.Context, userID string, limit int) ([]*models.QuizAttempt, error)

	// Grouped aggregates computed over exactly the given attempt ids.
	AggregateByCategory(ctx context.Context, attemptIDs []uint) ([]PerformanceRow, error)
	AggregateByService(ctx context.Context, attemptIDs []uint) ([]PerformanceRow, error)
	AggregateByDifficulty(ctx context.Context, attemptIDs []uint) ([]PerformanceRow, error)
	AverageTimeByDifficulty(ctx context.Context, attemptIDs []uint) ([]TimeByDifficultyRow, error)
}

type ReportRepository interface {
	Create(ctx context.Context, report *models.AnalysisReport) error

	// GetLatestUnexpired returns the newest unexpired latest-flagged report for
	// the user, or nil when none exists.
	GetLatestUnexpired(ctx context.Context, userID string, now time.Time) (*models.AnalysisReport, error)

	TouchLastRequested(ctx context.Context, reportID uint, at time.Time) error

	// DemoteLatest clears the latest flag on all of the user's reports.
	DemoteLatest(ctx context.Context, userID string) error

	// UsersNeedingRefresh returns ids of users whose latest report is expired,
	// plus users with completed attempts but no report at all.
	UsersNeedingRefresh(ctx context.Context, now time.Time) ([]string, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// Repository is the shared facade handed to services.
type Repository interface {
	Attempt() AttemptRepository
	Report() ReportRepository
	User() UserRepository
}
