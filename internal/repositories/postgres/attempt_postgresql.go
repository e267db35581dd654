package postgres

import (
	"context"

	"github.com/certprep-labs/analysis-service/internal/models"
	"github.com/certprep-labs/analysis-service/internal/repositories"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a AttemptPostgreSQL) GetRecentCompleted(ctx context.Context, userID string, limit int) ([]*models.QuizAttempt, error) {
	var attempts []*models.QuizAttempt
	if err := a.db.WithContext(ctx).
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Order("completed_at DESC").
		Limit(limit).
		Preload("Quiz").
		Preload("Quiz.Category").
		Preload("Questions").
		Preload("Questions.Question").
		Preload("Questions.Question.Category").
		Preload("Questions.Question.Options").
		Preload("User").
		Preload("User.Onboarding").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

// Aggregate values are scanned into plain int64/float64 columns so callers
// never see the database's numeric/bigint representation.

func (a AttemptPostgreSQL) AggregateByCategory(ctx context.Context, attemptIDs []uint) ([]repositories.PerformanceRow, error) {
	var rows []repositories.PerformanceRow
	err := a.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(c.name, '') AS dimension,
			COUNT(*) AS total_count,
			COUNT(CASE WHEN qa.is_correct THEN 1 END) AS correct_count,
			AVG(CASE WHEN qa.is_correct THEN 1.0 ELSE 0.0 END) * 100 AS accuracy_pct
		FROM question_attempts qa
		JOIN questions q ON qa.question_id = q.id
		LEFT JOIN categories c ON q.category_id = c.id
		WHERE qa.quiz_attempt_id IN ?
		GROUP BY c.name`, attemptIDs).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (a AttemptPostgreSQL) AggregateByService(ctx context.Context, attemptIDs []uint) ([]repositories.PerformanceRow, error) {
	var rows []repositories.PerformanceRow
	err := a.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(q.aws_service, '') AS dimension,
			COUNT(*) AS total_count,
			COUNT(CASE WHEN qa.is_correct THEN 1 END) AS correct_count,
			AVG(CASE WHEN qa.is_correct THEN 1.0 ELSE 0.0 END) * 100 AS accuracy_pct
		FROM question_attempts qa
		JOIN questions q ON qa.question_id = q.id
		WHERE qa.quiz_attempt_id IN ?
		GROUP BY q.aws_service`, attemptIDs).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (a AttemptPostgreSQL) AggregateByDifficulty(ctx context.Context, attemptIDs []uint) ([]repositories.PerformanceRow, error) {
	var rows []repositories.PerformanceRow
	err := a.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(q.difficulty_level, '') AS dimension,
			COUNT(*) AS total_count,
			COUNT(CASE WHEN qa.is_correct THEN 1 END) AS correct_count,
			AVG(CASE WHEN qa.is_correct THEN 1.0 ELSE 0.0 END) * 100 AS accuracy_pct
		FROM question_attempts qa
		JOIN questions q ON qa.question_id = q.id
		WHERE qa.quiz_attempt_id IN ?
		GROUP BY q.difficulty_level`, attemptIDs).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (a AttemptPostgreSQL) AverageTimeByDifficulty(ctx context.Context, attemptIDs []uint) ([]repositories.TimeByDifficultyRow, error) {
	var rows []repositories.TimeByDifficultyRow
	err := a.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(q.difficulty_level, '') AS level,
			AVG(qa.time_spent_secs) AS average_time
		FROM question_attempts qa
		JOIN questions q ON qa.question_id = q.id
		WHERE qa.quiz_attempt_id IN ?
		GROUP BY q.difficulty_level`, attemptIDs).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
