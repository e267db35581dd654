package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/certprep-labs/analysis-service/internal/models"
	"github.com/certprep-labs/analysis-service/internal/repositories"
	"gorm.io/gorm"
)

type ReportPostgreSQL struct {
	db *gorm.DB
}

func NewReportPostgreSQL(db *gorm.DB) repositories.ReportRepository {
	return &ReportPostgreSQL{db: db}
}

func (r ReportPostgreSQL) Create(ctx context.Context, report *models.AnalysisReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r ReportPostgreSQL) GetLatestUnexpired(ctx context.Context, userID string, now time.Time) (*models.AnalysisReport, error) {
	var report models.AnalysisReport
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND latest = ? AND expires_at > ?", userID, true, now).
		Order("generated_at DESC").
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (r ReportPostgreSQL) TouchLastRequested(ctx context.Context, reportID uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AnalysisReport{}).
		Where("id = ?", reportID).
		Update("last_requested_at", at).Error
}

func (r ReportPostgreSQL) DemoteLatest(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Model(&models.AnalysisReport{}).
		Where("user_id = ? AND latest = ?", userID, true).
		Update("latest", false).Error
}

func (r ReportPostgreSQL) UsersNeedingRefresh(ctx context.Context, now time.Time) ([]string, error) {
	var userIDs []string

	// Users whose latest report has expired, plus users with completed
	// attempts but no report row yet.
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ar.user_id
		FROM analysis_reports ar
		WHERE ar.latest = true AND ar.expires_at < ?
		UNION
		SELECT DISTINCT qa.user_id
		FROM quiz_attempts qa
		WHERE qa.completed_at IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM analysis_reports ar2 WHERE ar2.user_id = qa.user_id
		  )`, now).Scan(&userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}
