package models

import (
	"time"

	"gorm.io/datatypes"
)

// AnalysisReport is one generated AI report for a user. Reports are
// append-only: a new generation inserts a fresh row and demotes the previous
// Latest record instead of mutating it.
type AnalysisReport struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	UserID          string         `json:"user_id" gorm:"size:64;not null;index:idx_report_user_latest"`
	ReportData      datatypes.JSON `json:"report_data" gorm:"not null"`
	GeneratedAt     time.Time      `json:"generated_at" gorm:"autoCreateTime;index"`
	ExpiresAt       time.Time      `json:"expires_at" gorm:"not null;index"`
	LastRequestedAt *time.Time     `json:"last_requested_at"`
	Latest          bool           `json:"latest" gorm:"default:true;index:idx_report_user_latest"`
}

// IsExpired reports whether the record has passed its weekly boundary.
func (r *AnalysisReport) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
