package postgres

import (
	"github.com/certprep-labs/analysis-service/internal/repositories"
	"gorm.io/gorm"
)

type gormRepository struct {
	attempt repositories.AttemptRepository
	report  repositories.ReportRepository
	user    repositories.UserRepository
}

// NewRepository wires the gorm-backed implementations behind the shared
// facade.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &gormRepository{
		attempt: NewAttemptPostgreSQL(db),
		report:  NewReportPostgreSQL(db),
		user:    NewUserPostgreSQL(db),
	}
}

func (r *gormRepository) Attempt() repositories.AttemptRepository { return r.attempt }
func (r *gormRepository) Report() repositories.ReportRepository   { return r.report }
func (r *gormRepository) User() repositories.UserRepository       { return r.user }
