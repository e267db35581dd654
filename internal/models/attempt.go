package models

import (
	"time"
)

// QuizAttempt is one completed test instance. Attempts are immutable once
// completed; the analysis pipeline only reads them.
type QuizAttempt struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	UserID          string     `json:"user_id" gorm:"size:64;not null;index"`
	QuizID          uint       `json:"quiz_id" gorm:"not null;index"`
	PercentageScore float64    `json:"percentage_score" gorm:"not null"`
	TimeSpentSecs   int        `json:"time_spent_secs" gorm:"not null"`
	StartedAt       time.Time  `json:"started_at" gorm:"not null"`
	CompletedAt     *time.Time `json:"completed_at" gorm:"index"`
	CreatedAt       time.Time  `json:"created_at"`

	User      User              `json:"user" gorm:"foreignKey:UserID"`
	Quiz      Quiz              `json:"quiz" gorm:"foreignKey:QuizID"`
	Questions []QuestionAttempt `json:"questions" gorm:"foreignKey:QuizAttemptID"`
}

// QuestionAttempt is one answered question within an attempt.
type QuestionAttempt struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	QuizAttemptID uint   `json:"quiz_attempt_id" gorm:"not null;index"`
	QuestionID    uint   `json:"question_id" gorm:"not null;index"`
	IsCorrect     bool   `json:"is_correct" gorm:"not null;index"`
	TimeSpentSecs int    `json:"time_spent_secs" gorm:"not null"`
	UserAnswer    string `json:"user_answer" gorm:"type:text"` // comma-separated selections

	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
}
