package models

import (
	"time"

	"gorm.io/gorm"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "EASY"
	DifficultyMedium DifficultyLevel = "MEDIUM"
	DifficultyHard   DifficultyLevel = "HARD"
)

type Category struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text"`
}

type Quiz struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Title      string         `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	CategoryID *uint          `json:"category_id" gorm:"index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	Category  *Category  `json:"category" gorm:"foreignKey:CategoryID"`
	Questions []Question `json:"questions" gorm:"foreignKey:QuizID"`
}

type Question struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	QuizID          uint            `json:"quiz_id" gorm:"not null;index"`
	Content         string          `json:"content" gorm:"type:text;not null" validate:"required"`
	CategoryID      *uint           `json:"category_id" gorm:"index"`
	AwsService      string          `json:"aws_service" gorm:"size:100;index"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level" gorm:"size:20;index" validate:"omitempty,oneof=EASY MEDIUM HARD"`
	CorrectAnswer   []string        `json:"correct_answer" gorm:"serializer:json"`

	Category *Category        `json:"category" gorm:"foreignKey:CategoryID"`
	Options  []QuestionOption `json:"options" gorm:"foreignKey:QuestionID"`
}

type QuestionOption struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
}
