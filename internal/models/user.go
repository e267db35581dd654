package models

import (
	"time"
)

// User mirrors the identity-provider account. UserID is the external id
// supplied by the gateway; the service never creates users itself.
type User struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:64"`
	Email     string    `json:"email" gorm:"size:255;index"`
	FirstName string    `json:"first_name" gorm:"size:100"`
	LastName  string    `json:"last_name" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Onboarding *Onboarding `json:"onboarding" gorm:"foreignKey:UserID"`
}

// Onboarding captures the study profile collected at signup. The analysis
// prompts use it to personalize output.
type Onboarding struct {
	ID                      uint     `json:"id" gorm:"primaryKey"`
	UserID                  string   `json:"user_id" gorm:"size:64;uniqueIndex"`
	Experience              *string  `json:"experience" gorm:"size:50"`
	PreferredCertifications []string `json:"preferred_certifications" gorm:"serializer:json"`
	Goals                   []string `json:"goals" gorm:"serializer:json"`
}
