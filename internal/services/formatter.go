package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/certprep-labs/analysis-service/internal/models"
	"github.com/certprep-labs/analysis-service/internal/repositories"
)

// FormattedTestData is the canonical normalized document every analysis
// module consumes. Built once per run, read-only afterward. JSON tags define
// the payload shape sent to the model, so they stay camelCase.
type FormattedTestData struct {
	User                FormattedUser         `json:"user"`
	CurrentTest         CurrentTest           `json:"currentTest"`
	CategoryPerformance []CategoryBreakdown   `json:"categoryPerformance"`
	ServicePerformance  []ServiceBreakdown    `json:"servicePerformance"`
	DifficultyBreakdown []DifficultyBreakdown `json:"difficultyBreakdown"`
	TimeAnalysis        TimeAnalysis          `json:"timeAnalysis"`
	ProgressHistory     []ProgressPoint       `json:"progressHistory"`
	QuestionDetails     []QuestionDetail      `json:"questionDetails"`
}

type FormattedUser struct {
	ID                      string   `json:"id"`
	Name                    string   `json:"name"`
	Experience              *string  `json:"experience"`
	PreferredCertifications []string `json:"preferredCertifications"`
	Goals                   []string `json:"goals"`
}

type TimeSpent struct {
	Seconds   float64 `json:"seconds"`
	Formatted string  `json:"formatted"`
}

type CurrentTest struct {
	ID                 uint      `json:"id"`
	Name               string    `json:"name"`
	Category           *string   `json:"category"`
	Score              float64   `json:"score"`
	TimeSpent          TimeSpent `json:"timeSpent"`
	QuestionsTotal     int       `json:"questionsTotal"`
	QuestionsCorrect   int       `json:"questionsCorrect"`
	QuestionsIncorrect int       `json:"questionsIncorrect"`
	StartedAt          string    `json:"startedAt"`
	CompletedAt        *string   `json:"completedAt"`
}

type CategoryBreakdown struct {
	Category         string  `json:"category"`
	TotalQuestions   int     `json:"totalQuestions"`
	CorrectQuestions int     `json:"correctQuestions"`
	Accuracy         float64 `json:"accuracy"`
}

type ServiceBreakdown struct {
	Service          string  `json:"service"`
	TotalQuestions   int     `json:"totalQuestions"`
	CorrectQuestions int     `json:"correctQuestions"`
	Accuracy         float64 `json:"accuracy"`
}

type DifficultyBreakdown struct {
	Level            string  `json:"level"`
	TotalQuestions   int     `json:"totalQuestions"`
	CorrectQuestions int     `json:"correctQuestions"`
	Accuracy         float64 `json:"accuracy"`
	AverageTime      float64 `json:"averageTime"`
}

type TimeAnalysis struct {
	Total              TimeSpent          `json:"total"`
	AveragePerQuestion TimeSpent          `json:"averagePerQuestion"`
	ByDifficulty       []DifficultyTiming `json:"byDifficulty"`
}

type DifficultyTiming struct {
	Level          string  `json:"level"`
	AverageSeconds float64 `json:"averageSeconds"`
	Formatted      string  `json:"formatted"`
}

type ProgressPoint struct {
	TestID      uint    `json:"testId"`
	TestName    string  `json:"testName"`
	Score       float64 `json:"score"`
	Date        string  `json:"date"`
	Improvement float64 `json:"improvement"`
}

type QuestionDetail struct {
	ID            uint      `json:"id"`
	Content       string    `json:"content"`
	Category      *string   `json:"category"`
	Service       *string   `json:"service"`
	Difficulty    string    `json:"difficulty"`
	IsCorrect     bool      `json:"isCorrect"`
	TimeSpent     TimeSpent `json:"timeSpent"`
	UserAnswer    []string  `json:"userAnswer"`
	CorrectAnswer []string  `json:"correctAnswer"`
}

// FormatTestData reshapes the aggregator output into the normalized document.
// Pure and deterministic: identical input yields identical output. The empty
// check duplicates the aggregator's guard as a defensive invariant.
func FormatTestData(data *TestData) (*FormattedTestData, error) {
	if data == nil || len(data.QuizAttempts) == 0 {
		return nil, ErrEmptyAttemptSet
	}

	current := data.QuizAttempts[0]

	return &FormattedTestData{
		User:                formatUser(data.User, current),
		CurrentTest:         formatCurrentTest(current),
		CategoryPerformance: formatCategoryPerformance(data.CategoryPerformance),
		ServicePerformance:  formatServicePerformance(data.ServicePerformance),
		DifficultyBreakdown: formatDifficultyBreakdown(data.DifficultyPerformance, data.TimeMetrics.TimeByDifficulty),
		TimeAnalysis:        formatTimeAnalysis(data.TimeMetrics),
		ProgressHistory:     formatProgressHistory(data.QuizAttempts),
		QuestionDetails:     formatQuestionDetails(current),
	}, nil
}

func formatUser(account *models.User, attempt *models.QuizAttempt) FormattedUser {
	if account == nil {
		account = &attempt.User
	}

	user := FormattedUser{
		ID:                      attempt.UserID,
		Name:                    strings.TrimSpace(account.FirstName + " " + account.LastName),
		PreferredCertifications: []string{},
		Goals:                   []string{},
	}
	if ob := account.Onboarding; ob != nil {
		user.Experience = ob.Experience
		if ob.PreferredCertifications != nil {
			user.PreferredCertifications = ob.PreferredCertifications
		}
		if ob.Goals != nil {
			user.Goals = ob.Goals
		}
	}
	return user
}

func formatCurrentTest(attempt *models.QuizAttempt) CurrentTest {
	correct := 0
	for _, q := range attempt.Questions {
		if q.IsCorrect {
			correct++
		}
	}

	test := CurrentTest{
		ID:                 attempt.ID,
		Name:               attempt.Quiz.Title,
		Score:              attempt.PercentageScore,
		TimeSpent:          newTimeSpent(float64(attempt.TimeSpentSecs)),
		QuestionsTotal:     len(attempt.Questions),
		QuestionsCorrect:   correct,
		QuestionsIncorrect: len(attempt.Questions) - correct,
		StartedAt:          attempt.StartedAt.UTC().Format(time.RFC3339),
	}
	if attempt.Quiz.Category != nil {
		name := attempt.Quiz.Category.Name
		test.Category = &name
	}
	if attempt.CompletedAt != nil {
		completed := attempt.CompletedAt.UTC().Format(time.RFC3339)
		test.CompletedAt = &completed
	}
	return test
}

// Zero-total groups are sparse-join noise and never appear in output.

func formatCategoryPerformance(rows []repositories.PerformanceRow) []CategoryBreakdown {
	out := make([]CategoryBreakdown, 0, len(rows))
	for _, row := range rows {
		if row.TotalCount == 0 {
			continue
		}
		out = append(out, CategoryBreakdown{
			Category:         labelOrUnknown(row.Dimension),
			TotalQuestions:   int(row.TotalCount),
			CorrectQuestions: int(row.CorrectCount),
			Accuracy:         row.AccuracyPct,
		})
	}
	return out
}

func formatServicePerformance(rows []repositories.PerformanceRow) []ServiceBreakdown {
	out := make([]ServiceBreakdown, 0, len(rows))
	for _, row := range rows {
		if row.TotalCount == 0 {
			continue
		}
		out = append(out, ServiceBreakdown{
			Service:          labelOrUnknown(row.Dimension),
			TotalQuestions:   int(row.TotalCount),
			CorrectQuestions: int(row.CorrectCount),
			Accuracy:         row.AccuracyPct,
		})
	}
	return out
}

func formatDifficultyBreakdown(rows []repositories.PerformanceRow, timings []repositories.TimeByDifficultyRow) []DifficultyBreakdown {
	avgByLevel := make(map[string]float64, len(timings))
	for _, t := range timings {
		avgByLevel[t.Level] = t.AverageTime
	}

	out := make([]DifficultyBreakdown, 0, len(rows))
	for _, row := range rows {
		if row.TotalCount == 0 {
			continue
		}
		out = append(out, DifficultyBreakdown{
			Level:            labelOrUnknown(row.Dimension),
			TotalQuestions:   int(row.TotalCount),
			CorrectQuestions: int(row.CorrectCount),
			Accuracy:         row.AccuracyPct,
			AverageTime:      avgByLevel[row.Dimension],
		})
	}
	return out
}

func formatTimeAnalysis(metrics TimeMetrics) TimeAnalysis {
	byDifficulty := make([]DifficultyTiming, 0, len(metrics.TimeByDifficulty))
	for _, t := range metrics.TimeByDifficulty {
		byDifficulty = append(byDifficulty, DifficultyTiming{
			Level:          labelOrUnknown(t.Level),
			AverageSeconds: t.AverageTime,
			Formatted:      formatSeconds(t.AverageTime),
		})
	}

	return TimeAnalysis{
		Total:              newTimeSpent(float64(metrics.TotalTimeSecs)),
		AveragePerQuestion: newTimeSpent(metrics.AverageTimePerQuestion),
		ByDifficulty:       byDifficulty,
	}
}

// formatProgressHistory reverses the newest-first attempt order to
// oldest-first and computes each entry's improvement against the previous
// score. The oldest entry's improvement is defined as 0.
func formatProgressHistory(attempts []*models.QuizAttempt) []ProgressPoint {
	out := make([]ProgressPoint, 0, len(attempts))
	for i := len(attempts) - 1; i >= 0; i-- {
		a := attempts[i]

		date := a.StartedAt.UTC().Format(time.RFC3339)
		if a.CompletedAt != nil {
			date = a.CompletedAt.UTC().Format(time.RFC3339)
		}

		improvement := 0.0
		if len(out) > 0 {
			improvement = a.PercentageScore - out[len(out)-1].Score
		}

		out = append(out, ProgressPoint{
			TestID:      a.ID,
			TestName:    a.Quiz.Title,
			Score:       a.PercentageScore,
			Date:        date,
			Improvement: improvement,
		})
	}
	return out
}

func formatQuestionDetails(attempt *models.QuizAttempt) []QuestionDetail {
	out := make([]QuestionDetail, 0, len(attempt.Questions))
	for _, qa := range attempt.Questions {
		detail := QuestionDetail{
			ID:            qa.QuestionID,
			Content:       qa.Question.Content,
			Difficulty:    string(qa.Question.DifficultyLevel),
			IsCorrect:     qa.IsCorrect,
			TimeSpent:     newTimeSpent(float64(qa.TimeSpentSecs)),
			UserAnswer:    splitAnswers(qa.UserAnswer),
			CorrectAnswer: qa.Question.CorrectAnswer,
		}
		if detail.CorrectAnswer == nil {
			detail.CorrectAnswer = []string{}
		}
		if qa.Question.Category != nil {
			name := qa.Question.Category.Name
			detail.Category = &name
		}
		if qa.Question.AwsService != "" {
			service := qa.Question.AwsService
			detail.Service = &service
		}
		out = append(out, detail)
	}
	return out
}

func newTimeSpent(seconds float64) TimeSpent {
	return TimeSpent{
		Seconds:   seconds,
		Formatted: formatSeconds(seconds),
	}
}

// formatSeconds renders a human-readable duration like "1h 25m" or "45s".
func formatSeconds(seconds float64) string {
	total := int(seconds)
	if total <= 0 {
		return "0s"
	}

	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 && hours == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	return strings.Join(parts, " ")
}

func splitAnswers(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, ",")
}

func labelOrUnknown(label string) string {
	if label == "" {
		return "Unknown"
	}
	return label
}
