package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/certprep-labs/analysis-service/internal/llm"
)

// ===== MODULE RESULT TYPES =====

// Each module decodes into a fixed type. The decode is the schema check the
// prompts alone cannot guarantee: a model reply with the wrong shape fails
// the run instead of flowing downstream untyped.

type SummaryResult struct {
	TestName         string  `json:"testName"`
	OverallScore     float64 `json:"overallScore"`
	TotalQuestions   int     `json:"totalQuestions"`
	CorrectAnswers   int     `json:"correctAnswers"`
	IncorrectAnswers int     `json:"incorrectAnswers"`
	TimeSpent        string  `json:"timeSpent"`
	TestDate         string  `json:"testDate"`
	Improvement      float64 `json:"improvement"`
}

type CategoryScore struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Questions int     `json:"questions"`
}

type TimeDistributionEntry struct {
	Category string  `json:"category"`
	Time     float64 `json:"time"`
	Count    int     `json:"count"`
}

type HistoryPoint struct {
	Test  string  `json:"test"`
	Score float64 `json:"score"`
}

type MissedTopic struct {
	Topic      string `json:"topic"`
	Count      int    `json:"count"`
	Importance string `json:"importance"`
}

type StudyPlanItem struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Resources   []string `json:"resources"`
	Priority    string   `json:"priority"`
}

// ReportData is the assembled multi-module report, keyed by module name in
// its JSON form.
type ReportData struct {
	Summary                SummaryResult           `json:"summary"`
	CategoryScores         []CategoryScore         `json:"categoryScores"`
	Strengths              []string                `json:"strengths"`
	Weaknesses             []string                `json:"weaknesses"`
	Recommendations        []string                `json:"recommendations"`
	TimeDistribution       []TimeDistributionEntry `json:"timeDistribution"`
	PerformanceHistory     []HistoryPoint          `json:"performanceHistory"`
	CertificationReadiness int                     `json:"certificationReadiness"`
	TopMissedTopics        []MissedTopic           `json:"topMissedTopics"`
	StudyPlan              []StudyPlanItem         `json:"studyPlan"`
	DetailedAnalysis       string                  `json:"detailedAnalysis"`
}

// ===== MODULE PROMPTS =====

const summaryPrompt = `
You are a world-class AWS Certification Coach with deep expertise in exam analytics.
Provide a concise statistical SUMMARY of the user's **most recent** practice test.

Return a VALID JSON object with EXACTLY these properties (no extras):
{
  "testName": string,
  "overallScore": number,
  "totalQuestions": number,
  "correctAnswers": number,
  "incorrectAnswers": number,
  "timeSpent": string,   // human-friendly (e.g. "1h 25m")
  "testDate": string,    // ISO-8601
  "improvement": number  // delta vs previous attempt
}

Output rules:
- The response MUST be valid JSON (no markdown, no code fences).
- Do **NOT** include explanations or any additional text.`

const categoryScoresPrompt = `
You are a world-class AWS Certification Coach. Analyse the user's test performance and produce a CATEGORY-LEVEL score breakdown for the **most recent** test only.

Return a JSON array where each element contains **exactly**:
{
  "name": string,   // Category name (never null or "Unknown")
  "score": number,  // 0-100 percentage
  "questions": number
}

Guidelines:
- Include all categories present; the array must not be empty.
- Values must be accurate and numeric (no strings for numbers).
- Output MUST be valid JSON with no markdown fences or additional commentary.`

const strengthsPrompt = `
You are a world-class AWS Certification Coach. Identify the user's TOP STRENGTHS (3-5 items) based on their practice-test data.

Return a JSON array of strings. Each string MUST be:
- Specific (mentioning the domain/category)
- Actionable (includes quantitative insight, e.g. "92% accuracy")

Constraints:
- Provide between 3 and 5 items.
- Output ONLY the JSON array - absolutely no markdown, code fences, or extra commentary.`

const weaknessesPrompt = `
You are a world-class AWS Certification Coach. Determine the user's KEY WEAKNESSES (3-5 areas) from their practice-test data.

Return a JSON array of strings. Requirements:
- Each item must be specific & actionable (e.g., "Needs improvement in Security domain - 63% accuracy").
- Provide between 3 and 5 items.
- Output MUST be valid JSON ONLY (no markdown/code fences, no additional commentary).`

const recommendationsPrompt = `
You are a world-class AWS Certification Coach. Using the user's SUMMARY, STRENGTHS and WEAKNESSES, craft FOUR (4) precise, actionable RECOMMENDATIONS that will deliver the greatest performance lift.

Return a JSON array of exactly 4 strings. Each string must be:
- Specific to an AWS domain/topic.
- Immediately actionable (e.g., "Review IAM policy evaluation logic with AWS Docs link").

Output ONLY the JSON array - no markdown, no code fences, no commentary.`

const timeDistributionPrompt = `
You are a world-class AWS Certification Coach. Provide a TIME DISTRIBUTION breakdown for the user's **most recent** practice test.

Return a JSON array (minimum 3 items) with the exact shape:
{
  "category": string,  // e.g., difficulty level or AWS domain
  "time": number,      // seconds spent
  "count": number      // # of questions in that category
}

Guidelines:
- Focus on the most significant categories.
- Values must be numeric.
- Output must be valid JSON only - no markdown, code fences, or commentary.`

const performanceHistoryPrompt = `
You are a world-class AWS Certification Coach. Produce a chronological PERFORMANCE HISTORY of the user's practice tests (oldest to newest).

Return a JSON array where each element is:
{
  "test": string,  // Name or ID
  "score": number  // 0-100 percentage
}

The array must include every available attempt (up to 5).
Output ONLY the JSON array - no markdown fences, no commentary.`

const topMissedTopicsPrompt = `
You are a world-class AWS Certification Coach. Identify the TOP MISSED TOPICS across the user's recent practice tests.

Return a JSON array (minimum 3 items) where each element is:
{
  "topic": string,      // Topic name (never null/Unknown)
  "count": number,      // Questions missed
  "importance": "High" | "Medium" | "Low"
}

Rules:
- Focus on the most critical knowledge gaps.
- Array must not be empty.
- Output ONLY the JSON array (no markdown, code fences, or extra text).`

const certificationReadinessPrompt = `
You are a world-class AWS Certification Coach. Assess the user's overall READINESS for their target certification based on ALL available data.

Return ONE raw JSON number (integer 0-100) representing readiness
Rules:
- Output must be a bare number (e.g., 78) - no quotes.
- Do NOT include markdown, code fences, or any additional text.`

const studyPlanPrompt = `
You are a world-class AWS Certification Coach. Using the prior analyses (summary, strengths, weaknesses & recommendations) craft a PERSONALISED STUDY PLAN.

Return a JSON array where each item has EXACTLY:
{
  "title": string,
  "description": string,
  "resources": string[],   // include real publicly accessible URLs
  "priority": "High" | "Medium" | "Low"
}

Rules:
- Provide at least 2 items.
- The resources array must contain at least one URL per item.
- Output MUST be valid JSON only (no markdown/code fences, no commentary).`

const detailedAnalysisPrompt = `
You are a world-class AWS Certification Coach. Draft a COMPREHENSIVE HTML REPORT (at least 500 words) that analyses the user's performance trends, strengths, weaknesses, recommendations, readiness and study plan.
Provide substantial detail with specific examples and data points. Address the user as "you" and use a friendly tone. Avoid using "we" or "our".

Format:
- Use semantic HTML (e.g., <h2>, <p>, <ul>, <blockquote>) for readability.
- Address the user directly as "you" or with their name.

Output requirements:
- Return **only** a JSON string that contains the HTML (example: "<p>...</p>").
- Do NOT wrap the string in markdown/code fences.
- No additional commentary outside the JSON string.`

// ===== MODULE EXECUTION =====

// moduleContext holds sibling-module outputs merged into a module's payload.
// Only the fields a module declares it needs are passed in.
type moduleContext map[string]any

// runModule sends one module's prompt plus payload through the shared AI
// invocation helper and decodes the response into the module's result type.
func runModule(ctx context.Context, provider llm.Provider, name, prompt string,
	formatted *FormattedTestData, extra moduleContext, timeout timeBudget, out any) error {

	payload, err := buildPayload(formatted, extra)
	if err != nil {
		return fmt.Errorf("%s module: %w", name, err)
	}

	raw, err := llm.Invoke(ctx, provider, prompt, payload, timeout.perModule)
	if err != nil {
		return fmt.Errorf("%s module: %w", name, err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s module: %w", name, &llm.MalformedResponseError{
			Raw: string(raw),
			Err: err,
		})
	}
	return nil
}

// buildPayload merges the formatted document with the module's declared
// context fields into one JSON object.
func buildPayload(formatted *FormattedTestData, extra moduleContext) (map[string]any, error) {
	encoded, err := json.Marshal(formatted)
	if err != nil {
		return nil, fmt.Errorf("encode formatted data: %w", err)
	}

	payload := make(map[string]any)
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return nil, fmt.Errorf("decode formatted data: %w", err)
	}

	for key, value := range extra {
		payload[key] = value
	}
	return payload, nil
}
