package services

import (
	"context"
	"fmt"
	"time"

	"github.com/certprep-labs/analysis-service/internal/llm"
	"github.com/certprep-labs/analysis-service/internal/utils"
	"golang.org/x/sync/errgroup"
)

// timeBudget carries the two independent clocks of a run: the per-module
// call budget and the whole-pipeline budget. The pipeline budget cancels
// in-flight module calls when it fires.
type timeBudget struct {
	perModule time.Duration
	pipeline  time.Duration
}

// AnalysisService orchestrates the full multi-module AI analysis for a user.
type AnalysisService interface {
	RunFullAnalysis(ctx context.Context, userID string) (*ReportData, error)
}

type analysisService struct {
	testData TestDataService
	provider llm.Provider
	logger   utils.Logger
	budget   timeBudget
}

func NewAnalysisService(
	testData TestDataService,
	provider llm.Provider,
	logger utils.Logger,
	moduleTimeout time.Duration,
	pipelineTimeout time.Duration,
) AnalysisService {
	if moduleTimeout <= 0 {
		moduleTimeout = llm.DefaultTimeout
	}
	if pipelineTimeout <= 0 {
		pipelineTimeout = 90 * time.Second
	}
	return &analysisService{
		testData: testData,
		provider: provider,
		logger:   logger,
		budget: timeBudget{
			perModule: moduleTimeout,
			pipeline:  pipelineTimeout,
		},
	}
}

// RunFullAnalysis executes the module graph in six stages. Stages run in
// strict dependency order; modules inside a stage run concurrently since they
// only read already-completed prior stages. Any single module failure fails
// the whole run: no partial report is ever returned.
func (s *analysisService) RunFullAnalysis(ctx context.Context, userID string) (*ReportData, error) {
	ctx, cancel := context.WithTimeout(ctx, s.budget.pipeline)
	defer cancel()

	started := time.Now()

	data, err := s.testData.GetUserTestData(ctx, userID)
	if err != nil {
		return nil, err
	}

	formatted, err := FormatTestData(data)
	if err != nil {
		return nil, err
	}

	report := &ReportData{}

	// Stage 1: summary. Everything else depends on it, directly or
	// transitively.
	if err := s.run(ctx, "summary", summaryPrompt, formatted, nil, &report.Summary); err != nil {
		return nil, err
	}

	// Stage 2: the four modules that need only the summary.
	summaryCtx := moduleContext{"summary": report.Summary}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.run(gctx, "categoryScores", categoryScoresPrompt, formatted, summaryCtx, &report.CategoryScores)
	})
	g.Go(func() error {
		return s.run(gctx, "strengths", strengthsPrompt, formatted, summaryCtx, &report.Strengths)
	})
	g.Go(func() error {
		return s.run(gctx, "performanceHistory", performanceHistoryPrompt, formatted, summaryCtx, &report.PerformanceHistory)
	})
	g.Go(func() error {
		return s.run(gctx, "timeDistribution", timeDistributionPrompt, formatted, summaryCtx, &report.TimeDistribution)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Stage 3: weaknesses.
	if err := s.run(ctx, "weaknesses", weaknessesPrompt, formatted, moduleContext{
		"summary":   report.Summary,
		"strengths": report.Strengths,
	}, &report.Weaknesses); err != nil {
		return nil, err
	}

	// Stage 4: recommendations and top missed topics.
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.run(gctx, "recommendations", recommendationsPrompt, formatted, moduleContext{
			"summary":    report.Summary,
			"strengths":  report.Strengths,
			"weaknesses": report.Weaknesses,
		}, &report.Recommendations)
	})
	g.Go(func() error {
		return s.run(gctx, "topMissedTopics", topMissedTopicsPrompt, formatted, moduleContext{
			"summary":    report.Summary,
			"weaknesses": report.Weaknesses,
		}, &report.TopMissedTopics)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Stage 5: certification readiness.
	if err := s.run(ctx, "certificationReadiness", certificationReadinessPrompt, formatted, moduleContext{
		"summary":         report.Summary,
		"strengths":       report.Strengths,
		"weaknesses":      report.Weaknesses,
		"topMissedTopics": report.TopMissedTopics,
	}, &report.CertificationReadiness); err != nil {
		return nil, err
	}

	// Stage 6: the two heavyweight synthesis modules.
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.run(gctx, "studyPlan", studyPlanPrompt, formatted, moduleContext{
			"summary":         report.Summary,
			"strengths":       report.Strengths,
			"weaknesses":      report.Weaknesses,
			"recommendations": report.Recommendations,
		}, &report.StudyPlan)
	})
	g.Go(func() error {
		return s.run(gctx, "detailedAnalysis", detailedAnalysisPrompt, formatted, moduleContext{
			"summary":                report.Summary,
			"strengths":              report.Strengths,
			"weaknesses":             report.Weaknesses,
			"recommendations":        report.Recommendations,
			"certificationReadiness": report.CertificationReadiness,
			"topMissedTopics":        report.TopMissedTopics,
			"timeDistribution":       report.TimeDistribution,
			"performanceHistory":     report.PerformanceHistory,
		}, &report.DetailedAnalysis)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("Analysis run completed",
		"user_id", userID,
		"model", s.provider.ModelID(),
		"duration", time.Since(started).String())

	return report, nil
}

func (s *analysisService) run(ctx context.Context, name, prompt string,
	formatted *FormattedTestData, extra moduleContext, out any) error {

	if err := runModule(ctx, s.provider, name, prompt, formatted, extra, s.budget, out); err != nil {
		// Raw model output stays out of the logs; the error text is enough
		// outside development.
		s.logger.Error("Analysis module failed", "module", name, "error", err)
		return fmt.Errorf("analysis failed: %w", err)
	}
	return nil
}
