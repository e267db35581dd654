package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/certprep-labs/analysis-service/internal/cache"
	"github.com/certprep-labs/analysis-service/internal/events"
	"github.com/certprep-labs/analysis-service/internal/models"
	"github.com/certprep-labs/analysis-service/internal/repositories"
	"github.com/certprep-labs/analysis-service/internal/utils"
	"github.com/google/uuid"
)

// Reports expire at the next weekly boundary: Friday 08:00 UTC, matching the
// scheduled refresh window.
const (
	reportExpiryWeekday = time.Friday
	reportExpiryHour    = 8
)

const eventSource = "analysis-service"

// AnalysisReportResult is what callers of the report store receive.
type AnalysisReportResult struct {
	Data        ReportData `json:"data"`
	Cached      bool       `json:"cached"`
	Temporary   bool       `json:"temporary,omitempty"` // generated but not persisted
	GeneratedAt time.Time  `json:"generated_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// RefreshOutcome is one user's result within a batch refresh.
type RefreshOutcome struct {
	UserID  string `json:"user_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RefreshSummary tallies a batch refresh run.
type RefreshSummary struct {
	Total     int              `json:"total"`
	Refreshed int              `json:"refreshed"`
	Failed    int              `json:"failed"`
	Outcomes  []RefreshOutcome `json:"outcomes"`
}

// ReportService serves analysis reports from the weekly-expiring store,
// generating through the orchestrator on miss or forced refresh.
type ReportService interface {
	GetCachedAnalysis(ctx context.Context, userID string, forceRefresh bool) (*AnalysisReportResult, error)
	RefreshAllExpiredReports(ctx context.Context) (*RefreshSummary, error)
}

type reportService struct {
	repo      repositories.Repository
	analysis  AnalysisService
	cache     cache.CacheService
	publisher events.EventPublisher
	logger    utils.Logger
	now       func() time.Time
}

func NewReportService(
	repo repositories.Repository,
	analysis AnalysisService,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger utils.Logger,
) ReportService {
	return &reportService{
		repo:      repo,
		analysis:  analysis,
		cache:     cacheService,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// cachedReportEntry is the redis fast-path representation of a stored report.
type cachedReportEntry struct {
	ReportID    uint       `json:"report_id"`
	Data        ReportData `json:"data"`
	GeneratedAt time.Time  `json:"generated_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

func reportCacheKey(userID string) string {
	return "analysis:report:" + userID
}

// GetCachedAnalysis returns the user's current report. Without forceRefresh
// it serves the newest unexpired stored record (redis first, then the
// database) and touches LastRequestedAt; otherwise it regenerates through the
// orchestrator and persists a fresh record.
func (s *reportService) GetCachedAnalysis(ctx context.Context, userID string, forceRefresh bool) (*AnalysisReportResult, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	now := s.now()

	if !forceRefresh {
		if result := s.lookupCached(ctx, userID, now); result != nil {
			return result, nil
		}
	}

	return s.generateAndStore(ctx, userID)
}

func (s *reportService) lookupCached(ctx context.Context, userID string, now time.Time) *AnalysisReportResult {
	if s.cache != nil {
		var entry cachedReportEntry
		err := s.cache.Get(ctx, reportCacheKey(userID), &entry)
		if err == nil && entry.ExpiresAt.After(now) {
			// Best effort; a failed touch must not hide a valid report.
			if err := s.repo.Report().TouchLastRequested(ctx, entry.ReportID, now); err != nil {
				s.logger.Warn("Failed to update last requested timestamp", "user_id", userID, "error", err)
			}
			return &AnalysisReportResult{
				Data:        entry.Data,
				Cached:      true,
				GeneratedAt: entry.GeneratedAt,
				ExpiresAt:   entry.ExpiresAt,
			}
		}
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Report cache lookup failed", "user_id", userID, "error", err)
		}
	}

	record, err := s.repo.Report().GetLatestUnexpired(ctx, userID, now)
	if err != nil {
		s.logger.Error("Failed to look up stored report", "user_id", userID, "error", err)
		return nil
	}
	if record == nil {
		return nil
	}

	var data ReportData
	if err := json.Unmarshal(record.ReportData, &data); err != nil {
		// An undecodable stored report is treated as a miss and regenerated.
		s.logger.Error("Stored report is undecodable", "user_id", userID, "report_id", record.ID, "error", err)
		return nil
	}

	if err := s.repo.Report().TouchLastRequested(ctx, record.ID, now); err != nil {
		s.logger.Warn("Failed to update last requested timestamp", "user_id", userID, "error", err)
	}

	s.primeCache(ctx, userID, record.ID, &data, record.GeneratedAt, record.ExpiresAt, now)

	return &AnalysisReportResult{
		Data:        data,
		Cached:      true,
		GeneratedAt: record.GeneratedAt,
		ExpiresAt:   record.ExpiresAt,
	}
}

func (s *reportService) generateAndStore(ctx context.Context, userID string) (*AnalysisReportResult, error) {
	data, err := s.analysis.RunFullAnalysis(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := NextWeeklyBoundary(now)

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode report data: %w", err)
	}

	record := &models.AnalysisReport{
		UserID:      userID,
		ReportData:  encoded,
		GeneratedAt: now,
		ExpiresAt:   expiresAt,
		Latest:      true,
	}

	// Demote-then-create is intentionally not serialized per user: records
	// are append-only and readers always take the newest unexpired one, so a
	// concurrent duplicate is wasted work rather than corruption.
	if err := s.repo.Report().DemoteLatest(ctx, userID); err != nil {
		s.logger.Error("Failed to demote previous reports", "user_id", userID, "error", err)
	}

	if err := s.repo.Report().Create(ctx, record); err != nil {
		// The analysis itself succeeded; hand the report back even though it
		// could not be stored.
		s.logger.Error("Failed to store analysis report", "user_id", userID, "error", err)
		return &AnalysisReportResult{
			Data:        *data,
			Temporary:   true,
			GeneratedAt: now,
			ExpiresAt:   expiresAt,
		}, nil
	}

	s.primeCache(ctx, userID, record.ID, data, now, expiresAt, now)
	s.publishGenerated(ctx, userID, record, data)

	return &AnalysisReportResult{
		Data:        *data,
		Cached:      false,
		GeneratedAt: now,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *reportService) primeCache(ctx context.Context, userID string, reportID uint, data *ReportData, generatedAt, expiresAt, now time.Time) {
	if s.cache == nil {
		return
	}
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return
	}
	entry := cachedReportEntry{
		ReportID:    reportID,
		Data:        *data,
		GeneratedAt: generatedAt,
		ExpiresAt:   expiresAt,
	}
	if err := s.cache.Set(ctx, reportCacheKey(userID), entry, ttl); err != nil {
		s.logger.Warn("Failed to prime report cache", "user_id", userID, "error", err)
	}
}

func (s *reportService) publishGenerated(ctx context.Context, userID string, record *models.AnalysisReport, data *ReportData) {
	if s.publisher == nil {
		return
	}
	event := &events.ReportEvent{
		ID:                     uuid.NewString(),
		Type:                   events.EventReportGenerated,
		Source:                 eventSource,
		Version:                "1.0",
		Timestamp:              s.now(),
		UserID:                 userID,
		ReportID:               record.ID,
		GeneratedAt:            &record.GeneratedAt,
		ExpiresAt:              &record.ExpiresAt,
		CertificationReadiness: data.CertificationReadiness,
	}
	if err := s.publisher.PublishReportEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish report event", "user_id", userID, "error", err)
	}
}

// RefreshAllExpiredReports regenerates reports for every user whose latest
// record is expired or missing. Each user is processed independently: one
// failure never blocks the rest.
func (s *reportService) RefreshAllExpiredReports(ctx context.Context) (*RefreshSummary, error) {
	userIDs, err := s.repo.Report().UsersNeedingRefresh(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list users needing refresh: %w", err)
	}

	summary := &RefreshSummary{
		Total:    len(userIDs),
		Outcomes: make([]RefreshOutcome, 0, len(userIDs)),
	}

	for _, userID := range userIDs {
		if _, err := s.generateAndStore(ctx, userID); err != nil {
			summary.Failed++
			summary.Outcomes = append(summary.Outcomes, RefreshOutcome{
				UserID:  userID,
				Success: false,
				Error:   err.Error(),
			})
			s.logger.Error("Report refresh failed", "user_id", userID, "error", err)
			s.publishRefreshFailed(ctx, userID, err)
			continue
		}
		summary.Refreshed++
		summary.Outcomes = append(summary.Outcomes, RefreshOutcome{
			UserID:  userID,
			Success: true,
		})
	}

	s.logger.Info("Batch report refresh finished",
		"total", summary.Total,
		"refreshed", summary.Refreshed,
		"failed", summary.Failed)

	return summary, nil
}

func (s *reportService) publishRefreshFailed(ctx context.Context, userID string, cause error) {
	if s.publisher == nil {
		return
	}
	event := &events.ReportEvent{
		ID:        uuid.NewString(),
		Type:      events.EventReportRefreshFailed,
		Source:    eventSource,
		Version:   "1.0",
		Timestamp: s.now(),
		UserID:    userID,
		Error:     cause.Error(),
	}
	if err := s.publisher.PublishReportEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish refresh-failed event", "user_id", userID, "error", err)
	}
}

// NextWeeklyBoundary returns the next occurrence of the weekly expiry point
// (Friday 08:00 UTC) strictly after now. When now already falls on the expiry
// weekday the boundary is a full week out, never the same day.
func NextWeeklyBoundary(now time.Time) time.Time {
	now = now.UTC()
	days := (int(reportExpiryWeekday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	next := now.AddDate(0, 0, days)
	return time.Date(next.Year(), next.Month(), next.Day(), reportExpiryHour, 0, 0, 0, time.UTC)
}
