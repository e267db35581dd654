package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/certprep-labs/analysis-service/internal/events"
	"github.com/certprep-labs/analysis-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingAnalysis is a canned orchestrator that tallies runs per user.
type countingAnalysis struct {
	report  *ReportData
	failFor map[string]error
	calls   map[string]int
}

func newCountingAnalysis() *countingAnalysis {
	return &countingAnalysis{
		report: &ReportData{
			Summary:                SummaryResult{TestName: "Practice Test 3", OverallScore: 80},
			Strengths:              []string{"S3 fundamentals"},
			CertificationReadiness: 72,
		},
		failFor: map[string]error{},
		calls:   map[string]int{},
	}
}

func (c *countingAnalysis) RunFullAnalysis(_ context.Context, userID string) (*ReportData, error) {
	c.calls[userID]++
	if err, ok := c.failFor[userID]; ok {
		return nil, err
	}
	out := *c.report
	return &out, nil
}

func (c *countingAnalysis) totalCalls() int {
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

type reportServiceFixture struct {
	svc       *reportService
	repo      *fakeRepository
	cache     *fakeCache
	analysis  *countingAnalysis
	publisher *events.MockEventPublisher
}

func newReportServiceFixture(now time.Time) *reportServiceFixture {
	f := &reportServiceFixture{
		repo:      newFakeRepository(),
		cache:     newFakeCache(),
		analysis:  newCountingAnalysis(),
		publisher: events.NewMockEventPublisher(nil),
	}
	f.svc = NewReportService(f.repo, f.analysis, f.cache, f.publisher, testLogger()).(*reportService)
	f.svc.now = func() time.Time { return now }
	return f
}

func seedReport(f *reportServiceFixture, userID string, generatedAt, expiresAt time.Time) *models.AnalysisReport {
	data, _ := json.Marshal(&ReportData{
		Summary: SummaryResult{TestName: "Stored Test", OverallScore: 65},
	})
	record := &models.AnalysisReport{
		UserID:      userID,
		ReportData:  data,
		GeneratedAt: generatedAt,
		ExpiresAt:   expiresAt,
		Latest:      true,
	}
	_ = f.repo.report.Create(context.Background(), record)
	return record
}

func TestNextWeeklyBoundary(t *testing.T) {
	// 2025-06-02 is a Monday, 2025-06-06 the following Friday.
	tests := []struct {
		name     string
		now      time.Time
		expected time.Time
	}{
		{
			name:     "monday morning",
			now:      time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 6, 6, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "thursday night",
			now:      time.Date(2025, 6, 5, 23, 30, 0, 0, time.UTC),
			expected: time.Date(2025, 6, 6, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "friday before the hour still jumps a week",
			now:      time.Date(2025, 6, 6, 7, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 6, 13, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "friday exactly on the boundary",
			now:      time.Date(2025, 6, 6, 8, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 6, 13, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "friday evening",
			now:      time.Date(2025, 6, 6, 20, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 6, 13, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "saturday",
			now:      time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 6, 13, 8, 0, 0, 0, time.UTC),
		},
		{
			// Saturday 02:00 local is still Friday afternoon in UTC.
			name:     "non-utc input is normalized",
			now:      time.Date(2025, 6, 7, 2, 0, 0, 0, time.FixedZone("UTC+12", 12*3600)),
			expected: time.Date(2025, 6, 13, 8, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextWeeklyBoundary(tt.now)
			assert.Equal(t, tt.expected, got)
			assert.True(t, got.After(tt.now.UTC()), "boundary must be strictly in the future")
		})
	}
}

func TestGetCachedAnalysis_EmptyUserID(t *testing.T) {
	f := newReportServiceFixture(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))

	_, err := f.svc.GetCachedAnalysis(context.Background(), "", false)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestGetCachedAnalysis_GeneratesOnMiss(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newReportServiceFixture(now)

	result, err := f.svc.GetCachedAnalysis(context.Background(), "user-1", false)
	require.NoError(t, err)

	assert.False(t, result.Cached)
	assert.False(t, result.Temporary)
	assert.Equal(t, "Practice Test 3", result.Data.Summary.TestName)
	assert.Equal(t, NextWeeklyBoundary(now), result.ExpiresAt)
	assert.Equal(t, 1, f.analysis.totalCalls())

	// The record is persisted as the new latest.
	require.Len(t, f.repo.report.reports, 1)
	stored := f.repo.report.reports[0]
	assert.True(t, stored.Latest)
	assert.Equal(t, NextWeeklyBoundary(now), stored.ExpiresAt)

	// Redis is primed and the lifecycle event published.
	assert.Equal(t, 1, f.cache.sets)
	published := f.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventReportGenerated, published[0].Type)
	assert.Equal(t, 72, published[0].CertificationReadiness)
}

func TestGetCachedAnalysis_ServesStoredReport(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newReportServiceFixture(now)
	record := seedReport(f, "user-1", now.Add(-24*time.Hour), NextWeeklyBoundary(now))

	result, err := f.svc.GetCachedAnalysis(context.Background(), "user-1", false)
	require.NoError(t, err)

	assert.True(t, result.Cached)
	assert.Equal(t, "Stored Test", result.Data.Summary.TestName)
	assert.Equal(t, 0, f.analysis.totalCalls(), "no regeneration on a store hit")

	// The hit is recorded for usage tracking.
	assert.Equal(t, 1, f.repo.report.touchCalls)
	assert.Equal(t, record.ID, f.repo.report.lastTouchID)
	require.NotNil(t, record.LastRequestedAt)
	assert.Equal(t, now, *record.LastRequestedAt)

	// The DB hit back-fills redis for next time.
	assert.Equal(t, 1, f.cache.sets)
}

func TestGetCachedAnalysis_RedisFastPath(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newReportServiceFixture(now)

	entry := cachedReportEntry{
		ReportID:    7,
		Data:        ReportData{Summary: SummaryResult{TestName: "Cached Test"}},
		GeneratedAt: now.Add(-time.Hour),
		ExpiresAt:   NextWeeklyBoundary(now),
	}
	require.NoError(t, f.cache.Set(context.Background(), reportCacheKey("user-1"), entry, time.Hour))
	f.cache.sets = 0

	result, err := f.svc.GetCachedAnalysis(context.Background(), "user-1", false)
	require.NoError(t, err)

	assert.True(t, result.Cached)
	assert.Equal(t, "Cached Test", result.Data.Summary.TestName)
	assert.Equal(t, 0, f.analysis.totalCalls())
	assert.Equal(t, uint(7), f.repo.report.lastTouchID)
	assert.Equal(t, 0, f.cache.sets, "no rewrite on a redis hit")
}

func TestGetCachedAnalysis_ExpiredStoredReportRegenerates(t *testing.T) {
	now := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
	f := newReportServiceFixture(now)
	seedReport(f, "user-1", now.Add(-10*24*time.Hour), now.Add(-time.Hour))

	result, err := f.svc.GetCachedAnalysis(context.Background(), "user-1", false)
	require.NoError(t, err)

	assert.False(t, result.Cached)
	assert.Equal(t, 1, f.analysis.totalCalls())
}

func TestGetCachedAnalysis_ForceRefresh(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newReportServiceFixture(now)
	old := seedReport(f, "user-1", now.Add(-24*time.Hour), NextWeeklyBoundary(now))

	result, err := f.svc.GetCachedAnalysis(context.Background(), "user-1", true)
	require.NoError(t, err)

	assert.False(t, result.Cached)
	assert.Equal(t, 1, f.analysis.totalCalls())

	// The previous record is demoted; the new one is the only latest.
	assert.False(t, old.Latest)
	require.Len(t, f.repo.report.reports, 2)
	assert.True(t, f.repo.report.reports[1].Latest)
}

func TestGetCachedAnalysis_StoreFailureReturnsTemporary(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newReportServiceFixture(now)
	f.repo.report.createErr = errors.New("disk full")

	result, err := f.svc.GetCachedAnalysis(context.Background(), "user-1", false)
	require.NoError(t, err, "a storage failure must not discard a successful analysis")

	assert.True(t, result.Temporary)
	assert.Empty(t, f.publisher.GetPublishedEvents(), "no event for an unpersisted report")
}

func TestGetCachedAnalysis_AnalysisErrorPropagates(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	f := newReportServiceFixture(now)
	f.analysis.failFor["user-1"] = ErrNoDataAvailable

	_, err := f.svc.GetCachedAnalysis(context.Background(), "user-1", false)
	assert.ErrorIs(t, err, ErrNoDataAvailable)
	assert.Empty(t, f.repo.report.reports)
}

func TestRefreshAllExpiredReports_IsolatesFailures(t *testing.T) {
	now := time.Date(2025, 6, 6, 8, 0, 0, 0, time.UTC)
	f := newReportServiceFixture(now)
	f.repo.report.refreshUsers = []string{"user-1", "user-2", "user-3"}
	f.analysis.failFor["user-2"] = ErrNoDataAvailable

	summary, err := f.svc.RefreshAllExpiredReports(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Refreshed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Outcomes, 3)
	assert.False(t, summary.Outcomes[1].Success)
	assert.Equal(t, "user-2", summary.Outcomes[1].UserID)

	// Every user is attempted despite the middle failure.
	assert.Equal(t, 3, f.analysis.totalCalls())
	require.Len(t, f.repo.report.reports, 2)

	// Two generated events plus one refresh-failed event.
	var generated, failed int
	for _, event := range f.publisher.GetPublishedEvents() {
		switch event.Type {
		case events.EventReportGenerated:
			generated++
		case events.EventReportRefreshFailed:
			failed++
		}
	}
	assert.Equal(t, 2, generated)
	assert.Equal(t, 1, failed)
}

func TestRefreshAllExpiredReports_ListError(t *testing.T) {
	f := newReportServiceFixture(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	f.repo.report.refreshErr = errors.New("query failed")

	_, err := f.svc.RefreshAllExpiredReports(context.Background())
	assert.Error(t, err)
}
