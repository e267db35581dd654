package services

import (
	"context"
	"fmt"

	"github.com/certprep-labs/analysis-service/internal/utils"
	"github.com/xuri/excelize/v2"
)

// ExportService renders a stored analysis report as a downloadable workbook.
type ExportService interface {
	ExportReportToExcel(ctx context.Context, userID string) ([]byte, error)
}

type exportService struct {
	reports ReportService
	logger  utils.Logger
}

func NewExportService(reports ReportService, logger utils.Logger) ExportService {
	return &exportService{
		reports: reports,
		logger:  logger,
	}
}

// ExportReportToExcel fetches the user's current report (served from the
// store, never force-regenerated) and lays it out across four sheets.
func (s *exportService) ExportReportToExcel(ctx context.Context, userID string) ([]byte, error) {
	result, err := s.reports.GetCachedAnalysis(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeSummarySheet(f, result); err != nil {
		return nil, err
	}
	if err := s.writeCategorySheet(f, &result.Data); err != nil {
		return nil, err
	}
	if err := s.writeTopicsSheet(f, &result.Data); err != nil {
		return nil, err
	}
	if err := s.writeStudyPlanSheet(f, &result.Data); err != nil {
		return nil, err
	}

	// Drop the default sheet so Summary opens first.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to finalize workbook: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Report exported", "user_id", userID, "bytes", buf.Len())

	return buf.Bytes(), nil
}

func (s *exportService) writeSummarySheet(f *excelize.File, result *AnalysisReportResult) error {
	const sheetName = "Summary"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	data := &result.Data

	rows := [][]interface{}{
		{"Generated At", result.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Expires At", result.ExpiresAt.Format("2006-01-02 15:04:05")},
		{"Test Name", data.Summary.TestName},
		{"Test Date", data.Summary.TestDate},
		{"Overall Score", data.Summary.OverallScore},
		{"Total Questions", data.Summary.TotalQuestions},
		{"Correct Answers", data.Summary.CorrectAnswers},
		{"Incorrect Answers", data.Summary.IncorrectAnswers},
		{"Time Spent", data.Summary.TimeSpent},
		{"Improvement", data.Summary.Improvement},
		{"Certification Readiness", data.CertificationReadiness},
	}

	for rowIndex, row := range rows {
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+1)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	strengthsStart := len(rows) + 2
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", strengthsStart), "Strengths")
	for i, item := range data.Strengths {
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", strengthsStart+i), item)
	}

	weaknessesStart := strengthsStart + len(data.Strengths) + 1
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", weaknessesStart), "Weaknesses")
	for i, item := range data.Weaknesses {
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", weaknessesStart+i), item)
	}

	return nil
}

func (s *exportService) writeCategorySheet(f *excelize.File, data *ReportData) error {
	const sheetName = "Category Scores"

	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headers := []string{"Category", "Score", "Questions"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, score := range data.CategoryScores {
		row := []interface{}{score.Name, score.Score, score.Questions}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	return nil
}

func (s *exportService) writeTopicsSheet(f *excelize.File, data *ReportData) error {
	const sheetName = "Missed Topics"

	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headers := []string{"Topic", "Missed Count", "Importance"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, topic := range data.TopMissedTopics {
		row := []interface{}{topic.Topic, topic.Count, topic.Importance}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	return nil
}

func (s *exportService) writeStudyPlanSheet(f *excelize.File, data *ReportData) error {
	const sheetName = "Study Plan"

	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headers := []string{"Title", "Priority", "Description", "Resources"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, item := range data.StudyPlan {
		row := []interface{}{item.Title, item.Priority, item.Description, joinList(item.Resources)}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	return nil
}

func joinList(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += "; "
		}
		out += item
	}
	return out
}
