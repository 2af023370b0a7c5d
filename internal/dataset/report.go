package dataset

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"roleplay-insights-go/internal/scoring"
	"roleplay-insights-go/internal/types"
)

const (
	sessionsSheet = "Sessions"
	summarySheet  = "Summary"
)

var sessionHeader = []any{
	"Session ID", "Created At", "Scenario", "Language", "Overall", "Goal Score",
	"Feedback Generated", "Video Analyzed", "Video Skip Reason",
	"Reference Checked", "Related / Checked", "Reference Skip Reason", "Action",
}

// WriteReport saves one row per analysis record plus a summary sheet.
func WriteReport(path string, records []types.AnalysisRecord, sum scoring.Summary, card types.ActionCard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sessionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sessionsSheet, "A1", &sessionHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		row := recordRow(rec)
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sessionsSheet, cellRef, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	summary := [][]any{
		{"Sessions", sum.Sessions},
		{"Average Overall", sum.AvgOverall},
		{"Average Goal Score", sum.AvgGoalScore},
		{"Weakest Skill", sum.WeakestSkill},
		{"Default Feedback", sum.DefaultFeedback},
		{"Video Analyzed", sum.VideoAnalyzed},
		{"Reference Checked", sum.ReferenceChecked},
		{"Reference Related Rate", sum.ReferenceRelated},
		{"Insight", card.Insight},
		{"Action", card.Action},
		{"Impact", card.Impact},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func recordRow(rec types.AnalysisRecord) []any {
	goalScore := 0
	if rec.GoalResults != nil {
		goalScore = rec.GoalResults.GoalScore
	}
	related := ""
	if rec.ReferenceCheck != nil {
		related = fmt.Sprintf("%d / %d", rec.ReferenceCheck.Summary.RelatedCount, rec.ReferenceCheck.Summary.CheckedMessages)
	}
	action := ""
	if rec.ActionCard != nil {
		action = rec.ActionCard.Action
	}
	return []any{
		rec.SessionID, rec.CreatedAt, rec.ScenarioID, rec.Language, rec.OverallScore, goalScore,
		rec.FeedbackGenerated, rec.VideoAnalyzed, rec.VideoSkipReason,
		rec.ReferenceChecked, related, rec.ReferenceSkipReason, action,
	}
}
