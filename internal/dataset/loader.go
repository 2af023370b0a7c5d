// Package dataset reads batch trigger workbooks and writes analysis reports.
package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"roleplay-insights-go/internal/logger"
	"roleplay-insights-go/internal/types"
)

// LoadTriggers reads analysis requests from the first sheet of an xlsx
// workbook. Columns are detected from the header row; rows without a
// session or user id are skipped.
func LoadTriggers(path string) ([]types.AnalysisRequest, error) {
	log := logger.New().Component("dataset.loader").WithField("path", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	sessionIdx, userIdx, langIdx := -1, -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "session"):
			if sessionIdx == -1 {
				sessionIdx = i
			}
		case strings.Contains(l, "user"):
			if userIdx == -1 {
				userIdx = i
			}
		case strings.Contains(l, "lang"):
			langIdx = i
		}
	}
	data := rows[1:]
	// headerless sheets: session, user, language
	if sessionIdx == -1 && userIdx == -1 {
		sessionIdx, userIdx, langIdx = 0, 1, 2
		data = rows
	}
	if sessionIdx == -1 || userIdx == -1 {
		return nil, fmt.Errorf("session and user columns required")
	}
	log.WithField("session_idx", sessionIdx).
		WithField("user_idx", userIdx).
		WithField("language_idx", langIdx).
		Debug("detected trigger columns")

	cell := func(r []string, i int) string {
		if i < 0 || i >= len(r) {
			return ""
		}
		return strings.TrimSpace(r[i])
	}

	var out []types.AnalysisRequest
	skipped := 0
	for _, r := range data {
		req := types.AnalysisRequest{
			SessionID: cell(r, sessionIdx),
			UserID:    cell(r, userIdx),
			Language:  cell(r, langIdx),
		}
		if req.SessionID == "" || req.UserID == "" {
			skipped++
			continue
		}
		out = append(out, req)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	log.WithField("triggers", len(out)).WithField("skipped", skipped).Info("triggers loaded")
	return out, nil
}
