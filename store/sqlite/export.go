package sqlite

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
)

// ErrFormatNotRendered is returned for export formats this backend
// accepts but does not render (pdf, excel).
var ErrFormatNotRendered = fmt.Errorf("%w: export format not rendered locally", generic.ErrInvalidInput)

var csvHeader = []string{
	"id", "user_id", "user_name", "department", "source_type", "target_type",
	"source_amount", "target_amount", "ratio", "status", "created_at", "processed_at", "processed_by",
}

// RenderCSV writes the report rows followed by the summary lines.
func RenderCSV(report quota.TransferReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range report.Rows {
		processed := ""
		if !r.ProcessedAt.IsZero() {
			processed = r.ProcessedAt.Format(generic.DateLayout)
		}
		if err := w.Write([]string{
			r.ID, string(r.UserID), r.UserName, r.Department,
			string(r.SourceType), string(r.TargetType),
			r.SourceAmount.String(), r.TargetAmount.String(), r.Ratio.String(),
			string(r.Status), r.CreatedAt.Format(generic.DateLayout), processed, r.ProcessedBy,
		}); err != nil {
			return nil, err
		}
	}

	// Summary block, separated by an empty record
	summary := [][]string{
		{},
		{"summary", "total", strconv.Itoa(report.Summary.TotalTransfers), report.Summary.TotalDays.String()},
	}
	for _, section := range []struct {
		name  string
		lines []quota.ReportGroup
	}{
		{"leave_type", report.Summary.ByLeaveType},
		{"status", report.Summary.ByStatus},
		{"department", report.Summary.ByDepartment},
		{"month", report.Summary.ByMonth},
		{"user", report.Summary.ByUser},
	} {
		for _, g := range section.lines {
			summary = append(summary, []string{section.name, g.Key, strconv.Itoa(g.Count), g.Days.String()})
		}
	}
	if err := w.WriteAll(summary); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
