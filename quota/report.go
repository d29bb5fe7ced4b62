package quota

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/warp/leave-quota/generic"
)

// =============================================================================
// REPORT OPTIONS
// =============================================================================

type GroupBy string

const (
	GroupByNone       GroupBy = ""
	GroupByUser       GroupBy = "user"
	GroupByDepartment GroupBy = "department"
	GroupByLeaveType  GroupBy = "leaveType"
	GroupByMonth      GroupBy = "month"
)

// ParseGroupBy accepts a groupBy value; empty means no extra grouping.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.TrimSpace(s)); g {
	case GroupByNone, GroupByUser, GroupByDepartment, GroupByLeaveType, GroupByMonth:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown groupBy %q", generic.ErrInvalidInput, s)
}

// ExportFormat is the rendering requested from the reporting backend.
type ExportFormat string

const (
	ExportPDF   ExportFormat = "pdf"
	ExportCSV   ExportFormat = "csv"
	ExportExcel ExportFormat = "excel"
)

// ParseExportFormat validates an export format; empty defaults to PDF.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return ExportPDF, nil
	case ExportPDF, ExportCSV, ExportExcel:
		return f, nil
	}
	return "", fmt.Errorf("%w: unsupported export format %q", generic.ErrInvalidInput, s)
}

// ContentType is the MIME type of the rendered export.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportCSV:
		return "text/csv"
	case ExportExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/pdf"
	}
}

// ReportOptions filter and group a transfer report. Zero values disable a
// filter.
type ReportOptions struct {
	StartDate   time.Time
	EndDate     time.Time
	LeaveTypes  []LeaveType
	Departments []string
	Statuses    []Status
	GroupBy     GroupBy
	Format      ExportFormat
}

// Validate checks the date range.
func (o ReportOptions) Validate() error {
	if !o.StartDate.IsZero() && !o.EndDate.IsZero() && o.EndDate.Before(o.StartDate) {
		return fmt.Errorf("%w: endDate before startDate", generic.ErrInvalidPeriod)
	}
	return nil
}

// Includes reports whether a row passes every filter. A leave type filter
// matches either side of the transfer.
func (o ReportOptions) Includes(r TransferRecord) bool {
	if !o.StartDate.IsZero() && r.CreatedAt.Before(generic.DayOf(o.StartDate).Time) {
		return false
	}
	if !o.EndDate.IsZero() && r.CreatedAt.After(generic.EndOfDay(o.EndDate.Year(), o.EndDate.Month(), o.EndDate.Day())) {
		return false
	}
	if len(o.LeaveTypes) > 0 && !slices.Contains(o.LeaveTypes, r.SourceType) && !slices.Contains(o.LeaveTypes, r.TargetType) {
		return false
	}
	if len(o.Departments) > 0 && !slices.Contains(o.Departments, r.Department) {
		return false
	}
	if len(o.Statuses) > 0 && !slices.Contains(o.Statuses, r.Status) {
		return false
	}
	return true
}

// =============================================================================
// REPORT
// =============================================================================

// ReportGroup is one summary line.
type ReportGroup struct {
	Key   string
	Label string
	Count int
	Days  generic.Amount
}

// ReportSummary totals a transfer report. Days count source amounts.
type ReportSummary struct {
	TotalTransfers int
	TotalDays      generic.Amount
	ByLeaveType    []ReportGroup // by source type
	ByStatus       []ReportGroup
	ByDepartment   []ReportGroup // GroupByDepartment only
	ByMonth        []ReportGroup // GroupByMonth only
	ByUser         []ReportGroup // GroupByUser only
}

// TransferReport is the filtered rows with their summary.
type TransferReport struct {
	Rows    []TransferRecord
	Summary ReportSummary
}

// BuildTransferReport filters rows and summarizes them. Rows keep their
// input order; groups are sorted by key.
func BuildTransferReport(rows []TransferRecord, opts ReportOptions) TransferReport {
	var kept []TransferRecord
	for _, r := range rows {
		if opts.Includes(r) {
			kept = append(kept, r)
		}
	}

	byType := newGrouper()
	byStatus := newGrouper()
	byDept := newGrouper()
	byMonth := newGrouper()
	byUser := newGrouper()

	summary := ReportSummary{TotalDays: zeroDays()}
	for _, r := range kept {
		summary.TotalTransfers++
		summary.TotalDays = summary.TotalDays.Add(r.SourceAmount)
		byType.add(string(r.SourceType), "", r.SourceAmount)
		byStatus.add(string(r.Status), "", r.SourceAmount)
		switch opts.GroupBy {
		case GroupByDepartment:
			byDept.add(r.Department, r.Department, r.SourceAmount)
		case GroupByMonth:
			byMonth.add(r.CreatedAt.Format("2006-01"), "", r.SourceAmount)
		case GroupByUser:
			byUser.add(string(r.UserID), r.UserName, r.SourceAmount)
		}
	}
	summary.ByLeaveType = byType.lines()
	summary.ByStatus = byStatus.lines()
	summary.ByDepartment = byDept.lines()
	summary.ByMonth = byMonth.lines()
	summary.ByUser = byUser.lines()

	return TransferReport{Rows: kept, Summary: summary}
}

type grouper map[string]*ReportGroup

func newGrouper() grouper { return make(grouper) }

func (g grouper) add(key, label string, days generic.Amount) {
	line, ok := g[key]
	if !ok {
		line = &ReportGroup{Key: key, Label: label, Days: zeroDays()}
		g[key] = line
	}
	line.Count++
	line.Days = line.Days.Add(days)
}

func (g grouper) lines() []ReportGroup {
	if len(g) == 0 {
		return nil
	}
	out := make([]ReportGroup, 0, len(g))
	for _, line := range g {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
