package quota_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
)

func reportRows() []quota.TransferRecord {
	return []quota.TransferRecord{
		{ID: "r1", UserID: "emp-1", UserName: "Alice", Department: "ANESTHESIA",
			SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery, SourceAmount: days(2), TargetAmount: days(2),
			Status: quota.StatusCompleted, CreatedAt: time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC)},
		{ID: "r2", UserID: "emp-2", UserName: "Bruno", Department: "SURGERY",
			SourceType: quota.LeaveRecovery, TargetType: quota.LeaveTraining, SourceAmount: days(3), TargetAmount: days(1.5),
			Status: quota.StatusPending, CreatedAt: time.Date(2025, time.February, 1, 8, 0, 0, 0, time.UTC)},
		{ID: "r3", UserID: "emp-1", UserName: "Alice", Department: "ANESTHESIA",
			SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery, SourceAmount: days(1), TargetAmount: days(1),
			Status: quota.StatusRejected, CreatedAt: time.Date(2025, time.February, 28, 22, 0, 0, 0, time.UTC)},
	}
}

func TestBuildTransferReport_SummaryAndGroups(t *testing.T) {
	// WHEN: reporting everything grouped by month
	report := quota.BuildTransferReport(reportRows(), quota.ReportOptions{GroupBy: quota.GroupByMonth})

	// THEN: totals count source days
	assert.Equal(t, 3, report.Summary.TotalTransfers)
	assert.Equal(t, "6", report.Summary.TotalDays.String())

	require.Len(t, report.Summary.ByLeaveType, 2)
	assert.Equal(t, "ANNUAL", report.Summary.ByLeaveType[0].Key)
	assert.Equal(t, 2, report.Summary.ByLeaveType[0].Count)
	assert.Equal(t, "3", report.Summary.ByLeaveType[0].Days.String())

	require.Len(t, report.Summary.ByMonth, 2)
	assert.Equal(t, "2025-01", report.Summary.ByMonth[0].Key)
	assert.Equal(t, "2025-02", report.Summary.ByMonth[1].Key)
	assert.Equal(t, 2, report.Summary.ByMonth[1].Count)

	assert.Len(t, report.Summary.ByStatus, 3)
	assert.Nil(t, report.Summary.ByDepartment)
	assert.Nil(t, report.Summary.ByUser)
}

func TestBuildTransferReport_Filters(t *testing.T) {
	rows := reportRows()

	tests := []struct {
		name string
		opts quota.ReportOptions
		ids  []string
	}{
		{"leave type matches either side", quota.ReportOptions{LeaveTypes: []quota.LeaveType{quota.LeaveTraining}}, []string{"r2"}},
		{"department", quota.ReportOptions{Departments: []string{"ANESTHESIA"}}, []string{"r1", "r3"}},
		{"status", quota.ReportOptions{Statuses: []quota.Status{quota.StatusPending, quota.StatusCompleted}}, []string{"r1", "r2"}},
		{"end date is inclusive", quota.ReportOptions{
			StartDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		}, []string{"r2", "r3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := quota.BuildTransferReport(rows, tt.opts)
			var ids []string
			for _, r := range report.Rows {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestBuildTransferReport_GroupByDepartmentAndUser(t *testing.T) {
	byDept := quota.BuildTransferReport(reportRows(), quota.ReportOptions{GroupBy: quota.GroupByDepartment})
	require.Len(t, byDept.Summary.ByDepartment, 2)
	assert.Equal(t, "ANESTHESIA", byDept.Summary.ByDepartment[0].Key)
	assert.Equal(t, "3", byDept.Summary.ByDepartment[0].Days.String())

	byUser := quota.BuildTransferReport(reportRows(), quota.ReportOptions{GroupBy: quota.GroupByUser})
	require.Len(t, byUser.Summary.ByUser, 2)
	assert.Equal(t, "Alice", byUser.Summary.ByUser[0].Label)
}

func TestReportOptions_Parsing(t *testing.T) {
	f, err := quota.ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, quota.ExportPDF, f)

	f, err = quota.ParseExportFormat("Excel")
	require.NoError(t, err)
	assert.Equal(t, quota.ExportExcel, f)

	_, err = quota.ParseExportFormat("docx")
	assert.True(t, errors.Is(err, generic.ErrInvalidInput))

	_, err = quota.ParseGroupBy("week")
	assert.Error(t, err)

	bad := quota.ReportOptions{StartDate: testNow, EndDate: testNow.AddDate(0, 0, -1)}
	assert.True(t, errors.Is(bad.Validate(), generic.ErrInvalidPeriod))
}

func TestCalculateAvailability(t *testing.T) {
	b := standardBalance() // 15 annual days left

	tests := []struct {
		name      string
		requested float64
		eligible  bool
		level     quota.WarningLevel
		after     string
	}{
		{"plenty left", 5, true, quota.WarningNone, "10"},
		{"five left", 10, true, quota.WarningLow, "5"},
		{"two left", 13, true, quota.WarningMedium, "2"},
		{"everything", 15, true, quota.WarningMedium, "0"},
		{"exceeded", 16, false, quota.WarningHigh, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := quota.CalculateAvailability(b, quota.LeaveAnnual, days(tt.requested))
			assert.Equal(t, tt.eligible, a.Eligible)
			assert.Equal(t, tt.level, a.WarningLevel)
			assert.Equal(t, tt.after, a.RemainingAfter.String())
		})
	}

	a := quota.CalculateAvailability(b, quota.LeaveAnnual, days(16))
	assert.Equal(t, "1", a.ExceededBy.String())
	assert.True(t, a.RequiresApproval)
	assert.Equal(t, "La demande de 16 jour(s) de Congés annuels dépasse le quota de 1 jour(s).", a.Notice.Render(nil))
}

func TestExpiringAlerts(t *testing.T) {
	records := []quota.CarryOverRecord{
		{ID: "soon", LeaveType: quota.LeaveAnnual, CarriedAmount: days(3), Status: quota.StatusCompleted,
			ExpiryDate: testNow.AddDate(0, 0, 10)},
		{ID: "later", LeaveType: quota.LeaveAnnual, CarriedAmount: days(3), Status: quota.StatusCompleted,
			ExpiryDate: testNow.AddDate(0, 2, 0)},
		{ID: "past", LeaveType: quota.LeaveAnnual, CarriedAmount: days(3), Status: quota.StatusCompleted,
			ExpiryDate: testNow.AddDate(0, 0, -1)},
		{ID: "pending", LeaveType: quota.LeaveAnnual, CarriedAmount: days(3), Status: quota.StatusPending,
			ExpiryDate: testNow.AddDate(0, 0, 5)},
	}

	alerts := quota.ExpiringAlerts(records, testNow)

	require.Len(t, alerts, 1)
	assert.Equal(t, "soon", alerts[0].Record.ID)
	assert.Equal(t, 10, alerts[0].DaysUntilExpiry)
	assert.Equal(t, "3 jours de Congés annuels vont expirer le 2025-06-25", alerts[0].Notice.Render(nil))
}

func TestQuotaPeriod(t *testing.T) {
	p := quota.QuotaPeriodForYear(2024, quota.Deadline{})
	assert.Equal(t, "2024-01-01", p.Period.Start.String())
	assert.Equal(t, "2024-12-31", p.Period.End.String())
	assert.True(t, p.CarryOverOpen(testNow))

	// GIVEN: carry-overs out of 2024 close on June 15, 2025
	deadline, err := quota.ParseDeadline("06-15")
	require.NoError(t, err)
	p = quota.QuotaPeriodForYear(2024, deadline)

	// THEN: the deadline day is still open, the next day is not
	assert.True(t, p.CarryOverOpen(testNow))
	assert.False(t, p.CarryOverOpen(testNow.AddDate(0, 0, 1)))
}

func TestParseDeadline(t *testing.T) {
	d, err := quota.ParseDeadline("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	d, err = quota.ParseDeadline("03-31")
	require.NoError(t, err)
	assert.Equal(t, quota.Deadline{Month: time.March, Day: 31}, d)

	for _, bad := range []string{"02-30", "13-01", "0331", "march"} {
		_, err := quota.ParseDeadline(bad)
		assert.ErrorIs(t, err, generic.ErrInvalidInput, bad)
	}
}
