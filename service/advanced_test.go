package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-quota/events"
	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/service"
)

func TestAdvanced_SimulateTransfer(t *testing.T) {
	// GIVEN: a 0.5 ANNUAL -> RECOVERY rule
	backend := newFakeBackend()
	svc := service.NewAdvanced(backend, options(&recorder{})...)

	// WHEN: simulating 4 days
	sim, err := svc.SimulateTransfer(context.Background(), quota.TransferRequest{
		UserID: "emp-1", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery, Amount: days(4),
	})

	// THEN: the ratio multiplies
	require.NoError(t, err)
	assert.True(t, sim.Valid)
	assert.Equal(t, "2", sim.TargetAmount.String())
	assert.Empty(t, backend.submittedTransfers)
}

func TestAdvanced_ExecuteTransfer_SubmitsAndPublishes(t *testing.T) {
	backend := newFakeBackend()
	rec := &recorder{}
	svc := service.NewAdvanced(backend, options(rec)...)

	result, err := svc.ExecuteTransfer(context.Background(), quota.TransferRequest{
		UserID: "emp-1", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery, Amount: days(4),
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "t-1", result.TransferID)
	assert.Equal(t, "2", result.Simulation.TargetAmount.String())
	require.Len(t, backend.submittedTransfers, 1)

	published := rec.ofType(events.QuotaTransferred)
	require.Len(t, published, 1)
	assert.Equal(t, "emp-1", published[0].UserID)
	assert.Equal(t, "2", published[0].Payload["targetAmount"])
	assert.Equal(t, testNow, published[0].Timestamp)
}

func TestAdvanced_ExecuteTransfer_RejectsInvalidSimulation(t *testing.T) {
	// GIVEN: only 15 annual days left
	backend := newFakeBackend()
	rec := &recorder{}
	svc := service.NewAdvanced(backend, options(rec)...)

	// WHEN: transferring 20
	result, err := svc.ExecuteTransfer(context.Background(), quota.TransferRequest{
		UserID: "emp-1", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery, Amount: days(20),
	})

	// THEN: nothing is submitted and the error carries both causes
	require.Error(t, err)
	assert.True(t, errors.Is(err, quota.ErrTransferRejected))
	assert.True(t, errors.Is(err, generic.ErrInsufficientBalance))
	var rej *quota.RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "Quota insuffisant. Il vous reste 15 jours de Congés annuels.", rej.Message)
	assert.Equal(t, rej.Message, result.Message)
	assert.Empty(t, backend.submittedTransfers)
	assert.Empty(t, rec.ofType(events.QuotaTransferred))
}

func TestAdvanced_ExecuteTransfer_NoRule(t *testing.T) {
	backend := newFakeBackend()
	svc := service.NewAdvanced(backend, options(&recorder{})...)

	_, err := svc.ExecuteTransfer(context.Background(), quota.TransferRequest{
		UserID: "emp-1", SourceType: quota.LeaveRecovery, TargetType: quota.LeaveTraining, Amount: days(1),
	})

	assert.True(t, errors.Is(err, quota.ErrTransferRejected))
	assert.True(t, errors.Is(err, quota.ErrNoApplicableRule))
}

func TestAdvanced_BackendFailurePublishesError(t *testing.T) {
	// GIVEN: the rule fetch fails
	backend := newFakeBackend()
	backend.fail["TransferRules"] = errBackendDown
	rec := &recorder{}
	svc := service.NewAdvanced(backend, options(rec)...)

	// WHEN: simulating
	_, err := svc.SimulateTransfer(context.Background(), quota.TransferRequest{
		UserID: "emp-1", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery, Amount: days(1),
	})

	// THEN: the error is wrapped and ERROR_OCCURRED is published
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBackendDown))
	var svcErr *service.Error
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "SimulateTransfer", svcErr.Op)
	assert.Contains(t, svcErr.Message, "backend down")

	failures := rec.ofType(events.ErrorOccurred)
	require.Len(t, failures, 1)
	assert.Equal(t, "SimulateTransfer", failures[0].Payload["operation"])
}

func TestAdvanced_IgnoreRulesSkipsRuleFetch(t *testing.T) {
	backend := newFakeBackend()
	backend.fail["TransferRules"] = errBackendDown
	svc := service.NewAdvanced(backend, options(&recorder{})...)

	sim, err := svc.SimulateTransfer(context.Background(), quota.TransferRequest{
		UserID: "emp-1", SourceType: quota.LeaveRecovery, TargetType: quota.LeaveTraining, Amount: days(3), IgnoreRules: true,
	})

	require.NoError(t, err)
	assert.True(t, sim.Valid)
	assert.Equal(t, "3", sim.TargetAmount.String())
}

func TestAdvanced_ExecuteCarryOver(t *testing.T) {
	// GIVEN: 15 annual days left in 2025 and a 50% rule
	backend := newFakeBackend()
	rec := &recorder{}
	svc := service.NewAdvanced(backend, options(rec)...)

	// WHEN: carrying everything eligible into next year
	result, err := svc.ExecuteCarryOver(context.Background(), quota.CarryOverRequest{
		UserID: "emp-1", LeaveType: quota.LeaveAnnual, FromYear: 2025,
	})

	// THEN: 7.5 is floored and the backend receives the resolved request
	require.NoError(t, err)
	assert.Equal(t, "7", result.Calculation.CarryOverAmount.String())
	require.Len(t, backend.submittedCarryOvers, 1)
	assert.Equal(t, "7", backend.submittedCarryOvers[0].Amount.String())
	assert.Equal(t, 2026, backend.submittedCarryOvers[0].ToYear)

	published := rec.ofType(events.QuotaCarriedOver)
	require.Len(t, published, 1)
	assert.Equal(t, 2026, published[0].Payload["toYear"])
}

func TestAdvanced_ExecuteCarryOver_NothingToCarry(t *testing.T) {
	// GIVEN: no balance at all for 2024
	backend := newFakeBackend()
	svc := service.NewAdvanced(backend, options(&recorder{})...)

	_, err := svc.ExecuteCarryOver(context.Background(), quota.CarryOverRequest{
		UserID: "emp-1", LeaveType: quota.LeaveAnnual, FromYear: 2024,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, quota.ErrNothingToCarryOver))
	assert.Equal(t, "Aucun jour à reporter.", err.Error())
	assert.Empty(t, backend.submittedCarryOvers)
}

func TestAdvanced_ExecuteCarryOver_NoRuleKeepsCause(t *testing.T) {
	backend := newFakeBackend()
	backend.carryOverRules = nil
	svc := service.NewAdvanced(backend, options(&recorder{})...)

	_, err := svc.ExecuteCarryOver(context.Background(), quota.CarryOverRequest{
		UserID: "emp-1", LeaveType: quota.LeaveAnnual, FromYear: 2025,
	})

	assert.True(t, errors.Is(err, quota.ErrNothingToCarryOver))
	assert.True(t, errors.Is(err, quota.ErrNoApplicableRule))
}

func TestAdvanced_EnhancedQuotaState_FailsWhenAnyFetchFails(t *testing.T) {
	backend := newFakeBackend()
	backend.fail["CarryOverHistory"] = errBackendDown
	svc := service.NewAdvanced(backend, options(&recorder{})...)

	states, err := svc.EnhancedQuotaState(context.Background(), "emp-1", 2025)

	assert.Nil(t, states)
	assert.True(t, errors.Is(err, errBackendDown))
}

func TestAdvanced_EnhancedQuotaState_DefaultsYear(t *testing.T) {
	backend := newFakeBackend()
	backend.transfers = []quota.TransferRecord{{
		ID: "t1", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery,
		SourceAmount: days(2), TargetAmount: days(1), Status: quota.StatusCompleted, CreatedAt: testNow.AddDate(0, -1, 0),
	}}
	svc := service.NewAdvanced(backend, options(&recorder{})...)

	states, err := svc.EnhancedQuotaState(context.Background(), "emp-1", 0)

	require.NoError(t, err)
	require.NotEmpty(t, states)
	assert.Equal(t, quota.LeaveAnnual, states[0].Type)
	assert.Equal(t, "15", states[0].Remaining.String())
	assert.Equal(t, "2", states[0].TotalTransferredOut.String())
}

func TestAdvanced_AllowedChecks(t *testing.T) {
	backend := newFakeBackend()
	svc := service.NewAdvanced(backend, options(&recorder{})...)
	ctx := context.Background()

	ok, reason, err := svc.TransferAllowed(ctx, "emp-1", quota.LeaveAnnual, quota.LeaveRecovery)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, reason, err = svc.TransferAllowed(ctx, "emp-1", quota.LeaveTraining, quota.LeaveRecovery)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEmpty(t, reason)

	ok, _, err = svc.CarryOverAllowed(ctx, "emp-1", quota.LeaveAnnual, 2025)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdvanced_Reports(t *testing.T) {
	backend := newFakeBackend()
	svc := service.NewAdvanced(backend, options(&recorder{})...)
	ctx := context.Background()

	// GIVEN: a reversed date range
	_, err := svc.TransferReport(ctx, quota.ReportOptions{StartDate: testNow, EndDate: testNow.AddDate(0, 0, -1)})
	assert.True(t, errors.Is(err, generic.ErrInvalidPeriod))

	// AND: an unknown export format never reaches the backend
	backend.fail["ExportTransferReport"] = errBackendDown
	_, err = svc.ExportTransferReport(ctx, quota.ReportOptions{Format: "docx"})
	assert.True(t, errors.Is(err, generic.ErrInvalidInput))

	// WHEN: exporting with the default format
	delete(backend.fail, "ExportTransferReport")
	export, err := svc.ExportTransferReport(ctx, quota.ReportOptions{})
	require.NoError(t, err)
	assert.Equal(t, quota.ExportPDF, export.Format)

	stats, err := svc.Statistics(ctx, service.StatisticsQuery{UserID: "emp-1"})
	require.NoError(t, err)
	assert.Equal(t, "32", stats.TotalInitial.String())
}

func TestAdvanced_ActiveRules(t *testing.T) {
	backend := newFakeBackend()
	backend.transferRules = append(backend.transferRules, quota.TransferRule{
		ID: "tr-off", SourceType: quota.LeaveRecovery, TargetType: quota.LeaveAnnual, Active: false,
	})
	svc := service.NewAdvanced(backend, options(&recorder{})...)

	rules, err := svc.ActiveTransferRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "tr-1", rules[0].ID)

	co, err := svc.ActiveCarryOverRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, co, 1)
}

func TestAdvanced_Dashboard(t *testing.T) {
	// GIVEN: seven users transferring 1 to 7 days in 2025, and one in 2024
	backend := newFakeBackend()
	for i := 1; i <= 7; i++ {
		backend.transfers = append(backend.transfers, quota.TransferRecord{
			ID: fmt.Sprintf("t%d", i), UserID: generic.EntityID(fmt.Sprintf("emp-%d", i)), Department: "ANESTHESIA",
			SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery,
			SourceAmount: days(float64(i)), TargetAmount: days(float64(i) / 2),
			Status: quota.StatusCompleted, CreatedAt: testNow,
		})
	}
	backend.transfers = append(backend.transfers, quota.TransferRecord{
		ID: "old", UserID: "emp-9", Department: "ANESTHESIA", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery,
		SourceAmount: days(20), TargetAmount: days(10), Status: quota.StatusCompleted, CreatedAt: testNow.AddDate(-1, 0, 0),
	})
	svc := service.NewAdvanced(backend, options(&recorder{})...)

	// WHEN
	d, err := svc.Dashboard(context.Background(), 0, "ANESTHESIA")

	// THEN: only 2025 counts, and the five biggest transfers rank first
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year)
	assert.Equal(t, 7, d.Transfers.TotalTransfers)
	require.Len(t, d.TopUsers, quota.DashboardTopUsers)
	assert.Equal(t, "emp-7", d.TopUsers[0].Key)
	assert.Equal(t, "emp-3", d.TopUsers[4].Key)
	assert.Equal(t, "32", d.Utilization.TotalInitial.String())
}

func TestAdvanced_Dashboard_FailsWhenStatisticsFail(t *testing.T) {
	backend := newFakeBackend()
	backend.fail["Statistics"] = errBackendDown
	svc := service.NewAdvanced(backend, options(&recorder{})...)

	_, err := svc.Dashboard(context.Background(), 2025, "")

	assert.True(t, errors.Is(err, errBackendDown))
}
