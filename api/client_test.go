package api

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/service"
)

func newTestClient(env *testEnv) *Client {
	return NewClient(env.srv.URL+"/", WithHTTPClient(env.srv.Client()))
}

func TestClient_ServicesOverREST(t *testing.T) {
	// GIVEN: The services wired to a REST client instead of a store
	env := newSeededEnv(t)
	client := newTestClient(env)
	adv := service.NewAdvanced(client, service.WithClock(env.clock.Now))
	mgmt := service.NewManagement(client, service.WithClock(env.clock.Now))
	ctx := context.Background()

	// WHEN: Simulating a training transfer
	sim, err := adv.SimulateTransfer(ctx, quota.TransferRequest{
		UserID: "emp-1", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveTraining, Amount: quota.Days(1), Year: 2025,
	})

	// THEN: Rules and balance came over the wire
	require.NoError(t, err)
	assert.True(t, sim.Valid)
	assert.Equal(t, 0.5, sim.TargetAmount.Float64())
	require.NotNil(t, sim.AppliedRule)
	assert.Equal(t, "annual-to-training", sim.AppliedRule.ID)

	// WHEN: Executing and approving a transfer
	res, err := adv.ExecuteTransfer(ctx, quota.TransferRequest{
		UserID: "emp-1", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery, Amount: quota.Days(3), Year: 2025,
	})
	require.NoError(t, err)
	assert.Equal(t, quota.StatusPending, res.Status)

	rec, err := mgmt.ProcessTransfer(ctx, service.Decision{RequestID: res.TransferID, Approve: true, ProcessedBy: "mgr-1"})
	require.NoError(t, err)
	assert.Equal(t, quota.StatusApproved, rec.Status)

	// THEN: The balance moved
	b, err := client.LeaveBalance(ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.Equal(t, 14.0, b.Remaining(quota.LeaveAnnual).Float64())
	assert.Equal(t, 8.0, b.Remaining(quota.LeaveRecovery).Float64())

	// AND: A second decision fails with the same sentinel as locally
	_, err = mgmt.ProcessTransfer(ctx, service.Decision{RequestID: res.TransferID, Approve: false})
	assert.ErrorIs(t, err, quota.ErrAlreadyProcessed)

	history, err := adv.TransferHistory(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Alice Martin", history[0].UserName)
}

func TestClient_RejectionUnwraps(t *testing.T) {
	env := newSeededEnv(t)
	client := newTestClient(env)

	_, err := client.SubmitTransfer(context.Background(), quota.TransferRequest{
		UserID: "emp-1", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery, Amount: quota.Days(20), Year: 2025,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrInsufficientBalance)
	assert.ErrorIs(t, err, quota.ErrTransferRejected)
	var herr *HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, 422, herr.StatusCode)
	assert.NotEmpty(t, herr.Message)
}

func TestClient_Unavailable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")

	_, err := client.LeaveBalance(context.Background(), "emp-1", 2025)

	assert.ErrorIs(t, err, generic.ErrUnavailable)
	assert.True(t, generic.IsRetryable(err))
}

func TestClient_RuleAdministration(t *testing.T) {
	env := newSeededEnv(t)
	client := newTestClient(env)
	ctx := context.Background()

	// WHEN: Creating, then replacing a rule
	created, err := client.SaveTransferRule(ctx, quota.TransferRule{
		SourceType: quota.LeaveRecovery, TargetType: quota.LeaveTraining,
		Ratio: decimal.NewFromInt(1), RuleType: quota.TransferDepartment, Department: "Engineering", Active: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	created.MaxTransferDays = quota.Days(2)
	updated, err := client.SaveTransferRule(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 2.0, updated.MaxTransferDays.Float64())
	assert.Equal(t, "Engineering", updated.Department)

	rules, err := client.TransferRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 4)

	// THEN: Deleting twice reports the missing rule
	require.NoError(t, client.DeleteTransferRule(ctx, created.ID))
	err = client.DeleteTransferRule(ctx, created.ID)
	assert.ErrorIs(t, err, quota.ErrRuleNotFound)
	assert.True(t, generic.IsNotFound(err))

	carry, err := client.CarryOverRules(ctx)
	require.NoError(t, err)
	assert.Len(t, carry, 2)
	periods, err := client.SpecialPeriods(ctx)
	require.NoError(t, err)
	assert.Len(t, periods, 2)
}

func TestClient_ReportsAndStatistics(t *testing.T) {
	env := newSeededEnv(t)
	client := newTestClient(env)
	ctx := context.Background()
	_, err := client.SubmitTransfer(ctx, quota.TransferRequest{
		UserID: "emp-1", SourceType: quota.LeaveRecovery, TargetType: quota.LeaveAnnual, Amount: quota.Days(2), Year: 2025,
	})
	require.NoError(t, err)

	report, err := client.TransferReport(ctx, quota.ReportOptions{Statuses: []quota.Status{quota.StatusCompleted}})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, quota.StatusCompleted, report.Rows[0].Status)

	export, err := client.ExportTransferReport(ctx, quota.ReportOptions{Format: quota.ExportCSV})
	require.NoError(t, err)
	assert.Equal(t, quota.ExportCSV, export.Format)
	assert.Equal(t, "text/csv", export.ContentType)
	assert.True(t, strings.HasPrefix(string(export.Data), "id,"))

	_, err = client.ExportTransferReport(ctx, quota.ReportOptions{})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	stats, err := client.Statistics(ctx, service.StatisticsQuery{UserID: "emp-1", Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 8.0, stats.TotalUsed.Float64())
	assert.Equal(t, 2.0, stats.TotalTransfersIn.Float64())

	txs, err := client.Transactions(ctx, service.TransactionQuery{UserID: "emp-1", Type: generic.TxTransfer})
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
