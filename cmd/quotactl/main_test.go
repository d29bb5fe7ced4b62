package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-quota/api"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/store/sqlite"
)

// seedDB creates a database with one employee holding 2025 allowances.
func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quota.db")
	store, err := sqlite.New(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, sqlite.Employee{ID: "emp-1", Name: "Alice Martin", Department: "Engineering"}))
	require.NoError(t, store.GrantAllowance(ctx, "emp-1", quota.LeaveAnnual, 2025, quota.Days(25)))
	require.NoError(t, store.GrantAllowance(ctx, "emp-1", quota.LeaveRecovery, 2025, quota.Days(5)))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestQuotactl_LocalWorkflow(t *testing.T) {
	// GIVEN: A local database with the default rules installed
	db := seedDB(t)
	out, err := run(t, "--db", db, "rules", "defaults")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 transfer rules, 2 carry-over rules, 2 special periods")

	// WHEN: Simulating a training transfer
	out, err = run(t, "--db", db, "--json", "transfer", "simulate",
		"--user", "emp-1", "--from", "ANNUAL", "--to", "TRAINING", "--days", "1", "--year", "2025")
	require.NoError(t, err)

	// THEN: The rule ratio applies
	var sim api.TransferSimulationDTO
	require.NoError(t, json.Unmarshal([]byte(out), &sim))
	assert.True(t, sim.IsValid)
	assert.Equal(t, 0.5, sim.TargetAmount)

	// WHEN: Requesting an RTT to annual transfer (no approval needed)
	out, err = run(t, "--db", db, "--json", "transfer", "request",
		"--user", "emp-1", "--from", "RTT", "--to", "ANNUAL", "--days", "2", "--year", "2025")
	require.NoError(t, err)
	var res api.TransferResultDTO
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, string(quota.StatusCompleted), res.Status)

	// THEN: The balance table shows the moved days
	out, err = run(t, "--db", db, "balance", "emp-1", "--year", "2025")
	require.NoError(t, err)
	assert.Contains(t, out, "ANNUAL")
	assert.Contains(t, out, "27")

	var bal api.LeaveBalanceDTO
	out, err = run(t, "--db", db, "--json", "balance", "emp-1", "--year", "2025")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &bal))
	assert.Equal(t, 27.0, bal.DetailsByType["ANNUAL"].Remaining)
	assert.Equal(t, 3.0, bal.DetailsByType["RECOVERY"].Remaining)
}

func TestQuotactl_AnnualRunsOnce(t *testing.T) {
	db := seedDB(t)
	_, err := run(t, "--db", db, "rules", "defaults")
	require.NoError(t, err)

	out, err := run(t, "--db", db, "--json", "annual", "--from-year", "2025")
	require.NoError(t, err)
	var runDTO api.CarryOverRunDTO
	require.NoError(t, json.Unmarshal([]byte(out), &runDTO))
	assert.Equal(t, sqlite.RunCompleted, runDTO.Status)
	assert.Equal(t, 2026, runDTO.ToYear)
	assert.Equal(t, 2, runDTO.Processed)
	assert.Equal(t, 12.0, runDTO.CarriedOver)

	_, err = run(t, "--db", db, "annual", "--from-year", "2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already carried over")
}

func TestQuotactl_ReportCSV(t *testing.T) {
	db := seedDB(t)
	_, err := run(t, "--db", db, "rules", "defaults")
	require.NoError(t, err)
	_, err = run(t, "--db", db, "transfer", "request",
		"--user", "emp-1", "--from", "RECOVERY", "--to", "ANNUAL", "--days", "1", "--year", "2025")
	require.NoError(t, err)

	out, err := run(t, "--db", db, "report", "--format", "csv", "--status", "completed")
	require.NoError(t, err)
	assert.Contains(t, out, "id,user_id,user_name")
	assert.Contains(t, out, "Alice Martin")

	_, err = run(t, "--db", db, "report", "--format", "docx")
	assert.Error(t, err)
}

func TestQuotactl_InvalidArguments(t *testing.T) {
	db := seedDB(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown request kind", []string{"approve", "leave", "id-1"}},
		{"unknown leave type", []string{"transfer", "simulate", "--user", "emp-1", "--from", "BONUS", "--to", "ANNUAL", "--days", "1"}},
		{"missing flags", []string{"carry-over", "simulate", "--user", "emp-1"}},
		{"bad group", []string{"report", "--group-by", "week"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"--db", db}, tt.args...)...)
			assert.Error(t, err)
		})
	}
}

func TestQuotactl_ExitCodes(t *testing.T) {
	db := seedDB(t)

	// GIVEN: failures of each kind
	_, badInput := run(t, "--db", db, "transfer", "simulate",
		"--user", "emp-1", "--from", "BONUS", "--to", "ANNUAL", "--days", "1")
	_, unknownUser := run(t, "--db", db, "balance", "ghost", "--year", "2025")
	_, unreachable := run(t, "--backend", "http://127.0.0.1:1", "--timeout", "2s", "balance", "emp-1")

	// THEN: scripts can tell them apart
	assert.Equal(t, exitClientError, exitCode(badInput))
	assert.Equal(t, exitClientError, exitCode(unknownUser))
	assert.Equal(t, exitUnavailable, exitCode(unreachable))
	assert.Equal(t, exitFailure, exitCode(io.ErrUnexpectedEOF))
}

func TestQuotactl_Dashboard(t *testing.T) {
	db := seedDB(t)
	_, err := run(t, "--db", db, "rules", "defaults")
	require.NoError(t, err)
	_, err = run(t, "--db", db, "transfer", "request",
		"--user", "emp-1", "--from", "RECOVERY", "--to", "ANNUAL", "--days", "1", "--year", "2025")
	require.NoError(t, err)

	// Requests are stamped with the wall clock, so the current year holds it
	out, err := run(t, "--db", db, "dashboard", "--department", "Engineering")
	require.NoError(t, err)
	assert.Contains(t, out, "TOP USERS")
	assert.Contains(t, out, "Alice Martin")
}
