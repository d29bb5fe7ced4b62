package quota_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/i18n"
	"github.com/warp/leave-quota/quota"
)

func recoveryToAnnual(ratio string) quota.TransferRule {
	return quota.TransferRule{
		ID:         "rule-rec-ann",
		SourceType: quota.LeaveRecovery,
		TargetType: quota.LeaveAnnual,
		Ratio:      dec(ratio),
		RuleType:   quota.TransferStandard,
		Active:     true,
	}
}

func request(src, tgt quota.LeaveType, amount float64) quota.TransferRequest {
	return quota.TransferRequest{UserID: "emp-1", SourceType: src, TargetType: tgt, Amount: days(amount)}
}

func TestEvaluateTransfer_AdvancedMultipliesByRatio(t *testing.T) {
	// GIVEN: 7 recovery days and a 0.5 ratio rule
	b := standardBalance()
	rules := []quota.TransferRule{recoveryToAnnual("0.5")}

	// WHEN: transferring 4 days on the advanced path
	sim := quota.EvaluateTransfer(b, rules, request(quota.LeaveRecovery, quota.LeaveAnnual, 4), quota.AdvancedTransfer, testNow)

	// THEN: the target is 4 x 0.5
	require.True(t, sim.Valid)
	require.NoError(t, sim.Reason)
	assert.Equal(t, "2", sim.TargetAmount.String())
	assert.Equal(t, "3", sim.SourceRemaining.String())
	assert.Equal(t, "27", sim.TargetTotal.String())
	assert.Equal(t, "rule-rec-ann", sim.AppliedRule.ID)
}

func TestEvaluateTransfer_LegacyDividesByRatio(t *testing.T) {
	// GIVEN: the same rule
	b := standardBalance()
	rules := []quota.TransferRule{recoveryToAnnual("0.5")}

	// WHEN: transferring 4 days on the simulation path
	sim := quota.EvaluateTransfer(b, rules, request(quota.LeaveRecovery, quota.LeaveAnnual, 4), quota.LegacyTransfer, testNow)

	// THEN: the target is 4 / 0.5
	require.True(t, sim.Valid)
	assert.Equal(t, "8", sim.TargetAmount.String())
	assert.Equal(t, "Transfert de 4 jours de Récupération vers Congés annuels avec un ratio de 0.5.", sim.Message(nil))
}

func TestEvaluateTransfer_InsufficientBalanceStatesRemaining(t *testing.T) {
	// GIVEN: 15 annual days left
	b := standardBalance()
	rule := recoveryToAnnual("1")
	rule.SourceType, rule.TargetType = quota.LeaveAnnual, quota.LeaveRecovery

	// WHEN: asking for 16
	sim := quota.EvaluateTransfer(b, []quota.TransferRule{rule}, request(quota.LeaveAnnual, quota.LeaveRecovery, 16), quota.AdvancedTransfer, testNow)

	// THEN: the simulation is invalid and the message carries the remainder
	assert.False(t, sim.Valid)
	assert.True(t, errors.Is(sim.Reason, generic.ErrInsufficientBalance))
	var ib *generic.InsufficientBalanceError
	require.True(t, errors.As(sim.Reason, &ib))
	assert.Equal(t, "1", ib.Shortfall().String())
	assert.Equal(t, "Quota insuffisant. Il vous reste 15 jours de Congés annuels.", sim.Message(nil))
	assert.Contains(t, sim.Message(i18n.Printer(language.English)), "15")
}

func TestEvaluateTransfer_NoRule(t *testing.T) {
	b := standardBalance()
	req := request(quota.LeaveRecovery, quota.LeaveTraining, 2)

	t.Run("advanced path rejects", func(t *testing.T) {
		sim := quota.EvaluateTransfer(b, nil, req, quota.AdvancedTransfer, testNow)
		assert.False(t, sim.Valid)
		assert.True(t, errors.Is(sim.Reason, quota.ErrNoApplicableRule))
		assert.Contains(t, sim.Message(nil), "Récupération vers Formation")
	})

	t.Run("legacy path falls back to 1:1", func(t *testing.T) {
		sim := quota.EvaluateTransfer(b, nil, req, quota.LegacyTransfer, testNow)
		require.True(t, sim.Valid)
		assert.Equal(t, "2", sim.TargetAmount.String())
		assert.Nil(t, sim.AppliedRule)
	})

	t.Run("ignore rules converts 1:1", func(t *testing.T) {
		r := req
		r.IgnoreRules = true
		sim := quota.EvaluateTransfer(b, nil, r, quota.AdvancedTransfer, testNow)
		require.True(t, sim.Valid)
		assert.Equal(t, "2", sim.TargetAmount.String())
	})
}

func TestEvaluateTransfer_BelowMinimum(t *testing.T) {
	sim := quota.EvaluateTransfer(standardBalance(), []quota.TransferRule{recoveryToAnnual("1")},
		request(quota.LeaveRecovery, quota.LeaveAnnual, 0.25), quota.AdvancedTransfer, testNow)
	assert.False(t, sim.Valid)
	assert.True(t, errors.Is(sim.Reason, generic.ErrInvalidInput))
}

func TestEvaluateTransfer_Caps(t *testing.T) {
	// GIVEN: 15 annual days, ratio 1, max 5 days and max 50%
	b := standardBalance()
	rule := quota.TransferRule{
		ID: "seed", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery,
		Ratio: dec("1"), MaxTransferDays: days(5), MaxTransferPercentage: dec("50"),
		RequiresApproval: true, RuleType: quota.TransferStandard, Active: true,
	}

	// WHEN: transferring 10 days
	sim := quota.EvaluateTransfer(b, []quota.TransferRule{rule}, request(quota.LeaveAnnual, quota.LeaveRecovery, 10), quota.AdvancedTransfer, testNow)

	// THEN: the target is clamped to 5 days and approval is flagged
	require.True(t, sim.Valid)
	assert.True(t, sim.Capped)
	assert.Equal(t, "5", sim.TargetAmount.String())
	assert.True(t, sim.RequiresApproval)
	assert.Contains(t, sim.Message(nil), "nécessite une approbation")

	// WHEN: the percentage cap is the tighter one
	rule.MaxTransferDays = generic.Amount{}
	rule.MaxTransferPercentage = dec("20")
	sim = quota.EvaluateTransfer(b, []quota.TransferRule{rule}, request(quota.LeaveAnnual, quota.LeaveRecovery, 10), quota.AdvancedTransfer, testNow)

	// THEN: the target is 20% of the 15 remaining
	assert.Equal(t, "3", sim.TargetAmount.String())
}

func TestTransferRule_ApplicableAt(t *testing.T) {
	base := recoveryToAnnual("1")

	tests := []struct {
		name string
		edit func(r *quota.TransferRule)
		want bool
	}{
		{"open rule", func(r *quota.TransferRule) {}, true},
		{"inactive", func(r *quota.TransferRule) { r.Active = false }, false},
		{"not started", func(r *quota.TransferRule) { r.StartDate = testNow.AddDate(0, 0, 1) }, false},
		{"ends today", func(r *quota.TransferRule) {
			r.EndDate = time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
		}, true},
		{"ended", func(r *quota.TransferRule) {
			r.EndDate = time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC)
		}, false},
		{"seasonal in window", func(r *quota.TransferRule) {
			r.RuleType = quota.TransferSeasonal
			r.SeasonalPeriods = []quota.Window{{StartDay: 1, StartMonth: 6, EndDay: 31, EndMonth: 8}}
		}, true},
		{"seasonal outside window", func(r *quota.TransferRule) {
			r.RuleType = quota.TransferSeasonal
			r.SeasonalPeriods = []quota.Window{{StartDay: 15, StartMonth: 12, EndDay: 15, EndMonth: 1}}
		}, false},
		{"seasonal other year", func(r *quota.TransferRule) {
			r.RuleType = quota.TransferSeasonal
			r.SeasonalPeriods = []quota.Window{{StartDay: 1, StartMonth: 6, EndDay: 31, EndMonth: 8, SpecificYear: 2024}}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.edit(&r)
			assert.Equal(t, tt.want, r.ApplicableAt(testNow))
		})
	}
}

func TestSelectTransferRule_FirstMatchWins(t *testing.T) {
	first := recoveryToAnnual("0.5")
	first.ID = "first"
	second := recoveryToAnnual("2")
	second.ID = "second"
	inactive := recoveryToAnnual("3")
	inactive.ID = "inactive"
	inactive.Active = false

	got := quota.SelectTransferRule([]quota.TransferRule{inactive, first, second}, quota.LeaveRecovery, quota.LeaveAnnual, testNow)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.ID)
	assert.Equal(t, "0.5", quota.ConversionRatio([]quota.TransferRule{first}, quota.LeaveRecovery, quota.LeaveAnnual, testNow).String())
	assert.Equal(t, "1", quota.ConversionRatio(nil, quota.LeaveRecovery, quota.LeaveAnnual, testNow).String())
}

func TestTransferAllowed(t *testing.T) {
	b := standardBalance()

	// GIVEN: no rule for the pair
	ok, reason := quota.TransferAllowed(b, nil, quota.LeaveAnnual, quota.LeaveTraining, testNow)

	// THEN: the reason names the missing rule
	assert.False(t, ok)
	assert.Equal(t, "Aucune règle de transfert n'est disponible pour Congés annuels vers Formation", reason.Render(nil))

	// GIVEN: a rule but nothing left in the source
	rule := recoveryToAnnual("1")
	empty := balanceWith(2025, map[quota.LeaveType][3]float64{quota.LeaveRecovery: {2, 2, 0}})
	ok, reason = quota.TransferAllowed(empty, []quota.TransferRule{rule}, quota.LeaveRecovery, quota.LeaveAnnual, testNow)
	assert.False(t, ok)
	assert.Contains(t, reason.Render(nil), "Aucun jour disponible")

	ok, reason = quota.TransferAllowed(b, []quota.TransferRule{rule}, quota.LeaveRecovery, quota.LeaveAnnual, testNow)
	assert.True(t, ok)
	assert.True(t, reason.IsZero())
}

func TestAvailableTypes(t *testing.T) {
	a := recoveryToAnnual("1")
	b := quota.TransferRule{SourceType: quota.LeaveRecovery, TargetType: quota.LeaveTraining, Active: true}
	c := quota.TransferRule{SourceType: quota.LeaveAnnual, TargetType: quota.LeaveRecovery, Active: true}
	rules := []quota.TransferRule{a, b, c}

	assert.Equal(t, []quota.LeaveType{quota.LeaveRecovery, quota.LeaveAnnual}, quota.AvailableSourceTypes(rules, testNow))
	assert.Equal(t, []quota.LeaveType{quota.LeaveAnnual, quota.LeaveTraining}, quota.AvailableTargetTypes(rules, quota.LeaveRecovery, testNow))
}

func TestTransferRule_Validate(t *testing.T) {
	ok := recoveryToAnnual("1")
	require.NoError(t, ok.Validate())

	same := ok
	same.TargetType = same.SourceType
	assert.True(t, errors.Is(same.Validate(), quota.ErrInvalidRule))

	pct := ok
	pct.MaxTransferPercentage = dec("150")
	assert.True(t, errors.Is(pct.Validate(), generic.ErrInvalidInput))
}
