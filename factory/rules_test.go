package factory_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-quota/factory"
	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
)

func TestParseRuleSet(t *testing.T) {
	// GIVEN: a rule file using the RTT alias and a seasonal window
	data := []byte(`{
		"transferRules": [{
			"id": "summer-swap", "fromType": "annual", "toType": "RTT",
			"conversionRate": 0.5, "maxTransferDays": 4, "isActive": true,
			"ruleType": "SEASONAL", "startDate": "2025-01-01",
			"seasonalPeriods": [{"startDay": 1, "startMonth": 6, "endDay": 31, "endMonth": 8}]
		}],
		"carryOverRules": [{
			"id": "annual", "leaveType": "ANNUAL", "ruleType": "percentage",
			"value": 50, "expiryMonths": 3, "isActive": true
		}]
	}`)

	// WHEN: parsing and converting
	set, err := factory.ParseRuleSet(data)
	require.NoError(t, err)
	transfers, carryOvers, periods, err := set.Rules()

	// THEN: rules are typed and validated
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Len(t, carryOvers, 1)
	assert.Empty(t, periods)

	tr := transfers[0]
	assert.Equal(t, quota.LeaveRecovery, tr.TargetType)
	assert.Equal(t, quota.TransferSeasonal, tr.RuleType)
	assert.Equal(t, "0.5", tr.Ratio.String())
	assert.Equal(t, "4", tr.MaxTransferDays.String())
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), tr.StartDate)
	require.Len(t, tr.SeasonalPeriods, 1)
	assert.True(t, tr.ApplicableAt(time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC)))
	assert.False(t, tr.ApplicableAt(time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)))

	assert.Equal(t, quota.CarryOverPercentage, carryOvers[0].RuleType)
}

func TestParseRuleSet_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"malformed", `{"transferRules": [`, generic.ErrInvalidInput},
		{"unknown field", `{"rules": []}`, generic.ErrInvalidInput},
		{"unknown leave type", `{"transferRules": [{"fromType": "BOGUS", "toType": "ANNUAL", "isActive": true}]}`, generic.ErrInvalidInput},
		{"same types", `{"transferRules": [{"fromType": "ANNUAL", "toType": "ANNUAL", "isActive": true}]}`, quota.ErrInvalidRule},
		{"bad percentage", `{"carryOverRules": [{"leaveType": "ANNUAL", "ruleType": "PERCENTAGE", "value": 150}]}`, quota.ErrInvalidRule},
		{"bad window", `{"specialPeriods": [{"name": "x", "periodType": "SUMMER", "startDay": 31, "startMonth": 2, "endDay": 1, "endMonth": 3}]}`, quota.ErrInvalidRule},
		{"bad date", `{"transferRules": [{"fromType": "ANNUAL", "toType": "RTT", "startDate": "01/01/2025"}]}`, generic.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := factory.ParseRuleSet([]byte(tt.data))
			if err == nil {
				_, _, _, err = set.Rules()
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestDefaultRuleSet_IsValid(t *testing.T) {
	for name, set := range map[string]factory.RuleSetJSON{
		"default":   factory.DefaultRuleSet(),
		"unlimited": factory.UnlimitedCarryOverRuleSet(),
	} {
		t.Run(name, func(t *testing.T) {
			_, _, _, err := set.Rules()
			require.NoError(t, err)
		})
	}
}

func TestRuleJSON_RoundTripKeepsWireShape(t *testing.T) {
	// GIVEN: a rule with a default ratio
	rule := quota.TransferRule{
		ID: "r1", SourceType: quota.LeaveAnnual, TargetType: quota.LeaveTraining,
		Active: true, RuleType: quota.TransferStandard,
		CreatedAt: time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC),
	}

	// WHEN: rendering it
	data, err := json.Marshal(factory.TransferRuleToJSON(rule))
	require.NoError(t, err)

	// THEN: the ratio is explicit and dates are omitted when open
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 1.0, raw["conversionRate"])
	assert.Equal(t, "2025-02-01T08:00:00Z", raw["createdAt"])
	assert.NotContains(t, raw, "startDate")

	var back factory.TransferRuleJSON
	require.NoError(t, json.Unmarshal(data, &back))
	converted, err := back.ToRule()
	require.NoError(t, err)
	assert.Equal(t, rule.CreatedAt, converted.CreatedAt)
}
