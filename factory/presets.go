package factory

// =============================================================================
// PRESET RULE SETS
// =============================================================================

// DefaultRuleSet is the rule set a fresh installation starts with. It
// mirrors the usual French setup: annual days convert one-for-one into
// RTT with approval, half the unused annual days roll over for three
// months, and summer is a protected period.
func DefaultRuleSet() RuleSetJSON {
	return RuleSetJSON{
		TransferRules: []TransferRuleJSON{
			{
				ID:               "annual-to-recovery",
				FromType:         "ANNUAL",
				ToType:           "RECOVERY",
				ConversionRate:   1,
				MaxTransferDays:  5,
				RequiresApproval: true,
				RuleType:         "STANDARD",
				IsActive:         true,
				Description:      "Congés payés vers RTT",
			},
			{
				ID:                    "recovery-to-annual",
				FromType:              "RECOVERY",
				ToType:                "ANNUAL",
				ConversionRate:        1,
				MaxTransferPercentage: 50,
				RuleType:              "STANDARD",
				IsActive:              true,
				Description:           "RTT vers congés payés",
			},
			{
				ID:               "annual-to-training",
				FromType:         "ANNUAL",
				ToType:           "TRAINING",
				ConversionRate:   0.5,
				MaxTransferDays:  3,
				RequiresApproval: true,
				RuleType:         "SPECIAL",
				IsActive:         true,
				Description:      "Deux jours de congés pour un jour de formation",
			},
		},
		CarryOverRules: []CarryOverRuleJSON{
			{
				ID:               "annual-carry-over",
				LeaveType:        "ANNUAL",
				RuleType:         "PERCENTAGE",
				Value:            50,
				MaxCarryOverDays: 10,
				ExpiryMonths:     3,
				IsActive:         true,
				Description:      "Report de 50% des congés payés, jusqu'au 31 mars",
			},
			{
				ID:           "recovery-carry-over",
				LeaveType:    "RECOVERY",
				RuleType:     "FIXED",
				Value:        2,
				ExpiryMonths: 2,
				IsActive:     true,
				Description:  "Report de 2 jours de RTT",
			},
		},
		SpecialPeriods: []SpecialPeriodJSON{
			{
				ID:                     "summer",
				Name:                   "Été",
				PeriodType:             "SUMMER",
				StartDay:               1,
				StartMonth:             7,
				EndDay:                 31,
				EndMonth:               8,
				MinimumQuotaGuaranteed: 10,
				PriorityRules:          []string{"seniority", "children"},
				IsActive:               true,
			},
			{
				ID:         "year-end",
				Name:       "Fêtes de fin d'année",
				PeriodType: "HOLIDAYS",
				StartDay:   20,
				StartMonth: 12,
				EndDay:     5,
				EndMonth:   1,
				IsActive:   true,
			},
		},
	}
}

// UnlimitedCarryOverRuleSet carries every unused day without expiry.
func UnlimitedCarryOverRuleSet() RuleSetJSON {
	return RuleSetJSON{
		CarryOverRules: []CarryOverRuleJSON{
			{ID: "annual-unlimited", LeaveType: "ANNUAL", RuleType: "UNLIMITED", IsActive: true},
			{ID: "recovery-all", LeaveType: "RECOVERY", RuleType: "ALL", IsActive: true},
		},
	}
}
