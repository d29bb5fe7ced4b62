package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/leave-quota/api"
	"github.com/warp/leave-quota/factory"
	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/service"
)

// ============================================================================
// Rules
// ============================================================================

func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Transfer, carry-over and special-period rules",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List every rule in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxOf(cmd)
			transfers, err := a.backend.TransferRules(ctx)
			if err != nil {
				return err
			}
			carry, err := a.backend.CarryOverRules(ctx)
			if err != nil {
				return err
			}
			periods, err := a.backend.SpecialPeriods(ctx)
			if err != nil {
				return err
			}
			set := factory.RuleSetJSON{}
			for _, r := range transfers {
				set.TransferRules = append(set.TransferRules, factory.TransferRuleToJSON(r))
			}
			for _, r := range carry {
				set.CarryOverRules = append(set.CarryOverRules, factory.CarryOverRuleToJSON(r))
			}
			for _, p := range periods {
				set.SpecialPeriods = append(set.SpecialPeriods, factory.SpecialPeriodToJSON(p))
			}
			return a.render(set, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "TRANSFER\tFROM\tTO\tRATIO\tMAX DAYS\tAPPROVAL\tACTIVE")
				for _, r := range transfers {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						r.ID, r.SourceType, r.TargetType, r.EffectiveRatio(), r.MaxTransferDays, yesNo(r.RequiresApproval), yesNo(r.Active))
				}
				fmt.Fprintln(w, "\nCARRY-OVER\tTYPE\tKIND\tVALUE\tMAX DAYS\tEXPIRY MONTHS\tACTIVE")
				for _, r := range carry {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
						r.ID, r.LeaveType, r.RuleType, r.Value, r.MaxCarryOverDays, r.ExpiryMonths, yesNo(r.Active))
				}
				fmt.Fprintln(w, "\nPERIOD\tNAME\tTYPE\tACTIVE")
				for _, p := range periods {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.PeriodType, yesNo(p.Active))
				}
			})
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Create or replace rules from a rule set file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := factory.LoadRuleSet(args[0])
			if err != nil {
				return err
			}
			return a.importRules(cmd, set)
		},
	}

	defaults := &cobra.Command{
		Use:   "defaults",
		Short: "Install the default rule set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.importRules(cmd, factory.DefaultRuleSet())
		},
	}

	cmd.AddCommand(list, importCmd, defaults)
	return cmd
}

func (a *app) importRules(cmd *cobra.Command, set factory.RuleSetJSON) error {
	transfers, carry, periods, err := set.Rules()
	if err != nil {
		return err
	}
	ctx := ctxOf(cmd)
	for _, r := range transfers {
		if _, err := a.management.SaveTransferRule(ctx, r); err != nil {
			return fmt.Errorf("transfer rule %s: %w", r.ID, err)
		}
	}
	for _, r := range carry {
		if _, err := a.management.SaveCarryOverRule(ctx, r); err != nil {
			return fmt.Errorf("carry-over rule %s: %w", r.ID, err)
		}
	}
	for _, p := range periods {
		if _, err := a.management.SaveSpecialPeriod(ctx, p); err != nil {
			return fmt.Errorf("special period %s: %w", p.ID, err)
		}
	}
	fmt.Fprintf(a.out, "Imported %d transfer rules, %d carry-over rules, %d special periods\n",
		len(transfers), len(carry), len(periods))
	return nil
}

// ============================================================================
// Reports
// ============================================================================

func newReportCmd(a *app) *cobra.Command {
	var (
		start, end, groupBy, format, output string
		types, departments, statuses        []string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Transfer report",
		Long: `Build a transfer report. Without --format the report is printed;
with --format csv it is written to --output (stdout by default).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := reportOptions(start, end, groupBy, format, types, departments, statuses)
			if err != nil {
				return err
			}
			ctx := ctxOf(cmd)

			if opts.Format != "" {
				export, err := a.advanced.ExportTransferReport(ctx, opts)
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = a.out.Write(export.Data)
					return err
				}
				return os.WriteFile(output, export.Data, 0o644)
			}

			report, err := a.advanced.TransferReport(ctx, opts)
			if err != nil {
				return err
			}
			return a.render(api.ToTransferReportDTO(report), func(w *tabwriter.Writer) {
				printTransfers(w, report.Rows)
				fmt.Fprintf(w, "\nTotal\t%d transfers\t%s days\n", report.Summary.TotalTransfers, report.Summary.TotalDays)
				for _, g := range groupsOf(report.Summary, opts.GroupBy) {
					fmt.Fprintf(w, "%s\t%d\t%s\n", g.Label, g.Count, g.Days)
				}
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&start, "start", "", "first creation day, YYYY-MM-DD")
	f.StringVar(&end, "end", "", "last creation day, YYYY-MM-DD")
	f.StringVar(&groupBy, "group-by", "", "user, department, leaveType or month")
	f.StringVar(&format, "format", "", "export format (csv)")
	f.StringVarP(&output, "output", "o", "", "export file")
	f.StringSliceVar(&types, "type", nil, "source leave types")
	f.StringSliceVar(&departments, "department", nil, "departments")
	f.StringSliceVar(&statuses, "status", nil, "request statuses")
	return cmd
}

func reportOptions(start, end, groupBy, format string, types, departments, statuses []string) (quota.ReportOptions, error) {
	var opts quota.ReportOptions
	var err error
	if start != "" {
		if opts.StartDate, err = factory.ParseDate(start); err != nil {
			return opts, err
		}
	}
	if end != "" {
		if opts.EndDate, err = factory.ParseDate(end); err != nil {
			return opts, err
		}
	}
	if opts.GroupBy, err = quota.ParseGroupBy(groupBy); err != nil {
		return opts, err
	}
	if format != "" {
		if opts.Format, err = quota.ParseExportFormat(format); err != nil {
			return opts, err
		}
	}
	for _, s := range types {
		t, err := quota.ParseLeaveType(s)
		if err != nil {
			return opts, err
		}
		opts.LeaveTypes = append(opts.LeaveTypes, t)
	}
	for _, s := range statuses {
		st, err := quota.ParseStatus(s)
		if err != nil {
			return opts, err
		}
		opts.Statuses = append(opts.Statuses, st)
	}
	opts.Departments = departments
	return opts, opts.Validate()
}

func groupsOf(s quota.ReportSummary, by quota.GroupBy) []quota.ReportGroup {
	switch by {
	case quota.GroupByUser:
		return s.ByUser
	case quota.GroupByDepartment:
		return s.ByDepartment
	case quota.GroupByMonth:
		return s.ByMonth
	case quota.GroupByLeaveType:
		return s.ByLeaveType
	default:
		return s.ByStatus
	}
}

// ============================================================================
// Statistics
// ============================================================================

func newStatsCmd(a *app) *cobra.Command {
	var q service.StatisticsQuery
	var user string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Usage statistics for a user or a department",
		RunE: func(cmd *cobra.Command, args []string) error {
			q.UserID = generic.EntityID(user)
			q.Year = yearOrNow(q.Year)
			stats, err := a.advanced.Statistics(ctxOf(cmd), q)
			if err != nil {
				return err
			}
			return a.render(api.ToStatisticsDTO(stats), func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "TYPE\tINITIAL\tUSED\tREMAINING\tIN\tOUT\tCARRIED")
				for _, t := range stats.ByLeaveType {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						t.LeaveType, t.Initial, t.Used, t.Remaining, t.TransfersIn, t.TransfersOut, t.CarriedOver)
				}
				fmt.Fprintf(w, "TOTAL\t%s\t%s\t%s\t%s\t%s\t%s\n",
					stats.TotalInitial, stats.TotalUsed, stats.TotalRemaining, stats.TotalTransfersIn, stats.TotalTransfersOut, stats.TotalCarriedOver)
				fmt.Fprintf(w, "\nPending\t%s\nExpired\t%s\nUtilization\t%s%%\n",
					stats.TotalPending, stats.TotalExpired, stats.UtilizationRate.StringFixed(2))
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user ID")
	cmd.Flags().StringVar(&q.Department, "department", "", "department")
	cmd.Flags().IntVar(&q.Year, "year", 0, "year (default: current)")
	return cmd
}

func newDashboardCmd(a *app) *cobra.Command {
	var year int
	var department string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Year overview: utilization, transfers and top users",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.advanced.Dashboard(ctxOf(cmd), yearOrNow(year), department)
			if err != nil {
				return err
			}
			return a.render(api.ToDashboardDTO(d), func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Year\t%d\n", d.Year)
				if d.Department != "" {
					fmt.Fprintf(w, "Department\t%s\n", d.Department)
				}
				fmt.Fprintf(w, "Utilization\t%s%%\nTransfers\t%d (%s days)\nCarried over\t%s days\nExpired\t%s days\n",
					d.Utilization.UtilizationRate.StringFixed(2), d.Transfers.TotalTransfers, d.Transfers.TotalDays, d.CarriedOver, d.Expired)
				fmt.Fprintln(w, "\nTOP USERS\tTRANSFERS\tDAYS")
				for _, u := range d.TopUsers {
					fmt.Fprintf(w, "%s\t%d\t%s\n", u.Label, u.Count, u.Days)
				}
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default: current)")
	cmd.Flags().StringVar(&department, "department", "", "department")
	return cmd
}

// ============================================================================
// Annual run
// ============================================================================

func newAnnualCmd(a *app) *cobra.Command {
	var fromYear int
	var expire bool
	cmd := &cobra.Command{
		Use:   "annual",
		Short: "Carry every employee's days into the next year",
		Long: `Run the annual carry-over for --from-year. A year is processed once;
running it again fails. With --expire, carried days past their expiry
date are removed first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxOf(cmd)
			if fromYear == 0 {
				fromYear = yearOrNow(0) - 1
			}

			if a.store == nil {
				run, err := a.client.ProcessAnnualCarryOver(ctx, fromYear)
				if err != nil {
					return err
				}
				return a.render(run, func(w *tabwriter.Writer) {
					fmt.Fprintf(w, "Run %s\t%d -> %d\t%s\n", run.ID, run.FromYear, run.ToYear, run.Status)
					fmt.Fprintf(w, "Processed\t%d\nSkipped\t%d\nCarried\t%v days\n", run.Processed, run.Skipped, run.CarriedOver)
				})
			}

			if expire {
				n, err := a.store.ExpireCarryOvers(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Expired %d carry-overs\n", n)
			}
			run, err := a.store.ProcessAnnualCarryOver(ctx, fromYear)
			if errors.Is(err, quota.ErrAlreadyProcessed) {
				return fmt.Errorf("%d was already carried over", fromYear)
			}
			if err != nil {
				return err
			}
			return a.render(api.ToCarryOverRunDTO(run), func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Run %s\t%d -> %d\t%s\n", run.ID, run.FromYear, run.ToYear, run.Status)
				fmt.Fprintf(w, "Processed\t%d\nSkipped\t%d\nCarried\t%s days\n", run.Processed, run.Skipped, run.CarriedOver)
			})
		},
	}
	cmd.Flags().IntVar(&fromYear, "from-year", 0, "year to close (default: last year)")
	cmd.Flags().BoolVar(&expire, "expire", false, "expire overdue carry-overs first (local store only)")
	return cmd
}
