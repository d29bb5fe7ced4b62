package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/leave-quota/api"
	"github.com/warp/leave-quota/factory"
	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/service"
)

// ============================================================================
// Balance
// ============================================================================

func newBalanceCmd(a *app) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "balance <user-id>",
		Short: "Show a user's balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.backend.LeaveBalance(ctxOf(cmd), generic.EntityID(args[0]), yearOrNow(year))
			if err != nil {
				return err
			}
			return a.render(api.ToLeaveBalanceDTO(b), func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "User %s, %d\n", b.UserID, b.Year)
				fmt.Fprintln(w, "TYPE\tALLOWANCE\tUSED\tPENDING\tREMAINING")
				for _, t := range quota.AllLeaveTypes() {
					d, ok := b.DetailsByType[t]
					if !ok {
						continue
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t, d.Allowance, d.Used, d.Pending, b.Remaining(t))
				}
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "balance year (default: current)")
	return cmd
}

// ============================================================================
// Transfers
// ============================================================================

type transferFlags struct {
	user, from, to, comment string
	days                    float64
	year                    int
	ignoreRules             bool
}

func (f *transferFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.user, "user", "", "user ID")
	cmd.Flags().StringVar(&f.from, "from", "", "source leave type")
	cmd.Flags().StringVar(&f.to, "to", "", "target leave type")
	cmd.Flags().Float64Var(&f.days, "days", 0, "days taken from the source type")
	cmd.Flags().IntVar(&f.year, "year", 0, "balance year (default: current)")
	cmd.Flags().BoolVar(&f.ignoreRules, "ignore-rules", false, "convert 1:1 without rule lookup")
	cmd.Flags().StringVar(&f.comment, "comment", "", "comment stored with the request")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("days")
}

func (f *transferFlags) request() (quota.TransferRequest, error) {
	source, err := quota.ParseLeaveType(f.from)
	if err != nil {
		return quota.TransferRequest{}, err
	}
	target, err := quota.ParseLeaveType(f.to)
	if err != nil {
		return quota.TransferRequest{}, err
	}
	return quota.TransferRequest{
		UserID:      generic.EntityID(f.user),
		SourceType:  source,
		TargetType:  target,
		Amount:      quota.Days(f.days),
		Year:        f.year,
		IgnoreRules: f.ignoreRules,
		Comment:     f.comment,
	}, nil
}

func newTransferCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move days between leave types",
	}

	var sim transferFlags
	var legacy bool
	simulate := &cobra.Command{
		Use:   "simulate",
		Short: "Preview a transfer without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := sim.request()
			if err != nil {
				return err
			}
			var s quota.TransferSimulation
			if legacy {
				s, err = a.legacy.SimulateQuotaTransfer(ctxOf(cmd), req)
			} else {
				s, err = a.advanced.SimulateTransfer(ctxOf(cmd), req)
			}
			if err != nil {
				return err
			}
			return a.render(api.ToTransferSimulationDTO(s, s.Message(a.printer)), func(w *tabwriter.Writer) { a.printSimulation(w, s) })
		},
	}
	sim.register(simulate)
	simulate.Flags().BoolVar(&legacy, "legacy", false, "use the simulation ratio rules and special periods")

	var exec transferFlags
	request := &cobra.Command{
		Use:   "request",
		Short: "Submit a transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := exec.request()
			if err != nil {
				return err
			}
			res, err := a.management.RequestTransfer(ctxOf(cmd), req)
			if err != nil {
				return err
			}
			return a.render(api.NewTransferResultDTO(res, a.printer), func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Transfer %s\t%s\n", res.TransferID, res.Status)
				a.printSimulation(w, res.Simulation)
			})
		},
	}
	exec.register(request)

	var user string
	history := &cobra.Command{
		Use:   "history",
		Short: "List transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := a.advanced.TransferHistory(ctxOf(cmd), generic.EntityID(user))
			if err != nil {
				return err
			}
			return a.render(api.ToTransferRecordDTOs(recs), func(w *tabwriter.Writer) { printTransfers(w, recs) })
		},
	}
	history.Flags().StringVar(&user, "user", "", "only this user")

	cmd.AddCommand(simulate, request, history)
	return cmd
}

func (a *app) printSimulation(w *tabwriter.Writer, s quota.TransferSimulation) {
	fmt.Fprintf(w, "Valid\t%s\n", yesNo(s.Valid))
	fmt.Fprintf(w, "Source\t%s %s\n", s.SourceAmount, s.Request.SourceType)
	fmt.Fprintf(w, "Target\t%s %s\n", s.TargetAmount, s.Request.TargetType)
	fmt.Fprintf(w, "Ratio\t%s\n", s.AppliedRatio)
	fmt.Fprintf(w, "Remaining after\t%s\n", s.SourceRemaining)
	if s.AppliedRule != nil {
		fmt.Fprintf(w, "Rule\t%s\n", s.AppliedRule.ID)
	}
	fmt.Fprintf(w, "Approval\t%s\n", yesNo(s.RequiresApproval))
	if s.Reason != nil {
		fmt.Fprintf(w, "Reason\t%v\n", s.Reason)
	}
	if msg := s.Message(a.printer); msg != "" {
		fmt.Fprintf(w, "Notes\t%s\n", msg)
	}
}

func printTransfers(w *tabwriter.Writer, recs []quota.TransferRecord) {
	fmt.Fprintln(w, "ID\tUSER\tFROM\tTO\tDAYS\tCREDITED\tSTATUS\tCREATED")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.UserID, r.SourceType, r.TargetType, r.SourceAmount, r.TargetAmount, r.Status, factory.FormatDate(r.CreatedAt))
	}
}

// ============================================================================
// Carry-overs
// ============================================================================

type carryOverFlags struct {
	user, leaveType, comment string
	fromYear, toYear         int
	days                     float64
}

func (f *carryOverFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.user, "user", "", "user ID")
	cmd.Flags().StringVar(&f.leaveType, "type", "", "leave type")
	cmd.Flags().IntVar(&f.fromYear, "from-year", 0, "year the days come from")
	cmd.Flags().IntVar(&f.toYear, "to-year", 0, "year the days land in (default: from-year + 1)")
	cmd.Flags().Float64Var(&f.days, "days", 0, "days to carry (default: everything eligible)")
	cmd.Flags().StringVar(&f.comment, "comment", "", "comment stored with the request")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("from-year")
}

func (f *carryOverFlags) request() (quota.CarryOverRequest, error) {
	t, err := quota.ParseLeaveType(f.leaveType)
	if err != nil {
		return quota.CarryOverRequest{}, err
	}
	req := quota.CarryOverRequest{
		UserID:    generic.EntityID(f.user),
		LeaveType: t,
		FromYear:  f.fromYear,
		ToYear:    f.toYear,
		Comment:   f.comment,
	}
	if f.days > 0 {
		req.Amount = quota.Days(f.days)
	}
	return req, nil
}

func newCarryOverCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "carry-over",
		Aliases: []string{"carryover", "co"},
		Short:   "Carry unused days into the next year",
	}

	var sim carryOverFlags
	var legacy bool
	simulate := &cobra.Command{
		Use:   "simulate",
		Short: "Preview a carry-over without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := sim.request()
			if err != nil {
				return err
			}
			var c quota.CarryOverCalculation
			if legacy {
				c, err = a.legacy.SimulateCarryOverCalculation(ctxOf(cmd), req)
			} else {
				c, err = a.advanced.SimulateCarryOver(ctxOf(cmd), req)
			}
			if err != nil {
				return err
			}
			return a.render(api.ToCarryOverCalculationDTO(c, c.Message(a.printer)), func(w *tabwriter.Writer) { a.printCalculation(w, c) })
		},
	}
	sim.register(simulate)
	simulate.Flags().BoolVar(&legacy, "legacy", false, "round to half days and fall back to the default rule")

	var exec carryOverFlags
	request := &cobra.Command{
		Use:   "request",
		Short: "Submit a carry-over",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := exec.request()
			if err != nil {
				return err
			}
			res, err := a.management.RequestCarryOver(ctxOf(cmd), req)
			if err != nil {
				return err
			}
			return a.render(api.NewCarryOverResultDTO(res, a.printer), func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Carry-over %s\t%s\n", res.CarryOverID, res.Status)
				a.printCalculation(w, res.Calculation)
			})
		},
	}
	exec.register(request)

	var user string
	history := &cobra.Command{
		Use:   "history",
		Short: "List carry-overs",
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := a.advanced.CarryOverHistory(ctxOf(cmd), generic.EntityID(user))
			if err != nil {
				return err
			}
			return a.render(api.ToCarryOverRecordDTOs(recs), func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tUSER\tTYPE\tFROM\tTO\tDAYS\tEXPIRES\tSTATUS")
				for _, r := range recs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
						r.ID, r.UserID, r.LeaveType, r.FromYear, r.ToYear, r.CarriedAmount, formatExpiry(true, r.ExpiryDate), r.Status)
				}
			})
		},
	}
	history.Flags().StringVar(&user, "user", "", "only this user")

	cmd.AddCommand(simulate, request, history)
	return cmd
}

func (a *app) printCalculation(w *tabwriter.Writer, c quota.CarryOverCalculation) {
	fmt.Fprintf(w, "Remaining\t%s %s\n", c.OriginalRemaining, c.Request.LeaveType)
	fmt.Fprintf(w, "Eligible\t%s\n", c.EligibleForCarryOver)
	fmt.Fprintf(w, "Carried\t%s\n", c.CarryOverAmount)
	fmt.Fprintf(w, "Expires\t%s\n", formatExpiry(c.Expires, c.ExpiryDate))
	if c.AppliedRule != nil {
		fmt.Fprintf(w, "Rule\t%s\n", c.AppliedRule.ID)
	}
	fmt.Fprintf(w, "Approval\t%s\n", yesNo(c.RequiresApproval))
	if c.Reason != nil {
		fmt.Fprintf(w, "Reason\t%v\n", c.Reason)
	}
	if msg := c.Message(a.printer); msg != "" {
		fmt.Fprintf(w, "Notes\t%s\n", msg)
	}
}

func formatExpiry(expires bool, date time.Time) string {
	if !expires || date.IsZero() {
		return "never"
	}
	return factory.FormatDate(date)
}

func yearOrNow(year int) int {
	if year == 0 {
		return time.Now().Year()
	}
	return year
}

// ============================================================================
// Decisions
// ============================================================================

func newDecisionCmd(a *app, approve bool) *cobra.Command {
	verb := "reject"
	if approve {
		verb = "approve"
	}
	var by, comment string
	cmd := &cobra.Command{
		Use:       verb + " <transfer|carry-over> <request-id>",
		Short:     "Decide a pending request: " + verb,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"transfer", "carry-over"},
		RunE: func(cmd *cobra.Command, args []string) error {
			d := service.Decision{RequestID: args[1], Approve: approve, ProcessedBy: by, Comment: comment}
			switch args[0] {
			case "transfer":
				rec, err := a.management.ProcessTransfer(ctxOf(cmd), d)
				if err != nil {
					return err
				}
				return a.render(api.ToTransferRecordDTO(rec), func(w *tabwriter.Writer) { printTransfers(w, []quota.TransferRecord{rec}) })
			case "carry-over", "carryover":
				rec, err := a.management.ProcessCarryOver(ctxOf(cmd), d)
				if err != nil {
					return err
				}
				return a.render(api.ToCarryOverRecordDTO(rec), func(w *tabwriter.Writer) {
					fmt.Fprintf(w, "Carry-over %s\t%s\t%s days\n", rec.ID, rec.Status, rec.CarriedAmount)
				})
			default:
				return fmt.Errorf("unknown request kind %q, want transfer or carry-over", args[0])
			}
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "approver ID")
	cmd.Flags().StringVar(&comment, "comment", "", "decision comment")
	return cmd
}
