package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/warp/leave-quota/api"
	"github.com/warp/leave-quota/config"
	"github.com/warp/leave-quota/i18n"
	"github.com/warp/leave-quota/service"
	"github.com/warp/leave-quota/store/sqlite"
)

// app carries the global flags and the services built from them.
type app struct {
	out io.Writer
	cfg config.Config

	dbPath  string
	asJSON  bool
	timeout time.Duration

	// set by connect
	backend    service.Backend
	store      *sqlite.Store
	client     *api.Client
	advanced   *service.Advanced
	legacy     *service.Legacy
	management *service.Management
	printer    *message.Printer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "quotactl",
		Short: "Leave quota administration",
		Long: `quotactl manages leave quotas: balances, transfers between leave
types, year-end carry-overs and the rules that drive them.

It talks to the quota server at QUOTA_BACKEND_URL, or to a local SQLite
database with --db.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store != nil {
				return a.store.Close()
			}
			return nil
		},
	}

	cfg, err := config.Load()
	if err != nil {
		// Flags can still fix what the environment got wrong.
		cfg = config.Config{BackendURL: "http://localhost:8080", HTTPTimeout: 15 * time.Second, Locale: "fr"}
	}
	a.cfg = cfg

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.BackendURL, "backend", cfg.BackendURL, "quota server base URL")
	flags.StringVar(&a.dbPath, "db", "", "use a local SQLite database instead of the server")
	flags.DurationVar(&a.timeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")
	flags.StringVar(&a.cfg.Locale, "locale", cfg.Locale, "message language (fr, en)")
	flags.BoolVar(&a.asJSON, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newBalanceCmd(a),
		newTransferCmd(a),
		newCarryOverCmd(a),
		newDecisionCmd(a, true),
		newDecisionCmd(a, false),
		newRulesCmd(a),
		newReportCmd(a),
		newStatsCmd(a),
		newDashboardCmd(a),
		newAnnualCmd(a),
	)
	return root
}

// connect builds the backend and the services on top of it.
func (a *app) connect(cmd *cobra.Command) error {
	a.printer = i18n.Printer(a.cfg.Language())

	if a.dbPath != "" {
		store, err := sqlite.New(a.dbPath, sqlite.WithCarryOverDeadline(a.cfg.Deadline()))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		a.store = store
		a.backend = store
	} else {
		a.client = api.NewClient(a.cfg.BackendURL, api.WithTimeout(a.timeout))
		a.backend = a.client
	}

	opts := []service.Option{service.WithPrinter(a.printer)}
	a.advanced = service.NewAdvanced(a.backend, opts...)
	a.legacy = service.NewLegacy(a.backend, opts...)
	a.management = service.NewManagement(a.backend, opts...)
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

// render prints v as JSON when --json is set, otherwise calls table.
func (a *app) render(v any, table func(w *tabwriter.Writer)) error {
	if a.asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
