/*
scheduler.go - Automated carry-over scheduler

PURPOSE:
  Periodically runs the year-boundary work that nobody should have to
  trigger by hand: the annual carry-over out of last year, expiry of
  carried days past their date, and expiring-days alerts.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - The annual run for a year happens once: completed runs are recorded
    and skipped
  - Expiry is idempotent, so it runs on every check
  - Alerts are published at most once per calendar day

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewCarryOverScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ProcessAnnualCarryOver endpoint (manual run)
  - store/sqlite/quota.go: ProcessAnnualCarryOver, ExpireCarryOvers
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/store/sqlite"
)

// CarryOverScheduler handles automated year-end carry-over and expiry.
type CarryOverScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	alertMu      sync.Mutex
	lastAlertDay string
}

// NewCarryOverScheduler creates a new scheduler.
func NewCarryOverScheduler(store *sqlite.Store, handler *Handler) *CarryOverScheduler {
	return &CarryOverScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (cs *CarryOverScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.wg.Add(1)

	go cs.run()

	log.Printf("[Scheduler] Started with check interval: %v", cs.CheckInterval)
}

// Stop stops the scheduler.
func (cs *CarryOverScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (cs *CarryOverScheduler) run() {
	defer cs.wg.Done()

	// Run immediately on start
	cs.checkAndProcess()

	for {
		select {
		case <-cs.ticker.C:
			cs.checkAndProcess()
		case <-cs.stop:
			return
		}
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (cs *CarryOverScheduler) RunNow() {
	cs.checkAndProcess()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (cs *CarryOverScheduler) GetNextRunTime() time.Time {
	return cs.Handler.now().Add(cs.CheckInterval)
}

func (cs *CarryOverScheduler) checkAndProcess() {
	ctx := context.Background()
	now := cs.Handler.now()

	log.Printf("[Scheduler] Checking carry-overs at %v", now)

	cs.processAnnual(ctx, now.Year()-1)

	expired, err := cs.Store.ExpireCarryOvers(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error expiring carry-overs: %v", err)
	} else if expired > 0 {
		log.Printf("[Scheduler] Expired %d carry-overs", expired)
	}

	cs.notifyAlerts(ctx, now)
}

// processAnnual runs the carry-over out of fromYear unless it already ran.
func (cs *CarryOverScheduler) processAnnual(ctx context.Context, fromYear int) {
	done, err := cs.Store.IsCarryOverRunComplete(ctx, fromYear)
	if err != nil {
		log.Printf("[Scheduler] Error checking run status for %d: %v", fromYear, err)
		return
	}
	if done {
		return
	}

	run, err := cs.Store.ProcessAnnualCarryOver(ctx, fromYear)
	if errors.Is(err, quota.ErrAlreadyProcessed) {
		return
	}
	if err != nil {
		log.Printf("[Scheduler] Annual carry-over %d failed: %v", fromYear, err)
		return
	}
	publishAnnualRun(cs.Handler.Bus, cs.Handler.now(), run)
	log.Printf("[Scheduler] Annual carry-over %d -> %d: %d processed, %d skipped, %s days",
		run.FromYear, run.ToYear, run.Processed, run.Skipped, run.CarriedOver)
}

// notifyAlerts publishes expiring-days alerts for every employee, once a day.
func (cs *CarryOverScheduler) notifyAlerts(ctx context.Context, now time.Time) {
	day := now.Format(generic.DateLayout)
	cs.alertMu.Lock()
	if cs.lastAlertDay == day {
		cs.alertMu.Unlock()
		return
	}
	cs.lastAlertDay = day
	cs.alertMu.Unlock()

	employees, err := cs.Store.ListEmployees(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing employees: %v", err)
		return
	}
	alerts := 0
	for _, emp := range employees {
		found, err := cs.Handler.Management.NotifyQuotaAlerts(ctx, generic.EntityID(emp.ID))
		if err != nil {
			log.Printf("[Scheduler] Error checking alerts for %s: %v", emp.ID, err)
			continue
		}
		alerts += len(found)
	}
	if alerts > 0 {
		log.Printf("[Scheduler] Published %d expiring alerts", alerts)
	}
}
