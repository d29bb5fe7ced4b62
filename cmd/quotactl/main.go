/*
main.go - quotactl command-line client

PURPOSE:
  Operates the leave quota services from a terminal. By default the
  services talk to a running server over REST (QUOTA_BACKEND_URL). With
  --db they run against a local SQLite file instead, which is how HR
  scripts the year-end run on a host without the server.

COMMANDS:
  balance        Show a user's balance for a year
  transfer       simulate | request | history
  carry-over     simulate | request | history
  approve/reject Decide a pending transfer or carry-over
  rules          list | import
  report         Transfer report, table or exported file
  stats          Usage statistics for a user or department
  dashboard      Year overview for HR
  annual         Run the annual carry-over

EXIT CODES:
  1  failure
  2  bad input, unknown user or request, insufficient balance
  3  server unreachable, retry later

SEE ALSO:
  - api/client.go: REST backend
  - service/: Business rules shared with the server
*/
package main

import (
	"fmt"
	"os"

	"github.com/warp/leave-quota/generic"
)

// Exit codes. Scripts retry on exitUnavailable only.
const (
	exitFailure     = 1
	exitClientError = 2
	exitUnavailable = 3
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case generic.IsRetryable(err):
		return exitUnavailable
	case generic.IsClientError(err), generic.IsNotFound(err):
		return exitClientError
	default:
		return exitFailure
	}
}
