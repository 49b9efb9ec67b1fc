/*
main.go - Application entry point

PURPOSE:
  Starts the time-balance service or runs one-off computations against the
  same database. Handles configuration, dependency wiring, and graceful
  shutdown.

COMMANDS:
  serve                    HTTP API + month-close scheduler
  monthly NAME             Balance of one calendar month
  period NAME              Balance of a month, quarter or year
  ledger NAME              Stored carry-over rows of one employee
  seed SCENARIO            Reset the database and load a demo scenario
  migrate                  Create the schema and exit

STARTUP SEQUENCE (serve):
  1. Load configuration (flags -> env TIMEBALANCE_* -> yaml -> defaults)
  2. Open and migrate the database
  3. Connect the event publisher (RabbitMQ when configured)
  4. Create API handler and router
  5. Start the month-close scheduler
  6. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (a running close is cancelled)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close publisher and database connection

EXAMPLES:
  # Run with file database
  ./timebalance serve --config ./config/timebalance.yaml

  # Run with in-memory database and demo data
  TIMEBALANCE_DATABASE_DSN=":memory:" ./timebalance serve --seed anna-february

  # February 2024 for Anna
  ./timebalance monthly anna --year 2024 --month 2

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys and defaults
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
