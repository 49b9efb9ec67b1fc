package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/time-balance/api"
	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/calendar"
	"github.com/warp/time-balance/config"
	"github.com/warp/time-balance/events"
	"github.com/warp/time-balance/logger"
	"github.com/warp/time-balance/store/sqlite"
)

const serviceName = "time-balance"

// app holds the dependencies shared by every command.
type app struct {
	configFile string

	cfg       *config.Config
	log       *logger.Logger
	store     *sqlite.Store
	publisher events.Publisher
	handler   *api.Handler
}

func (a *app) open(ctx context.Context, withEvents bool) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.New(serviceName, cfg.Server.Environment, cfg.Log.Level)

	store, err := sqlite.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.store = store

	a.publisher = events.NopPublisher{}
	if withEvents && cfg.RabbitMQ.URL != "" {
		pub, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, a.log)
		if err != nil {
			store.Close()
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		a.publisher = pub
	}

	a.handler = api.NewHandler(store, a.publisher, a.log)
	return nil
}

func (a *app) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close publisher")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close database")
		}
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "timebalance",
		Short:         "Working-time balance service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./config/timebalance.yaml)")

	rootCmd.AddCommand(
		newServeCommand(a),
		newMonthlyCommand(a),
		newPeriodCommand(a),
		newLedgerCommand(a),
		newSeedCommand(a),
		newMigrateCommand(a),
	)
	return rootCmd
}

// =============================================================================
// SERVE
// =============================================================================

func newServeCommand(a *app) *cobra.Command {
	var seed string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the month-close scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), true); err != nil {
				return err
			}
			defer a.close()

			if seed != "" {
				if err := a.handler.ApplyScenario(cmd.Context(), seed); err != nil {
					return fmt.Errorf("seed %s: %w", seed, err)
				}
			}
			return serve(a)
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "load a demo scenario on start")
	return cmd
}

func serve(a *app) error {
	cfg := a.cfg

	scheduler := api.NewMonthCloseScheduler(a.handler, cfg.Scheduler.Interval, cfg.Scheduler.Enabled)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(a.handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().
			Str("addr", server.Addr).
			Str("driver", cfg.Database.Driver).
			Bool("scheduler", cfg.Scheduler.Enabled).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	a.log.Info().Msg("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.log.Info().Msg("server stopped")
	return nil
}

// =============================================================================
// BALANCES
// =============================================================================

func newMonthlyCommand(a *app) *cobra.Command {
	var (
		year, month int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "monthly NAME",
		Short: "Compute the balance of one calendar month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			today := calendar.Today()
			if year == 0 {
				year = today.Year
			}
			if month == 0 {
				month = int(today.Month)
			}
			p, err := balance.MonthPeriod(year, month)
			if err != nil {
				return err
			}
			return a.report(cmd, args[0], p, asJSON)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newPeriodCommand(a *app) *cobra.Command {
	var (
		periodType, year, value string
		asJSON                  bool
	)

	cmd := &cobra.Command{
		Use:   "period NAME",
		Short: "Compute the balance of a month, quarter or year",
		Example: `  timebalance period anna --type quarter --year 2024 --value Q1
  timebalance period anna --type year --year 2024`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := balance.ParsePeriod(periodType, year, value)
			if err != nil {
				return err
			}
			return a.report(cmd, args[0], p, asJSON)
		},
	}
	cmd.Flags().StringVar(&periodType, "type", string(balance.PeriodMonth), "month, quarter or year")
	cmd.Flags().StringVar(&year, "year", "", "year")
	cmd.Flags().StringVar(&value, "value", "", "month 1-12 or quarter 1-4 / Q1-Q4")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) report(cmd *cobra.Command, name string, p balance.Period, asJSON bool) error {
	if err := a.open(cmd.Context(), true); err != nil {
		return err
	}
	defer a.close()

	res, err := a.handler.Compute(cmd.Context(), name, p)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), api.ToBalanceDTO(res))
	}
	return printBalance(cmd.OutOrStdout(), res)
}

func printBalance(out io.Writer, res *balance.Result) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Employee\t%s (%s)\n", res.Employee.Name, res.Employee.ID)
	fmt.Fprintf(tw, "Period\t%s [%s, %s)\n", res.Period.Label, res.Period.Range.Start, res.Period.Range.End)
	fmt.Fprintf(tw, "Expected\t%s h over %d days\n", res.ExpectedHours, res.ExpectedDays)
	fmt.Fprintf(tw, "Worked\t%s h\n", res.WorkedHours)
	fmt.Fprintf(tw, "Absences\t%s h\n", res.AbsenceHours)
	fmt.Fprintf(tw, "Difference\t%s h\n", res.Difference)
	fmt.Fprintf(tw, "Prior carry-over\t%s h\n", res.PriorCarryOver)
	fmt.Fprintf(tw, "Carry-over\t%s h\n", res.CarryOver)
	return tw.Flush()
}

func newLedgerCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ledger NAME",
		Short: "List the stored carry-over rows of one employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), false); err != nil {
				return err
			}
			defer a.close()

			emp, err := a.store.FindEmployeeByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if emp == nil {
				return &balance.EmployeeNotFoundError{Name: args[0]}
			}
			rows, err := a.store.ListPeriodBalances(cmd.Context(), emp.ID)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PERIOD\tDIFFERENCE\tCARRY-OVER")
			for _, pb := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", pb.PeriodKey, pb.Difference, pb.CarryOver)
			}
			return tw.Flush()
		},
	}
}

// =============================================================================
// ADMIN
// =============================================================================

func newSeedCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed SCENARIO",
		Short: "Reset the database and load a demo scenario",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			var ids []string
			for _, s := range api.Scenarios() {
				ids = append(ids, s.ID)
			}
			return ids, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), false); err != nil {
				return err
			}
			defer a.close()

			if err := a.handler.ApplyScenario(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded scenario %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), false); err != nil {
				return err
			}
			defer a.close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", a.cfg.Database.Driver)
			return nil
		},
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
