package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/refcal/refcal/internal/config"
	"github.com/refcal/refcal/internal/fetch"
	"github.com/refcal/refcal/internal/logger"
	"github.com/refcal/refcal/internal/metrics"
	"github.com/refcal/refcal/internal/pipeline"
	"github.com/refcal/refcal/internal/storage"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

type options struct {
	configPath string
	outputDir  string
	format     string
	sortBy     string
	offline    bool
	verbose    bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(clockwork.NewRealClock())
}

func newRootCmd(clock clockwork.Clock) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "refcal",
		Short: "Turn referee match assignments into an iCalendar file",
		Long: `Fetches the accepted-match, address and referee listings from the
association website, writes them as CSV and builds an .ics calendar with one
event per assignment. Reports assignments added or removed since the last run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, clock)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "refcal.yaml", "Path to the YAML config file")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Override the output directory")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&opts.sortBy, "sort", string(SortByDate), "Assignment order in verbose output: date, venue or role")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Reuse the HTML saved by the previous run instead of fetching")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging and list every assignment")

	return cmd
}

func run(cmd *cobra.Command, opts *options, clock clockwork.Clock) error {
	format := OutputFormat(strings.ToLower(opts.format))
	if format != FormatText && format != FormatJSON {
		return errors.Newf("invalid format: %s (must be 'text' or 'json')", opts.format)
	}
	order := SortOrder(strings.ToLower(opts.sortBy))
	if !order.valid() {
		return errors.Newf("invalid sort order: %s (must be 'date', 'venue' or 'role')", opts.sortBy)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}

	level := logger.LevelDebug
	if !opts.verbose {
		if level, err = logger.ParseLevel(cfg.LogLevel); err != nil {
			return err
		}
	}
	log := logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(log)

	store, err := storage.New(cfg.OutputDir)
	if err != nil {
		return errors.Wrap(err, "initializing storage")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var fetcher pipeline.Fetcher
	if !opts.offline {
		cookies, err := fetch.LoadCookies(cfg.CookiesFile, cfg.Domain, clock.Now(), log)
		if err != nil {
			return err
		}
		fetcher = fetch.New(fetch.Options{
			Cookies:       cookies,
			Timeout:       cfg.FetchTimeout,
			LoginKeywords: cfg.LoginKeywords,
			Log:           log,
		})
	}

	log.Debug("Starting run", logger.Fields{
		"config":     opts.configPath,
		"output_dir": store.Dir(),
		"offline":    opts.offline,
	})

	m := metrics.New()
	sum, runErr := pipeline.Run(cmd.Context(), pipeline.Config{
		Store:   store,
		Fetcher: fetcher,
		Pages: pipeline.Pages{
			Matches:   cfg.Pages.Matches,
			Addresses: cfg.Pages.Addresses,
			Referees:  cfg.Pages.Referees,
		},
		Location:       loc,
		Duration:       cfg.MatchDuration,
		UIDDomain:      cfg.UIDDomain,
		CalendarName:   cfg.CalendarName,
		VenueThreshold: cfg.VenueMatchThreshold,
		Clock:          clock,
		Log:            log,
		Metrics:        m,
	})

	m.MarkRun(runErr == nil, clock.Now())
	if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
		log.Warn("Could not write metrics", logger.Fields{"path": cfg.MetricsFile, "error": err.Error()})
	}
	if runErr != nil {
		return runErr
	}

	result := NewOutputResult(sum, clock.Now().UTC(), opts.offline)
	sortRecords(result.Assignments, order)
	if err := WriteOutput(cmd.OutOrStdout(), result, format, opts.verbose); err != nil {
		return errors.Wrap(err, "writing output")
	}
	return nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
