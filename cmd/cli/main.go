package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/cmip6-fetch-go/internal/app"
	"github.com/yourusername/cmip6-fetch-go/internal/domain"
	"github.com/yourusername/cmip6-fetch-go/internal/infrastructure"
	"github.com/yourusername/cmip6-fetch-go/pkg/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "cmip6-fetch",
		Short: "CMIP6-Fetch - downloader for statistically downscaled CMIP6 data",
		Long: `A command-line tool that mirrors a subset of the CMCC DDS
cmip6-stat-downscaled-over-italy dataset to a local directory,
organized by variable, scenario, model and year.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(statsCmd)
}

func loadConfig() *domain.Config {
	config, err := app.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return config
}

func newLogger(config *domain.Config) *zap.Logger {
	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

// openHistory opens the run-history database. History is best-effort: an
// unavailable database disables recording rather than blocking downloads.
func openHistory(config *domain.Config, log *zap.Logger) domain.HistoryRepository {
	if !config.History.Enabled {
		return nil
	}
	repo, err := infrastructure.NewSQLiteHistoryRepository(config.History.DatabasePath)
	if err != nil {
		log.Warn("Run history disabled", zap.Error(err))
		return nil
	}
	return repo
}

var downloadCmd = &cobra.Command{
	Use:   "download [out_path]",
	Short: "Download data for a year range into a directory",
	Long: "Download data for a year range into a directory.\n\n" +
		"Known identifiers per mode:\n\n" + catalogHelp(),
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		log := newLogger(config)
		defer log.Sync()

		fromYear, _ := cmd.Flags().GetInt("from-year")
		toYear, _ := cmd.Flags().GetInt("to-year")
		mode, _ := cmd.Flags().GetString("mode")
		variables, _ := cmd.Flags().GetStringSlice("variable")
		scenarios, _ := cmd.Flags().GetStringSlice("scenario")
		models, _ := cmd.Flags().GetStringSlice("model")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		skipExisting := config.Download.SkipExisting
		if cmd.Flags().Changed("skip-existing") {
			skipExisting, _ = cmd.Flags().GetBool("skip-existing")
		}
		skipIncompatible := config.Download.SkipIncompatible
		if cmd.Flags().Changed("skip-incompatible") {
			skipIncompatible, _ = cmd.Flags().GetBool("skip-incompatible")
		}

		catalog := domain.DefaultCatalog()
		history := openHistory(config, log)
		if history != nil {
			defer history.Close()
		}
		notifier := infrastructure.NewNotificationService(&config.Notification, log)
		fetcher := infrastructure.NewDDSClient(&config.API, log)
		planner := app.NewPlanner(catalog, fetcher, history, notifier, log)

		plan, err := planner.Plan(app.PlanSpec{
			OutDir:    args[0],
			Mode:      domain.Mode(mode),
			FromYear:  fromYear,
			ToYear:    toYear,
			Variables: domain.ParseFilter(variables),
			Scenarios: domain.ParseFilter(scenarios),
			Models:    domain.ParseFilter(models),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Planned %d requests (mode %s, years %d-%d)\n",
			plan.Count(), plan.Mode, plan.FromYear, plan.ToYear)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		result, err := planner.Run(ctx, plan, app.RunOptions{
			DryRun:           dryRun,
			SkipExisting:     skipExisting,
			SkipIncompatible: skipIncompatible,
			FailureDelay:     config.Download.FailureDelay,
		})
		if err != nil {
			printFailures(result)
			fmt.Fprintf(os.Stderr, "Error: run aborted: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Done: %d succeeded, %d skipped, %d failed\n",
			result.Succeeded, result.Skipped, len(result.Failed))

		if !result.OK() {
			printFailures(result)
			os.Exit(1)
		}
	},
}

// catalogHelp renders the known identifiers per mode for the help text.
func catalogHelp() string {
	catalog := domain.DefaultCatalog()
	var b strings.Builder
	for _, mode := range catalog.Modes() {
		entry, err := catalog.Lookup(mode)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "  %s (years %d-%d):\n", entry.Mode, entry.MinYear, entry.MaxYear)
		fmt.Fprintf(&b, "    variables: %s\n", strings.Join(entry.Variables, ", "))
		fmt.Fprintf(&b, "    scenarios: %s (default: %s)\n",
			strings.Join(entry.Scenarios, ", "),
			strings.Join(entry.DefaultScenarios, ", "))
		fmt.Fprintf(&b, "    models:    %s\n", strings.Join(entry.Models, ", "))
	}
	return b.String()
}

// printFailures writes the itemized failure report to stderr.
func printFailures(result *domain.PlanResult) {
	if result == nil || len(result.Failed) == 0 {
		return
	}

	fmt.Fprintf(os.Stderr, "%d request(s) failed:\n", len(result.Failed))
	w := tabwriter.NewWriter(os.Stderr, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VARIABLE\tSCENARIO\tMODEL\tYEAR\tERROR")
	for _, f := range result.Failed {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%v\n",
			f.Request.Variable,
			f.Request.Scenario,
			f.Request.Model,
			f.Request.Year,
			f.Err)
	}
	w.Flush()
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the known variables, scenarios and models per mode",
	Run: func(cmd *cobra.Command, args []string) {
		catalog := domain.DefaultCatalog()
		modeFlag, _ := cmd.Flags().GetString("mode")
		remote, _ := cmd.Flags().GetBool("remote")

		modes := catalog.Modes()
		if modeFlag != "" {
			modes = []domain.Mode{domain.Mode(modeFlag)}
		}

		if remote {
			printRemoteCatalog(catalog, modes)
			return
		}

		for _, mode := range modes {
			entry, err := catalog.Lookup(mode)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			fmt.Printf("Mode %s (years %d-%d):\n", entry.Mode, entry.MinYear, entry.MaxYear)
			fmt.Printf("  Variables: %s\n", strings.Join(entry.Variables, ", "))
			fmt.Printf("  Scenarios: %s (default: %s)\n",
				strings.Join(entry.Scenarios, ", "),
				strings.Join(entry.DefaultScenarios, ", "))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "  MODEL\tVARIABLES")
			for _, model := range entry.Models {
				fmt.Fprintf(w, "  %s\t%s\n", model, strings.Join(catalog.ModelVariables(mode, model), ", "))
			}
			w.Flush()
			fmt.Println()
		}
	},
}

// printRemoteCatalog lists the variant metadata the DDS hub publishes.
func printRemoteCatalog(catalog *domain.Catalog, modes []domain.Mode) {
	config := loadConfig()
	log := newLogger(config)
	defer log.Sync()

	client := infrastructure.NewDDSClient(&config.API, log)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, mode := range modes {
		entry, err := catalog.Lookup(mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		for _, variable := range entry.Variables {
			widgets, err := client.VariantInfo(ctx, variable, mode)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", domain.Variant(variable, mode), err)
				continue
			}

			fmt.Printf("%s:\n", domain.Variant(variable, mode))
			for label := range widgets {
				fmt.Printf("  %s\n", label)
			}
		}
	}
}

var runsCmd = &cobra.Command{
	Use:   "runs [id]",
	Short: "List recorded runs, or show one run with its requests",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		log := newLogger(config)
		defer log.Sync()

		history := openHistory(config, log)
		if history == nil {
			fmt.Fprintln(os.Stderr, "Error: run history is not available")
			os.Exit(1)
		}
		defer history.Close()

		if len(args) == 1 {
			showRun(history, args[0])
			return
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := history.FindRuns(limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODE\tYEARS\tSTATUS\tTOTAL\tOK\tSKIP\tFAIL\tSTARTED")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d-%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
				truncate(run.ID, 8),
				run.Mode,
				run.FromYear, run.ToYear,
				run.Status,
				run.Total, run.Succeeded, run.Skipped, run.Failed,
				run.StartedAt.Format("2006-01-02 15:04:05"))
		}
		w.Flush()
	},
}

func showRun(history domain.HistoryRepository, id string) {
	run, err := history.FindRunByID(id)
	if err != nil || run == nil {
		fmt.Fprintf(os.Stderr, "Error: run not found: %s\n", id)
		os.Exit(1)
	}

	fmt.Printf("Run Details:\n")
	fmt.Printf("  ID:      %s\n", run.ID)
	fmt.Printf("  Mode:    %s\n", run.Mode)
	fmt.Printf("  Years:   %d-%d\n", run.FromYear, run.ToYear)
	fmt.Printf("  OutDir:  %s\n", run.OutDir)
	fmt.Printf("  DryRun:  %v\n", run.DryRun)
	fmt.Printf("  Status:  %s\n", run.Status)
	fmt.Printf("  Totals:  %d total, %d succeeded, %d skipped, %d failed\n",
		run.Total, run.Succeeded, run.Skipped, run.Failed)

	records, err := history.FindRequestsByRun(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VARIABLE\tSCENARIO\tMODEL\tYEAR\tSTATUS\tERROR")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			rec.Variable, rec.Scenario, rec.Model, rec.Year, rec.Status, rec.ErrorMessage)
	}
	w.Flush()
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		log := newLogger(config)
		defer log.Sync()

		history := openHistory(config, log)
		if history == nil {
			fmt.Fprintln(os.Stderr, "Error: run history is not available")
			os.Exit(1)
		}
		defer history.Close()

		stats, err := history.GetStats()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Run Statistics:")
		fmt.Printf("  Runs:      %d\n", stats.Runs)
		fmt.Printf("  Completed: %d\n", stats.Completed)
		fmt.Printf("  Partial:   %d\n", stats.Partial)
		fmt.Printf("  Aborted:   %d\n", stats.Aborted)
		fmt.Printf("  Running:   %d\n", stats.Running)
		fmt.Println("Request Statistics:")
		fmt.Printf("  Succeeded: %d\n", stats.RequestsSucceeded)
		fmt.Printf("  Failed:    %d\n", stats.RequestsFailed)
		fmt.Printf("  Skipped:   %d\n", stats.RequestsSkipped)
	},
}

func init() {
	downloadCmd.Flags().Int("from-year", 0, "Download data starting from this year (required)")
	downloadCmd.Flags().Int("to-year", 0, "Download data up to this year, inclusive (required)")
	downloadCmd.Flags().String("mode", "", "Historical or future data: 'hist' or 'future' (required)")
	downloadCmd.Flags().StringSlice("variable", []string{domain.SentinelAll}, "Variables to download; 'all' for everything")
	downloadCmd.Flags().StringSlice("scenario", []string{domain.SentinelDefault}, "Scenarios to download; 'default' for the mode defaults")
	downloadCmd.Flags().StringSlice("model", []string{domain.SentinelAll}, "Models to download from; 'all' for everything")
	downloadCmd.Flags().Bool("dry-run", false, "Create empty files instead of downloading")
	downloadCmd.Flags().Bool("skip-existing", false, "Skip requests whose output file already exists")
	downloadCmd.Flags().Bool("skip-incompatible", false, "Skip model/variable pairs the model does not provide")
	downloadCmd.MarkFlagRequired("from-year")
	downloadCmd.MarkFlagRequired("to-year")
	downloadCmd.MarkFlagRequired("mode")

	catalogCmd.Flags().StringP("mode", "m", "", "Limit the listing to one mode")
	catalogCmd.Flags().Bool("remote", false, "Fetch variant metadata from the DDS hub")

	runsCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
