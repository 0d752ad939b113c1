package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/mhavryliuk/reviewlens/internal/collect"
	"github.com/mhavryliuk/reviewlens/internal/config"
	"github.com/mhavryliuk/reviewlens/internal/database"
	"github.com/mhavryliuk/reviewlens/internal/pipeline"
	"github.com/mhavryliuk/reviewlens/internal/ratings"
	"github.com/mhavryliuk/reviewlens/internal/review"
	"github.com/mhavryliuk/reviewlens/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "reviewlens",
	Short:   "App Store review analytics",
	Long:    "Reviewlens collects App Store reviews, cleans them, classifies sentiment, and distills rating metrics and actionable insights.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.DatabasePath())
}

func parseAppID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid app id %q", arg)
	}
	return id, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("reviewlens", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/reviewlens/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure countries and the inference service URL.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Data directory: %s\n\n", cfg.GetDataDir())
		fmt.Printf("Apps tracked: %d\n", stats.Apps)
		fmt.Printf("Pipeline runs: %d (%d failed)\n", stats.TotalRuns, stats.FailedRuns)
		if stats.LastRunAt != nil {
			fmt.Printf("Last run: %s\n", *stats.LastRunAt)
		}
		return nil
	},
}

// --- search command ---

var searchCountry string

var searchCmd = &cobra.Command{
	Use:   "search <app name>",
	Short: "Find an app's numeric ID by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		term := ""
		for i, a := range args {
			if i > 0 {
				term += " "
			}
			term += a
		}

		candidates, err := collect.NewSearchClient().Search(context.Background(), term, searchCountry)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Printf("No apps found for %q in %s.\n", term, searchCountry)
			return nil
		}

		for _, c := range candidates {
			seller, bundle := c.Seller, c.BundleID
			if err := db.UpsertApp(c.AppID, c.Name, &seller, &bundle, &searchCountry); err != nil {
				log.Printf("recording app %d: %v", c.AppID, err)
			}
			fmt.Printf("  %d  %s (%s)\n", c.AppID, c.Name, c.Seller)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchCountry, "country", "us", "Two-letter store country code")
}

// --- collect command ---

var collectCmd = &cobra.Command{
	Use:   "collect <app-id>",
	Short: "Fetch recent reviews from the App Store review feeds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := parseAppID(args[0])
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runID := ulid.Make().String()
		if err := db.InsertRun(runID, appID, "collect"); err != nil {
			log.Printf("recording run start: %v", err)
		}

		fmt.Printf("Collecting reviews for app %d (%v)...\n", appID, cfg.Countries)
		result, err := collect.NewCollector(cfg).Collect(context.Background(), appID)
		if err != nil {
			msg := err.Error()
			if ferr := db.FinishRun(runID, "failed", 0, 0, &msg); ferr != nil {
				log.Printf("recording run finish: %v", ferr)
			}
			return err
		}
		if err := db.FinishRun(runID, "ok", result.Total, 0, nil); err != nil {
			log.Printf("recording run finish: %v", err)
		}

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total reviews: %d\n", result.Total)

		var countries []string
		for c := range result.Countries {
			countries = append(countries, c)
		}
		sort.Strings(countries)
		for _, c := range countries {
			fmt.Printf("  %s: %d\n", c, result.Countries[c])
		}
		return nil
	},
}

// --- process command ---

var processCmd = &cobra.Command{
	Use:   "process <app-id>",
	Short: "Clean collected reviews into the processed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := parseAppID(args[0])
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		c, err := pipeline.New(cfg, db).Process(appID)
		if err != nil {
			return err
		}

		fmt.Printf("Processed %d reviews (%d skipped).\n", len(c.Reviews), c.Skipped)
		fmt.Printf("Written to %s\n", cfg.ProcessedPath(appID))
		return nil
	},
}

// --- analyze command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <app-id>",
	Short: "Classify sentiment and derive keywords and insights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := parseAppID(args[0])
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		a, err := pipeline.New(cfg, db).Analyze(context.Background(), appID)
		if err != nil {
			return err
		}

		fmt.Printf("Classified %d reviews:\n", a.Metrics.TotalReviews)
		for _, label := range review.Labels {
			if count, ok := a.Metrics.Counts[label]; ok {
				fmt.Printf("  %s: %d (%.2f%%)\n", label, count, a.Metrics.Percentages[label])
			}
		}
		fmt.Println("\nInsights:")
		for _, line := range a.Insights {
			fmt.Printf("  - %s\n", line)
		}
		fmt.Printf("\nWritten to %s\n", cfg.InsightsDir(appID))
		return nil
	},
}

// --- metrics command ---

var metricsCmd = &cobra.Command{
	Use:   "metrics <app-id>",
	Short: "Compute rating metrics from processed reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := parseAppID(args[0])
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		m, err := pipeline.New(cfg, db).Metrics(appID)
		if err != nil {
			return err
		}

		printRatings(m)
		fmt.Printf("\nWritten to %s\n", cfg.MetricsDir(appID))
		return nil
	},
}

func printRatings(m ratings.Metrics) {
	fmt.Printf("Average rating: %.2f over %d rated reviews\n", m.AverageRating, m.TotalReviews)
	for star := 5; star >= 1; star-- {
		key := strconv.Itoa(star)
		fmt.Printf("  %d stars: %d\n", star, m.RatingCounts[key])
	}
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run <app-id>",
	Short: "Run the full pipeline: process -> metrics -> analyze -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one app id")
		}
		appID, err := parseAppID(args[0])
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result := pipeline.New(cfg, db).Run(context.Background(), appID)

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/4: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("run %s failed", result.RunID)
		}
		fmt.Printf("\nPipeline complete (run %s). Run 'reviewlens serve' to browse the results.\n", result.RunID)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		fmt.Printf("Starting server at http://localhost:%d\n", cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cfg, db)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}
