package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ReviewGoat/internal/analyzer"
	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/engine"
	"github.com/IshaanNene/ReviewGoat/internal/media"
	"github.com/IshaanNene/ReviewGoat/internal/storage"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

var (
	maxReviews     int
	noCache        bool
	extractor      string
	downloadImages bool
)

// analyzeCmd creates the "analyze" subcommand.
func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [url]",
		Short: "Collect and analyze a product's reviews",
		Long: `Open the product page in a headless browser, collect reviews from its
review widget, then have the configured model summarize and classify them.

Writes review.json and review_analysis_progress.json to the output directory and
prints the confidence score and recommendation checklist.`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}
	cmd.Flags().IntVarP(&maxReviews, "max", "m", -1, "maximum reviews to collect (0 = advertised total, -1 = config default)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore a cached run for this URL")
	cmd.Flags().BoolVar(&downloadImages, "download-images", false, "save customer review images under <output_dir>/images")
	return cmd
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url]",
		Short: "Collect reviews without analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  runScrape,
	}
	cmd.Flags().IntVarP(&maxReviews, "max", "m", -1, "maximum reviews to collect (0 = advertised total, -1 = config default)")
	cmd.Flags().StringVar(&extractor, "extractor", "", "card extractor: script or html")
	return cmd
}

// reanalyzeCmd creates the "reanalyze" subcommand.
func reanalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reanalyze",
		Short: "Retry fallback annotations from the last progress file",
		Long: `Load review_analysis_progress.json, send every review that holds a
fallback annotation back to the model, and rewrite the progress file.`,
		Args: cobra.NoArgs,
		RunE: runReanalyze,
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runOptions(cfg *config.Config, skipCache, collectOnly bool) engine.RunOptions {
	opts := engine.RunOptions{
		MaxReviews:  cfg.Collector.MaxReviews,
		SkipCache:   skipCache,
		CollectOnly: collectOnly,
	}
	if maxReviews >= 0 {
		opts.MaxReviews = maxReviews
	}
	return opts
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.ValidateURL(args[0]); err != nil {
		return fmt.Errorf("invalid URL %q: %w", args[0], err)
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.engine.Run(ctx, args[0], runOptions(cfg, noCache, false))
	if err != nil {
		if errors.Is(err, types.ErrWidgetNotFound) {
			fmt.Println("\nNo review widget found on this page.")
		}
		return err
	}

	printRun(run, a.files)

	if downloadImages {
		return saveGallery(ctx, cfg, logger, run)
	}
	return nil
}

func saveGallery(ctx context.Context, cfg *config.Config, logger *slog.Logger, run *types.Run) error {
	items := analyzer.Gallery(run.Reviews)
	if len(items) == 0 {
		return nil
	}

	d := media.NewDownloader(filepath.Join(cfg.Storage.OutputDir, "images"), 10, 4, cfg.Browser.UserAgents[0], logger)
	results, err := d.DownloadGallery(ctx, items)
	if err != nil {
		return err
	}

	saved := 0
	for _, r := range results {
		if r.Error == "" {
			saved++
		}
	}
	fmt.Printf("Saved %d of %d review images to %s\n", saved, len(items), filepath.Join(cfg.Storage.OutputDir, "images"))
	return nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if extractor != "" {
		cfg.Collector.Extractor = extractor
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	if err := config.ValidateURL(args[0]); err != nil {
		return fmt.Errorf("invalid URL %q: %w", args[0], err)
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.engine.Run(ctx, args[0], runOptions(cfg, true, true))
	if err != nil {
		return err
	}

	fmt.Printf("\n✅ Collected %d reviews in %s\n", len(run.Reviews), run.Duration().Round(time.Millisecond))
	if run.AdvertisedTotal > 0 {
		fmt.Printf("   Advertised: %d\n", run.AdvertisedTotal)
	}
	fmt.Printf("   Pages:      %d\n", run.Pages)
	fmt.Printf("   Output:     %s\n", a.files.ReviewsPath())
	printWarnings(run.Warnings)
	return nil
}

func runReanalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	reviews, err := a.files.LoadProgress()
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		return fmt.Errorf("no analysis progress in %s", a.files.ProgressPath())
	}

	res, retried, err := a.engine.Reanalyze(ctx, reviews)
	if err != nil {
		return err
	}

	fmt.Printf("\nRetried %d of %d reviews", retried, len(reviews))
	if res.FailedBatches > 0 {
		fmt.Printf(" (%d batches still failed)", res.FailedBatches)
	}
	fmt.Println()
	printReport(res.Report)
	return nil
}

func printRun(run *types.Run, files *storage.FileStorage) {
	switch run.Status {
	case types.RunNoReviews:
		fmt.Println("\nNo reviews found for this product.")
		return
	case types.RunFailed:
		fmt.Printf("\n❌ Run failed: %s\n", run.Error)
		return
	}

	fmt.Printf("\n✅ Analyzed %d reviews in %s\n", len(run.Reviews), run.Duration().Round(time.Millisecond))
	if run.ProductImage != "" {
		fmt.Printf("   Product image: %s\n", run.ProductImage)
	}
	fmt.Printf("   Reviews:       %s\n", files.ReviewsPath())
	fmt.Printf("   Analysis:      %s\n", files.ProgressPath())
	printReport(run.Report)

	if n := len(analyzer.Gallery(run.Reviews)); n > 0 {
		fmt.Printf("\n%d reviews include customer images.\n", n)
	}
	printWarnings(run.Warnings)
}

func printReport(report *types.AggregateReport) {
	if report == nil || report.Total == 0 {
		return
	}
	fmt.Println()
	fmt.Println(report.Narrative)

	if report.RatedReviews > 0 {
		fmt.Printf("\nAverage rating: %.2f / 5 (%d rated)\n", report.AverageRating, report.RatedReviews)
	}

	fmt.Println("\nSentiment:")
	for _, s := range []types.Sentiment{types.SentimentPositive, types.SentimentNeutral, types.SentimentNegative} {
		fmt.Printf("  %-9s %d\n", s, report.Sentiments[s])
	}

	fmt.Println("\nCategories:")
	cats := make([]types.Category, 0, len(report.Categories))
	for c := range report.Categories {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return report.Categories[cats[i]] > report.Categories[cats[j]] })
	for _, c := range cats {
		fmt.Printf("  %-15s %d\n", c, report.Categories[c])
	}
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "⚠️  %s\n", w)
	}
}
