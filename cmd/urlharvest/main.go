package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/urlharvest/urlharvest/internal/checkpoint"
	"github.com/urlharvest/urlharvest/internal/logger"
	"github.com/urlharvest/urlharvest/internal/shutdown"
	"github.com/urlharvest/urlharvest/pkg/crawler"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	verbose    bool
	debug      bool

	// Crawl flags
	site        string
	startURL    string
	outputDir   string
	outputFile  string
	journalFile string
	maxPages    int
	delayMin    int
	delayMax    int
	timeout     int
	retries     int
	noStealth   bool
	seed        int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "urlharvest",
		Short: "urlharvest - Single-site URL discovery crawler",
		Long: `urlharvest discovers the content URLs of a single site with a headless
browser that behaves like a human visitor: randomized visit order, paced
delays, scrolling, and cookie-banner handling.

Discovered URLs accumulate in a JSON checkpoint that later pipeline
stages consume, and an interrupted crawl resumes from it.`,
		Version: version,
	}

	crawlCmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a site for URLs",
		Long:  "Crawl a site from a start URL and persist every in-scope URL found.",
		RunE:  runCrawl,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show checkpoint and journal status",
		Long:  "Show the persisted URL count and, if a journal exists, per-outcome visit tallies.",
		RunE:  runStatus,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode")

	// Crawl flags
	crawlCmd.Flags().StringVar(&site, "site", "", "Site host to crawl, e.g. example.com")
	crawlCmd.Flags().StringVar(&startURL, "start-url", "", "Starting URL")
	crawlCmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory")
	crawlCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Checkpoint file name")
	crawlCmd.Flags().StringVar(&journalFile, "journal", "", "Visit journal database path")
	crawlCmd.Flags().IntVar(&maxPages, "max-pages", 100, "Maximum pages to crawl")
	crawlCmd.Flags().IntVar(&delayMin, "delay-min", 2, "Minimum delay between pages in seconds")
	crawlCmd.Flags().IntVar(&delayMax, "delay-max", 5, "Maximum delay between pages in seconds")
	crawlCmd.Flags().IntVarP(&timeout, "timeout", "t", 30, "Page operation timeout in seconds")
	crawlCmd.Flags().IntVar(&retries, "retries", 3, "Attempts per URL")
	crawlCmd.Flags().BoolVar(&noStealth, "no-stealth", false, "Disable headless stealth browsing")
	crawlCmd.Flags().Int64Var(&seed, "seed", 0, "Fixed random seed (0 = time-based)")

	// Status flags
	statusCmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory")
	statusCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Checkpoint file name")
	statusCmd.Flags().StringVar(&journalFile, "journal", "", "Visit journal database path")

	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(statusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildConfig(cmd *cobra.Command) (*crawler.Config, error) {
	config := crawler.DefaultConfig()

	if configFile != "" {
		fileConfig, err := crawler.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = fileConfig
	}

	// Command-line flags take precedence over the file.
	if cmd.Flags().Changed("site") {
		config.Site = site
	}
	if cmd.Flags().Changed("start-url") {
		config.StartURL = startURL
	}
	if cmd.Flags().Changed("output-dir") {
		config.OutputDir = outputDir
	}
	if cmd.Flags().Changed("output") {
		config.OutputFile = outputFile
	}
	if cmd.Flags().Changed("journal") {
		config.JournalFile = journalFile
	}
	if cmd.Flags().Changed("max-pages") {
		config.MaxPages = maxPages
	}
	if cmd.Flags().Changed("delay-min") {
		config.DelayMin = time.Duration(delayMin) * time.Second
	}
	if cmd.Flags().Changed("delay-max") {
		config.DelayMax = time.Duration(delayMax) * time.Second
	}
	if cmd.Flags().Changed("timeout") {
		config.Timeout = time.Duration(timeout) * time.Second
	}
	if cmd.Flags().Changed("retries") {
		config.Retries = retries
	}
	if cmd.Flags().Changed("no-stealth") {
		config.Stealth = !noStealth
	}
	if cmd.Flags().Changed("seed") {
		config.Seed = seed
	}
	config.Verbose = verbose
	config.Debug = debug

	return config, nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	config, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	c, err := crawler.New(crawler.WithConfig(config))
	if err != nil {
		return fmt.Errorf("failed to create crawler: %w", err)
	}

	handler := shutdown.New(shutdown.Config{
		Timeout: config.Timeout + 10*time.Second,
		Logger:  logger.NewDefault(),
	})
	ctx := handler.Context()

	fmt.Printf("urlharvest v%s - crawling %s\n", version, config.Site)
	fmt.Printf("Start URL: %s\n", config.StartURL)
	fmt.Printf("Max pages: %d\n\n", config.MaxPages)

	// On interrupt the run unwinds and writes its final checkpoint;
	// shutdown completes only once that has happened.
	crawlDone := make(chan struct{})
	handler.Register("crawl", func(ctx context.Context) error {
		fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, stopping...\n")
		select {
		case <-crawlDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	startTime := time.Now()
	result, err := c.Run(ctx)
	close(crawlDone)
	duration := time.Since(startTime)

	if handler.Triggered() {
		handler.Wait()
	}

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	if result != nil {
		printSummary(result, duration)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	config, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	store := checkpoint.NewFileStore(config.OutputDir, config.OutputFile)
	snap, err := store.ReadSnapshot()
	if err != nil {
		return fmt.Errorf("failed to read checkpoint: %w", err)
	}

	if snap == nil {
		fmt.Printf("No checkpoint at %s\n", store.Path())
	} else {
		fmt.Printf("Checkpoint:   %s\n", store.Path())
		fmt.Printf("URLs:         %d\n", snap.Count)
		fmt.Printf("Last updated: %s\n", snap.LastUpdated)
	}

	journalPath := config.JournalFile
	if journalPath == "" {
		journalPath = filepath.Join(config.OutputDir, "visits.db")
	}
	if _, statErr := os.Stat(journalPath); statErr != nil {
		return nil
	}

	j, err := checkpoint.OpenJournal(journalPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.Close()

	visited, failed, err := j.Counts()
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	fmt.Printf("\nJournal:      %s\n", journalPath)
	fmt.Printf("Visited:      %d\n", visited)
	fmt.Printf("Failed:       %d\n", failed)

	return nil
}

func printSummary(result *crawler.Result, duration time.Duration) {
	fmt.Println()
	fmt.Println("Crawl finished.")
	fmt.Printf("Duration:      %v\n", duration.Round(time.Second))
	fmt.Printf("Unique URLs:   %d\n", result.URLsCount)
	fmt.Printf("Pages visited: %d\n", result.PagesVisited)
	fmt.Printf("Failed pages:  %d\n", result.FailedURLs)
	if result.OutputFile != "" {
		fmt.Printf("Saved to:      %s\n", result.OutputFile)
	}
}
