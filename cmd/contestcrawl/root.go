package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/auth"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/catalog"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/config"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/logger"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/parser"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/ratelimit"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/scraper"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile   string
	logLevel     string
	outputDir    string
	cookieHeader string
	sessionName  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "contestcrawl",
	Short: "A resilient crawler for design contest catalogs",
	Long: `contestcrawl harvests contest entries, designer profiles and design
assets from a paginated contest catalog.

Features:
  - Resumable campaigns: finished contests are skipped on restart
  - Download journaling so interrupted runs never re-fetch assets
  - Whole-contest retry budgets on top of per-request backoff
  - Concurrent page crawling with a bounded worker pool
  - Aggregated, deduplicated campaign dataset with periodic checkpoints
  - Session cookies kept in the system keychain or an encrypted file`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .contestcrawl.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory for contests and datasets")
	rootCmd.PersistentFlags().StringVar(&cookieHeader, "cookie-header", "", "session cookie header sent with every request")
	rootCmd.PersistentFlags().StringVar(&sessionName, "session", "", "named stored session to crawl with")
}

// loadConfig builds the effective configuration from all sources and resolves
// the session cookie from the credential stores when none was given directly.
func loadConfig(extraFlags map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{
		"output":        outputDir,
		"cookie-header": cookieHeader,
		"log-level":     logLevel,
	}
	for k, v := range extraFlags {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if cfg.Site.CookieHeader == "" {
		if session := loadStoredSession(); session != nil {
			cfg.Site.CookieHeader = session.CookieHeader
			if session.UserAgent != "" {
				cfg.Site.UserAgent = session.UserAgent
			}
		}
	}
	return cfg, nil
}

// loadStoredSession pulls the requested or default session from the stores.
// A missing session is not an error; the catalog may be crawlable anonymously.
func loadStoredSession() *auth.Session {
	manager, err := auth.NewManager()
	if err != nil {
		return nil
	}
	if sessionName != "" {
		if session, err := manager.Retrieve(sessionName); err == nil {
			return session
		}
		return nil
	}
	session, err := manager.RetrieveDefault()
	if err != nil {
		return nil
	}
	return session
}

// buildScraper wires the executor, parser and scraper from the configuration
func buildScraper(cfg *config.Config, log logger.Logger) *scraper.Scraper {
	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute)
	client := catalog.NewClient(&cfg.Site, limiter, log)
	return scraper.New(client, parser.NewNinetyNine(cfg.Site.BaseURL), cfg, log)
}
