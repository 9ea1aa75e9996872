package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/campaign"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/dataset"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/logger"
)

var (
	pageWorkers   int
	requestsPerMn int
	unitAttempts  int
	dropAssetless bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <contest-list.csv>",
	Short: "Crawl every contest in a contest list CSV",
	Long: `Crawl reads a contest list (as produced by "contestcrawl discover" or
hand-made with ContestID and ContestURL columns) and crawls each contest:
brief attributes and attachments, every entries page, designer profiles and
full-resolution design assets.

The campaign is resumable. Contests recorded as finished, or with a valid
dataset from an earlier run, are skipped. Press Ctrl+C once to stop after
the contest currently in flight; press it again to abort immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().IntVar(&pageWorkers, "page-workers", 0, "concurrent page workers per contest")
	crawlCmd.Flags().IntVar(&requestsPerMn, "requests-per-minute", 0, "request budget per minute")
	crawlCmd.Flags().IntVar(&unitAttempts, "unit-attempts", 0, "retry budget per contest")
	crawlCmd.Flags().BoolVar(&dropAssetless, "drop-assetless-rows", false, "drop entries whose asset could not be resolved")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{
		"page-workers":        pageWorkers,
		"requests-per-minute": requestsPerMn,
		"unit-attempts":       unitAttempts,
	})
	if err != nil {
		return err
	}
	if dropAssetless {
		cfg.Output.DropAssetlessRows = true
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	log := logger.GetLogger()

	contests, err := dataset.ReadContestList(args[0])
	if err != nil {
		return err
	}
	if len(contests) == 0 {
		return fmt.Errorf("contest list %s is empty", args[0])
	}

	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	controller, err := campaign.New(buildScraper(cfg, log), cfg, log)
	if err != nil {
		return err
	}
	defer controller.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// First interrupt finishes the contest in flight, second aborts.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		controller.RequestStop()
		<-sigCh
		cancel()
	}()

	summary, err := controller.Run(ctx, contests)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d completed, %d skipped, %d failed (%.1f%% success), %d rows in %s\n",
		summary.RunID, summary.Completed, summary.Skipped, summary.Failed,
		summary.SuccessRate()*100, summary.Rows, summary.Duration.Round(time.Second))
	if summary.Interrupted {
		fmt.Println("campaign interrupted; rerun the same command to resume")
	}
	return nil
}
