package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/veracitylab/veracity/internal/engine"
	"github.com/veracitylab/veracity/internal/model"
	"github.com/veracitylab/veracity/internal/verify"
	"github.com/veracitylab/veracity/internal/worker"
)

var (
	ingestConcurrency int
	ingestTimeout     time.Duration
	ingestForce       bool
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <articles.jsonl>",
	Short: "Ingest and verify a batch of articles in parallel",
	Long: `Ingest reads one JSON article per line, verifies each article's
claims concurrently, and correlates the batch into story clusters.

Articles already finalized in the store are skipped unless --force is
given. Each processed article updates the source credibility ledger
and the story timelines.

Example:
  veracity ingest articles.jsonl
  veracity ingest articles.jsonl --concurrency 16 --timeout 10m`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 0, "concurrent verifications (default: configured verify_workers)")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 10*time.Minute, "total timeout for the batch")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-verify articles that already have results")
}

func runIngest(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	cfg := loadConfig()
	concurrency := ingestConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Concurrency.VerifyWorkers
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	processor := batchProcessor{eng: eng, force: ingestForce}
	batch := worker.NewBatchProcessor(&processor, concurrency)

	start := time.Now()
	results, err := batch.ProcessFile(ctx, args[0])
	if err != nil {
		return err
	}

	var verified, degraded, failed int
	for _, r := range results {
		switch {
		case r.Error == nil:
			verified++
		case errors.Is(r.Error, verify.ErrAllProvidersUnavailable):
			degraded++
		default:
			failed++
			fmt.Fprintf(os.Stderr, "  %s: %v\n", r.ArticleID, r.Error)
		}
	}

	fmt.Printf("Processed %d articles in %s: %d verified, %d degraded, %d failed\n",
		len(results), time.Since(start).Round(time.Millisecond), verified, degraded, failed)

	stories := eng.Stories()
	if len(stories) > 0 {
		fmt.Printf("Stories: %d\n", len(stories))
		for _, story := range stories {
			fmt.Printf("  %s  members=%-3d consensus=%s %.2f  velocity=%.1f/h\n",
				story.ID, len(story.Members), story.ConsensusLabel, story.ConsensusConfidence, story.Velocity)
		}
	}
	return nil
}

// batchProcessor adapts the engine to the worker pool's Processor,
// carrying the force flag through each job.
type batchProcessor struct {
	eng   *engine.Engine
	force bool
}

func (p *batchProcessor) Process(ctx context.Context, article *model.Article) (*model.FactCheckResult, error) {
	return p.eng.Ingest(ctx, article, p.force)
}
