package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/veracitylab/veracity/internal/model"
	"github.com/veracitylab/veracity/internal/verify"
)

var (
	verifyTimeout time.Duration
	verifyForce   bool
	verifyJSON    bool
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <article.json | article-id>",
	Short: "Verify a single article's claims",
	Long: `Verify extracts the checkable claims from one article, queries every
enabled verification provider for each claim, and reconciles the
verdicts into a weighted overall judgment.

The argument is either a path to a JSON article file or the ID of an
article already in the store. Re-running on a finalized article
returns the stored result; use --force to append a fresh pass.

Example:
  veracity verify article.json
  veracity verify 9f1c22d4 --force
  veracity verify article.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 2*time.Minute, "overall verification timeout")
	verifyCmd.Flags().BoolVar(&verifyForce, "force", false, "re-verify even if a result already exists")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "print the full result as JSON")
}

func runVerify(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	var result *model.FactCheckResult
	var verr error
	arg := args[0]

	if strings.HasSuffix(arg, ".json") {
		article, err := readArticleFile(arg)
		if err != nil {
			return err
		}
		result, verr = eng.Ingest(ctx, article, verifyForce)
	} else {
		result, verr = eng.VerifyArticle(ctx, arg, verifyForce)
	}

	if result == nil {
		return verr
	}
	if errors.Is(verr, verify.ErrAllProvidersUnavailable) {
		fmt.Fprintln(os.Stderr, "Warning: all providers unavailable, result is degraded")
	}

	if verifyJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	printResult(result)

	if story, ok := eng.StoryByArticle(result.ArticleID); ok {
		fmt.Printf("Story:        %s (%d members, consensus %s %.2f)\n",
			story.ID, len(story.Members), story.ConsensusLabel, story.ConsensusConfidence)
	}
	return nil
}

func printResult(result *model.FactCheckResult) {
	fmt.Printf("Article:      %s\n", result.ArticleID)
	fmt.Printf("Label:        %s\n", result.Label)
	fmt.Printf("Confidence:   %.2f\n", result.Confidence)
	fmt.Printf("Rating:       %s\n", result.Rating)
	if result.Disagreement {
		fmt.Printf("Disagreement: providers returned conflicting verdicts\n")
	}
	if result.NeedsHumanReview {
		fmt.Printf("Review:       flagged for human review\n")
	}
	if len(result.Flags) > 0 {
		fmt.Printf("Flags:        %s\n", strings.Join(result.Flags, ", "))
	}
	if len(result.ModelsUsed) > 0 {
		fmt.Printf("Providers:    %s\n", strings.Join(result.ModelsUsed, ", "))
	}
	fmt.Printf("Elapsed:      %s\n", result.ProcessingTime.Round(time.Millisecond))

	if len(result.Claims) > 0 {
		fmt.Println("\nClaims:")
		for i, claim := range result.Claims {
			marker := " "
			if claim.Disagreement {
				marker = "!"
			}
			fmt.Printf("  %s %2d. [%s %.2f] %s\n", marker, i+1, claim.Label, claim.Confidence, truncate(claim.Claim.Text, 100))
		}
	}
}

func readArticleFile(path string) (*model.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read article: %w", err)
	}
	var article model.Article
	if err := json.Unmarshal(data, &article); err != nil {
		return nil, fmt.Errorf("parse article: %w", err)
	}
	if article.ID == "" {
		return nil, fmt.Errorf("article has no id")
	}
	if article.Body == "" {
		return nil, fmt.Errorf("article %s has no body", article.ID)
	}
	return &article, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
