package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/veracitylab/veracity/internal/model"
)

// Processor runs a full verification pass over one article
type Processor interface {
	Process(ctx context.Context, article *model.Article) (*model.FactCheckResult, error)
}

// VerifyJob verifies a single article
type VerifyJob struct {
	Article   *model.Article
	Processor Processor
}

// Execute runs the verification pass
func (j *VerifyJob) Execute(ctx context.Context) Result {
	result, err := j.Processor.Process(ctx, j.Article)
	return &VerifyResult{
		ArticleID: j.Article.ID,
		Source:    j.Article.Source,
		Result:    result,
		Error:     err,
	}
}

// VerifyResult is the outcome of verifying one article
type VerifyResult struct {
	ArticleID string
	Source    string
	Result    *model.FactCheckResult
	Error     error
}

// GetError returns the error from the verification, if any
func (r *VerifyResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies batches of articles concurrently
type BatchProcessor struct {
	processor   Processor
	concurrency int
}

// NewBatchProcessor creates a batch processor with the given concurrency
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// ProcessArticles verifies the given articles concurrently
func (b *BatchProcessor) ProcessArticles(ctx context.Context, articles []*model.Article) []*VerifyResult {
	if len(articles) == 0 {
		return []*VerifyResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, article := range articles {
		pool.Submit(&VerifyJob{
			Article:   article,
			Processor: b.processor,
		})
	}

	results := pool.Wait()

	out := make([]*VerifyResult, len(results))
	for i, result := range results {
		out[i] = result.(*VerifyResult)
	}
	return out
}

// ProcessFile reads articles from a JSON-lines file and verifies them
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*VerifyResult, error) {
	articles, err := ReadArticlesFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read articles: %w", err)
	}
	return b.ProcessArticles(ctx, articles), nil
}

// ReadArticlesFromFile reads one JSON article per line, skipping blank
// lines and # comments. Duplicate article IDs keep the first record.
func ReadArticlesFromFile(path string) ([]*model.Article, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var articles []*model.Article
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 8*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var article model.Article
		if err := json.Unmarshal([]byte(line), &article); err != nil {
			return nil, fmt.Errorf("parse article at line %d: %w", lineNo, err)
		}
		if article.ID == "" {
			return nil, fmt.Errorf("article at line %d has no id", lineNo)
		}
		if seen[article.ID] {
			continue
		}
		seen[article.ID] = true
		articles = append(articles, &article)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return articles, nil
}
