// Package extract turns article bodies into checkable claims and
// content fingerprints.
package extract

import (
	"context"
	"errors"

	"github.com/veracitylab/veracity/internal/model"
)

// ErrExtractionFailed indicates the claim extraction backend was
// unavailable. The article is excluded from verification but remains
// eligible for correlation, which uses the fingerprint instead.
var ErrExtractionFailed = errors.New("claim extraction failed")

// Extractor produces an ordered list of checkable claims from article
// text. An empty result is not an error: some articles simply contain
// no checkable factual statement.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]model.Claim, error)
}
