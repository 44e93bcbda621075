package analyzer

import (
	"fmt"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

const promptHeader = `You are a product review analyst. For each customer review below, write a
one-sentence summary, classify its overall sentiment, and pick the single
category it is mostly about.

Answer for every review, in order, using exactly this format and nothing else:

REVIEW 1:
SUMMARY: <one sentence>
SENTIMENT: <POSITIVE, NEGATIVE or NEUTRAL>
CATEGORY: <SATISFACTION, DELIVERY, AUTHENTICATION or QUALITY>

Reviews:

`

// BuildPrompt renders the analysis request for one batch. Reviews are
// numbered from 1 within the batch.
func BuildPrompt(batch []types.Review) string {
	parts := make([]string, 0, len(batch))
	for i, r := range batch {
		parts = append(parts, fmt.Sprintf("Review %d:\nTitle: %s\nText: %s", i+1, r.Title, r.Text))
	}
	return promptHeader + strings.Join(parts, "\n---\n")
}

// Partition splits reviews into consecutive batches of at most size.
// The batches alias the input slice.
func Partition(reviews []types.Review, size int) [][]types.Review {
	if size < 1 {
		size = 1
	}
	batches := make([][]types.Review, 0, (len(reviews)+size-1)/size)
	for start := 0; start < len(reviews); start += size {
		end := min(start+size, len(reviews))
		batches = append(batches, reviews[start:end])
	}
	return batches
}
