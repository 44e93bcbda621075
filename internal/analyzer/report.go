package analyzer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Aggregate tallies annotations into a report. Reviews without a known
// sentiment count as NEUTRAL and without a known category as SATISFACTION.
func Aggregate(reviews []types.Review) *types.AggregateReport {
	report := &types.AggregateReport{
		Total: len(reviews),
		Sentiments: map[types.Sentiment]int{
			types.SentimentPositive: 0,
			types.SentimentNegative: 0,
			types.SentimentNeutral:  0,
		},
		Categories: make(map[types.Category]int, len(types.Categories)),
	}
	for _, c := range types.Categories {
		report.Categories[c] = 0
	}

	for _, r := range reviews {
		sentiment, category := types.SentimentNeutral, types.CategorySatisfaction
		if r.Analysis != nil {
			if r.Analysis.Sentiment.Valid() {
				sentiment = r.Analysis.Sentiment
			}
			if r.Analysis.Category.Valid() {
				category = r.Analysis.Category
			}
		}
		report.Sentiments[sentiment]++
		report.Categories[category]++
	}

	report.AverageRating, report.RatedReviews = AverageRating(reviews)

	if report.Total == 0 {
		report.Checklist = map[string]string{}
		return report
	}

	report.PercentPositive = float64(report.Sentiments[types.SentimentPositive]) / float64(report.Total) * 100
	report.Checklist = Checklist(report.Sentiments, report.Categories)
	report.Narrative = Narrative(report.PercentPositive, report.Checklist, report.Total)
	return report
}

// Checklist derives the recommendation verdicts. A category with no
// reviews is Unclear; otherwise it is favorable only when positive
// reviews outnumber negative ones.
func Checklist(sentiments map[types.Sentiment]int, categories map[types.Category]int) map[string]string {
	favorable := sentiments[types.SentimentPositive] > sentiments[types.SentimentNegative]

	verdict := func(c types.Category, good string) string {
		switch {
		case categories[c] == 0:
			return types.VerdictUnclear
		case favorable:
			return good
		default:
			return types.VerdictMixed
		}
	}

	satisfaction := types.VerdictMixed
	switch {
	case favorable:
		satisfaction = types.VerdictHigh
	case categories[types.CategorySatisfaction] == 0:
		satisfaction = types.VerdictUnclear
	}

	return map[string]string{
		types.ChecklistQuality:      verdict(types.CategoryQuality, types.VerdictGood),
		types.ChecklistDelivery:     verdict(types.CategoryDelivery, types.VerdictGood),
		types.ChecklistAuthenticity: verdict(types.CategoryAuthentication, types.VerdictVerified),
		types.ChecklistSatisfaction: satisfaction,
	}
}

// Narrative renders the recommendation text.
func Narrative(percentPositive float64, checklist map[string]string, total int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Confidence Score: %.0f%% positive reviews\n\n", percentPositive)
	sb.WriteString("Checklist:\n")
	for _, item := range types.ChecklistItems {
		fmt.Fprintf(&sb, "- %s: %s\n", item, checklist[item])
	}
	fmt.Fprintf(&sb, "\nNote: Analysis based on %d reviews.", total)
	return sb.String()
}

// ParseNarrative recovers the confidence line and checklist from a narrative.
func ParseNarrative(text string) (confidence string, checklist map[string]string) {
	checklist = make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Confidence Score:"):
			confidence = strings.TrimSpace(strings.TrimPrefix(line, "Confidence Score:"))
		case strings.HasPrefix(line, "- "):
			key, value, ok := strings.Cut(strings.TrimPrefix(line, "- "), ":")
			if ok {
				checklist[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
		}
	}
	return confidence, checklist
}

// AverageRating averages parseable star ratings, rounded to two decimals.
func AverageRating(reviews []types.Review) (float64, int) {
	sum, n := 0.0, 0
	for _, r := range reviews {
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Rating), 64)
		if err != nil || v <= 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return math.Round(sum/float64(n)*100) / 100, n
}

// Gallery lists every review image with the review it belongs to.
func Gallery(reviews []types.Review) []types.GalleryItem {
	var items []types.GalleryItem
	for _, r := range reviews {
		for _, u := range r.Images {
			item := types.GalleryItem{URL: u, Reviewer: r.Reviewer, Rating: r.Rating}
			if r.Analysis != nil {
				item.Sentiment = r.Analysis.Sentiment
				item.Summary = r.Analysis.Summary
			}
			items = append(items, item)
		}
	}
	return items
}
