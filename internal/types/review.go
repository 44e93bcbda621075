package types

import (
	"crypto/sha256"
	"encoding/hex"
)

// Review is one customer review collected from a product page.
type Review struct {
	Reviewer string   `json:"reviewer"           bson:"reviewer"`
	Rating   string   `json:"rating"             bson:"rating"` // star count 1-5, kept as text
	Title    string   `json:"title"              bson:"title"`
	Text     string   `json:"text"               bson:"text"`
	Date     string   `json:"date"               bson:"date"`
	Verified bool     `json:"verified"           bson:"verified"`
	Images   []string `json:"images"             bson:"images"`
	Location string   `json:"location,omitempty" bson:"location,omitempty"`

	// Analysis is attached by the analyzer; nil until then.
	Analysis *Annotation `json:"analysis,omitempty" bson:"analysis,omitempty"`
}

// Key identifies a review for deduplication. Two reviews with the same
// text, reviewer and date are the same review.
func (r *Review) Key() string {
	h := sha256.New()
	h.Write([]byte(r.Text))
	h.Write([]byte{0})
	h.Write([]byte(r.Reviewer))
	h.Write([]byte{0})
	h.Write([]byte(r.Date))
	return hex.EncodeToString(h.Sum(nil))
}

// Sentiment is the model's polarity label for a review.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
)

// Valid reports whether s is one of the known labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Category is the topic a review is mainly about.
type Category string

const (
	CategorySatisfaction   Category = "SATISFACTION"
	CategoryDelivery       Category = "DELIVERY"
	CategoryAuthentication Category = "AUTHENTICATION"
	CategoryQuality        Category = "QUALITY"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategorySatisfaction,
	CategoryDelivery,
	CategoryAuthentication,
	CategoryQuality,
}

func (c Category) Valid() bool {
	switch c {
	case CategorySatisfaction, CategoryDelivery, CategoryAuthentication, CategoryQuality:
		return true
	}
	return false
}

// Annotation is the model-derived summary of a single review.
type Annotation struct {
	Summary   string    `json:"summary"   bson:"summary"`
	Sentiment Sentiment `json:"sentiment" bson:"sentiment"`
	Category  Category  `json:"category"  bson:"category"`
}

// FallbackSummary marks annotations substituted for a failed batch.
const FallbackSummary = "Analysis failed due to API limits"

// FallbackAnnotation returns the placeholder used when a batch cannot be analyzed.
func FallbackAnnotation() *Annotation {
	return &Annotation{
		Summary:   FallbackSummary,
		Sentiment: SentimentNeutral,
		Category:  CategorySatisfaction,
	}
}

// IsFallback reports whether a is a substituted placeholder.
func (a *Annotation) IsFallback() bool {
	return a != nil && a.Summary == FallbackSummary
}
