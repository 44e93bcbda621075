package types

// Verdict values used in the recommendation checklist.
const (
	VerdictGood     = "Good"
	VerdictVerified = "Verified"
	VerdictHigh     = "High"
	VerdictMixed    = "Mixed"
	VerdictUnclear  = "Unclear"
)

// Checklist item labels, in narrative order.
const (
	ChecklistQuality      = "Product Quality"
	ChecklistDelivery     = "Delivery Experience"
	ChecklistAuthenticity = "Authenticity"
	ChecklistSatisfaction = "Customer Satisfaction"
)

// ChecklistItems lists the checklist labels in narrative order.
var ChecklistItems = []string{
	ChecklistQuality,
	ChecklistDelivery,
	ChecklistAuthenticity,
	ChecklistSatisfaction,
}

// AggregateReport summarizes the annotations of one analysis run.
type AggregateReport struct {
	Total           int               `json:"total"`
	Sentiments      map[Sentiment]int `json:"sentiments"`
	Categories      map[Category]int  `json:"categories"`
	PercentPositive float64           `json:"percent_positive"`
	Checklist       map[string]string `json:"checklist"`
	Narrative       string            `json:"narrative"`
	AverageRating   float64           `json:"average_rating"`
	RatedReviews    int               `json:"rated_reviews"`
	FailedBatches   int               `json:"failed_batches"`
}

// GalleryItem is one customer image with the review it came from.
type GalleryItem struct {
	URL       string    `json:"url"`
	Reviewer  string    `json:"reviewer"`
	Rating    string    `json:"rating"`
	Sentiment Sentiment `json:"sentiment,omitempty"`
	Summary   string    `json:"summary,omitempty"`
}
