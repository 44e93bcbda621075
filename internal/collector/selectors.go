package collector

import "regexp"

// Selectors is the markup contract of a reviews widget. Supporting another
// widget means supplying another Selectors value.
type Selectors struct {
	Widget     string `json:"widget"`
	Summary    string `json:"summary"`
	Card       string `json:"card"`
	Reviewer   string `json:"reviewer"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Date       string `json:"date"`
	Verified   string `json:"verified"`
	FilledStar string `json:"filledStar"`
	ImageLink  string `json:"imageLink"`
	Location   string `json:"location"`

	// PageLink is a format string taking the 1-based page index.
	PageLink string `json:"-"`

	// SummaryPattern captures the advertised review count in group 1.
	SummaryPattern *regexp.Regexp `json:"-"`
}

// StampedSelectors matches the Stamped.io reviews widget.
func StampedSelectors() Selectors {
	return Selectors{
		Widget:         "#stamped-main-widget",
		Summary:        ".stamped-summary-text",
		Card:           ".stamped-review",
		Reviewer:       ".author",
		Title:          ".stamped-review-header-title",
		Body:           ".stamped-review-content-body",
		Date:           ".created",
		Verified:       ".stamped-review-verified",
		FilledStar:     ".stamped-fa.stamped-fa-star:not(.stamped-fa-empty)",
		ImageLink:      ".stamped-review-image a",
		Location:       ".review-location",
		PageLink:       `a[data-page="%d"]`,
		SummaryPattern: regexp.MustCompile(`Based on ([\d,]+) Reviews?`),
	}
}
