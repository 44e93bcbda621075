package pipeline

import (
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// SanitizeStage strips markup and entities and collapses whitespace in the
// review's text fields.
type SanitizeStage struct {
	stripRe *regexp.Regexp
}

func NewSanitizeStage() *SanitizeStage {
	return &SanitizeStage{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (s *SanitizeStage) Name() string { return "sanitize" }

func (s *SanitizeStage) Process(r *types.Review) error {
	for _, f := range []*string{&r.Reviewer, &r.Title, &r.Text, &r.Date, &r.Location} {
		if *f == "" {
			continue
		}
		cleaned := s.stripRe.ReplaceAllString(*f, " ")
		cleaned = html.UnescapeString(cleaned)
		*f = strings.Join(strings.Fields(cleaned), " ")
	}
	return nil
}

type piiPattern struct {
	name string
	re   *regexp.Regexp
}

// PIIRedactStage masks contact details and card numbers in review bodies
// before they leave the process.
type PIIRedactStage struct {
	patterns []piiPattern
	logger   *slog.Logger
}

func NewPIIRedactStage(logger *slog.Logger) *PIIRedactStage {
	// Longer, more specific patterns first.
	return &PIIRedactStage{
		patterns: []piiPattern{
			{"email", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
			{"credit_card", regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)},
			{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
			{"phone_intl", regexp.MustCompile(`\+\d{1,3}[-.\s]?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}`)},
			{"phone_us", regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)},
		},
		logger: logger.With("component", "pii_redact"),
	}
}

func (s *PIIRedactStage) Name() string { return "pii_redact" }

func (s *PIIRedactStage) Process(r *types.Review) error {
	for field, f := range map[string]*string{"title": &r.Title, "text": &r.Text} {
		if *f == "" {
			continue
		}
		for _, p := range s.patterns {
			if p.re.MatchString(*f) {
				*f = p.re.ReplaceAllString(*f, "[REDACTED_"+strings.ToUpper(p.name)+"]")
				s.logger.Debug("PII redacted", "field", field, "type", p.name)
			}
		}
	}
	return nil
}
