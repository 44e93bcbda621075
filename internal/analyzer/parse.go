package analyzer

import (
	"strconv"
	"strings"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Record is one annotation block parsed from a model reply.
type Record struct {
	Index      int // 0-based position the model claimed
	Annotation *types.Annotation
}

// ParseReply reads REVIEW/SUMMARY/SENTIMENT/CATEGORY blocks from text.
// Lines outside the format are ignored and partial blocks are kept.
func ParseReply(text string) []Record {
	var (
		records []Record
		current *Record
	)

	flush := func() {
		if current != nil {
			records = append(records, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "*# ")
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "REVIEW "):
			flush()
			current = &Record{
				Index:      headerIndex(line, len(records)),
				Annotation: &types.Annotation{},
			}
		case current == nil:
			continue
		case strings.HasPrefix(line, "SUMMARY:"):
			current.Annotation.Summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		case strings.HasPrefix(line, "SENTIMENT:"):
			current.Annotation.Sentiment = types.Sentiment(label(strings.TrimPrefix(line, "SENTIMENT:")))
		case strings.HasPrefix(line, "CATEGORY:"):
			current.Annotation.Category = types.Category(label(strings.TrimPrefix(line, "CATEGORY:")))
		}
	}
	flush()

	return records
}

// headerIndex reads n from "REVIEW n:"; malformed headers fall back to position.
func headerIndex(line string, position int) int {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return position
	}
	n, err := strconv.Atoi(strings.Trim(fields[1], ":."))
	if err != nil {
		return position
	}
	return n - 1
}

// label uppercases a value and drops decoration such as brackets.
func label(v string) string {
	return strings.ToUpper(strings.Trim(strings.TrimSpace(v), "[]<>.*\"' "))
}

// placeRecords assigns parsed records to the n reviews of a batch. A record
// goes to its claimed index when that slot is free, otherwise to the next
// free slot. Slots still empty get a fallback; their count is returned.
func placeRecords(records []Record, n int) ([]*types.Annotation, int) {
	slots := make([]*types.Annotation, n)
	var overflow []*types.Annotation

	for _, r := range records {
		if r.Index >= 0 && r.Index < n && slots[r.Index] == nil {
			slots[r.Index] = r.Annotation
			continue
		}
		overflow = append(overflow, r.Annotation)
	}

	missing := 0
	for i := range slots {
		if slots[i] != nil {
			continue
		}
		if len(overflow) > 0 {
			slots[i], overflow = overflow[0], overflow[1:]
			continue
		}
		slots[i] = types.FallbackAnnotation()
		missing++
	}
	return slots, missing
}
