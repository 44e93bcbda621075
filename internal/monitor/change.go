package monitor

import (
	"math"

	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// Delta describes how a product's reviews moved between two runs.
type Delta struct {
	URL             string               `json:"url"`
	PreviousRunID   string               `json:"previous_run_id,omitempty"`
	CurrentRunID    string               `json:"current_run_id"`
	NewReviews      int                  `json:"new_reviews"`
	RemovedReviews  int                  `json:"removed_reviews"`
	PreviousTotal   int                  `json:"previous_total"`
	CurrentTotal    int                  `json:"current_total"`
	PositiveShift   float64              `json:"positive_shift"`
	ChecklistChange map[string][2]string `json:"checklist_change,omitempty"`
}

// Changed reports whether anything worth notifying moved.
func (d *Delta) Changed() bool {
	return d.NewReviews > 0 || d.RemovedReviews > 0 ||
		math.Abs(d.PositiveShift) >= 0.5 || len(d.ChecklistChange) > 0
}

// Compare diffs cur against prev. prev may be nil for the first run, in
// which case every collected review counts as new.
func Compare(prev, cur *types.Run) *Delta {
	d := &Delta{
		URL:          cur.URL,
		CurrentRunID: cur.ID,
		CurrentTotal: len(cur.Reviews),
	}

	curKeys := make(map[string]struct{}, len(cur.Reviews))
	for i := range cur.Reviews {
		curKeys[cur.Reviews[i].Key()] = struct{}{}
	}

	if prev == nil {
		d.NewReviews = len(curKeys)
		return d
	}

	d.PreviousRunID = prev.ID
	d.PreviousTotal = len(prev.Reviews)

	prevKeys := make(map[string]struct{}, len(prev.Reviews))
	for i := range prev.Reviews {
		prevKeys[prev.Reviews[i].Key()] = struct{}{}
	}
	for k := range curKeys {
		if _, ok := prevKeys[k]; !ok {
			d.NewReviews++
		}
	}
	for k := range prevKeys {
		if _, ok := curKeys[k]; !ok {
			d.RemovedReviews++
		}
	}

	if prev.Report != nil && cur.Report != nil {
		d.PositiveShift = cur.Report.PercentPositive - prev.Report.PercentPositive
		for _, item := range types.ChecklistItems {
			was, now := prev.Report.Checklist[item], cur.Report.Checklist[item]
			if was != now {
				if d.ChecklistChange == nil {
					d.ChecklistChange = make(map[string][2]string)
				}
				d.ChecklistChange[item] = [2]string{was, now}
			}
		}
	}
	return d
}
