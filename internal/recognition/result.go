package recognition

import (
	"fmt"
	"time"
)

// Unrecognized is shown when the provider returns no labels.
const Unrecognized = "unrecognized"

type Label struct {
	Keyword     string  `json:"keyword"`
	Score       float64 `json:"score"`
	Root        string  `json:"root,omitempty"`
	Description string  `json:"description,omitempty"`
}

type Result struct {
	Text           string        `json:"result"`
	Keyword        string        `json:"keyword"`
	Score          string        `json:"score,omitempty"`
	Description    string        `json:"baike,omitempty"`
	Labels         []Label       `json:"labels,omitempty"`
	Cached         bool          `json:"cached"`
	ProcessingTime time.Duration `json:"-"`
}

// FormatResult builds the displayed result from the top ranked label, for
// example "Coffee Mug (93.0%)".
func FormatResult(labels []Label) Result {
	if len(labels) == 0 {
		return Result{Text: Unrecognized, Keyword: Unrecognized}
	}

	top := labels[0]
	keyword := top.Keyword
	if keyword == "" {
		keyword = Unrecognized
	}

	r := Result{
		Text:        keyword,
		Keyword:     keyword,
		Description: top.Description,
		Labels:      labels,
	}
	if top.Score > 0 {
		r.Score = fmt.Sprintf("%.1f%%", top.Score*100)
		r.Text = fmt.Sprintf("%s (%s)", keyword, r.Score)
	}
	return r
}
