// Package recalls holds the pure view logic over an in-memory unified record
// set: filtering, free-text search, sorting, and map-layer export.
package recalls

import (
	"sort"
	"strings"

	"github.com/KennyGael/Hazard-Atlas/internal/model"
)

// Query describes one view over the record set. Zero values mean "no
// constraint".
type Query struct {
	Source         string // "food" or "drug"
	Classification string // matched case-insensitively
	Text           string // substring over product description and firm name
	Sort           string // date_asc, date_desc, classification_asc, classification_desc
	Limit          int    // display cap; 0 = unlimited
}

// Apply filters, sorts, and caps records per q. The input slice is not
// modified. Sorting is stable; classification ordering is plain lexical, and
// absent dates compare as empty strings.
func Apply(records []model.Recall, q Query) []model.Recall {
	out := make([]model.Recall, 0, len(records))
	for _, r := range records {
		if q.Source != "" && !strings.EqualFold(string(r.Source), q.Source) {
			continue
		}
		if q.Classification != "" && !strings.EqualFold(r.Classification, q.Classification) {
			continue
		}
		if q.Text != "" && !matchesText(r, q.Text) {
			continue
		}
		out = append(out, r)
	}

	switch q.Sort {
	case "date_asc":
		sort.SliceStable(out, func(i, j int) bool { return out[i].ReportDate < out[j].ReportDate })
	case "date_desc":
		sort.SliceStable(out, func(i, j int) bool { return out[i].ReportDate > out[j].ReportDate })
	case "classification_asc":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Classification < out[j].Classification })
	case "classification_desc":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Classification > out[j].Classification })
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func matchesText(r model.Recall, text string) bool {
	needle := strings.ToLower(text)
	return strings.Contains(strings.ToLower(r.Product), needle) ||
		strings.Contains(strings.ToLower(r.Firm), needle)
}
