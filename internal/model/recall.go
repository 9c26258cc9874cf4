package model

// Source identifies which enforcement feed a recall came from.
type Source string

const (
	SourceFood Source = "food"
	SourceDrug Source = "drug"
)

// DefaultCountry is assumed when the raw record carries no country field.
const DefaultCountry = "United States"

// Recall is the unified shape of an enforcement record from either feed.
// ReportDate is an ISO-8601 timestamp string, empty when the raw record had
// no parseable 8-digit date token. Raw keeps the original payload so the map
// client can show source-specific detail.
type Recall struct {
	ID             string         `json:"id"`
	Source         Source         `json:"source"`
	ReportDate     string         `json:"report_date,omitempty"`
	RawDate        string         `json:"raw_date,omitempty"`
	Classification string         `json:"classification,omitempty"`
	Product        string         `json:"product"`
	Firm           string         `json:"firm"`
	Reason         string         `json:"reason"`
	Quantity       string         `json:"quantity,omitempty"`
	Address        string         `json:"address,omitempty"`
	City           string         `json:"city,omitempty"`
	State          string         `json:"state,omitempty"`
	Country        string         `json:"country"`
	Raw            map[string]any `json:"raw,omitempty"`
}

// GeocodeAddress builds the lookup string for a recall: the non-empty address
// components joined by ", ", in a fixed order. Callers rely on this being
// stable across runs because it keys the persistent geocode cache.
func (r Recall) GeocodeAddress() string {
	var out string
	for _, part := range []string{r.Address, r.City, r.State, r.Country} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}

// FetchError records a per-source upstream failure so that one feed failing
// does not discard results from the other.
type FetchError struct {
	Endpoint string `json:"endpoint"`
	Reason   string `json:"reason"`
}
