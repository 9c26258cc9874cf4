package openfda

import (
	"encoding/json"

	"github.com/KennyGael/Hazard-Atlas/internal/model"
)

// enforcementRecord is the subset of an openFDA enforcement payload we map
// into the unified shape. Every field is optional upstream.
type enforcementRecord struct {
	RecallNumber       string `json:"recall_number"`
	EventID            string `json:"event_id"`
	ReportDate         string `json:"report_date"`
	Classification     string `json:"classification"`
	ProductDescription string `json:"product_description"`
	RecallingFirm      string `json:"recalling_firm"`
	ReasonForRecall    string `json:"reason_for_recall"`
	ProductQuantity    string `json:"product_quantity"`
	Address1           string `json:"address_1"`
	Address2           string `json:"address_2"`
	City               string `json:"city"`
	State              string `json:"state"`
	Country            string `json:"country"`
}

// searchResponse is the envelope openFDA wraps results in. Results stay raw
// so normalization can keep the original payload alongside the typed fields.
type searchResponse struct {
	Meta struct {
		Results struct {
			Skip  int `json:"skip"`
			Limit int `json:"limit"`
			Total int `json:"total"`
		} `json:"results"`
	} `json:"meta"`
	Results []json.RawMessage `json:"results"`
}

// Result is the aggregation outcome returned by GET /api/recalls.
type Result struct {
	Count   int                `json:"count"`
	Results []model.Recall     `json:"results"`
	Errors  []model.FetchError `json:"errors,omitempty"`
	Retried bool               `json:"retried,omitempty"`
}
