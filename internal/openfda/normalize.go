package openfda

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KennyGael/Hazard-Atlas/internal/model"
)

// recallIDNamespace is the UUIDv5 namespace for fallback identifiers, so the
// same raw record always maps to the same ID across fetches.
var recallIDNamespace = uuid.MustParse("7f1f9c2e-5a1d-4b2a-9e6f-3d8c1b4a7e50")

// isoDateLayout matches the wire format the map client expects.
const isoDateLayout = "2006-01-02T15:04:05.000Z"

// Normalize maps a raw enforcement payload into the unified recall shape.
// Absent fields are tolerated throughout; this never fails: an unparseable
// payload yields a record with defaulted fields and the raw bytes attached.
func Normalize(raw json.RawMessage, source model.Source) model.Recall {
	var rec enforcementRecord
	_ = json.Unmarshal(raw, &rec)

	var rawMap map[string]any
	_ = json.Unmarshal(raw, &rawMap)

	country := strings.TrimSpace(rec.Country)
	if country == "" {
		country = model.DefaultCountry
	}

	address := strings.TrimSpace(rec.Address1)
	if extra := strings.TrimSpace(rec.Address2); extra != "" {
		if address != "" {
			address += " "
		}
		address += extra
	}

	r := model.Recall{
		Source:         source,
		ReportDate:     parseReportDate(rec.ReportDate),
		RawDate:        rec.ReportDate,
		Classification: strings.TrimSpace(rec.Classification),
		Product:        strings.TrimSpace(rec.ProductDescription),
		Firm:           strings.TrimSpace(rec.RecallingFirm),
		Reason:         strings.TrimSpace(rec.ReasonForRecall),
		Quantity:       strings.TrimSpace(rec.ProductQuantity),
		Address:        address,
		City:           strings.TrimSpace(rec.City),
		State:          strings.TrimSpace(rec.State),
		Country:        country,
		Raw:            rawMap,
	}
	r.ID = recordID(rec, r)
	return r
}

// recordID prefers the natural recall number, then the event id. With
// neither present it derives a deterministic UUIDv5 from the normalized
// fields so re-fetching yields stable identifiers.
func recordID(rec enforcementRecord, r model.Recall) string {
	if id := strings.TrimSpace(rec.RecallNumber); id != "" {
		return id
	}
	if id := strings.TrimSpace(rec.EventID); id != "" {
		return string(r.Source) + "-" + id
	}
	seed := strings.Join([]string{string(r.Source), r.Firm, r.Product, r.RawDate, r.Reason}, "|")
	return uuid.NewSHA1(recallIDNamespace, []byte(seed)).String()
}

// parseReportDate converts an 8-digit YYYYMMDD token into ISO-8601. Tokens of
// any other length, or with an invalid calendar date, yield an empty string.
func parseReportDate(token string) string {
	token = strings.TrimSpace(token)
	if len(token) != 8 {
		return ""
	}
	t, err := time.Parse("20060102", token)
	if err != nil {
		return ""
	}
	return t.UTC().Format(isoDateLayout)
}
