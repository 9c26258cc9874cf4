package recalls

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/KennyGael/Hazard-Atlas/internal/model"
	geocodepkg "github.com/KennyGael/Hazard-Atlas/pkg/geocode"
)

// FeatureCollection builds the map layer: one point feature per record whose
// address has a cached coordinate. Records without coordinates (not yet
// geocoded, or cached misses) are skipped.
func FeatureCollection(records []model.Recall, coords map[string]*geocodepkg.Coord) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, r := range records {
		coord, ok := coords[r.GeocodeAddress()]
		if !ok || coord == nil {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.ID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{coord.Lon, coord.Lat}),
			Properties: map[string]any{
				"source":         string(r.Source),
				"classification": r.Classification,
				"product":        r.Product,
				"firm":           r.Firm,
				"reason":         r.Reason,
				"report_date":    r.ReportDate,
				"city":           r.City,
				"state":          r.State,
			},
		})
	}
	return fc
}
