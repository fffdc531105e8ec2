package arcgis

import (
	"encoding/json"
	"math"
	"strings"
)

// APIError is the error object ArcGIS REST endpoints return with HTTP 200.
type APIError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return e.Message + ": " + strings.Join(e.Details, "; ")
	}
	return e.Message
}

// FeatureServerMetadata represents the metadata for an ArcGIS Feature Server.
type FeatureServerMetadata struct {
	CurrentVersion json.Number `json:"currentVersion"`
	Layers         []Layer     `json:"layers"`
	Tables         []Layer     `json:"tables"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	ServiceItemId  string      `json:"serviceItemId"`
	Error          *APIError   `json:"error"`
}

// Layer represents a layer in an ArcGIS Feature Server or Map Server.
type Layer struct {
	ID             json.Number `json:"id"`
	Name           string      `json:"name"`
	Type           string      `json:"type"`
	GeometryType   string      `json:"geometryType"`
	Description    string      `json:"description"`
	MaxRecordCount int         `json:"maxRecordCount"`
	Fields         []Field     `json:"fields"`
	Error          *APIError   `json:"error"`
}

// Field describes one attribute column of a layer or query result.
type Field struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Alias string `json:"alias"`
}

// FeatureResponse represents the response from a feature query.
type FeatureResponse struct {
	Fields                []Field   `json:"fields"`
	Features              []Feature `json:"features"`
	ExceededTransferLimit bool      `json:"exceededTransferLimit"`
	Error                 *APIError `json:"error"`
}

// Feature represents a geographic feature with attributes and geometry.
type Feature struct {
	Attributes map[string]interface{} `json:"attributes"`
	Geometry   *Geometry              `json:"geometry"`
}

// Geometry is an Esri JSON geometry. Exactly one of the point, multipoint,
// polyline or polygon members is set.
type Geometry struct {
	X      *Coordinate   `json:"x"`
	Y      *Coordinate   `json:"y"`
	Points [][]float64   `json:"points"`
	Paths  [][][]float64 `json:"paths"`
	Rings  [][][]float64 `json:"rings"`
}

// Coordinate is a point ordinate. Empty points carry "NaN" or null.
type Coordinate float64

// UnmarshalJSON implements json.Unmarshaler.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || strings.EqualFold(s, "NaN") {
		*c = Coordinate(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return err
	}
	*c = Coordinate(f)
	return nil
}

// ItemData represents metadata for an ArcGIS Online item.
type ItemData struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Title string    `json:"title"`
	Type  string    `json:"type"`
	URL   string    `json:"url"`
	Error *APIError `json:"error"`
}

// MapServiceMetadata represents the metadata for an ArcGIS Map Service.
type MapServiceMetadata struct {
	Name        string            `json:"name"`
	Layers      []MapServiceLayer `json:"layers"`
	Description string            `json:"description"`
	Error       *APIError         `json:"error"`
}

// MapServiceLayer represents a layer in an ArcGIS Map Service.
type MapServiceLayer struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	GeometryType  string `json:"geometryType"`
	ParentLayerId int    `json:"parentLayerId"`
	SubLayerIds   []int  `json:"subLayerIds"`
}

// AvailableLayerInfo stores information about a layer available for processing.
type AvailableLayerInfo struct {
	ID           string
	Name         string
	Type         string
	GeometryType string
	ServiceURL   string
}

// URL returns the layer endpoint.
func (l AvailableLayerInfo) URL() string {
	return strings.TrimRight(l.ServiceURL, "/") + "/" + l.ID
}
