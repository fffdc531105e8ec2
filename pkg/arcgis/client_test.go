package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
)

func TestNormalizeArcGISURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Basic HTTPS FeatureServer", "https://services.arcgis.com/abc/arcgis/rest/services/MyService/FeatureServer/0", "https://services.arcgis.com/abc/ArcGIS/rest/services/MyService/FeatureServer/0"},
		{"Basic HTTP MapServer with slash", "http://example.com/arcgis/rest/services/MyMap/MapServer/", "http://example.com/ArcGIS/rest/services/MyMap/MapServer/"},
		{"No scheme adds HTTPS", "myserver.com/arcgis/rest/services/Data/FeatureServer", "https://myserver.com/ArcGIS/rest/services/Data/FeatureServer/"},
		{"Lower case parts", "https://test.com/arcgis/rest/services/lower/featureserver/1", "https://test.com/ArcGIS/rest/services/lower/FeatureServer/1"},
		{"Mixed case parts", "https://mixed.org/ArcGIS/rest/SERVICES/MixedCase/MapServer", "https://mixed.org/ArcGIS/rest/services/MixedCase/MapServer/"},
		{"Query param f removed", "https://query.net/arcgis/rest/services/Query/FeatureServer/0?f=json", "https://query.net/ArcGIS/rest/services/Query/FeatureServer/0"},
		{"Other query params kept", "https://query.net/arcgis/rest/services/Query/FeatureServer/0?token=123&f=pjson", "https://query.net/ArcGIS/rest/services/Query/FeatureServer/0?token=123"},
		{"AGOL Item URL unchanged", "https://www.arcgis.com/home/item.html?id=abcdef123456", "https://www.arcgis.com/home/item.html?id=abcdef123456"},
		{"Trailing slash added to Server URL", "https://server.com/arcgis/rest/services/NeedsSlash/MapServer", "https://server.com/ArcGIS/rest/services/NeedsSlash/MapServer/"},
		{"Trailing slash kept on Server URL", "https://server.com/arcgis/rest/services/KeepSlash/FeatureServer/", "https://server.com/ArcGIS/rest/services/KeepSlash/FeatureServer/"},
		{"No trailing slash on Layer URL", "https://server.com/arcgis/rest/services/NoSlashLayer/FeatureServer/5/", "https://server.com/ArcGIS/rest/services/NoSlashLayer/FeatureServer/5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := NormalizeArcGISURL(tt.input)
			if actual != tt.expected {
				t.Errorf("NormalizeArcGISURL(%q): expected %q, got %q", tt.input, tt.expected, actual)
			}
		})
	}
}

func TestIsValidHTTPURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"Valid HTTPS", "https://example.com", true},
		{"Valid HTTP", "http://example.com/path", true},
		{"No Scheme", "example.com", false},
		{"Invalid Scheme", "ftp://example.com", false},
		{"Just Scheme", "http://", true}, // url.Parse considers this valid
		{"Empty String", "", false},
		{"Garbage Input", "://?##", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidHTTPURL(tt.input); got != tt.want {
				t.Errorf("IsValidHTTPURL(%q) = %v; want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsArcGISOnlineItemURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"Valid AGOL Item URL", "https://www.arcgis.com/home/item.html?id=abc123", true},
		{"Valid AGOL Item URL with other params", "https://www.arcgis.com/home/item.html?id=abc123&other=param", true},
		{"Invalid URL", "https://example.com", false},
		{"Empty String", "", false},
		{"Just domain", "arcgis.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsArcGISOnlineItemURL(tt.input); got != tt.want {
				t.Errorf("IsArcGISOnlineItemURL(%q) = %v; want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	timeout := 30 * time.Second
	client := NewClient(timeout)

	if client.Timeout != timeout {
		t.Errorf("NewClient timeout = %v; want %v", client.Timeout, timeout)
	}

	if client.HTTPClient == nil {
		t.Error("NewClient HTTPClient is nil")
	}

	if client.HTTPClient.Timeout != timeout {
		t.Errorf("NewClient HTTPClient timeout = %v; want %v", client.HTTPClient.Timeout, timeout)
	}

	if client.PageSize != DefaultPageSize {
		t.Errorf("NewClient PageSize = %d; want %d", client.PageSize, DefaultPageSize)
	}
}

const servicePath = "/ArcGIS/rest/services/Test/FeatureServer"

// fakeService serves a FeatureServer with one point layer of total features,
// returned in pages of at most pageSize.
func fakeService(t *testing.T, total, pageSize int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case servicePath, servicePath + "/":
			fmt.Fprint(w, `{"currentVersion":10.91,"layers":[{"id":0,"name":"Trees","type":"Feature Layer","geometryType":"esriGeometryPoint"}]}`)
		case servicePath + "/0":
			fmt.Fprint(w, `{"id":0,"name":"Trees","fields":[{"name":"OBJECTID","type":"esriFieldTypeOID"},{"name":"Species","type":"esriFieldTypeString"}]}`)
		case servicePath + "/0/query":
			if got := r.URL.Query().Get("outSR"); got != "4326" {
				t.Errorf("outSR = %q, want 4326", got)
			}
			offset, _ := strconv.Atoi(r.URL.Query().Get("resultOffset"))
			var features []string
			for i := offset; i < total && i < offset+pageSize; i++ {
				species := `"Oak"`
				if i%2 == 1 {
					species = "null"
				}
				features = append(features, fmt.Sprintf(`{"attributes":{"OBJECTID":%d,"Species":%s},"geometry":{"x":%d.5,"y":1}}`, i+1, species, i))
			}
			exceeded := offset+pageSize < total
			fmt.Fprintf(w, `{"features":[%s],"exceededTransferLimit":%t}`, strings.Join(features, ","), exceeded)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestFetchLayerPaging(t *testing.T) {
	srv := fakeService(t, 5, 2)
	defer srv.Close()

	client := NewClient(5 * time.Second)
	client.PageSize = 2

	ds, err := client.FetchLayer(context.Background(), srv.URL+servicePath+"/0")
	if err != nil {
		t.Fatalf("FetchLayer() error = %v", err)
	}
	if ds.Name != "Trees" {
		t.Errorf("Name = %q, want Trees", ds.Name)
	}
	if ds.Len() != 5 || ds.Table.Len() != 5 {
		t.Fatalf("features = %d rows = %d, want 5", ds.Len(), ds.Table.Len())
	}
	if strings.Join(ds.Table.Columns, ",") != "OBJECTID,Species" {
		t.Errorf("columns = %v, want field order", ds.Table.Columns)
	}
	if got := ds.Table.StringValue(4, "OBJECTID"); got != "5" {
		t.Errorf("OBJECTID[4] = %q, want 5", got)
	}
	if _, ok := ds.Table.Rows[1]["Species"]; ok {
		t.Error("null attribute kept as a key")
	}
	if !orb.Equal(ds.Geometries[3], orb.Point{3.5, 1}) {
		t.Errorf("geometry[3] = %v", ds.Geometries[3])
	}
	if !ds.CRS.IsWGS84() {
		t.Errorf("CRS = %v, want WGS84", ds.CRS)
	}
}

func TestFetchService(t *testing.T) {
	srv := fakeService(t, 3, 10)
	defer srv.Close()

	datasets, err := NewClient(5*time.Second).Fetch(context.Background(), srv.URL+"/arcgis/rest/services/Test/featureserver")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(datasets) != 1 || datasets[0].Len() != 3 {
		t.Fatalf("Fetch() = %d datasets, want one with 3 features", len(datasets))
	}
}

func TestFetchEmptyLayer(t *testing.T) {
	srv := fakeService(t, 0, 10)
	defer srv.Close()

	_, err := NewClient(5*time.Second).FetchLayer(context.Background(), srv.URL+servicePath+"/0")
	if !errors.Is(err, ErrNoFeatures) {
		t.Fatalf("FetchLayer() error = %v, want ErrNoFeatures", err)
	}
}

func TestFetchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"code":499,"message":"Token Required","details":[]}}`)
	}))
	defer srv.Close()

	_, err := NewClient(5*time.Second).FetchLayer(context.Background(), srv.URL+servicePath+"/0")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 499 {
		t.Fatalf("FetchLayer() error = %v, want APIError 499", err)
	}
}

func TestFetchHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var target map[string]any
	err := NewClient(5*time.Second).FetchAndDecode(context.Background(), srv.URL, &target)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("FetchAndDecode() error = %v, want status 500", err)
	}
}

func TestHandleArcGISOnlineItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/items/abc123" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(ItemData{ID: "abc123", Type: "Feature Service", URL: "https://example.com/arcgis/rest/services/X/FeatureServer"})
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)
	client.ItemBaseURL = srv.URL + "/items"

	item, err := client.HandleArcGISOnlineItem(context.Background(), "https://www.arcgis.com/home/item.html?id=abc123")
	if err != nil {
		t.Fatalf("HandleArcGISOnlineItem() error = %v", err)
	}
	if item.Type != "Feature Service" || item.URL == "" {
		t.Errorf("item = %+v", item)
	}

	if _, err := client.HandleArcGISOnlineItem(context.Background(), "https://www.arcgis.com/home/item.html"); err == nil {
		t.Error("HandleArcGISOnlineItem() without id returned nil error")
	}
}

func TestGeometryOrb(t *testing.T) {
	outer := [][]float64{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}
	hole := [][]float64{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}}
	second := [][]float64{{20, 20}, {20, 30}, {30, 30}, {30, 20}}

	tests := []struct {
		name string
		json string
		want string
	}{
		{"Point", `{"x":1.5,"y":2}`, "Point"},
		{"Empty Point", `{"x":"NaN","y":"NaN"}`, ""},
		{"MultiPoint", `{"points":[[1,2],[3,4]]}`, "MultiPoint"},
		{"LineString", `{"paths":[[[0,0],[1,1]]]}`, "LineString"},
		{"MultiLineString", `{"paths":[[[0,0],[1,1]],[[2,2],[3,3]]]}`, "MultiLineString"},
		{"Polygon With Hole", mustJSON(t, map[string]any{"rings": [][][]float64{outer, hole}}), "Polygon"},
		{"MultiPolygon", mustJSON(t, map[string]any{"rings": [][][]float64{outer, second}}), "MultiPolygon"},
		{"Empty", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Geometry
			if err := json.Unmarshal([]byte(tt.json), &g); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			got := g.Orb()
			if tt.want == "" {
				if got != nil {
					t.Errorf("Orb() = %v, want nil", got)
				}
				return
			}
			if got == nil || got.GeoJSONType() != tt.want {
				t.Fatalf("Orb() = %v, want %s", got, tt.want)
			}
			if p, ok := got.(orb.Polygon); ok && len(p) != 2 {
				t.Errorf("polygon rings = %d, want 2", len(p))
			}
		})
	}

	var nilGeom *Geometry
	if nilGeom.Orb() != nil {
		t.Error("nil geometry converted to non-nil")
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
