// Package arcgis fetches layers from ArcGIS REST services and ArcGIS Online
// items as datasets.
package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// DefaultPageSize is the resultRecordCount requested per query page.
const DefaultPageSize = 1000

// DefaultItemBaseURL is the ArcGIS Online content endpoint used to resolve
// item pages.
const DefaultItemBaseURL = "https://www.arcgis.com/sharing/rest/content/items"

// ErrNoFeatures is returned when a layer query yields no features.
var ErrNoFeatures = errors.New("no features found")

// Client represents an ArcGIS client with configuration.
type Client struct {
	HTTPClient  *http.Client
	Timeout     time.Duration
	PageSize    int
	ItemBaseURL string
	Logger      zerolog.Logger
}

// NewClient creates a new ArcGIS client with the specified timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Timeout:     timeout,
		PageSize:    DefaultPageSize,
		ItemBaseURL: DefaultItemBaseURL,
		Logger:      zerolog.Nop(),
	}
}

// IsArcGISOnlineItemURL checks if a URL points to an ArcGIS Online item page.
func IsArcGISOnlineItemURL(rawURL string) bool {
	return strings.Contains(strings.ToLower(rawURL), "arcgis.com/home/item.html")
}

// NormalizeArcGISURL normalizes an ArcGIS URL.
func NormalizeArcGISURL(rawURL string) string {
	lowerURL := strings.ToLower(rawURL)
	isArcGISService := strings.Contains(lowerURL, "/rest/services") || strings.Contains(lowerURL, "/arcgis/rest")
	isAGOLItem := strings.Contains(lowerURL, "arcgis.com/home/item.html")

	if !isArcGISService && !isAGOLItem {
		u, err := url.Parse(rawURL)
		if err == nil && u.Scheme == "" {
			if strings.Contains(rawURL, ".") && !strings.Contains(rawURL, " ") && !strings.HasPrefix(rawURL, "/") {
				return "https://" + rawURL
			}
		}
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.Scheme == "" {
		// url.Parse puts a scheme-less host into the path.
		if u, err = url.Parse("https://" + rawURL); err != nil {
			return rawURL
		}
	}

	if isArcGISService {
		pathParts := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i, part := range pathParts {
			switch strings.ToLower(part) {
			case "arcgis":
				pathParts[i] = "ArcGIS"
			case "rest":
				pathParts[i] = "rest"
			case "services":
				pathParts[i] = "services"
			case "featureserver":
				pathParts[i] = "FeatureServer"
			case "mapserver":
				pathParts[i] = "MapServer"
			}
		}
		u.Path = "/" + strings.Join(pathParts, "/")

		if serviceType(u.Path) != "" {
			u.Path += "/"
		}

		q := u.Query()
		q.Del("f")
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// serviceType returns "FeatureServer" or "MapServer" when path is a service
// root, and "" for layer and other URLs.
func serviceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch last := strings.ToLower(parts[len(parts)-1]); last {
	case "featureserver":
		return "FeatureServer"
	case "mapserver":
		return "MapServer"
	}
	return ""
}

// IsValidHTTPURL checks if a URL is a valid HTTP or HTTPS URL.
func IsValidHTTPURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// FetchAndDecode fetches data from a URL and decodes it into the target interface.
func (c *Client) FetchAndDecode(ctx context.Context, urlStr string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", urlStr, err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return fmt.Errorf("request timed out fetching data from %s: %w", urlStr, err)
		}
		return fmt.Errorf("failed to fetch data from %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-OK HTTP status %d from %s", resp.StatusCode, urlStr)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to parse JSON from %s: %w", urlStr, err)
	}
	return nil
}

// Fetch resolves any supported URL into datasets: an ArcGIS Online item
// page, a FeatureServer or MapServer root (every feature layer), or a single
// layer.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]*dataset.Dataset, error) {
	u := NormalizeArcGISURL(rawURL)
	if !IsValidHTTPURL(u) {
		return nil, fmt.Errorf("invalid URL %q", rawURL)
	}

	if IsArcGISOnlineItemURL(u) {
		item, err := c.HandleArcGISOnlineItem(ctx, u)
		if err != nil {
			return nil, err
		}
		if item.URL == "" {
			return nil, fmt.Errorf("item %s (%s) has no service URL", item.ID, item.Type)
		}
		u = NormalizeArcGISURL(item.URL)
	}

	st := serviceType(strings.SplitN(u, "?", 2)[0])
	if st == "" {
		ds, err := c.FetchLayer(ctx, u)
		if err != nil {
			return nil, err
		}
		return []*dataset.Dataset{ds}, nil
	}

	layers, err := c.FetchServiceLayers(ctx, strings.TrimRight(u, "/"), st)
	if err != nil {
		return nil, err
	}
	return c.fetchLayers(ctx, layers)
}

// fetchLayers fetches several layers concurrently, keeping their order.
// Layers without features are left out.
func (c *Client) fetchLayers(ctx context.Context, layers []AvailableLayerInfo) ([]*dataset.Dataset, error) {
	results := make([]*dataset.Dataset, len(layers))
	errs := make([]error, len(layers))

	var wg sync.WaitGroup
	for i, layer := range layers {
		wg.Add(1)
		go func(i int, layer AvailableLayerInfo) {
			defer wg.Done()
			results[i], errs[i] = c.FetchLayer(ctx, layer.URL())
		}(i, layer)
	}
	wg.Wait()

	out := make([]*dataset.Dataset, 0, len(layers))
	for i, err := range errs {
		if errors.Is(err, ErrNoFeatures) {
			c.Logger.Warn().Str("layer", layers[i].Name).Msg("Skipped layer without features")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", layers[i].Name, err)
		}
		out = append(out, results[i])
	}
	return out, nil
}

// FetchLayer reads a feature layer: its metadata for the name and field
// order, then every page of features reprojected to WGS 84.
func (c *Client) FetchLayer(ctx context.Context, layerURL string) (*dataset.Dataset, error) {
	layerURL = strings.TrimRight(layerURL, "/")

	var meta Layer
	if err := c.FetchAndDecode(ctx, layerURL+"?f=json", &meta); err != nil {
		return nil, fmt.Errorf("failed to fetch layer metadata: %w", err)
	}
	if meta.Error != nil {
		return nil, fmt.Errorf("layer metadata API error: %w", meta.Error)
	}

	name := meta.Name
	if name == "" {
		name = "Layer_" + layerURL[strings.LastIndex(layerURL, "/")+1:]
	}

	order := make([]string, 0, len(meta.Fields))
	for _, f := range meta.Fields {
		order = append(order, f.Name)
	}

	ds := &dataset.Dataset{Name: name, Table: dataset.NewTable(), CRS: dataset.WGS84}
	for offset, page := 0, 1; ; page++ {
		resp, err := c.fetchPage(ctx, layerURL, offset)
		if err != nil {
			return nil, err
		}
		if len(order) == 0 {
			for _, f := range resp.Fields {
				order = append(order, f.Name)
			}
		}
		for _, f := range resp.Features {
			ds.Table.Append(attributeRow(f.Attributes), order...)
			ds.Geometries = append(ds.Geometries, f.Geometry.Orb())
		}
		c.Logger.Debug().
			Str("layer", name).
			Int("page", page).
			Int("features", len(resp.Features)).
			Bool("exceeded", resp.ExceededTransferLimit).
			Msg("Fetched feature page")

		if !resp.ExceededTransferLimit || len(resp.Features) == 0 {
			break
		}
		offset += len(resp.Features)
	}

	if ds.Len() == 0 {
		return nil, fmt.Errorf("%w for layer %s", ErrNoFeatures, layerURL)
	}
	c.Logger.Info().Str("layer", name).Int("features", ds.Len()).Msg("Fetched layer")
	return ds, nil
}

func (c *Client) fetchPage(ctx context.Context, layerURL string, offset int) (*FeatureResponse, error) {
	u, err := url.Parse(layerURL + "/query")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("f", "json")
	q.Set("where", "1=1")
	q.Set("outFields", "*")
	q.Set("returnGeometry", "true")
	q.Set("outSR", "4326")
	q.Set("resultOffset", strconv.Itoa(offset))
	if c.PageSize > 0 {
		q.Set("resultRecordCount", strconv.Itoa(c.PageSize))
	}
	u.RawQuery = q.Encode()

	var resp FeatureResponse
	if err := c.FetchAndDecode(ctx, u.String(), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch features: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("feature query API error: %w", resp.Error)
	}
	return &resp, nil
}

// attributeRow drops null attributes so that they read as absent fields.
func attributeRow(attrs map[string]interface{}) dataset.Row {
	row := make(dataset.Row, len(attrs))
	for k, v := range attrs {
		if v != nil {
			row[k] = v
		}
	}
	return row
}

// FetchServiceLayers fetches the feature layers of an ArcGIS Feature Server or Map Server.
func (c *Client) FetchServiceLayers(ctx context.Context, serviceURL string, serviceType string) ([]AvailableLayerInfo, error) {
	fetchURL := serviceURL + "?f=json"
	c.Logger.Debug().Str("url", fetchURL).Msg("Fetching service metadata")

	var availableLayers []AvailableLayerInfo
	switch serviceType {
	case "FeatureServer":
		var metadata FeatureServerMetadata
		if err := c.FetchAndDecode(ctx, fetchURL, &metadata); err != nil {
			return nil, fmt.Errorf("failed to fetch Feature Server metadata: %w", err)
		}
		if metadata.Error != nil {
			return nil, fmt.Errorf("feature Server API error: %w", metadata.Error)
		}
		for _, layer := range metadata.Layers {
			if layer.ID == "" {
				c.Logger.Warn().Str("layer", layer.Name).Msg("Skipped layer without ID")
				continue
			}
			availableLayers = append(availableLayers, AvailableLayerInfo{
				ID:           layer.ID.String(),
				Name:         layer.Name,
				Type:         layer.Type,
				GeometryType: layer.GeometryType,
				ServiceURL:   serviceURL,
			})
		}
	case "MapServer":
		var metadata MapServiceMetadata
		if err := c.FetchAndDecode(ctx, fetchURL, &metadata); err != nil {
			return nil, fmt.Errorf("failed to fetch Map Server metadata: %w", err)
		}
		if metadata.Error != nil {
			return nil, fmt.Errorf("map Server API error: %w", metadata.Error)
		}
		for _, layer := range metadata.Layers {
			if layer.Type != "Feature Layer" {
				c.Logger.Debug().
					Str("layer", layer.Name).
					Int("id", layer.ID).
					Str("type", layer.Type).
					Msg("Skipped non-feature layer")
				continue
			}
			availableLayers = append(availableLayers, AvailableLayerInfo{
				ID:           strconv.Itoa(layer.ID),
				Name:         layer.Name,
				Type:         layer.Type,
				GeometryType: layer.GeometryType,
				ServiceURL:   serviceURL,
			})
		}
	default:
		return nil, fmt.Errorf("unsupported service type for fetching layers: %s", serviceType)
	}

	if len(availableLayers) == 0 {
		return nil, fmt.Errorf("no feature layers found at %s", serviceURL)
	}
	sort.SliceStable(availableLayers, func(i, j int) bool {
		a, _ := strconv.Atoi(availableLayers[i].ID)
		b, _ := strconv.Atoi(availableLayers[j].ID)
		return a < b
	})
	return availableLayers, nil
}

var itemIDPattern = regexp.MustCompile(`id=([a-f0-9]+)`)

// HandleArcGISOnlineItem fetches the metadata of an ArcGIS Online item page.
func (c *Client) HandleArcGISOnlineItem(ctx context.Context, itemPageURL string) (*ItemData, error) {
	matches := itemIDPattern.FindStringSubmatch(itemPageURL)
	if len(matches) < 2 {
		return nil, fmt.Errorf("could not extract item ID from URL: %s", itemPageURL)
	}
	itemID := matches[1]

	itemAPIURL := fmt.Sprintf("%s/%s?f=json", strings.TrimRight(c.ItemBaseURL, "/"), itemID)

	var itemData ItemData
	if err := c.FetchAndDecode(ctx, itemAPIURL, &itemData); err != nil {
		return nil, fmt.Errorf("failed to fetch item metadata: %w", err)
	}
	if itemData.Error != nil {
		return nil, fmt.Errorf("item API error: %w", itemData.Error)
	}

	c.Logger.Debug().Str("item", itemID).Str("type", itemData.Type).Msg("Resolved item")
	return &itemData, nil
}
