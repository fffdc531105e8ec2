package export

// Output format labels.
const (
	FormatShapefile = "ESRI Shapefile"
	FormatFileGDB   = "OpenFileGDB"
	FormatGeoJSON   = "GeoJSON"
	FormatCSV       = "CSV"
	FormatKML       = "KML"
	FormatKMZ       = "KMZ"
	FormatGPX       = "GPX"
)

const (
	KeyFeature       = "Feature"
	KeyDescription   = "Description"
	WKTColumn        = "WKT_Geometry"
	CRS84URN         = "urn:ogc:def:crs:OGC:1.3:CRS84"
	KMZDocumentEntry = "doc.kml"
	DBFNameLimit     = 10
	DBFStringLimit   = 254
)
