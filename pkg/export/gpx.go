package export

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// GPX writes points as waypoints and lines and polygon boundaries as tracks.
// Attributes are flattened into each element's description.
type GPX struct {
	Logger zerolog.Logger
}

// Write implements Writer.
func (x GPX) Write(ds *dataset.Dataset, path string) (err error) {
	if err := requireWGS84(FormatGPX, ds); err != nil {
		return err
	}

	var waypoints strings.Builder
	var tracks strings.Builder

	for i, g := range ds.Geometries {
		if g == nil {
			continue
		}
		name := getFeatureName(ds.Table.Rows[i])
		desc := formatProperties(ds.Table, i, ", ")
		x.writeGeometry(&waypoints, &tracks, g, name, desc)
	}

	gpx := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="geodata-converter"
    xmlns="http://www.topografix.com/GPX/1/1"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
    xsi:schemaLocation="http://www.topografix.com/GPX/1/1 http://www.topografix.com/GPX/1/1/gpx.xsd">
    <metadata>
        <name>%s</name>
    </metadata>%s%s
</gpx>
`, escapeXML(ds.Name), waypoints.String(), tracks.String())

	f, closeFile, err := createFile(path)
	if err != nil {
		return err
	}
	defer closeFile(&err)

	_, err = f.WriteString(gpx)
	return err
}

func (x GPX) writeGeometry(waypoints, tracks *strings.Builder, g orb.Geometry, name, desc string) {
	switch v := g.(type) {
	case orb.Point:
		fmt.Fprintf(waypoints, `
    <wpt lat="%.10f" lon="%.10f">
        <name>%s</name>
        <desc>%s</desc>
    </wpt>`, v.Lat(), v.Lon(), escapeXML(name), escapeXML(desc))
	case orb.LineString:
		writeTrack(tracks, name, desc, v)
	case orb.Polygon:
		if len(v) > 0 {
			writeTrack(tracks, name+" (Boundary)", desc, v[0])
		}
	case orb.MultiPoint:
		for _, p := range v {
			x.writeGeometry(waypoints, tracks, p, name, desc)
		}
	case orb.MultiLineString:
		for _, l := range v {
			x.writeGeometry(waypoints, tracks, l, name, desc)
		}
	case orb.MultiPolygon:
		for _, p := range v {
			x.writeGeometry(waypoints, tracks, p, name, desc)
		}
	case orb.Collection:
		for _, part := range v {
			x.writeGeometry(waypoints, tracks, part, name, desc)
		}
	default:
		x.Logger.Warn().Str("type", geometryType(g)).Msg("Unsupported geometry type for GPX conversion")
	}
}

func writeTrack(tracks *strings.Builder, name, desc string, pts []orb.Point) {
	if len(pts) == 0 {
		return
	}
	fmt.Fprintf(tracks, `
    <trk>
        <name>%s</name>
        <desc>%s</desc>
        <trkseg>`, escapeXML(name), escapeXML(desc))
	for _, p := range pts {
		fmt.Fprintf(tracks, `<trkpt lat="%.10f" lon="%.10f"></trkpt>`, p.Lat(), p.Lon())
	}
	tracks.WriteString(`
        </trkseg>
    </trk>`)
}
