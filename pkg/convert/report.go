package convert

import (
	"fmt"
	"strings"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
	"github.com/Sudo-Ivan/geodata-converter/pkg/utils"
)

// Report renders a dataset as readable text: a header with the layer name,
// feature count and CRS, then every feature's attributes in column order and
// its geometry as WKT.
func Report(ds *dataset.Dataset) (string, error) {
	if err := ds.Validate(); err != nil {
		return "", err
	}
	if ds.Len() == 0 {
		return "", fmt.Errorf("no features to report")
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Layer: %s\n", ds.Name)
	fmt.Fprintf(&out, "Total Features: %d\n", ds.Len())
	fmt.Fprintf(&out, "CRS: %s\n", ds.CRS)
	out.WriteString("========================================\n\n")

	for i, g := range ds.Geometries {
		fmt.Fprintf(&out, "--- Feature %d ---\n", i+1)

		out.WriteString("Attributes:\n")
		for _, col := range ds.Table.Columns {
			if _, ok := ds.Table.Rows[i][col]; !ok {
				continue
			}
			fmt.Fprintf(&out, "  %s: %s\n", col, ds.Table.StringValue(i, col))
		}

		out.WriteString("Geometry (WKT):\n")
		if wkt := utils.GeometryToWKT(g); wkt == "" {
			out.WriteString("  <No Geometry>\n")
		} else {
			fmt.Fprintf(&out, "  %s\n", wkt)
		}
		out.WriteString("\n")
	}
	return out.String(), nil
}
