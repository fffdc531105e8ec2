package export

import (
	"encoding/csv"
	"fmt"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
	"github.com/Sudo-Ivan/geodata-converter/pkg/utils"
)

// CSV writes the attribute table with a header line. Geometry is dropped
// unless Geometry is set, in which case a WKT_Geometry column is appended.
type CSV struct {
	Geometry bool
}

// Write implements Writer.
func (c CSV) Write(ds *dataset.Dataset, path string) (err error) {
	f, closeFile, err := createFile(path)
	if err != nil {
		return err
	}
	defer closeFile(&err)

	headers := append([]string(nil), ds.Table.Columns...)
	if c.Geometry {
		headers = append(headers, WKTColumn)
	}

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range ds.Table.Rows {
		row := make([]string, len(headers))
		for j, col := range ds.Table.Columns {
			row[j] = ds.Table.StringValue(i, col)
		}
		if c.Geometry && i < len(ds.Geometries) {
			row[len(row)-1] = utils.GeometryToWKT(ds.Geometries[i])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row to CSV: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("error during CSV writing: %w", err)
	}
	return nil
}
