package gearth

import (
	"strconv"
	"strings"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// DescriptionTables builds one attribute table from the HTML tables embedded
// in the Placemark descriptions of l.
//
// Each description contributes the records of a single table: the last one
// when several are present (Google Earth wraps the attribute table inside an
// outer layout table), otherwise the only one. The table is read as
// key/value pairs: the first column holds the attribute names and every
// further column is one record.
func DescriptionTables(l *Layer, p Parser) (*dataset.Table, error) {
	out := dataset.NewTable()
	for i, pm := range l.Placemarks {
		root, err := p.Parse(pm.Description)
		if err != nil {
			return nil, err
		}

		tables := root.FindAll("table")
		if len(tables) == 0 {
			return nil, &TableIndexError{Feature: i, Tables: 0}
		}
		selected := tables[0]
		if len(tables) > 1 {
			selected = tables[len(tables)-1]
		}

		headers, records, err := transposeTable(selected)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			out.Append(r, headers...)
		}
	}
	return out, nil
}

type cell struct {
	text    string
	present bool
}

// transposeTable turns a key/value table into records keyed by the first column.
func transposeTable(table Node) ([]string, []dataset.Row, error) {
	grid := tableGrid(table)
	if len(grid) == 0 {
		return nil, nil, &InvalidValueError{Field: "description table", Value: "table has no data rows"}
	}

	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}

	var headers []string
	seen := map[string]bool{}
	for _, row := range grid {
		h := row[0].text
		if h == "" {
			continue
		}
		if seen[h] {
			return nil, nil, &InvalidValueError{Field: "description table header", Value: "duplicate attribute name " + strconv.Quote(h)}
		}
		seen[h] = true
		headers = append(headers, h)
	}

	records := make([]dataset.Row, 0, width-1)
	for col := 1; col < width; col++ {
		rec := dataset.Row{}
		for _, row := range grid {
			h := row[0].text
			if h == "" || col >= len(row) || !row[col].present {
				continue
			}
			rec[h] = row[col].text
		}
		records = append(records, rec)
	}
	return headers, records, nil
}

// tableGrid returns the data rows of table with colspan expanded. Rows of
// nested tables are excluded and leading header rows are dropped.
func tableGrid(table Node) [][]cell {
	var rows []Node
	var collect func(Node)
	collect = func(n Node) {
		for _, c := range n.Children() {
			switch c.Tag() {
			case "table":
				// nested tables are read on their own
			case "tr":
				rows = append(rows, c)
			default:
				collect(c)
			}
		}
	}
	collect(table)

	var grid [][]cell
	leading := true
	for _, tr := range rows {
		var cells []Node
		for _, c := range tr.Children() {
			if t := c.Tag(); t == "td" || t == "th" {
				cells = append(cells, c)
			}
		}
		if len(cells) == 0 {
			continue
		}
		if leading && isHeaderRow(tr, cells) {
			continue
		}
		leading = false

		var row []cell
		for _, c := range cells {
			text := strings.Join(strings.Fields(c.Text()), " ")
			span := 1
			if v, ok := c.Attr("colspan"); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 1 {
					span = n
				}
			}
			for k := 0; k < span; k++ {
				row = append(row, cell{text: text, present: true})
			}
		}
		grid = append(grid, row)
	}
	return grid
}

func isHeaderRow(tr Node, cells []Node) bool {
	if parent := tr.Parent(); parent != nil && parent.Tag() == "thead" {
		return true
	}
	for _, c := range cells {
		if c.Tag() != "th" {
			return false
		}
	}
	return true
}
