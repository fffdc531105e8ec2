package gearth

import (
	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// NoName is recorded for a SchemaData record whose enclosing feature has no
// name element.
const NoName = "[no name]"

// NameColumn receives the enclosing feature name.
const NameColumn = "Name"

// StructuredOptions controls StructuredRows.
type StructuredOptions struct {
	// IncludeFeatureName adds the enclosing Placemark name to every record.
	IncludeFeatureName bool
}

// DefaultStructuredOptions returns the options used by the dispatcher.
func DefaultStructuredOptions() StructuredOptions {
	return StructuredOptions{IncludeFeatureName: true}
}

// StructuredRows reads every SchemaData element below root as one record of
// SimpleData name/value pairs, in document order.
func StructuredRows(root Node, opts StructuredOptions) *dataset.Table {
	out := dataset.NewTable()
	for _, sd := range root.FindAll("schemadata") {
		row := dataset.Row{}
		var order []string

		if opts.IncludeFeatureName {
			row[NameColumn] = featureName(sd)
			order = append(order, NameColumn)
		}
		for _, field := range sd.FindAll("simpledata") {
			name, _ := field.Attr("name")
			if _, dup := row[name]; !dup {
				order = append(order, name)
			}
			row[name] = field.Text()
		}
		out.Append(row, order...)
	}
	return out
}

// featureName returns the name of the feature two levels above a SchemaData
// element (SchemaData, ExtendedData, Placemark).
func featureName(sd Node) string {
	owner := sd.Parent()
	if owner != nil {
		owner = owner.Parent()
	}
	if owner == nil {
		return NoName
	}
	if name, ok := directText(owner, "name"); ok {
		return name
	}
	return NoName
}
