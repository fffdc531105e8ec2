package dataset

import "github.com/paulmach/orb"

// Reference supplies the geometry sequence and CRS that extracted attribute
// rows are attached to.
type Reference interface {
	Geometries() []orb.Geometry
	CRS() CRS
}

// Reconcile pairs the rows of t with the geometries of ref by position and
// adopts the CRS of ref. The counts must match exactly; rows are never
// truncated or padded.
func Reconcile(t *Table, ref Reference) (*Dataset, error) {
	if t == nil {
		t = NewTable()
	}
	geoms := ref.Geometries()
	if t.Len() != len(geoms) {
		return nil, &RowCountMismatchError{Rows: t.Len(), Features: len(geoms)}
	}

	out := make([]orb.Geometry, len(geoms))
	copy(out, geoms)

	return &Dataset{
		Table:      t,
		Geometries: out,
		CRS:        ref.CRS(),
	}, nil
}
