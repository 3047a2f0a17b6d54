// Package residence holds the fixed directory of housing units.
//
// The directory is computed once when a backend is deployed and never changes
// afterwards. Identifiers encode their position: block*1000 + floor*100 + unit.
package residence

import (
	"fmt"
	"slices"

	id "condo/pkg/domain"
)

// Layout describes the building shape a directory is generated from.
type Layout struct {
	Blocks        int
	Floors        int
	UnitsPerFloor int
}

// DefaultLayout is two blocks of four floors with five units each (40 units).
var DefaultLayout = Layout{Blocks: 2, Floors: 4, UnitsPerFloor: 5}

// Validate checks that every component fits its slot in the encoding.
func (l Layout) Validate() error {
	if l.Blocks < 1 || l.Floors < 1 || l.UnitsPerFloor < 1 {
		return fmt.Errorf("layout dimensions must be positive: %+v", l)
	}
	if l.Floors > 9 || l.UnitsPerFloor > 99 {
		return fmt.Errorf("layout exceeds residence encoding: %+v", l)
	}
	return nil
}

// Directory is the immutable set of valid residence identifiers.
type Directory struct {
	units []id.ResidenceID
	index map[id.ResidenceID]struct{}
}

// NewDirectory populates a directory deterministically from a layout.
func NewDirectory(l Layout) (*Directory, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	d := &Directory{index: make(map[id.ResidenceID]struct{}, l.Blocks*l.Floors*l.UnitsPerFloor)}
	for block := 1; block <= l.Blocks; block++ {
		for floor := 1; floor <= l.Floors; floor++ {
			for unit := 1; unit <= l.UnitsPerFloor; unit++ {
				r := id.ResidenceID(block*1000 + floor*100 + unit)
				d.units = append(d.units, r)
				d.index[r] = struct{}{}
			}
		}
	}
	return d, nil
}

// MustDirectory is NewDirectory for layouts known to be valid.
func MustDirectory(l Layout) *Directory {
	d, err := NewDirectory(l)
	if err != nil {
		panic(err)
	}
	return d
}

// Exists reports whether r is a valid residence.
func (d *Directory) Exists(r id.ResidenceID) bool {
	_, ok := d.index[r]
	return ok
}

// Len returns the number of residences.
func (d *Directory) Len() int {
	return len(d.units)
}

// Units returns the residences in ascending order.
func (d *Directory) Units() []id.ResidenceID {
	return slices.Clone(d.units)
}
