package level

import (
	"context"
	"sort"
)

// staticRepository serves a fixed set of validated level definitions.
type staticRepository struct {
	byID  map[int]Definition
	order []Definition
}

// NewStaticRepository builds a Repository from the given definitions.
// Every definition is validated up front; an invalid one fails construction.
func NewStaticRepository(defs ...Definition) (Repository, error) {
	if len(defs) == 0 {
		defs = Defaults()
	}
	r := &staticRepository{byID: make(map[int]Definition, len(defs))}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d)
	}
	sort.Slice(r.order, func(i, j int) bool { return r.order[i].ID < r.order[j].ID })
	return r, nil
}

func (r *staticRepository) Get(ctx context.Context, id int) (Definition, error) {
	if d, ok := r.byID[id]; ok {
		return d, nil
	}
	return Definition{}, ErrNotFound
}

func (r *staticRepository) List(ctx context.Context) ([]Definition, error) {
	out := make([]Definition, len(r.order))
	copy(out, r.order)
	return out, nil
}
