package models

// Catalog is the immutable set of moments for one playback session, keyed by id.
// Iteration order is the order in which ids were first seen while parsing.
type Catalog struct {
	order []string
	byID  map[string]Moment
}

// NewCatalog builds a catalog from moments in parse order.
// A later moment with an id already present replaces the earlier one but keeps its slot.
func NewCatalog(moments []Moment) *Catalog {
	c := &Catalog{
		order: make([]string, 0, len(moments)),
		byID:  make(map[string]Moment, len(moments)),
	}
	for _, m := range moments {
		if _, exists := c.byID[m.ID]; !exists {
			c.order = append(c.order, m.ID)
		}
		c.byID[m.ID] = m
	}
	return c
}

// Get looks up a moment by id.
func (c *Catalog) Get(id string) (Moment, bool) {
	m, found := c.byID[id]
	return m, found
}

// Len returns the number of distinct moments.
func (c *Catalog) Len() int {
	return len(c.order)
}

// IDs returns the moment ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	return ids
}

// Moments returns all moments in catalog order.
func (c *Catalog) Moments() []Moment {
	moments := make([]Moment, 0, len(c.order))
	for _, id := range c.order {
		moments = append(moments, c.byID[id])
	}
	return moments
}

// MaxEndMs returns the latest end time among schedulable moments, or 0 if there are none.
func (c *Catalog) MaxEndMs() int64 {
	var maxEnd int64
	for _, m := range c.byID {
		if m.Schedulable() && m.EndMs > maxEnd {
			maxEnd = m.EndMs
		}
	}
	return maxEnd
}
