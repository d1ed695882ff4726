package cart

import "time"

// Snapshot is the serialized form kept in session storage.
type Snapshot struct {
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot captures the current lines.
func (c *Cart) Snapshot() Snapshot {
	return Snapshot{Lines: c.Lines(), UpdatedAt: c.updatedAt}
}

// FromSnapshot rebuilds a cart. Lines with a non-positive quantity or a price
// outside [0, MaxUnitPriceCents] are dropped, duplicate dish ids are merged
// and quantities are capped at MaxLineQuantity. The total is always
// recomputed.
func FromSnapshot(s Snapshot) *Cart {
	c := &Cart{updatedAt: s.UpdatedAt}
	for _, line := range s.Lines {
		if line.Quantity <= 0 || line.UnitPriceCents < 0 || line.UnitPriceCents > MaxUnitPriceCents {
			continue
		}
		if idx := c.indexOf(line.DishID); idx >= 0 {
			c.lines[idx].Quantity = min(c.lines[idx].Quantity+line.Quantity, MaxLineQuantity)
			continue
		}
		line.Quantity = min(line.Quantity, MaxLineQuantity)
		c.lines = append(c.lines, line)
	}
	c.recompute()
	return c
}
