package dispatch

import (
	"context"

	"hospital-dispatch/internal/models"
)

// CapacityIndex answers "who can take another patient right now". The scan
// order is ascending doctor id: doctors are filled in a stable preference
// order, not load-balanced, which keeps tests reproducible.
//
// The answer is advisory. It may be stale by the time the caller acts on
// it; the conditional assignment commit is the authority.
type CapacityIndex struct {
	db DataStore
}

func NewCapacityIndex(db DataStore) *CapacityIndex {
	return &CapacityIndex{db: db}
}

// FindAvailableDoctor returns the first doctor whose active ticket count is
// below their limit, or nil when everyone is saturated.
func (c *CapacityIndex) FindAvailableDoctor(ctx context.Context) (*models.Doctor, error) {
	doctors, err := c.db.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range doctors {
		active, err := c.db.ActiveTicketCount(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		if active < int64(d.Capacity()) {
			return d, nil
		}
	}
	return nil, nil
}
