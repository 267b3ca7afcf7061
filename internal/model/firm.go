package model

import "time"

// Firm represents a travel company. Firms own trips and may own
// firm-scoped coupons; the name is unique across the platform.
type Firm struct {
	ID        uint64    // firms.id
	Name      string    // firms.name
	CreatedAt time.Time // firms.created_at
}
