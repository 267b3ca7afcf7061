package model

import "time"

// BusLayout identifies one of the fixed seat arrangements a bus can have.
type BusLayout string

const (
	Layout2Plus1 BusLayout = "2+1"
	Layout2Plus2 BusLayout = "2+2"
	Layout3Plus2 BusLayout = "3+2"
)

// ParseBusLayout validates a raw layout tag. Unknown values fall back to
// 2+2, mirroring how trips without an explicit layout were created.
func ParseBusLayout(s string) BusLayout {
	switch BusLayout(s) {
	case Layout2Plus1, Layout2Plus2, Layout3Plus2:
		return BusLayout(s)
	}
	return Layout2Plus2
}

// LayoutGrid describes how seats are drawn for a layout: the number of
// rows and columns and after which column the aisle sits.
type LayoutGrid struct {
	Rows       int `json:"rows"`
	Columns    int `json:"columns"`
	AisleAfter int `json:"aisle_after"`
}

// Grid returns the drawing grid for the layout.
func (b BusLayout) Grid() LayoutGrid {
	switch b {
	case Layout2Plus1:
		return LayoutGrid{Rows: 12, Columns: 3, AisleAfter: 2}
	case Layout3Plus2:
		return LayoutGrid{Rows: 9, Columns: 5, AisleAfter: 3}
	default:
		return LayoutGrid{Rows: 11, Columns: 4, AisleAfter: 2}
	}
}

// Trip mirrors the `trips` table. Departure date and time are wall-clock
// values in the business timezone; price is integer kurus.
//
// Fields:
//  ID         – primary key identifier.
//  FirmID     – owning firm.
//  FromCity   – origin city.
//  ToCity     – destination city.
//  DepartDate – departure date (YYYY-MM-DD).
//  DepartTime – departure time (HH:MM).
//  PriceCents – seat price in kurus, positive.
//  Seats      – total seat count; valid seat numbers are 1..Seats.
//  BusLayout  – fixed layout tag for seat-map rendering.
//  CreatedAt  – creation timestamp.
type Trip struct {
	ID         uint64    // trips.id
	FirmID     uint64    // trips.firm_id
	FromCity   string    // trips.from_city
	ToCity     string    // trips.to_city
	DepartDate string    // trips.depart_date
	DepartTime string    // trips.depart_time
	PriceCents int64     // trips.price_cents
	Seats      uint32    // trips.seats
	BusLayout  BusLayout // trips.bus_layout
	CreatedAt  time.Time // trips.created_at
}

// DepartureIn combines the trip's date and time into an instant in the
// given location. The stored values carry no zone, so the location decides
// which wall clock they refer to.
func (t *Trip) DepartureIn(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", t.DepartDate+" "+t.DepartTime, loc)
}
