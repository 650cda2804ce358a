package models

import "time"

// Runner is one beverage-cart runner. A runner carries at most one order at
// a time and returns to the clubhouse between deliveries. The fleet size is
// fixed for the whole run; staffing changes are separate scenario runs.
type Runner struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Status         string    `json:"status"` // "idle", "en_route_to_zone", "returning"
	ZoneID         int       `json:"zone_id"`
	CurrentOrderID string    `json:"current_order_id"`
	DriveMinutes   float64   `json:"drive_minutes"`
	PrepMinutes    float64   `json:"prep_minutes"`
	IdleMinutes    float64   `json:"idle_minutes"`
	Deliveries     int       `json:"deliveries"`
	IdleSince      time.Time `json:"-"`
	BusyUntil      time.Time `json:"-"`
}

// BusyMinutes is time spent driving or handing off, the complement of idle
// time within the run's active hours.
func (r *Runner) BusyMinutes() float64 {
	return r.DriveMinutes + r.PrepMinutes
}
