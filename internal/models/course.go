package models

import (
	"fmt"
	"sort"
)

// ClubhouseZoneID is the staging zone runners start from and return to
// between deliveries. It is never a valid delivery destination.
const ClubhouseZoneID = 0

// Zone is one service area on the course (a hole, or the clubhouse staging
// area). Travel and service times are one-way minutes measured from the
// clubhouse. Zones are read-only during a run; Blocked is set once when a
// scenario's blocking policy is applied.
type Zone struct {
	ID         int     `json:"id" mapstructure:"id"`
	Name       string  `json:"name" mapstructure:"name"`
	TravelMin  float64 `json:"travel_min" mapstructure:"travel_min"`
	ServiceMin float64 `json:"service_min" mapstructure:"service_min"`
	Blocked    bool    `json:"blocked"`
}

// Course is the static topology of the course. Lookups are pure; a course
// never mutates mid-run.
type Course struct {
	zones map[int]*Zone
	ids   []int // sorted, excludes the clubhouse
}

// NewCourse builds a course from a zone table. The clubhouse staging zone is
// added implicitly. Duplicate or non-positive hole ids are configuration
// errors.
func NewCourse(zones []Zone) (*Course, error) {
	c := &Course{zones: make(map[int]*Zone, len(zones)+1)}
	c.zones[ClubhouseZoneID] = &Zone{ID: ClubhouseZoneID, Name: "clubhouse"}
	for i := range zones {
		z := zones[i]
		if z.ID <= 0 {
			return nil, fmt.Errorf("invalid zone id %d: hole ids must be positive", z.ID)
		}
		if _, ok := c.zones[z.ID]; ok {
			return nil, fmt.Errorf("duplicate zone id %d", z.ID)
		}
		if z.TravelMin < 0 || z.ServiceMin < 0 {
			return nil, fmt.Errorf("zone %d: travel and service minutes must be non-negative", z.ID)
		}
		zc := z
		c.zones[z.ID] = &zc
		c.ids = append(c.ids, z.ID)
	}
	if len(c.ids) == 0 {
		return nil, fmt.Errorf("course has no delivery zones")
	}
	sort.Ints(c.ids)
	return c, nil
}

// DefaultCourse returns the standard 18-hole layout. Travel minutes grow
// towards the turn and shrink coming back in, service times vary with how
// accessible the hole is by cart path.
func DefaultCourse() *Course {
	zones := make([]Zone, 0, 18)
	for hole := 1; hole <= 18; hole++ {
		// Holes 1 and 18 sit next to the clubhouse; hole 9/10 turn is the
		// far point of each nine. Minutes are cart-path times.
		var travel float64
		if hole <= 9 {
			travel = 2 + float64(hole-1)*0.75
		} else {
			travel = 2 + float64(18-hole)*0.75 + 1.5 // back nine routes around the practice range
		}
		service := 2.0
		if hole%5 == 0 {
			service = 3.0 // holes without direct cart path access
		}
		zones = append(zones, Zone{
			ID:         hole,
			Name:       fmt.Sprintf("hole_%d", hole),
			TravelMin:  travel,
			ServiceMin: service,
		})
	}
	c, err := NewCourse(zones)
	if err != nil {
		panic(err) // static table, cannot fail
	}
	return c
}

// Zone returns the zone for id. Unknown ids are configuration errors and are
// surfaced before any simulated time advances.
func (c *Course) Zone(id int) (*Zone, error) {
	z, ok := c.zones[id]
	if !ok {
		return nil, fmt.Errorf("unknown zone id %d", id)
	}
	return z, nil
}

// HoleIDs returns the delivery zone ids in ascending order.
func (c *Course) HoleIDs() []int {
	out := make([]int, len(c.ids))
	copy(out, c.ids)
	return out
}

// OpenHoleIDs returns the ids of zones not excluded by the applied blocking
// policy.
func (c *Course) OpenHoleIDs() []int {
	out := make([]int, 0, len(c.ids))
	for _, id := range c.ids {
		if !c.zones[id].Blocked {
			out = append(out, id)
		}
	}
	return out
}

// IsBlocked reports whether deliveries to the zone are excluded under the
// applied blocking policy. Unknown zones are treated as blocked.
func (c *Course) IsBlocked(id int) bool {
	z, ok := c.zones[id]
	if !ok {
		return true
	}
	return z.Blocked
}

// TravelBetween estimates one-way travel minutes between two zones. Travel
// is modelled along the cart path radiating from the clubhouse, so the
// estimate is the difference of the clubhouse distances plus a fixed
// crossover cost when switching nines.
func (c *Course) TravelBetween(from, to int) (float64, error) {
	a, err := c.Zone(from)
	if err != nil {
		return 0, err
	}
	b, err := c.Zone(to)
	if err != nil {
		return 0, err
	}
	d := a.TravelMin - b.TravelMin
	if d < 0 {
		d = -d
	}
	if crossesNines(from, to) {
		d += 2
	}
	return d, nil
}

func crossesNines(a, b int) bool {
	if a == ClubhouseZoneID || b == ClubhouseZoneID {
		return false
	}
	return (a <= 9) != (b <= 9)
}

// WithBlocking returns a copy of the course with the policy's zones marked
// blocked. The receiver is untouched, so independent runs can share one base
// course.
func (c *Course) WithBlocking(policy BlockingPolicy) (*Course, error) {
	out := &Course{zones: make(map[int]*Zone, len(c.zones)), ids: c.HoleIDs()}
	for id, z := range c.zones {
		zc := *z
		zc.Blocked = false
		out.zones[id] = &zc
	}
	for _, id := range policy.BlockedZones {
		z, ok := out.zones[id]
		if !ok || id == ClubhouseZoneID {
			return nil, fmt.Errorf("blocking policy %q names unknown zone %d", policy.Name, id)
		}
		z.Blocked = true
	}
	return out, nil
}

// BlockingPolicy names a set of zones excluded from delivery service for a
// scenario.
type BlockingPolicy struct {
	Name         string `json:"name"`
	BlockedZones []int  `json:"blocked_zones"`
}

// BlockedCount returns the number of zones the policy removes from service.
// Used as the "restrictiveness" ordering when ranking scenarios.
func (p BlockingPolicy) BlockedCount() int {
	return len(p.BlockedZones)
}

// ResolveBlockingPolicy maps a policy name from scenario configuration to
// the zone set it blocks. Unknown names are configuration errors.
func ResolveBlockingPolicy(name string) (BlockingPolicy, error) {
	switch name {
	case "", "none":
		return BlockingPolicy{Name: "none"}, nil
	case "front_nine":
		return BlockingPolicy{Name: name, BlockedZones: rangeZones(1, 9)}, nil
	case "back_nine":
		return BlockingPolicy{Name: name, BlockedZones: rangeZones(10, 18)}, nil
	case "front_back":
		// Serve only the mid-course core: drop the holes closest to the
		// clubhouse on both nines.
		zones := append(rangeZones(1, 3), rangeZones(16, 18)...)
		return BlockingPolicy{Name: name, BlockedZones: zones}, nil
	case "outer_holes":
		// Drop the far turn where the round trip is longest.
		return BlockingPolicy{Name: name, BlockedZones: rangeZones(7, 12)}, nil
	default:
		return BlockingPolicy{}, fmt.Errorf("unknown blocking policy %q", name)
	}
}

func rangeZones(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}
