package sim

import (
	"fmt"
	"time"

	"github.com/fairwaysim/fairwaysim/internal/models"
)

// Fleet owns the run's runners. Runner count is fixed for the run; staffing
// changes are modelled as separate scenario runs.
type Fleet struct {
	Runners []*models.Runner
	course  *models.Course
}

func NewFleet(count int, course *models.Course, openAt time.Time) *Fleet {
	f := &Fleet{
		Runners: make([]*models.Runner, count),
		course:  course,
	}
	for i := 0; i < count; i++ {
		f.Runners[i] = &models.Runner{
			ID:        fmt.Sprintf("runner-%02d", i+1),
			Name:      fmt.Sprintf("Runner %d", i+1),
			Status:    models.RunnerStatusIdle,
			ZoneID:    models.ClubhouseZoneID,
			IdleSince: openAt,
		}
	}
	return f
}

// NearestIdle returns the idle runner with the shortest estimated travel to
// the zone; ties go to the lowest runner index so selection stays
// deterministic. Nil when no runner is idle.
func (f *Fleet) NearestIdle(zoneID int) *models.Runner {
	var best *models.Runner
	bestTravel := 0.0
	for _, r := range f.Runners {
		if r.Status != models.RunnerStatusIdle {
			continue
		}
		travel, err := f.course.TravelBetween(r.ZoneID, zoneID)
		if err != nil {
			continue
		}
		if best == nil || travel < bestTravel {
			best = r
			bestTravel = travel
		}
	}
	return best
}

// ByID looks up a runner by its id. Nil when unknown.
func (f *Fleet) ByID(id string) *models.Runner {
	for _, r := range f.Runners {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Free returns a runner to the clubhouse staging area after its return leg.
func (f *Fleet) Free(r *models.Runner, now time.Time) {
	r.Status = models.RunnerStatusIdle
	r.ZoneID = models.ClubhouseZoneID
	r.CurrentOrderID = ""
	r.IdleSince = now
	r.BusyUntil = time.Time{}
}

// CloseBooks charges idle time up to the close of service for runners still
// idle, so cumulative drive + prep + idle matches the run's active span.
func (f *Fleet) CloseBooks(closeAt time.Time) {
	for _, r := range f.Runners {
		if r.Status != models.RunnerStatusIdle {
			continue
		}
		if idle := closeAt.Sub(r.IdleSince); idle > 0 {
			r.IdleMinutes += idle.Minutes()
		}
		r.IdleSince = closeAt
	}
}
