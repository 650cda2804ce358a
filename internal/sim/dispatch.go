package sim

import (
	"time"

	"github.com/fairwaysim/fairwaysim/internal/models"
)

// Assignment is the dispatcher's answer to "which runner takes this order,
// and when does each leg complete". DeliveredAt is the hand-off moment;
// FreedAt is when the runner is back at the clubhouse and idle again.
type Assignment struct {
	Order       *models.Order
	Runner      *models.Runner
	DeliveredAt time.Time
	FreedAt     time.Time
}

// Dispatcher assigns incoming orders to idle runners and keeps the FIFO wait
// queue for orders that find no runner. It mutates order and runner state;
// the engine owns event scheduling.
type Dispatcher struct {
	course  *models.Course
	fleet   *Fleet
	maxWait time.Duration
	queue   []*models.Order
	closed  bool
}

func NewDispatcher(course *models.Course, fleet *Fleet, maxWaitMinutes float64) *Dispatcher {
	return &Dispatcher{
		course:  course,
		fleet:   fleet,
		maxWait: time.Duration(maxWaitMinutes * float64(time.Minute)),
	}
}

// Submit handles a newly arrived order. Blocked-zone orders fail immediately
// without runner involvement. Otherwise the order is assigned to the nearest
// idle runner or queued in arrival order. Returns the assignment when one
// was made and whether the order was failed outright.
func (d *Dispatcher) Submit(order *models.Order, now time.Time) (*Assignment, bool) {
	if d.closed {
		d.fail(order, now, models.FailReasonCutoff)
		return nil, true
	}
	if d.course.IsBlocked(order.ZoneID) {
		d.fail(order, now, models.FailReasonBlockedZone)
		return nil, true
	}
	if a := d.tryAssign(order, now); a != nil {
		return a, false
	}
	d.queue = append(d.queue, order)
	return nil, false
}

// DispatchQueued re-evaluates the wait queue after a runner frees. Orders
// whose wait has breached the maximum are failed on the spot; the rest are
// assigned in arrival order until no runner is idle.
func (d *Dispatcher) DispatchQueued(now time.Time) []*Assignment {
	var assignments []*Assignment
	remaining := d.queue[:0]
	for i, order := range d.queue {
		if order.Terminal() {
			continue
		}
		if now.Sub(order.CreatedAt) >= d.maxWait {
			d.fail(order, now, models.FailReasonQueueWait)
			continue
		}
		a := d.tryAssign(order, now)
		if a == nil {
			remaining = append(remaining, d.queue[i:]...)
			break
		}
		assignments = append(assignments, a)
	}
	d.queue = remaining
	return assignments
}

// ExpireIfOverdue fails the order if it is still pending and its queue wait
// has reached the maximum. Driven by the timeout event the engine schedules
// at enqueue time, so breaches fire even when no runner ever frees.
func (d *Dispatcher) ExpireIfOverdue(order *models.Order, now time.Time) bool {
	if order.Terminal() || order.Status == models.OrderStatusAssigned {
		return false
	}
	if now.Sub(order.CreatedAt) < d.maxWait {
		return false
	}
	d.fail(order, now, models.FailReasonQueueWait)
	d.removeFromQueue(order)
	return true
}

// Close stops new assignments and fails everything still waiting. Returns
// the orders failed at cutoff.
func (d *Dispatcher) Close(now time.Time) []*models.Order {
	d.closed = true
	var failed []*models.Order
	for _, order := range d.queue {
		if order.Terminal() {
			continue
		}
		d.fail(order, now, models.FailReasonCutoff)
		failed = append(failed, order)
	}
	d.queue = nil
	return failed
}

// QueueLen reports the number of orders waiting for a runner.
func (d *Dispatcher) QueueLen() int {
	n := 0
	for _, order := range d.queue {
		if !order.Terminal() {
			n++
		}
	}
	return n
}

func (d *Dispatcher) tryAssign(order *models.Order, now time.Time) *Assignment {
	runner := d.fleet.NearestIdle(order.ZoneID)
	if runner == nil {
		return nil
	}
	zone, err := d.course.Zone(order.ZoneID)
	if err != nil {
		// Unknown zones are rejected at scenario load; reaching here means
		// the order stream and course disagree, treat as blocked.
		d.fail(order, now, models.FailReasonBlockedZone)
		return nil
	}
	outbound, _ := d.course.TravelBetween(runner.ZoneID, order.ZoneID)
	returnLeg, _ := d.course.TravelBetween(order.ZoneID, models.ClubhouseZoneID)

	if idle := now.Sub(runner.IdleSince); idle > 0 {
		runner.IdleMinutes += idle.Minutes()
	}
	// Drive minutes count both legs; the return leg is part of the
	// delivery's cost even though the order is handed off before it.
	runner.DriveMinutes += outbound + returnLeg
	runner.PrepMinutes += zone.ServiceMin
	runner.Deliveries++
	runner.Status = models.RunnerStatusEnRouteZone
	runner.ZoneID = order.ZoneID
	runner.CurrentOrderID = order.ID

	deliveredAt := now.Add(time.Duration((outbound + zone.ServiceMin) * float64(time.Minute)))
	freedAt := deliveredAt.Add(time.Duration(returnLeg * float64(time.Minute)))
	runner.BusyUntil = freedAt

	order.Status = models.OrderStatusAssigned
	order.AssignedAt = now
	order.RunnerID = runner.ID

	return &Assignment{Order: order, Runner: runner, DeliveredAt: deliveredAt, FreedAt: freedAt}
}

func (d *Dispatcher) fail(order *models.Order, now time.Time, reason string) {
	order.Status = models.OrderStatusFailed
	order.FailedAt = now
	order.FailReason = reason
}

func (d *Dispatcher) removeFromQueue(order *models.Order) {
	for i, o := range d.queue {
		if o.ID == order.ID {
			d.queue = append(d.queue[:i], d.queue[i+1:]...)
			return
		}
	}
}
