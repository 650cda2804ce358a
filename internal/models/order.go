package models

import "time"

type Order struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"group_id"`
	ZoneID      int       `json:"zone_id"`
	Value       float64   `json:"value"`
	CreatedAt   time.Time `json:"created_at"`
	AssignedAt  time.Time `json:"assigned_at"`
	DeliveredAt time.Time `json:"delivered_at"`
	FailedAt    time.Time `json:"failed_at"`
	RunnerID    string    `json:"runner_id"`
	Status      string    `json:"status"`      // "pending", "assigned", "delivered", "failed"
	FailReason  string    `json:"fail_reason"` // set when Status is "failed"
}

// QueueWait is the time the order spent waiting for a runner: arrival to
// assignment for served orders, arrival to failure for orders that timed out
// in the queue. Zero for blocked-zone rejections, which never queue.
func (o *Order) QueueWait() time.Duration {
	switch o.Status {
	case OrderStatusAssigned, OrderStatusDelivered:
		return o.AssignedAt.Sub(o.CreatedAt)
	case OrderStatusFailed:
		if o.FailReason == FailReasonBlockedZone {
			return 0
		}
		return o.FailedAt.Sub(o.CreatedAt)
	default:
		return 0
	}
}

// CycleTime is arrival to hand-off for delivered orders.
func (o *Order) CycleTime() time.Duration {
	if o.Status != OrderStatusDelivered {
		return 0
	}
	return o.DeliveredAt.Sub(o.CreatedAt)
}

// Terminal reports whether the order has reached an immutable end state.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusFailed
}

// OrderGroup is one party ordering together: their orders share a zone and a
// timestamp window. Group identity is kept for group-level revenue metrics.
type OrderGroup struct {
	ID        string    `json:"id"`
	PartyName string    `json:"party_name"`
	Size      int       `json:"size"`
	ZoneID    int       `json:"zone_id"`
	PlacedAt  time.Time `json:"placed_at"`
}
