package models

const (
	OrderStatusPending   = "pending"
	OrderStatusAssigned  = "assigned"
	OrderStatusDelivered = "delivered"
	OrderStatusFailed    = "failed"

	FailReasonBlockedZone = "blocked_zone"
	FailReasonQueueWait   = "max_wait_exceeded"
	FailReasonCutoff      = "service_cutoff"

	// Runners stage, collect, and load orders at the clubhouse, so a
	// delivery has two legs: out to the hole, then back to the clubhouse.
	RunnerStatusIdle        = "idle"
	RunnerStatusEnRouteZone = "en_route_to_zone"
	RunnerStatusReturning   = "returning"

	VerdictRecommended = "recommended"
	VerdictRejected    = "rejected"
)
