package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrder_QueueWait(t *testing.T) {
	created := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

	delivered := &Order{
		Status:     OrderStatusDelivered,
		CreatedAt:  created,
		AssignedAt: created.Add(8 * time.Minute),
	}
	assert.Equal(t, 8*time.Minute, delivered.QueueWait())

	timedOut := &Order{
		Status:     OrderStatusFailed,
		FailReason: FailReasonQueueWait,
		CreatedAt:  created,
		FailedAt:   created.Add(30 * time.Minute),
	}
	assert.Equal(t, 30*time.Minute, timedOut.QueueWait())

	// Blocked-zone rejections never queue.
	blocked := &Order{
		Status:     OrderStatusFailed,
		FailReason: FailReasonBlockedZone,
		CreatedAt:  created,
		FailedAt:   created,
	}
	assert.Equal(t, time.Duration(0), blocked.QueueWait())

	pending := &Order{Status: OrderStatusPending, CreatedAt: created}
	assert.Equal(t, time.Duration(0), pending.QueueWait())
}

func TestOrder_CycleTimeOnlyForDelivered(t *testing.T) {
	created := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	o := &Order{
		Status:      OrderStatusDelivered,
		CreatedAt:   created,
		DeliveredAt: created.Add(25 * time.Minute),
	}
	assert.Equal(t, 25*time.Minute, o.CycleTime())

	o.Status = OrderStatusAssigned
	assert.Equal(t, time.Duration(0), o.CycleTime())
}

func TestOrder_Terminal(t *testing.T) {
	assert.False(t, (&Order{Status: OrderStatusPending}).Terminal())
	assert.False(t, (&Order{Status: OrderStatusAssigned}).Terminal())
	assert.True(t, (&Order{Status: OrderStatusDelivered}).Terminal())
	assert.True(t, (&Order{Status: OrderStatusFailed}).Terminal())
}
