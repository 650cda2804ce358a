package sim

import (
	"fmt"
	"time"
)

// Topics the engine publishes serialized events on. The external reporting
// layer consumes these; the core never reads them back.
const (
	TopicOrderArrived   = "order_arrived_events"
	TopicOrderAssigned  = "order_assigned_events"
	TopicOrderFailed    = "order_failed_events"
	TopicOrderDelivered = "order_delivered_events"
	TopicRunnerFreed    = "runner_freed_events"
	TopicRunSummary     = "run_summary_events"
)

// BaseEvent is the common structure for all events
type BaseEvent struct {
	Timestamp int64  `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType string `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunID     string `json:"runId" parquet:"name=runId,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// OrderArrivedEvent records an order entering the system.
type OrderArrivedEvent struct {
	BaseEvent
	OrderID string  `json:"orderId" parquet:"name=orderId,type=BYTE_ARRAY,convertedtype=UTF8"`
	GroupID string  `json:"groupId" parquet:"name=groupId,type=BYTE_ARRAY,convertedtype=UTF8"`
	ZoneID  int32   `json:"zoneId" parquet:"name=zoneId,type=INT32"`
	Value   float64 `json:"value" parquet:"name=value,type=DOUBLE"`
}

// OrderAssignedEvent records a dispatch decision.
type OrderAssignedEvent struct {
	BaseEvent
	OrderID       string  `json:"orderId" parquet:"name=orderId,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunnerID      string  `json:"runnerId" parquet:"name=runnerId,type=BYTE_ARRAY,convertedtype=UTF8"`
	ZoneID        int32   `json:"zoneId" parquet:"name=zoneId,type=INT32"`
	QueueWaitMin  float64 `json:"queueWaitMin" parquet:"name=queueWaitMin,type=DOUBLE"`
	EstDeliveryAt int64   `json:"estDeliveryAt" parquet:"name=estDeliveryAt,type=INT64"`
}

// OrderFailedEvent records a simulated failure: blocked zone, queue-wait
// breach, or service cutoff. Failures are outcomes, not faults.
type OrderFailedEvent struct {
	BaseEvent
	OrderID   string  `json:"orderId" parquet:"name=orderId,type=BYTE_ARRAY,convertedtype=UTF8"`
	ZoneID    int32   `json:"zoneId" parquet:"name=zoneId,type=INT32"`
	Reason    string  `json:"reason" parquet:"name=reason,type=BYTE_ARRAY,convertedtype=UTF8"`
	WaitedMin float64 `json:"waitedMin" parquet:"name=waitedMin,type=DOUBLE"`
}

// OrderDeliveredEvent records a completed hand-off.
type OrderDeliveredEvent struct {
	BaseEvent
	OrderID  string  `json:"orderId" parquet:"name=orderId,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunnerID string  `json:"runnerId" parquet:"name=runnerId,type=BYTE_ARRAY,convertedtype=UTF8"`
	ZoneID   int32   `json:"zoneId" parquet:"name=zoneId,type=INT32"`
	CycleMin float64 `json:"cycleMin" parquet:"name=cycleMin,type=DOUBLE"`
	Value    float64 `json:"value" parquet:"name=value,type=DOUBLE"`
}

// RunnerFreedEvent records a runner returning to the clubhouse.
type RunnerFreedEvent struct {
	BaseEvent
	RunnerID     string  `json:"runnerId" parquet:"name=runnerId,type=BYTE_ARRAY,convertedtype=UTF8"`
	Deliveries   int32   `json:"deliveries" parquet:"name=deliveries,type=INT32"`
	DriveMinutes float64 `json:"driveMinutes" parquet:"name=driveMinutes,type=DOUBLE"`
	QueuedOrders int32   `json:"queuedOrders" parquet:"name=queuedOrders,type=INT32"`
}

// RunSummaryEvent closes a run's event stream.
type RunSummaryEvent struct {
	BaseEvent
	Delivered int32 `json:"delivered" parquet:"name=delivered,type=INT32"`
	Failed    int32 `json:"failed" parquet:"name=failed,type=INT32"`
	Pending   int32 `json:"pending" parquet:"name=pending,type=INT32"`
}

// NewEventForTopic returns a zero event value of the topic's concrete type,
// for schema derivation and for decoding serialized messages.
func NewEventForTopic(topic string) (interface{}, error) {
	switch topic {
	case TopicOrderArrived:
		return new(OrderArrivedEvent), nil
	case TopicOrderAssigned:
		return new(OrderAssignedEvent), nil
	case TopicOrderFailed:
		return new(OrderFailedEvent), nil
	case TopicOrderDelivered:
		return new(OrderDeliveredEvent), nil
	case TopicRunnerFreed:
		return new(RunnerFreedEvent), nil
	case TopicRunSummary:
		return new(RunSummaryEvent), nil
	default:
		return nil, fmt.Errorf("unknown event topic: %s", topic)
	}
}

func NewBaseEvent(eventType, runID string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		Timestamp: timestamp.Unix(),
		EventType: eventType,
		RunID:     runID,
	}
}
