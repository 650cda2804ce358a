package sim

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/fairwaysim/fairwaysim/internal/models"
)

// EventSink receives the serialized event stream of a run. Implementations
// live in the output package; a nil sink keeps the run silent, which is how
// optimizer sweeps execute.
type EventSink interface {
	WriteMessage(topic string, msg []byte) error
}

// Engine advances one run event by event. Execution within a run is strictly
// single-threaded: the event queue imposes a total order over state
// mutations, so no locks are needed inside a run.
type Engine struct {
	Config      models.RunConfig
	Course      *models.Course
	Fleet       *Fleet
	Dispatcher  *Dispatcher
	Orders      []*models.Order
	Groups      []*models.OrderGroup
	CurrentTime time.Time
	EventQueue  *models.EventQueue

	sink      EventSink
	verbose   bool
	ended     bool
	processed []*models.Event
}

// NewEngine wires a run together. Order zones are checked against the course
// here so that unknown zone ids fail at load time, never mid-run.
func NewEngine(rc models.RunConfig, course *models.Course, groups []*models.OrderGroup, orders []*models.Order) (*Engine, error) {
	for _, o := range orders {
		if _, err := course.Zone(o.ZoneID); err != nil {
			return nil, fmt.Errorf("order %s: %w", o.ID, err)
		}
	}
	fleet := NewFleet(rc.Runners, course, rc.OpenAt)
	return &Engine{
		Config:      rc,
		Course:      course,
		Fleet:       fleet,
		Dispatcher:  NewDispatcher(course, fleet, rc.MaxWaitMinutes),
		Orders:      orders,
		Groups:      groups,
		CurrentTime: rc.OpenAt,
		EventQueue:  models.NewEventQueue(),
	}, nil
}

// AttachSink directs the serialized event stream to an output destination.
func (e *Engine) AttachSink(sink EventSink) { e.sink = sink }

// SetVerbose enables per-event logging, useful for single runs.
func (e *Engine) SetVerbose(v bool) { e.verbose = v }

// Run executes the simulation to completion and returns the finalized run
// state. The horizon event guarantees termination; runners still en route at
// the horizon complete their current leg for accounting but take no new
// orders.
func (e *Engine) Run() *models.RunResult {
	for _, order := range e.Orders {
		e.EventQueue.Enqueue(&models.Event{
			Time: order.CreatedAt,
			Type: models.EventOrderArrived,
			Data: order,
		})
	}
	e.EventQueue.Enqueue(&models.Event{
		Time: e.Config.CloseAt,
		Type: models.EventRunEnded,
	})

	for {
		event := e.EventQueue.Dequeue()
		if event == nil {
			break
		}
		if event.Time.After(e.CurrentTime) {
			e.CurrentTime = event.Time
		}
		e.processEvent(event)
		e.processed = append(e.processed, event)
		e.emit(event)
	}

	e.Fleet.CloseBooks(e.Config.CloseAt)

	return &models.RunResult{
		Config:  e.Config,
		Orders:  e.Orders,
		Groups:  e.Groups,
		Runners: e.Fleet.Runners,
		Events:  e.processed,
	}
}

func (e *Engine) processEvent(event *models.Event) {
	switch event.Type {
	case models.EventOrderArrived:
		e.handleOrderArrived(event.Data.(*models.Order))
	case models.EventDispatchAttempted:
		e.handleDispatchAttempted(event.Data.(*models.Order))
	case models.EventDeliveryCompleted:
		e.handleDeliveryCompleted(event.Data.(*models.Order))
	case models.EventRunnerFreed:
		e.handleRunnerFreed(event.Data.(*models.Runner))
	case models.EventRunEnded:
		e.handleRunEnded()
	}
}

func (e *Engine) handleOrderArrived(order *models.Order) {
	assignment, failed := e.Dispatcher.Submit(order, e.CurrentTime)
	switch {
	case failed:
		e.logf("Order %s failed on arrival (%s) at %s", order.ID, order.FailReason, e.stamp())
	case assignment != nil:
		e.scheduleAssignment(assignment)
	default:
		// Queued. Schedule the wait-breach check so the max-wait policy
		// fires even if no runner ever frees.
		e.EventQueue.Enqueue(&models.Event{
			Time: order.CreatedAt.Add(time.Duration(e.Config.MaxWaitMinutes * float64(time.Minute))),
			Type: models.EventDispatchAttempted,
			Data: order,
		})
		e.logf("Order %s queued at %s (%d waiting)", order.ID, e.stamp(), e.Dispatcher.QueueLen())
	}
}

func (e *Engine) handleDispatchAttempted(order *models.Order) {
	if e.Dispatcher.ExpireIfOverdue(order, e.CurrentTime) {
		e.logf("Order %s failed after waiting %.1f min", order.ID, e.CurrentTime.Sub(order.CreatedAt).Minutes())
	}
}

func (e *Engine) handleDeliveryCompleted(order *models.Order) {
	order.Status = models.OrderStatusDelivered
	order.DeliveredAt = e.CurrentTime
	if runner := e.Fleet.ByID(order.RunnerID); runner != nil {
		runner.Status = models.RunnerStatusReturning
	}
	e.logf("Order %s delivered to zone %d at %s (cycle %.1f min)",
		order.ID, order.ZoneID, e.stamp(), order.CycleTime().Minutes())
}

func (e *Engine) handleRunnerFreed(runner *models.Runner) {
	e.Fleet.Free(runner, e.CurrentTime)
	if e.ended {
		return
	}
	for _, a := range e.Dispatcher.DispatchQueued(e.CurrentTime) {
		e.scheduleAssignment(a)
	}
}

func (e *Engine) handleRunEnded() {
	e.ended = true
	failed := e.Dispatcher.Close(e.CurrentTime)
	if len(failed) > 0 {
		e.logf("Service closed at %s; %d waiting orders failed at cutoff", e.stamp(), len(failed))
	}
}

func (e *Engine) scheduleAssignment(a *Assignment) {
	e.EventQueue.Enqueue(&models.Event{
		Time: a.DeliveredAt,
		Type: models.EventDeliveryCompleted,
		Data: a.Order,
	})
	e.EventQueue.Enqueue(&models.Event{
		Time: a.FreedAt,
		Type: models.EventRunnerFreed,
		Data: a.Runner,
	})
	e.emitAssigned(a)
	e.logf("Order %s assigned to %s at %s, delivery expected %s",
		a.Order.ID, a.Runner.ID, e.stamp(), a.DeliveredAt.Format(time.RFC3339))
}

// emitAssigned publishes the dispatch decision. Assignments happen inside
// arrival and runner-freed handling, so they get their own publication
// instead of a queue event.
func (e *Engine) emitAssigned(a *Assignment) {
	if e.sink == nil {
		return
	}
	payload := OrderAssignedEvent{
		BaseEvent:     NewBaseEvent("OrderAssigned", e.Config.RunID, e.CurrentTime),
		OrderID:       a.Order.ID,
		RunnerID:      a.Runner.ID,
		ZoneID:        int32(a.Order.ZoneID),
		QueueWaitMin:  a.Order.QueueWait().Minutes(),
		EstDeliveryAt: a.DeliveredAt.Unix(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error serializing event: %v", err)
		return
	}
	if err := e.sink.WriteMessage(TopicOrderAssigned, data); err != nil {
		log.Printf("Failed to write message: %v", err)
	}
}

// emit serializes the processed event and pushes it to the attached sink.
func (e *Engine) emit(event *models.Event) {
	if e.sink == nil {
		return
	}
	topic, msg, err := e.serializeEvent(event)
	if err == errSkipEvent {
		return
	}
	if err != nil {
		log.Printf("Error serializing event: %v", err)
		return
	}
	if err := e.sink.WriteMessage(topic, msg); err != nil {
		log.Printf("Failed to write message: %v", err)
	}
}

func (e *Engine) serializeEvent(event *models.Event) (string, []byte, error) {
	base := NewBaseEvent(event.Type, e.Config.RunID, event.Time)

	var topic string
	var payload interface{}

	switch event.Type {
	case models.EventOrderArrived:
		order := event.Data.(*models.Order)
		if order.Status == models.OrderStatusFailed && order.FailedAt.Equal(order.CreatedAt) {
			topic = TopicOrderFailed
			payload = OrderFailedEvent{
				BaseEvent: base,
				OrderID:   order.ID,
				ZoneID:    int32(order.ZoneID),
				Reason:    order.FailReason,
			}
			break
		}
		topic = TopicOrderArrived
		payload = OrderArrivedEvent{
			BaseEvent: base,
			OrderID:   order.ID,
			GroupID:   order.GroupID,
			ZoneID:    int32(order.ZoneID),
			Value:     order.Value,
		}
	case models.EventDispatchAttempted:
		order := event.Data.(*models.Order)
		if order.Status != models.OrderStatusFailed {
			return "", nil, errSkipEvent
		}
		topic = TopicOrderFailed
		payload = OrderFailedEvent{
			BaseEvent: base,
			OrderID:   order.ID,
			ZoneID:    int32(order.ZoneID),
			Reason:    order.FailReason,
			WaitedMin: order.QueueWait().Minutes(),
		}
	case models.EventDeliveryCompleted:
		order := event.Data.(*models.Order)
		topic = TopicOrderDelivered
		payload = OrderDeliveredEvent{
			BaseEvent: base,
			OrderID:   order.ID,
			RunnerID:  order.RunnerID,
			ZoneID:    int32(order.ZoneID),
			CycleMin:  order.CycleTime().Minutes(),
			Value:     order.Value,
		}
	case models.EventRunnerFreed:
		runner := event.Data.(*models.Runner)
		topic = TopicRunnerFreed
		payload = RunnerFreedEvent{
			BaseEvent:    base,
			RunnerID:     runner.ID,
			Deliveries:   int32(runner.Deliveries),
			DriveMinutes: runner.DriveMinutes,
			QueuedOrders: int32(e.Dispatcher.QueueLen()),
		}
	case models.EventRunEnded:
		delivered, failedCount, pending := 0, 0, 0
		for _, o := range e.Orders {
			switch o.Status {
			case models.OrderStatusDelivered:
				delivered++
			case models.OrderStatusFailed:
				failedCount++
			default:
				pending++
			}
		}
		topic = TopicRunSummary
		payload = RunSummaryEvent{
			BaseEvent: base,
			Delivered: int32(delivered),
			Failed:    int32(failedCount),
			Pending:   int32(pending),
		}
	default:
		return "", nil, fmt.Errorf("unknown event type: %v", event.Type)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	return topic, data, nil
}

// errSkipEvent marks events with nothing to publish (e.g. a wait-breach
// check on an order that was already served).
var errSkipEvent = fmt.Errorf("event carries no payload")

func (e *Engine) logf(format string, args ...interface{}) {
	if e.verbose {
		log.Printf(format, args...)
	}
}

func (e *Engine) stamp() string {
	return e.CurrentTime.Format(time.RFC3339)
}
