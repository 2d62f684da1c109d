package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for FSMS domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new FSMSCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *FSMSCloudEvent {
	return &FSMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// CreateProcessEvent creates a production process event carrying batch context
func (f *EventFactory) CreateProcessEvent(
	ctx context.Context,
	eventType string,
	processID string,
	batchNumber string,
	data interface{},
) *FSMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, "process/"+processID, data)
	event.ProcessID = processID
	event.BatchNumber = batchNumber
	return event
}

// CreateObjectiveEvent creates an objectives event
func (f *EventFactory) CreateObjectiveEvent(
	ctx context.Context,
	eventType string,
	objectiveID string,
	data interface{},
) *FSMSCloudEvent {
	return f.CreateEvent(ctx, eventType, "objective/"+objectiveID, data)
}

// CreateRiskEvent creates a risk register event
func (f *EventFactory) CreateRiskEvent(
	ctx context.Context,
	eventType string,
	riskID string,
	data interface{},
) *FSMSCloudEvent {
	return f.CreateEvent(ctx, eventType, "risk/"+riskID, data)
}

// CreateChangeEvent creates a change management event
func (f *EventFactory) CreateChangeEvent(
	ctx context.Context,
	eventType string,
	changeID string,
	data interface{},
) *FSMSCloudEvent {
	return f.CreateEvent(ctx, eventType, "change/"+changeID, data)
}

// CreateHACCPEvent creates a HACCP plan event
func (f *EventFactory) CreateHACCPEvent(
	ctx context.Context,
	eventType string,
	productID string,
	data interface{},
) *FSMSCloudEvent {
	return f.CreateEvent(ctx, eventType, "product/"+productID, data)
}

// CreateNonConformanceEvent creates a non-conformance event
func (f *EventFactory) CreateNonConformanceEvent(
	ctx context.Context,
	eventType string,
	ncID string,
	batchNumber string,
	data interface{},
) *FSMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, "nonconformance/"+ncID, data)
	event.BatchNumber = batchNumber
	return event
}

// WithCorrelation attaches a correlation ID to the event
func (e *FSMSCloudEvent) WithCorrelation(correlationID string) *FSMSCloudEvent {
	e.CorrelationID = correlationID
	return e
}
