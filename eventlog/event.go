package eventlog

import "time"

// EventType is the closed category tag of an entry.
type EventType string

const (
	EventAPICallStart       EventType = "api_call_start"
	EventAPICallSuccess     EventType = "api_call_success"
	EventAPICallError       EventType = "api_call_error"
	EventAPITimeout         EventType = "api_timeout"
	EventAPINetworkError    EventType = "api_network_error"
	EventUserAction         EventType = "user_action"
	EventComponentMount     EventType = "component_mount"
	EventComponentUnmount   EventType = "component_unmount"
	EventComponentUpdate    EventType = "component_update"
	EventComponentError     EventType = "component_error"
	EventPerformance        EventType = "performance"
	EventSlowOperation      EventType = "slow_operation"
	EventFormSubmission     EventType = "form_submission"
	EventValidationFailure  EventType = "validation_failure"
	EventNavigation         EventType = "navigation"
	EventAuth               EventType = "auth_event"
	EventGenerationRequest  EventType = "generation_request"
	EventUncaughtError      EventType = "uncaught_error"
	EventUnhandledRejection EventType = "unhandled_rejection"
	EventGeneral            EventType = "general"
)

var knownEventTypes = map[EventType]struct{}{
	EventAPICallStart: {}, EventAPICallSuccess: {}, EventAPICallError: {},
	EventAPITimeout: {}, EventAPINetworkError: {}, EventUserAction: {},
	EventComponentMount: {}, EventComponentUnmount: {}, EventComponentUpdate: {},
	EventComponentError: {}, EventPerformance: {}, EventSlowOperation: {},
	EventFormSubmission: {}, EventValidationFailure: {}, EventNavigation: {},
	EventAuth: {}, EventGenerationRequest: {}, EventUncaughtError: {},
	EventUnhandledRejection: {}, EventGeneral: {},
}

// Valid reports whether t is one of the declared event types.
func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// normalize maps the empty and unknown tags to EventGeneral so the set stays closed.
func (t EventType) normalize() EventType {
	if t.Valid() {
		return t
	}
	return EventGeneral
}

// Payload is structured data attached to an entry. Known shapes are the *Data
// types in this file; Fields is the open fallback for ad hoc diagnostics.
type Payload interface {
	Fields() map[string]any
}

// Fields is an ad hoc key/value payload.
type Fields map[string]any

// Fields implements Payload.
func (f Fields) Fields() map[string]any {
	return f
}

// APICallData describes one outbound call or attempt.
type APICallData struct {
	RequestID string
	Method    string
	URL       string
	Status    int
	Duration  time.Duration
	Attempt   int
	Extra     map[string]any
}

// Fields implements Payload.
func (d APICallData) Fields() map[string]any {
	out := make(map[string]any, len(d.Extra)+6)
	for k, v := range d.Extra {
		out[k] = v
	}
	if d.RequestID != "" {
		out["requestId"] = d.RequestID
	}
	out["method"] = d.Method
	out["url"] = d.URL
	if d.Status != 0 {
		out["status"] = d.Status
	}
	out["durationMs"] = d.Duration.Milliseconds()
	out["attempt"] = d.Attempt
	return out
}

// UserActionData describes something a user did.
type UserActionData struct {
	Action  string
	Target  string
	Details map[string]any
}

// Fields implements Payload.
func (d UserActionData) Fields() map[string]any {
	out := map[string]any{"action": d.Action}
	if d.Target != "" {
		out["target"] = d.Target
	}
	if len(d.Details) > 0 {
		out["details"] = d.Details
	}
	return out
}

// ComponentData describes a lifecycle change of a named component.
type ComponentData struct {
	Component string
	Event     string
	Details   map[string]any
}

// Fields implements Payload.
func (d ComponentData) Fields() map[string]any {
	out := map[string]any{"component": d.Component, "event": d.Event}
	if len(d.Details) > 0 {
		out["details"] = d.Details
	}
	return out
}

// PerformanceData is one performance sample.
type PerformanceData struct {
	Metric    string
	Value     float64
	Unit      string
	Threshold float64
}

// Fields implements Payload.
func (d PerformanceData) Fields() map[string]any {
	out := map[string]any{"metric": d.Metric, "value": d.Value, "unit": d.Unit}
	if d.Threshold > 0 {
		out["threshold"] = d.Threshold
	}
	return out
}

// FormSubmissionData describes a submitted form and its validation outcome.
type FormSubmissionData struct {
	Form             string
	Success          bool
	ValidationErrors []string
	Values           map[string]any
}

// Fields implements Payload.
func (d FormSubmissionData) Fields() map[string]any {
	out := map[string]any{"form": d.Form, "success": d.Success}
	if len(d.ValidationErrors) > 0 {
		errs := make([]any, len(d.ValidationErrors))
		for i, e := range d.ValidationErrors {
			errs[i] = e
		}
		out["validationErrors"] = errs
	}
	if len(d.Values) > 0 {
		out["values"] = d.Values
	}
	return out
}

// NavigationData describes a route change.
type NavigationData struct {
	From    string
	To      string
	Trigger string
}

// Fields implements Payload.
func (d NavigationData) Fields() map[string]any {
	out := map[string]any{"from": d.From, "to": d.To}
	if d.Trigger != "" {
		out["trigger"] = d.Trigger
	}
	return out
}

// ErrorData carries a failure and, when available, its stack.
type ErrorData struct {
	Err       error
	Component string
	Stack     string
	Extra     map[string]any
}

// Fields implements Payload.
func (d ErrorData) Fields() map[string]any {
	out := make(map[string]any, len(d.Extra)+3)
	for k, v := range d.Extra {
		out[k] = v
	}
	if d.Err != nil {
		out["error"] = d.Err.Error()
	}
	if d.Component != "" {
		out["component"] = d.Component
	}
	if d.Stack != "" {
		out["stack"] = d.Stack
	}
	return out
}
