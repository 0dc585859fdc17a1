package eventlog

import (
	"fmt"
	"time"
)

// LogAPICall records an outbound call made outside the request client.
// Statuses of 400 and above, and calls with no status, log at ERROR.
func (l *Logger) LogAPICall(method, url string, status int, duration time.Duration, extra map[string]any) {
	data := APICallData{Method: method, URL: url, Status: status, Duration: duration, Extra: extra}
	message := fmt.Sprintf("API call %s %s -> %d", method, url, status)

	if status == 0 || status >= 400 {
		l.Error(message, EventAPICallError, data)
		return
	}
	l.Info(message, EventAPICallSuccess, data)
}

// LogUserAction records an action taken by the user.
func (l *Logger) LogUserAction(action, target string, details map[string]any) {
	l.Info("User action: "+action, EventUserAction, UserActionData{Action: action, Target: target, Details: details})
}

// LogComponentEvent records a component lifecycle event. "mount", "unmount"
// and "error" map to their own event types; anything else is an update.
func (l *Logger) LogComponentEvent(component, event string, details map[string]any) {
	data := ComponentData{Component: component, Event: event, Details: details}
	message := fmt.Sprintf("Component %s: %s", component, event)

	switch event {
	case "mount":
		l.Debug(message, EventComponentMount, data)
	case "unmount":
		l.Debug(message, EventComponentUnmount, data)
	case "error":
		l.Error(message, EventComponentError, data)
	default:
		l.Debug(message, EventComponentUpdate, data)
	}
}

// LogPerformance records a metric sample. A positive threshold that value
// exceeds escalates the entry to WARN slow_operation.
func (l *Logger) LogPerformance(metric string, value float64, unit string, threshold float64) {
	data := PerformanceData{Metric: metric, Value: value, Unit: unit, Threshold: threshold}

	if threshold > 0 && value > threshold {
		l.Warn(fmt.Sprintf("Slow operation: %s took %.2f%s", metric, value, unit), EventSlowOperation, data)
		return
	}
	l.Info(fmt.Sprintf("Performance: %s = %.2f%s", metric, value, unit), EventPerformance, data)
}

// LogFormSubmission records a form submission. Values are sanitized like any
// other payload; validation errors escalate to WARN validation_failure.
func (l *Logger) LogFormSubmission(form string, success bool, validationErrors []string, values map[string]any) {
	data := FormSubmissionData{Form: form, Success: success, ValidationErrors: validationErrors, Values: values}

	if len(validationErrors) > 0 {
		l.Warn(fmt.Sprintf("Form %s failed validation", form), EventValidationFailure, data)
		return
	}
	l.Info(fmt.Sprintf("Form %s submitted", form), EventFormSubmission, data)
}

// LogNavigation records a route change and points later entries at to.
func (l *Logger) LogNavigation(from, to, trigger string) {
	l.Info(fmt.Sprintf("Navigation: %s -> %s", from, to), EventNavigation, NavigationData{From: from, To: to, Trigger: trigger})
	l.SetCurrentURL(to)
}
