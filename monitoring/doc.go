// Package monitoring emits structured lifecycle events for observability.
// Events are immutable records fanned out synchronously, in registration
// order, to zero or more listeners; a failing listener is isolated and
// logged without affecting the rest.
package monitoring
