// Package workflow orchestrates one planning run end to end: research,
// itinerary generation, optimization await and final assembly. The
// orchestrator owns the task lifecycle (pending, running, then one of
// completed, failed or cancelled) and is the only component that reads the
// optimized plan, either from the bus reply or from the state store
// fallback keys when the reply never arrives.
package workflow
