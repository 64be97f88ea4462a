// Package agent contains the planning collaborators that communicate over
// the a2a bus and the shared state store:
//
//   - Planner (producer): generates an itinerary proposal with an LLM and
//     publishes it to the optimizer identity.
//   - Optimizer (consumer): subscribes to proposals, optimizes them within
//     budget, double-writes the result to the state store and replies to
//     the orchestrator identity.
//   - Research: gathers destination research and web links, persisting
//     them under correlation-scoped keys for the planner to pick up.
//
// Agents treat the LLM behind model.Completer as a black box returning
// structured JSON; malformed output degrades to documented fallbacks
// instead of failing the run.
package agent
