// Package core provides the foundational domain types shared across planmesh:
//
//   - Traveler profiles and preferences (budget bounds as fixed-point decimals)
//   - Offers and pricing breakdowns from providers
//   - Itineraries composed of ordered, dated segments
//   - TaskContext, the per-run container tying trace/correlation identifiers
//     to intermediate stage results
//
// The package intentionally keeps implementation concerns (bus transport,
// state persistence, orchestration) out of scope so that agents and the
// workflow can share one vocabulary without coupling to each other.
package core
