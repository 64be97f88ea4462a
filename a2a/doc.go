// Package a2a implements the agent-to-agent message protocol: the signed
// message envelope (JSON schema, versioning, HMAC-SHA256 signing and
// verification over a deterministic canonical form) and the in-process
// message bus used to deliver envelopes between agent identities.
//
// Trace and correlation identifiers are always threaded through from the
// originating task; the package never generates them implicitly.
package a2a
