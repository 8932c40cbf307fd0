// Package nvnmos embeds an NMOS control-plane node: IS-04
// discovery/registration, IS-05 connection management, and IS-09
// system configuration over an in-memory resource graph, fronted by
// HTTP (pkg/api) and mirrored to a registry (pkg/discovery).
//
// Create builds a Node from a Config; AddSender/AddReceiver/
// RemoveSender/RemoveReceiver/Activate drive it; Destroy tears it
// down. Every call collapses internal errors to a boolean, logging
// the failure through Config.OnLog before returning false, matching
// the embedding contract the rest of this package documents.
package nvnmos
