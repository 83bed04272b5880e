// Package resolve turns validated programs into absolutely timed documents.
//
// Two engines share the output schema. The sequence engine walks items in
// order with one monotonic cursor per channel; a barrier is the only
// cross-channel synchronization. The schedule engine places items through
// anchors into a reference graph, resolved in a single left-to-right pass
// over a token table.
//
// Resolution is deterministic and pure: the pass owns its cursor or token
// table exclusively, identical input yields identical output, and failure
// returns the first error with no partial document.
package resolve
