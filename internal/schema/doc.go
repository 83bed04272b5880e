// Package schema validates serialized program documents against the wire
// format, expressed as an embedded CUE schema.
//
// The schema is structural: it pins discriminators, field names, quantity
// shapes, and enum values. Scope rules and timing feasibility are out of
// its reach; those live in the validate and resolve packages.
package schema
