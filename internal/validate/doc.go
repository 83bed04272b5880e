// Package validate checks a program's static rules before timing
// resolution: declare-before-use, no redeclaration across the scope chain,
// channel name shape, duration signs, loop domains, and sample tables.
//
// Validation walks the tree in program order with a stack of scope frames,
// one per container or control-flow body, and stops at the first violation.
// On success it returns a table binding every reference site to its
// declaration.
package validate
