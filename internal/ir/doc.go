// Package ir defines the program model for pulse-level control programs.
//
// The model is a tagged-variant tree: channel and data operations, pulse
// definitions, and two container forms. A Sequence orders its items with
// implicit per-channel timing; a Schedule positions its items explicitly
// through anchors into a reference graph. Control flow (repeat, for, if)
// exists in both flavors.
//
// This package contains types and their wire codec only. All other internal
// packages import ir (and unit); ir imports nothing internal above unit, so
// it stays the foundational layer with no circular dependencies.
//
// Wire format invariants:
//   - every operation object carries an "op_type" discriminator
//   - every pulse object carries a "type" discriminator
//   - quantities are single-key unit mappings, e.g. {"ns": 100}
//   - variable/pulse references serialize as bare strings
//   - a nested sequence serializes as a bare item array
package ir
