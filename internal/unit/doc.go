// Package unit provides canonical physical quantities for pulse programs.
//
// Each quantity kind (Time, Frequency, Voltage, Amplitude, Angle) stores its
// magnitude together with the unit it was constructed with. Comparison and
// arithmetic always operate on the base-unit magnitude (s, Hz, V, rad), while
// serialization preserves the construction unit so that documents round-trip
// byte-identically.
//
// Quantities serialize as a single-key mapping of unit name to magnitude,
// e.g. {"ns": 100} or {"GHz": 5.0}. Amplitudes additionally accept a
// [real, imag] pair as the magnitude.
package unit
