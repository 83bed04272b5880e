package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// enables future algorithm migration.
const (
	DomainProgram  = "eq1-pulse/program/v1"
	DomainResolved = "eq1-pulse/resolved/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null byte
// separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentID computes the content-addressed identity of any document under
// the given domain prefix. Equal documents always hash identically because
// the input is canonicalized first.
func ContentID(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ContentID: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// ProgramID computes the content-addressed identity of an unresolved
// program. The ID is stable across process restarts given the same tree.
func ProgramID(p Program) (string, error) {
	return ContentID(DomainProgram, p)
}

// MustProgramID is like ProgramID but panics on error. Use only in tests
// or when the program is known to be well-formed.
func MustProgramID(p Program) string {
	id, err := ProgramID(p)
	if err != nil {
		panic(err)
	}
	return id
}
