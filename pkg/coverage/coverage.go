/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: coverage.go
Description: Coverage signature types for the Akaylee Greybox fuzzer. A signature is the
ordered list of tuples derived from one execution: branch-entry n-grams, the trailing
fingerprint of raw lines and optional nesting-depth payloads. Signatures are compared by
value and keyed by a canonical string for novelty tracking.
*/

package coverage

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// SourceLine is a 1-based line number inside the target's source file
type SourceLine = int

// TraceEvent is one executed line reported by instrumented code
type TraceEvent struct {
	Func string     `json:"func"`
	Line SourceLine `json:"line"`
}

// Tuple is a single signature element.
type Tuple []int

// Equal reports whether both tuples hold the same values in the same order
func (t Tuple) Equal(other Tuple) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the tuple as (a,b,c)
func (t Tuple) String() string {
	var b strings.Builder
	t.writeTo(&b)
	return b.String()
}

func (t Tuple) writeTo(b *strings.Builder) {
	b.WriteByte('(')
	for i, v := range t {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteByte(')')
}

// Signature is the coverage fingerprint of one execution.
// Two signatures describe the same behaviour iff their tuple sequences are equal.
type Signature []Tuple

// Key returns a canonical encoding usable as a map key
func (s Signature) Key() string {
	var b strings.Builder
	for _, t := range s {
		t.writeTo(&b)
	}
	return b.String()
}

// String is an alias for Key, handy in log fields
func (s Signature) String() string {
	return s.Key()
}

// Hash returns a 64-bit FNV-1a hash of the canonical key.
// Used as the path identifier by power schedules.
func (s Signature) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(s.Key()))
	return h.Sum64()
}

// Equal performs structural comparison
func (s Signature) Equal(other Signature) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !s[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers can never alter a published signature
func (s Signature) Clone() Signature {
	if s == nil {
		return nil
	}
	out := make(Signature, len(s))
	for i, t := range s {
		out[i] = append(Tuple(nil), t...)
		if out[i] == nil {
			out[i] = Tuple{}
		}
	}
	return out
}

// Empty reports whether the signature carries no tuple at all
func (s Signature) Empty() bool {
	return len(s) == 0
}
