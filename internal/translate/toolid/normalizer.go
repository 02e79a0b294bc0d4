// Package toolid enforces Mistral's tool-call ID shape: exactly 9
// characters from [a-zA-Z0-9]. Anthropic clients commonly emit IDs like
// "toolu_01ABCDEFGH…"; this package rewrites them to a deterministic,
// collision-resistant 9-character form while preserving referential
// integrity between a tool_use/tool_call and the tool_result/tool message
// that answers it.
package toolid

import (
	"hash/fnv"
	"regexp"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var validShape = regexp.MustCompile(`^[a-zA-Z0-9]{9}$`)

// Normalize returns the 9-alphanumeric form of id. If id already has that
// shape it is returned unchanged (idempotence, spec §8 invariant 3).
// Otherwise a deterministic FNV-1a-based mixing derives nine alphabet
// characters from id's UTF-8 bytes; the same id always yields the same
// result (spec §4.1).
func Normalize(id string) string {
	if validShape.MatchString(id) {
		return id
	}
	return derive(id)
}

// derive mixes id's bytes through nine independently-salted FNV-1a passes
// and projects each 64-bit digest into the 62-character alphabet. The
// choice of mixing function is explicitly implementation-defined by the
// spec; FNV-1a needs no external dependency and distributes well enough for
// this narrow purpose.
func derive(id string) string {
	out := make([]byte, 9)
	for i := 0; i < 9; i++ {
		h := fnv.New64a()
		// Salt each position so adjacent output characters aren't
		// correlated copies of the same digest.
		_, _ = h.Write([]byte{byte(i), byte(i >> 8)})
		_, _ = h.Write([]byte(id))
		sum := h.Sum64()
		out[i] = alphabet[sum%uint64(len(alphabet))]
	}
	return string(out)
}

// Mapping is a request-scoped id → normalized-id9 bijection, built by a
// linear pass over every tool_use/tool_call id in a request and consulted
// by a second pass that rewrites all occurrences (spec §4.1).
type Mapping map[string]string

// NewMapping builds an empty mapping.
func NewMapping() Mapping {
	return make(Mapping)
}

// Observe records id's normalized form in the mapping (idempotent: calling
// it twice with the same id yields the same entry) and returns the
// normalized form.
func (m Mapping) Observe(id string) string {
	if normalized, ok := m[id]; ok {
		return normalized
	}
	normalized := Normalize(id)
	m[id] = normalized
	return normalized
}

// Lookup resolves id through the mapping. If id was never Observe()'d —
// a tool_result referencing an id with no matching tool_use — the id is
// returned unchanged, per spec §4.1: "left unchanged — they will be
// rejected by the backend, which is the correct failure."
func (m Mapping) Lookup(id string) string {
	if normalized, ok := m[id]; ok {
		return normalized
	}
	return id
}
