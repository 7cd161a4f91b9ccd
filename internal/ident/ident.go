// Package ident generates short, family-prefixed, collision-resistant ids.
package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/example/braid/internal/models"
)

// HashLen is the number of hex characters in the id suffix. Eight gives
// 32 bits per family, plenty for a per-repository tracker.
const HashLen = 8

// EdgePrefix is used for edge ids, which live outside the entity families.
const EdgePrefix = "ed"

// RunPrefix is used for test-run ids.
const RunPrefix = "rn"

// NotePrefix is used for note ids.
const NotePrefix = "nt"

// New returns a fresh id for the given entity family, e.g. "tk-3fa9c2d4".
func New(family string) (string, error) {
	prefix, ok := models.Families[family]
	if !ok {
		return "", &models.ValidationError{Field: "type", Reason: "unknown family " + family}
	}
	return prefix + "-" + suffix(), nil
}

// NewEdge returns a fresh edge id.
func NewEdge() string {
	return EdgePrefix + "-" + suffix()
}

// NewRun returns a fresh test-run id.
func NewRun() string {
	return RunPrefix + "-" + suffix()
}

// NewNote returns a fresh note id.
func NewNote() string {
	return NotePrefix + "-" + suffix()
}

// Family returns the entity family for an id, or an error if the prefix
// is not recognized.
func Family(id string) (string, error) {
	prefix, _, ok := strings.Cut(id, "-")
	if !ok {
		return "", &models.ValidationError{Field: "id", Reason: "missing family prefix in " + id}
	}
	for family, p := range models.Families {
		if p == prefix {
			return family, nil
		}
	}
	return "", &models.ValidationError{Field: "id", Reason: fmt.Sprintf("unknown prefix %q in %s", prefix, id)}
}

// suffix hashes a random UUID down to HashLen hex characters. Hashing
// keeps ids short without exposing the UUID structure.
func suffix() string {
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return hex.EncodeToString(sum[:])[:HashLen]
}
