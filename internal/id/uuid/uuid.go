// Package uuid provides ID generation helpers for jobs and performers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates time-ordered UUID v7 strings, so ledger rows sort by
// creation time without an extra index.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Valid reports whether s parses as a UUID. The ledger API uses it to reject
// malformed job ids before touching the store.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
