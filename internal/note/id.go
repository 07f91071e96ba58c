package note

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID generates a new time-sortable note ID.
func NewID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ConflictID derives the ID for a conflict fork of the note with the given
// ID. The original ID stays as the prefix so forks sort next to their
// source.
func ConflictID(id string, at time.Time) string {
	return fmt.Sprintf("%s_conflict_%d", id, at.UnixMilli())
}

// IsConflictID reports whether id names a conflict fork.
func IsConflictID(id string) bool {
	return strings.Contains(id, "_conflict_")
}
