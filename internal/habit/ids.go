package habit

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator mints template identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator produces time-ordered UUIDv7 identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Sequence produces monotonic identifiers like "t1", "t2".
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s%d", s.prefix, s.n.Add(1))
}

// LogID is the content-addressed identifier of the log for (taskID, date).
func LogID(taskID, date string) string {
	return taskID + "@" + date
}
