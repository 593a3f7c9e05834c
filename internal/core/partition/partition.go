// Package partition maps aggregates onto a fixed set of logical partitions.
package partition

import (
	"hash/fnv"

	"github.com/google/uuid"
)

// Count is the fixed number of logical partitions.
// Never changes after initial deployment: rows carry their partition id.
const Count = 256

// For returns the partition ID for a given aggregate.
// Stable and deterministic: the same aggregate always maps to the same partition.
func For(aggregateID uuid.UUID) int {
	h := fnv.New32a()
	h.Write(aggregateID[:])
	return int(h.Sum32() % Count)
}
