package storage

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/google/uuid"
)

// KeysetCursor issues the cursor of a keyset-paginated store: the page after
// it starts at the first event ordered after lastKey. The cursor is bound to
// the aggregate so it cannot be replayed against another query.
func KeysetCursor(aggregateID uuid.UUID, lastKey orderkey.OrderKey) Cursor {
	raw := aggregateID.String() + "|" + lastKey.String()
	return Cursor(base64.RawURLEncoding.EncodeToString([]byte(raw)))
}

// ParseKeysetCursor recovers the last key from a cursor issued by KeysetCursor
// for the same aggregate.
func ParseKeysetCursor(c Cursor, aggregateID uuid.UUID) (orderkey.OrderKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	id, key, ok := strings.Cut(string(raw), "|")
	if !ok {
		return 0, fmt.Errorf("%w: missing separator", ErrInvalidCursor)
	}
	if id != aggregateID.String() {
		return 0, fmt.Errorf("%w: issued for aggregate %s", ErrInvalidCursor, id)
	}

	k, err := orderkey.Parse(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return k, nil
}
