package pricing

import (
	"time"

	"github.com/google/uuid"
)

// ActiveFor selects the single active record for the (store, product) pair at
// the reference instant. The catalog is expected to avoid overlapping windows
// per pair, but the resolver tolerates them with a documented total order:
// latest valid_from wins, ties broken by latest created_at, then by highest
// id. Returns false when no record's window covers asOf.
//
// Stock status is deliberately ignored here: an out-of-stock record is still
// the valid price; availability filtering belongs to the basket engine.
func ActiveFor(records []Record, storeID, productID uuid.UUID, asOf time.Time) (Record, bool) {
	var (
		winner Record
		found  bool
	)
	for _, r := range records {
		if r.StoreID != storeID || r.ProductID != productID {
			continue
		}
		if !r.ActiveOn(asOf) {
			continue
		}
		if !found || Precedes(winner, r) {
			winner = r
			found = true
		}
	}
	return winner, found
}

// Precedes reports whether candidate outranks current under the overlap
// resolution order.
func Precedes(current, candidate Record) bool {
	if !candidate.ValidFrom.Equal(current.ValidFrom) {
		return candidate.ValidFrom.After(current.ValidFrom)
	}
	if !candidate.CreatedAt.Equal(current.CreatedAt) {
		return candidate.CreatedAt.After(current.CreatedAt)
	}
	return candidate.ID > current.ID
}
