package repository

// FindAlreadyBooked computes the intersection of a candidate member-id
// set with the user ids already booked for the same dining date and
// meal type.  It is the single reusable predicate behind the
// no-double-booking rule and is independent of storage; OrderRepo calls
// it inside the creation transaction with the booked set it just read.
// The result preserves candidate order and contains no duplicates.
func FindAlreadyBooked(candidates []uint64, booked map[uint64]struct{}) []uint64 {
	var hits []uint64
	seen := make(map[uint64]struct{}, len(candidates))
	for _, id := range candidates {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := booked[id]; ok {
			hits = append(hits, id)
		}
	}
	return hits
}
