package db

// CanonicalPair normalizes an unordered user pair to (smaller, larger).
// Matches and conversations are keyed on this order so their pair
// uniqueness constraints hold as single-row constraints.
func CanonicalPair(a, b uint64) (uint64, uint64) {
	if a < b {
		return a, b
	}
	return b, a
}
