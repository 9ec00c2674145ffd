package orm

// PrefixRange turns a prefix into [start, end) to ensure proper iteration
// over all keys with the given prefix.
//
// It returns (nil, nil) for an empty prefix, which means iterate over
// everything. A prefix of all 0xFF bytes has no upper bound, so end is
// nil as well.
func PrefixRange(prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return nil, nil
	}

	// copy the prefix and update last byte
	end := make([]byte, len(prefix))
	copy(end, prefix)
	l := len(end) - 1
	end[l]++

	// wait, what if that overflowed the last byte?
	for end[l] == 0 {
		if l == 0 {
			return prefix, nil
		}
		l--
		end[l]++
	}
	return prefix, end[:l+1]
}
