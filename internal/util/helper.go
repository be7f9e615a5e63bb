package util

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
// A nil src with cloneSize 0 yields nil, so "absent" stays distinguishable from "empty".
func CloneSlice[T any](src []T, cloneSize int) []T {
	if src == nil && cloneSize == 0 {
		return nil
	}
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// Dedupe returns the values of src with later duplicates removed, keeping the order of
// first occurrence. The second return value reports the dropped duplicates in order.
func Dedupe[T comparable](src []T) (unique []T, dropped []T) {
	seen := make(map[T]struct{}, len(src))
	unique = make([]T, 0, len(src))
	for _, v := range src {
		if _, ok := seen[v]; ok {
			dropped = append(dropped, v)
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}

	return unique, dropped
}
