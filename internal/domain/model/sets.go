package model

// The preference collections are ordered string sets stored as plain slices.
// Insertion order is kept so that exports are stable across round trips.

// Contains reports whether v is a member of set.
func Contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// AppendUnique appends v if it is absent and reports whether set changed.
func AppendUnique(set []string, v string) ([]string, bool) {
	if Contains(set, v) {
		return set, false
	}
	return append(set, v), true
}

// Without returns set with every occurrence of v removed and reports whether
// anything was removed. The input slice is not modified.
func Without(set []string, v string) ([]string, bool) {
	out := make([]string, 0, len(set))
	removed := false
	for _, s := range set {
		if s == v {
			removed = true
			continue
		}
		out = append(out, s)
	}
	return out, removed
}

// Toggle flips the membership of v and reports whether v is a member afterwards.
func Toggle(set []string, v string) ([]string, bool) {
	if out, removed := Without(set, v); removed {
		return out, false
	}
	return append(set, v), true
}

// Dedupe returns a copy of set with duplicates removed, keeping the first
// occurrence of each value. A nil set yields an empty, non-nil slice.
func Dedupe(set []string) []string {
	out := make([]string, 0, len(set))
	seen := make(map[string]struct{}, len(set))
	for _, s := range set {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
