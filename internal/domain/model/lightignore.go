package model

import "sort"

// LightIgnoreMap records usernames ignored within a single thread only.
// A key never maps to an empty list; Remove prunes entries that become empty.
type LightIgnoreMap map[ThreadKey][]string

// Users returns the usernames light-ignored in the given thread.
func (m LightIgnoreMap) Users(key ThreadKey) []string {
	return m[key]
}

// Contains reports whether username is light-ignored in the given thread.
func (m LightIgnoreMap) Contains(key ThreadKey, username string) bool {
	return Contains(m[key], username)
}

// Add light-ignores username in the thread and reports whether the map changed.
func (m LightIgnoreMap) Add(key ThreadKey, username string) bool {
	if key == "" || username == "" {
		return false
	}
	users, added := AppendUnique(m[key], username)
	if added {
		m[key] = users
	}
	return added
}

// Remove drops username from the thread's list and reports whether it was
// present. The thread entry is deleted once its list is empty.
func (m LightIgnoreMap) Remove(key ThreadKey, username string) bool {
	users, ok := m[key]
	if !ok {
		return false
	}
	rest, removed := Without(users, username)
	if len(rest) == 0 {
		delete(m, key)
	} else {
		m[key] = rest
	}
	return removed
}

// Keys returns the thread keys in lexicographic order.
func (m LightIgnoreMap) Keys() []ThreadKey {
	keys := make([]ThreadKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Normalize returns a deduplicated copy keyed by canonical thread keys.
// Keys given as URLs or paginated keys are folded into their thread, keys
// that name no thread are dropped, and so are empty lists.
func (m LightIgnoreMap) Normalize() LightIgnoreMap {
	out := make(LightIgnoreMap, len(m))
	for _, raw := range m.Keys() {
		key, ok := CanonicalThreadKey(string(raw))
		if !ok {
			continue
		}
		for _, u := range m[raw] {
			if u != "" {
				out[key], _ = AppendUnique(out[key], u)
			}
		}
	}
	return out
}

// Clone returns a deep copy of the map.
func (m LightIgnoreMap) Clone() LightIgnoreMap {
	out := make(LightIgnoreMap, len(m))
	for k, users := range m {
		out[k] = append([]string(nil), users...)
	}
	return out
}
