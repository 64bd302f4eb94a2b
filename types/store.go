package types

import "sort"

// Store is the whole persisted collection of users, keyed by user id.
type Store map[string]User

// IDs returns the store keys in sorted order so scans are deterministic.
func (s Store) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of the store.
func (s Store) Clone() Store {
	out := make(Store, len(s))
	for id, user := range s {
		out[id] = user.Clone()
	}
	return out
}
