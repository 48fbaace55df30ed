package models

import (
	"encoding/json"
	"sort"
)

// LikeSet is the set of user identifiers that liked a card. It is stored as
// an array and never holds the same identifier twice.
type LikeSet map[string]struct{}

// NewLikeSet builds a set from ids, dropping duplicates and empty values.
func NewLikeSet(ids ...string) LikeSet {
	s := make(LikeSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Has reports whether id is in the set.
func (s LikeSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s LikeSet) Len() int {
	return len(s)
}

// Toggle removes id when present and adds it otherwise. It returns true when
// id is a member after the call.
func (s *LikeSet) Toggle(id string) bool {
	if *s == nil {
		*s = make(LikeSet)
	}
	if s.Has(id) {
		delete(*s, id)
		return false
	}
	(*s)[id] = struct{}{}
	return true
}

// Slice returns the members sorted, never nil.
func (s LikeSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the set.
func (s LikeSet) Clone() LikeSet {
	out := make(LikeSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s LikeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes an array, dropping duplicates.
func (s *LikeSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewLikeSet(ids...)
	return nil
}
