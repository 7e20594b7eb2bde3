// Package feature implements the visual feature tracker: a per-frame
// pipeline that propagates persistent 2-D landmarks with pyramidal optical
// flow, rejects geometric outliers, keeps the active set spatially spread,
// and emits per-landmark observations for a visual-inertial estimator.
package feature

import (
	"sort"

	"github.com/viofeat/viofeat/pkg/geometry"
)

// Landmark is one persistent track. A single record replaces the parallel
// id/point/age vectors of classical trackers so that compaction cannot
// leave one attribute sequence behind.
type Landmark struct {
	// ID is unique for the process lifetime and never reused.
	ID uint64
	// Px is the position in the current frame (left camera).
	Px geometry.Point2f
	// PrevPx is the position in the previous frame. Equal to Px for a
	// landmark born this frame.
	PrevPx geometry.Point2f
	// UnPx is the normalized-plane coordinate of Px.
	UnPx geometry.Point2
	// Age counts consecutive frames the landmark survived, starting at 1.
	Age uint32
}

// Store owns the active landmark set. It is exclusively owned by the
// tracker; other components see read-only views.
type Store struct {
	landmarks []Landmark
	index     map[uint64]int
	nextID    uint64
}

// NewStore creates an empty store. ID assignment starts at zero.
func NewStore() *Store {
	return &Store{index: make(map[uint64]int)}
}

// Len returns the number of active landmarks.
func (s *Store) Len() int { return len(s.landmarks) }

// At returns a pointer to the i-th landmark. The pointer is invalidated by
// Append, Reduce and SortByAgeDesc.
func (s *Store) At(i int) *Landmark { return &s.landmarks[i] }

// All returns the backing slice. Callers must not retain it across
// mutations.
func (s *Store) All() []Landmark { return s.landmarks }

// Pixels returns the current pixel positions in store order.
func (s *Store) Pixels() []geometry.Point2f {
	out := make([]geometry.Point2f, len(s.landmarks))
	for i := range s.landmarks {
		out[i] = s.landmarks[i].Px
	}
	return out
}

// Append mints a landmark with the next id at the given pixel, age 1.
func (s *Store) Append(px geometry.Point2f) *Landmark {
	s.landmarks = append(s.landmarks, Landmark{
		ID:     s.nextID,
		Px:     px,
		PrevPx: px,
		Age:    1,
	})
	s.nextID++
	return &s.landmarks[len(s.landmarks)-1]
}

// Advance moves surviving landmarks to their tracked positions: the current
// position becomes the previous one and the tracked point replaces it.
// Entries with keep[i] false are left untouched (they are about to be
// reduced away).
func (s *Store) Advance(tracked []geometry.Point2f, keep []bool) {
	for i := range s.landmarks {
		if keep[i] {
			s.landmarks[i].PrevPx = s.landmarks[i].Px
			s.landmarks[i].Px = tracked[i]
		}
	}
}

// Reduce compacts the store by stable partition, keeping records where
// keep[i] is true.
func (s *Store) Reduce(keep []bool) {
	j := 0
	for i := range s.landmarks {
		if keep[i] {
			s.landmarks[j] = s.landmarks[i]
			j++
		}
	}
	s.landmarks = s.landmarks[:j]
}

// IncrementAges bumps the age of every landmark currently in the store.
func (s *Store) IncrementAges() {
	for i := range s.landmarks {
		s.landmarks[i].Age++
	}
}

// SortByAgeDesc reorders the store by descending age. The sort is stable,
// so landmarks of equal age keep their insertion order.
func (s *Store) SortByAgeDesc() {
	sort.SliceStable(s.landmarks, func(i, j int) bool {
		return s.landmarks[i].Age > s.landmarks[j].Age
	})
}

// RebuildIndex refreshes the id-to-position map. Called once per frame
// after the store has settled.
func (s *Store) RebuildIndex() {
	s.index = make(map[uint64]int, len(s.landmarks))
	for i := range s.landmarks {
		s.index[s.landmarks[i].ID] = i
	}
}

// Lookup returns the landmark with the given id, if present. Valid only
// after RebuildIndex for the current frame.
func (s *Store) Lookup(id uint64) (*Landmark, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.landmarks[i], true
}

// Clear drops every landmark but preserves the id counter, keeping ids
// unique across restarts.
func (s *Store) Clear() {
	s.landmarks = s.landmarks[:0]
	s.index = make(map[uint64]int)
}
