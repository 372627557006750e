package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// FrontierState is the complete state of a league crawl.
//
// It owns four collections:
//   - pending leagues: discovered ids not yet expanded into users
//   - pending users: a FIFO of user ids not yet expanded into leagues
//   - queried users: users whose league list has been requested
//   - discovered leagues: the append-only result table
//
// A league id is never in both the pending and discovered collections, and a
// user id is never in both the pending and queried collections once
// DedupPendingUsers has run. The zero value is not usable; use
// NewFrontierState, SeedFrontierState or RestoreFrontierState.
//
// FrontierState is not safe for concurrent use. The crawler merges worker
// results from a single goroutine.
type FrontierState struct {
	pending      map[LeagueID]json.RawMessage
	pendingOrder []LeagueID

	pendingUsers []UserID

	queried      []UserID
	queriedIndex map[UserID]struct{}

	discovered      []LeagueRecord
	discoveredIndex map[LeagueID]struct{}
}

// Counts is a snapshot of the collection sizes of a FrontierState.
type Counts struct {
	PendingLeagues int
	PendingUsers   int
	QueriedUsers   int
	Discovered     int
}

// NewFrontierState returns an empty state.
func NewFrontierState() *FrontierState {
	return &FrontierState{
		pending:         make(map[LeagueID]json.RawMessage),
		queriedIndex:    make(map[UserID]struct{}),
		discoveredIndex: make(map[LeagueID]struct{}),
	}
}

// SeedFrontierState returns a state whose only content is the seed league in
// the pending collection. Its metadata is unknown until the crawler fetches it.
func SeedFrontierState(seed LeagueID) *FrontierState {
	s := NewFrontierState()
	s.AddPendingLeague(seed, nil)
	return s
}

// RestoreFrontierState rebuilds a state from persisted collections.
// Inputs that would violate the partition invariants are normalized: a
// pending league that is already discovered is dropped, duplicate discovered
// records keep their first occurrence, and pending users that were already
// queried are dropped.
func RestoreFrontierState(discovered, pending []LeagueRecord, pendingUsers, queried []UserID) *FrontierState {
	s := NewFrontierState()
	for _, rec := range discovered {
		s.appendDiscovered(rec)
	}
	for _, id := range queried {
		s.markQueried(id)
	}
	for _, rec := range pending {
		s.AddPendingLeague(rec.ID, rec.Metadata)
	}
	s.AppendPendingUsers(pendingUsers...)
	s.DedupPendingUsers()
	return s
}

// AddPendingLeague inserts a league into the pending collection.
// It returns false when the league is already discovered or already pending.
// A pending league without metadata adopts the metadata of a later insert,
// so a league reached through several users is counted once.
func (s *FrontierState) AddPendingLeague(id LeagueID, metadata json.RawMessage) bool {
	if id == 0 {
		return false
	}
	if _, ok := s.discoveredIndex[id]; ok {
		return false
	}
	if existing, ok := s.pending[id]; ok {
		if !hasMetadata(existing) && hasMetadata(metadata) {
			s.pending[id] = metadata
		}
		return false
	}
	s.pending[id] = metadata
	s.pendingOrder = append(s.pendingOrder, id)
	return true
}

// IsPendingLeague reports whether the league is waiting to be expanded.
func (s *FrontierState) IsPendingLeague(id LeagueID) bool {
	_, ok := s.pending[id]
	return ok
}

// PendingLeagueCount returns the number of pending leagues.
func (s *FrontierState) PendingLeagueCount() int {
	return len(s.pending)
}

// PendingLeagues returns the pending leagues in insertion order.
func (s *FrontierState) PendingLeagues() []LeagueRecord {
	s.compactPendingOrder()
	out := make([]LeagueRecord, 0, len(s.pendingOrder))
	for _, id := range s.pendingOrder {
		out = append(out, LeagueRecord{ID: id, Metadata: s.pending[id]})
	}
	return out
}

// compactPendingOrder drops ids that left the pending map.
func (s *FrontierState) compactPendingOrder() {
	if len(s.pendingOrder) == len(s.pending) {
		return
	}
	s.pendingOrder = slices.DeleteFunc(s.pendingOrder, func(id LeagueID) bool {
		_, ok := s.pending[id]
		return !ok
	})
}

// Discover moves a league from the pending collection to the discovered
// table. It returns false, leaving the state unchanged, if the league was
// already discovered.
func (s *FrontierState) Discover(rec LeagueRecord) bool {
	if rec.ID == 0 {
		return false
	}
	if _, ok := s.discoveredIndex[rec.ID]; ok {
		return false
	}
	delete(s.pending, rec.ID)
	s.appendDiscovered(rec)
	return true
}

func (s *FrontierState) appendDiscovered(rec LeagueRecord) {
	if rec.ID == 0 {
		return
	}
	if _, ok := s.discoveredIndex[rec.ID]; ok {
		return
	}
	s.discoveredIndex[rec.ID] = struct{}{}
	s.discovered = append(s.discovered, rec)
}

// IsDiscovered reports whether the league is in the discovered table.
func (s *FrontierState) IsDiscovered(id LeagueID) bool {
	_, ok := s.discoveredIndex[id]
	return ok
}

// Discovered returns the discovered table in discovery order.
// The returned slice shares storage with the state and must not be modified.
func (s *FrontierState) Discovered() []LeagueRecord {
	return s.discovered
}

// DiscoveredCount returns the number of discovered leagues.
func (s *FrontierState) DiscoveredCount() int {
	return len(s.discovered)
}

// AppendPendingUsers appends user ids to the tail of the user frontier.
// Empty ids and users that were already queried are skipped; duplicates
// among pending users are kept until DedupPendingUsers runs.
func (s *FrontierState) AppendPendingUsers(ids ...UserID) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.queriedIndex[id]; ok {
			continue
		}
		s.pendingUsers = append(s.pendingUsers, id)
	}
}

// DedupPendingUsers removes duplicate and already-queried ids from the user
// frontier in one pass, keeping the first occurrence of each id.
// It returns the number of removed entries.
func (s *FrontierState) DedupPendingUsers() int {
	seen := make(map[UserID]struct{}, len(s.pendingUsers))
	before := len(s.pendingUsers)
	s.pendingUsers = slices.DeleteFunc(s.pendingUsers, func(id UserID) bool {
		if _, ok := s.queriedIndex[id]; ok {
			return true
		}
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
		return false
	})
	return before - len(s.pendingUsers)
}

// PopUser removes the head of the user frontier and records it as queried.
// Users that are already queried are skipped. The second result is false
// when the frontier is empty.
func (s *FrontierState) PopUser() (UserID, bool) {
	for len(s.pendingUsers) > 0 {
		id := s.pendingUsers[0]
		s.pendingUsers[0] = ""
		s.pendingUsers = s.pendingUsers[1:]
		if s.markQueried(id) {
			return id, true
		}
	}
	s.pendingUsers = nil
	return "", false
}

func (s *FrontierState) markQueried(id UserID) bool {
	if id == "" {
		return false
	}
	if _, ok := s.queriedIndex[id]; ok {
		return false
	}
	s.queriedIndex[id] = struct{}{}
	s.queried = append(s.queried, id)
	return true
}

// PendingUsers returns the user frontier in FIFO order.
// The returned slice shares storage with the state and must not be modified.
func (s *FrontierState) PendingUsers() []UserID {
	return s.pendingUsers
}

// PendingUserCount returns the length of the user frontier.
func (s *FrontierState) PendingUserCount() int {
	return len(s.pendingUsers)
}

// IsQueried reports whether the user's leagues have been requested.
func (s *FrontierState) IsQueried(id UserID) bool {
	_, ok := s.queriedIndex[id]
	return ok
}

// QueriedUsers returns the queried users in the order they were queried.
// The returned slice shares storage with the state and must not be modified.
func (s *FrontierState) QueriedUsers() []UserID {
	return s.queried
}

// QueriedCount returns the number of queried users.
func (s *FrontierState) QueriedCount() int {
	return len(s.queried)
}

// Done reports whether both frontiers are empty.
func (s *FrontierState) Done() bool {
	return len(s.pending) == 0 && len(s.pendingUsers) == 0
}

// Counts returns the current collection sizes.
func (s *FrontierState) Counts() Counts {
	return Counts{
		PendingLeagues: len(s.pending),
		PendingUsers:   len(s.pendingUsers),
		QueriedUsers:   len(s.queried),
		Discovered:     len(s.discovered),
	}
}

// Clone returns a deep copy of the state. Metadata byte slices are shared
// because records are never mutated after creation.
func (s *FrontierState) Clone() *FrontierState {
	c := NewFrontierState()
	for _, rec := range s.discovered {
		c.appendDiscovered(rec)
	}
	for _, id := range s.queried {
		c.markQueried(id)
	}
	for _, rec := range s.PendingLeagues() {
		c.AddPendingLeague(rec.ID, rec.Metadata)
	}
	c.pendingUsers = slices.Clone(s.pendingUsers)
	return c
}

// CheckInvariants verifies the partition invariants and returns the first
// violation found.
func (s *FrontierState) CheckInvariants() error {
	for id := range s.pending {
		if _, ok := s.discoveredIndex[id]; ok {
			return fmt.Errorf("league %s is both pending and discovered", id)
		}
	}
	if len(s.discoveredIndex) != len(s.discovered) {
		return fmt.Errorf("discovered table has %d rows but %d distinct ids", len(s.discovered), len(s.discoveredIndex))
	}
	for _, id := range s.pendingUsers {
		if _, ok := s.queriedIndex[id]; ok {
			return fmt.Errorf("user %s is both pending and queried", id)
		}
	}
	if len(s.queriedIndex) != len(s.queried) {
		return fmt.Errorf("queried set has %d entries but %d distinct ids", len(s.queried), len(s.queriedIndex))
	}
	return nil
}
