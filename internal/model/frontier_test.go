package model

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSeedFrontierState(t *testing.T) {
	t.Parallel()

	s := SeedFrontierState(42)

	want := Counts{PendingLeagues: 1}
	if diff := cmp.Diff(want, s.Counts()); diff != "" {
		t.Errorf("unexpected counts (-want +got):\n%s", diff)
	}
	if !s.IsPendingLeague(42) {
		t.Error("expected seed league to be pending")
	}
	if s.Done() {
		t.Error("seeded state must not be done")
	}
}

func TestFrontierStateLeagues(t *testing.T) {
	t.Parallel()

	t.Run("pending league is inserted once", func(t *testing.T) {
		t.Parallel()

		s := NewFrontierState()
		if !s.AddPendingLeague(1, nil) {
			t.Fatal("expected first insert to succeed")
		}
		if s.AddPendingLeague(1, json.RawMessage(`{"name":"a"}`)) {
			t.Error("expected duplicate insert to report false")
		}
		if s.PendingLeagueCount() != 1 {
			t.Errorf("expected 1 pending league, got %d", s.PendingLeagueCount())
		}
		if got := string(s.PendingLeagues()[0].Metadata); got != `{"name":"a"}` {
			t.Errorf("expected metadata to be merged into the id-only entry, got %q", got)
		}
	})

	t.Run("existing metadata is kept", func(t *testing.T) {
		t.Parallel()

		s := NewFrontierState()
		s.AddPendingLeague(1, json.RawMessage(`{"name":"first"}`))
		s.AddPendingLeague(1, json.RawMessage(`{"name":"second"}`))
		if got := string(s.PendingLeagues()[0].Metadata); got != `{"name":"first"}` {
			t.Errorf("expected first metadata to win, got %q", got)
		}
	})

	t.Run("discovered league is never pending again", func(t *testing.T) {
		t.Parallel()

		s := SeedFrontierState(1)
		if !s.Discover(LeagueRecord{ID: 1}) {
			t.Fatal("expected discover to succeed")
		}
		if s.IsPendingLeague(1) {
			t.Error("expected league to leave the pending collection")
		}
		if s.AddPendingLeague(1, nil) {
			t.Error("expected discovered league to be rejected from pending")
		}
		if s.Discover(LeagueRecord{ID: 1}) {
			t.Error("expected second discover to report false")
		}
		if s.DiscoveredCount() != 1 {
			t.Errorf("expected 1 discovered league, got %d", s.DiscoveredCount())
		}
		if err := s.CheckInvariants(); err != nil {
			t.Error(err)
		}
	})

	t.Run("pending leagues keep insertion order", func(t *testing.T) {
		t.Parallel()

		s := NewFrontierState()
		for _, id := range []LeagueID{5, 3, 9, 1} {
			s.AddPendingLeague(id, nil)
		}
		s.Discover(LeagueRecord{ID: 3})

		var got []LeagueID
		for _, rec := range s.PendingLeagues() {
			got = append(got, rec.ID)
		}
		if diff := cmp.Diff([]LeagueID{5, 9, 1}, got); diff != "" {
			t.Errorf("unexpected order (-want +got):\n%s", diff)
		}
	})

	t.Run("zero id is ignored", func(t *testing.T) {
		t.Parallel()

		s := NewFrontierState()
		if s.AddPendingLeague(0, nil) || s.Discover(LeagueRecord{ID: 0}) {
			t.Error("expected zero id to be rejected")
		}
	})
}

func TestFrontierStateUsers(t *testing.T) {
	t.Parallel()

	t.Run("pop is FIFO and marks queried", func(t *testing.T) {
		t.Parallel()

		s := NewFrontierState()
		s.AppendPendingUsers("u1", "u2", "u3")

		var order []UserID
		for {
			id, ok := s.PopUser()
			if !ok {
				break
			}
			if !s.IsQueried(id) {
				t.Errorf("expected %s to be queried after pop", id)
			}
			order = append(order, id)
		}
		if diff := cmp.Diff([]UserID{"u1", "u2", "u3"}, order); diff != "" {
			t.Errorf("unexpected pop order (-want +got):\n%s", diff)
		}
		if s.PendingUserCount() != 0 || s.QueriedCount() != 3 {
			t.Errorf("unexpected counts: %+v", s.Counts())
		}
	})

	t.Run("queried users are not appended", func(t *testing.T) {
		t.Parallel()

		s := NewFrontierState()
		s.AppendPendingUsers("u1")
		s.PopUser()
		s.AppendPendingUsers("u1", "u2", "")
		if diff := cmp.Diff([]UserID{"u2"}, s.PendingUsers()); diff != "" {
			t.Errorf("unexpected pending users (-want +got):\n%s", diff)
		}
	})

	t.Run("dedup keeps first occurrence", func(t *testing.T) {
		t.Parallel()

		s := NewFrontierState()
		s.AppendPendingUsers("b", "a", "b", "c", "a")
		removed := s.DedupPendingUsers()
		if removed != 2 {
			t.Errorf("expected 2 removed, got %d", removed)
		}
		if diff := cmp.Diff([]UserID{"b", "a", "c"}, s.PendingUsers()); diff != "" {
			t.Errorf("unexpected pending users (-want +got):\n%s", diff)
		}
		if err := s.CheckInvariants(); err != nil {
			t.Error(err)
		}
	})

	t.Run("pop skips duplicates already queried", func(t *testing.T) {
		t.Parallel()

		s := NewFrontierState()
		s.AppendPendingUsers("a", "a", "b")
		first, _ := s.PopUser()
		second, _ := s.PopUser()
		if first != "a" || second != "b" {
			t.Errorf("expected a then b, got %s then %s", first, second)
		}
		if _, ok := s.PopUser(); ok {
			t.Error("expected empty frontier")
		}
	})
}

func TestRestoreFrontierState(t *testing.T) {
	t.Parallel()

	discovered := []LeagueRecord{
		{ID: 1, Metadata: json.RawMessage(`{"league_id":"1"}`)},
		{ID: 2},
		{ID: 1},
	}
	pending := []LeagueRecord{{ID: 2}, {ID: 3}}
	s := RestoreFrontierState(discovered, pending, []UserID{"u1", "u2", "u2"}, []UserID{"u1"})

	want := Counts{PendingLeagues: 1, PendingUsers: 1, QueriedUsers: 1, Discovered: 2}
	if diff := cmp.Diff(want, s.Counts()); diff != "" {
		t.Errorf("unexpected counts (-want +got):\n%s", diff)
	}
	if err := s.CheckInvariants(); err != nil {
		t.Error(err)
	}
}

func TestFrontierStateClone(t *testing.T) {
	t.Parallel()

	s := SeedFrontierState(1)
	s.AppendPendingUsers("u1")
	c := s.Clone()

	c.Discover(LeagueRecord{ID: 1})
	c.PopUser()

	if !s.IsPendingLeague(1) || s.PendingUserCount() != 1 {
		t.Errorf("expected original to be unaffected, got %+v", s.Counts())
	}
	if c.IsPendingLeague(1) || c.QueriedCount() != 1 {
		t.Errorf("expected clone to change, got %+v", c.Counts())
	}
}
