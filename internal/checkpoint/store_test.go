package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nao1215/leaguecrawl/internal/model"
)

// setupTestStore creates a store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// sampleState builds a state with every collection populated.
func sampleState() *model.FrontierState {
	return model.RestoreFrontierState(
		[]model.LeagueRecord{
			{ID: 1, Metadata: json.RawMessage(`{"league_id":"1","name":"Alpha"}`)},
			{ID: 2, Metadata: json.RawMessage(`{"league_id":"2","name":"Bravo"}`)},
		},
		[]model.LeagueRecord{
			{ID: 3, Metadata: json.RawMessage(`{"league_id":"3"}`)},
			{ID: 4},
		},
		[]model.UserID{"u3", "u4"},
		[]model.UserID{"u1", "u2"},
	)
}

type snapshotView struct {
	Discovered   []model.LeagueRecord
	Pending      []model.LeagueRecord
	PendingUsers []model.UserID
	Queried      []model.UserID
}

func view(s *model.FrontierState) snapshotView {
	return snapshotView{
		Discovered:   s.Discovered(),
		Pending:      s.PendingLeagues(),
		PendingUsers: s.PendingUsers(),
		Queried:      s.QueriedUsers(),
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "checkpoint")
		s, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		defer s.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if s.Path() != filepath.Join(dir, FileName) {
			t.Errorf("unexpected path %s", s.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when missing", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
		if !errors.Is(err, ErrStoreNotFound) {
			t.Errorf("expected ErrStoreNotFound, got %v", err)
		}
	})

	t.Run("reopens an existing store", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		s, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		_ = s.Close()

		s, err = Open(dir, Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen store: %v", err)
		}
		_ = s.Close()
	})
}

func TestLoadWithoutSnapshot(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	state, err := s.Load(context.Background(), 777)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := model.Counts{PendingLeagues: 1}
	if diff := cmp.Diff(want, state.Counts()); diff != "" {
		t.Errorf("unexpected counts (-want +got):\n%s", diff)
	}
	if !state.IsPendingLeague(777) {
		t.Error("expected seed league to be pending")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	state := sampleState()
	stats, err := s.Save(context.Background(), state)
	if err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if stats.Version != 1 || stats.TotalLeagues != 2 || stats.NewLeagues != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	_ = s.Close()

	// A fresh process sees the same state; the seed is ignored.
	s, err = Open(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	loaded, err := s.Load(context.Background(), 999)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if diff := cmp.Diff(view(state), view(loaded), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("state mismatch after round trip (-want +got):\n%s", diff)
	}
	if loaded.IsPendingLeague(999) {
		t.Error("seed must not be added when a snapshot exists")
	}
	if err := loaded.CheckInvariants(); err != nil {
		t.Errorf("loaded state violates invariants: %v", err)
	}
}

func TestSaveIsIncremental(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time { return current }
	s.lastSave = base

	state := sampleState()
	current = base.Add(time.Minute)
	if _, err := s.Save(ctx, state); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	// Expand the pending leagues and one user.
	for _, rec := range state.PendingLeagues() {
		state.Discover(rec)
	}
	state.PopUser()

	current = base.Add(3 * time.Minute)
	stats, err := s.Save(ctx, state)
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	want := SaveStats{
		Version:          2,
		TotalLeagues:     4,
		NewLeagues:       2,
		Elapsed:          2 * time.Minute,
		LeaguesPerMinute: 1,
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("unexpected stats (-want +got):\n%s", diff)
	}

	loaded, err := s.Load(ctx, 0)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if diff := cmp.Diff(view(state), view(loaded), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	info, err := s.Info(ctx)
	if err != nil {
		t.Fatalf("failed to read info: %v", err)
	}
	wantInfo := Info{
		Exists:  true,
		Version: 2,
		SavedAt: current,
		Counts:  model.Counts{PendingLeagues: 0, PendingUsers: 1, QueriedUsers: 3, Discovered: 4},
	}
	if diff := cmp.Diff(wantInfo, info); diff != "" {
		t.Errorf("unexpected info (-want +got):\n%s", diff)
	}
}

func TestSaveRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	ctx := context.Background()

	state := sampleState()
	if _, err := s.Save(ctx, state); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	before := view(state.Clone())

	for _, rec := range state.PendingLeagues() {
		state.Discover(rec)
	}
	state.AppendPendingUsers("u9")

	crash := errors.New("simulated crash")
	s.beforeCommit = func() error { return crash }
	if _, err := s.Save(ctx, state); !errors.Is(err, crash) {
		t.Fatalf("expected simulated crash, got %v", err)
	}
	s.beforeCommit = nil

	loaded, err := s.Load(ctx, 0)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if diff := cmp.Diff(before, view(loaded), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("partial save leaked into snapshot (-want +got):\n%s", diff)
	}
	info, err := s.Info(ctx)
	if err != nil {
		t.Fatalf("failed to read info: %v", err)
	}
	if info.Version != 1 {
		t.Errorf("expected version 1 after rollback, got %d", info.Version)
	}

	// The next save succeeds and carries the full state.
	if _, err := s.Save(ctx, state); err != nil {
		t.Fatalf("save after rollback failed: %v", err)
	}
	loaded, err = s.Load(ctx, 0)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if diff := cmp.Diff(view(state), view(loaded), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveNilState(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	if _, err := s.Save(context.Background(), nil); !errors.Is(err, ErrNilState) {
		t.Errorf("expected ErrNilState, got %v", err)
	}
}

func TestInfoWithoutSnapshot(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	info, err := s.Info(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Exists {
		t.Errorf("expected no snapshot, got %+v", info)
	}
}

func TestSaveLeavesNoWAL(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)
	if _, err := s.Save(context.Background(), sampleState()); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	fi, err := os.Stat(s.Path() + "-wal")
	if err == nil && fi.Size() != 0 {
		t.Errorf("expected WAL to be truncated after save, size %d", fi.Size())
	}
}
