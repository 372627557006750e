package checkpoint

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/leaguecrawl/internal/model"
)

// FileName is the name of the checkpoint database inside its directory.
const FileName = "checkpoint.db"

//go:embed migrations/*.sql
var migrations embed.FS

// Store persists FrontierState snapshots.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// path is the path to the SQLite database file.
	path string

	// now returns the current time. Tests replace it.
	now func() time.Time

	// lastSave is the time of the previous save, or of Open before the
	// first save of the process.
	lastSave time.Time

	// beforeCommit runs inside the save transaction right before commit.
	// Tests use it to simulate a crash mid-write.
	beforeCommit func() error
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if they
	// don't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. The WAL is folded back into the
	// main file after every save.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// SaveStats describes a committed save.
type SaveStats struct {
	// Version is the snapshot version after the save. It starts at 1.
	Version int64

	// TotalLeagues is the number of discovered leagues now stored.
	TotalLeagues int

	// NewLeagues is the number of leagues appended by this save.
	NewLeagues int

	// Elapsed is the time since the previous save of this process.
	Elapsed time.Duration

	// LeaguesPerMinute is NewLeagues over Elapsed.
	LeaguesPerMinute float64
}

// Info summarizes the stored snapshot.
type Info struct {
	// Exists is false when nothing has been saved yet.
	Exists  bool
	Version int64
	SavedAt time.Time
	Counts  model.Counts
}

// Open opens or creates the checkpoint store in dir.
func Open(dir string, opts Options) (*Store, error) {
	path := filepath.Join(dir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, path)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check checkpoint path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	dsn := path + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = path + "?mode=rwc"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, path: path, now: time.Now}
	s.lastSave = s.now()
	return s, nil
}

// migrate applies the embedded schema migrations.
func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Path returns the path of the database file.
func (s *Store) Path() string {
	return s.path
}

// Close folds the WAL into the database file and closes the connection.
func (s *Store) Close() error {
	_, _ = s.db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Load restores the last committed snapshot. When nothing was saved yet it
// returns a state seeded with exactly the seed league pending.
func (s *Store) Load(ctx context.Context, seed model.LeagueID) (*model.FrontierState, error) {
	info, err := s.Info(ctx)
	if err != nil {
		return nil, err
	}
	if !info.Exists {
		return model.SeedFrontierState(seed), nil
	}

	discovered, err := s.loadLeagues(ctx, "SELECT id, metadata FROM leagues ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to load discovered leagues: %w", err)
	}
	pending, err := s.loadLeagues(ctx, "SELECT id, metadata FROM pending_leagues ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("failed to load pending leagues: %w", err)
	}
	pendingUsers, err := s.loadUsers(ctx, "SELECT user_id FROM pending_users ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("failed to load pending users: %w", err)
	}
	queried, err := s.loadUsers(ctx, "SELECT user_id FROM queried_users ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to load queried users: %w", err)
	}

	return model.RestoreFrontierState(discovered, pending, pendingUsers, queried), nil
}

func (s *Store) loadLeagues(ctx context.Context, query string) ([]model.LeagueRecord, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.LeagueRecord
	for rows.Next() {
		var (
			rawID    string
			metadata sql.NullString
		)
		if err := rows.Scan(&rawID, &metadata); err != nil {
			return nil, err
		}
		id, err := model.ParseLeagueID(rawID)
		if err != nil {
			return nil, fmt.Errorf("%w: league %q: %w", ErrInvalidRecord, rawID, err)
		}
		rec := model.LeagueRecord{ID: id}
		if metadata.Valid {
			rec.Metadata = json.RawMessage(metadata.String)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) loadUsers(ctx context.Context, query string) ([]model.UserID, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, model.UserID(id))
	}
	return users, rows.Err()
}

// Save writes state as the new snapshot in a single transaction.
//
// Discovered leagues and queried users only grow, so rows past the stored
// count are appended. The frontiers are replaced wholesale.
func (s *Store) Save(ctx context.Context, state *model.FrontierState) (SaveStats, error) {
	if state == nil {
		return SaveStats{}, ErrNilState
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SaveStats{}, fmt.Errorf("failed to begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	newLeagues, err := appendLeagues(ctx, tx, state.Discovered())
	if err != nil {
		return SaveStats{}, fmt.Errorf("failed to append discovered leagues: %w", err)
	}
	if err := appendQueried(ctx, tx, state.QueriedUsers()); err != nil {
		return SaveStats{}, fmt.Errorf("failed to append queried users: %w", err)
	}
	if err := replacePendingLeagues(ctx, tx, state.PendingLeagues()); err != nil {
		return SaveStats{}, fmt.Errorf("failed to write pending leagues: %w", err)
	}
	if err := replacePendingUsers(ctx, tx, state.PendingUsers()); err != nil {
		return SaveStats{}, fmt.Errorf("failed to write pending users: %w", err)
	}

	var version int64
	err = tx.QueryRowContext(ctx, "SELECT version FROM snapshot WHERE id = 1").Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return SaveStats{}, fmt.Errorf("failed to read snapshot version: %w", err)
	}
	version++

	now := s.now()
	_, err = tx.ExecContext(ctx, `
	INSERT INTO snapshot (id, version, saved_at) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET version = excluded.version, saved_at = excluded.saved_at`,
		version, now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return SaveStats{}, fmt.Errorf("failed to write snapshot: %w", err)
	}

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM leagues").Scan(&total); err != nil {
		return SaveStats{}, fmt.Errorf("failed to count leagues: %w", err)
	}

	if s.beforeCommit != nil {
		if err := s.beforeCommit(); err != nil {
			return SaveStats{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return SaveStats{}, fmt.Errorf("failed to commit save: %w", err)
	}

	// Fold the WAL back so the directory can be mirrored as a single file.
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return SaveStats{}, fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	stats := SaveStats{
		Version:      version,
		TotalLeagues: total,
		NewLeagues:   newLeagues,
		Elapsed:      now.Sub(s.lastSave),
	}
	if minutes := stats.Elapsed.Minutes(); minutes > 0 {
		stats.LeaguesPerMinute = float64(newLeagues) / minutes
	}
	s.lastSave = now
	return stats, nil
}

// appendLeagues inserts the discovered records past the stored watermark and
// returns how many rows were added.
func appendLeagues(ctx context.Context, tx *sql.Tx, discovered []model.LeagueRecord) (int, error) {
	var stored int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM leagues").Scan(&stored); err != nil {
		return 0, err
	}
	if stored >= len(discovered) {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO leagues (id, metadata) VALUES (?, ?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	added := 0
	for _, rec := range discovered[stored:] {
		res, err := stmt.ExecContext(ctx, rec.ID.String(), nullableJSON(rec.Metadata))
		if err != nil {
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}
	return added, nil
}

func appendQueried(ctx context.Context, tx *sql.Tx, queried []model.UserID) error {
	var stored int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM queried_users").Scan(&stored); err != nil {
		return err
	}
	if stored >= len(queried) {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO queried_users (user_id) VALUES (?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range queried[stored:] {
		if _, err := stmt.ExecContext(ctx, string(id)); err != nil {
			return err
		}
	}
	return nil
}

func replacePendingLeagues(ctx context.Context, tx *sql.Tx, pending []model.LeagueRecord) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM pending_leagues"); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO pending_leagues (pos, id, metadata) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range pending {
		if _, err := stmt.ExecContext(ctx, i, rec.ID.String(), nullableJSON(rec.Metadata)); err != nil {
			return err
		}
	}
	return nil
}

func replacePendingUsers(ctx context.Context, tx *sql.Tx, pending []model.UserID) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM pending_users"); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO pending_users (pos, user_id) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, id := range pending {
		if _, err := stmt.ExecContext(ctx, i, string(id)); err != nil {
			return err
		}
	}
	return nil
}

// nullableJSON stores absent metadata as NULL.
func nullableJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

// Info returns the snapshot version, save time and collection sizes.
func (s *Store) Info(ctx context.Context) (Info, error) {
	var (
		info    Info
		savedAt string
	)
	err := s.db.QueryRowContext(ctx, "SELECT version, saved_at FROM snapshot WHERE id = 1").Scan(&info.Version, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return info, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	info.Exists = true
	if info.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return Info{}, fmt.Errorf("%w: saved_at %q: %w", ErrInvalidRecord, savedAt, err)
	}

	counts := []struct {
		table string
		dst   *int
	}{
		{"leagues", &info.Counts.Discovered},
		{"pending_leagues", &info.Counts.PendingLeagues},
		{"pending_users", &info.Counts.PendingUsers},
		{"queried_users", &info.Counts.QueriedUsers},
	}
	for _, c := range counts {
		// Table names come from the fixed list above.
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return Info{}, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}
	return info, nil
}
