package checkpoint

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/nao1215/leaguecrawl/internal/model"
)

// Legacy export file names.
const (
	LeaguesCSVFile = "sleeper_leagues.csv"
	QueueJSONFile  = "sleeper_leagues_queue.json"
)

// leagueIDColumn is always the first CSV column.
const leagueIDColumn = "league_id"

// Export writes the last snapshot in the flat-file layout: one CSV row per
// discovered league and a JSON document holding both frontiers and the
// queried users. Files are replaced atomically. A store that was never
// saved exports empty collections.
func (s *Store) Export(ctx context.Context, dir string) error {
	info, err := s.Info(ctx)
	if err != nil {
		return err
	}
	state := model.NewFrontierState()
	if info.Exists {
		if state, err = s.Load(ctx, 0); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	if err := writeAtomic(filepath.Join(dir, LeaguesCSVFile), func(w io.Writer) error {
		return WriteLeaguesCSV(w, state.Discovered())
	}); err != nil {
		return fmt.Errorf("failed to export leagues: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, QueueJSONFile), func(w io.Writer) error {
		return WriteQueueJSON(w, state)
	}); err != nil {
		return fmt.Errorf("failed to export queue: %w", err)
	}
	return nil
}

// WriteLeaguesCSV writes one row per league. Nested objects are flattened
// into dotted column names; arrays are kept as JSON text. The header is the
// union of all columns in order of first appearance.
func WriteLeaguesCSV(w io.Writer, leagues []model.LeagueRecord) error {
	columns := []string{leagueIDColumn}
	index := map[string]int{leagueIDColumn: 0}
	rows := make([]map[string]string, 0, len(leagues))

	for _, rec := range leagues {
		row := map[string]string{leagueIDColumn: rec.ID.String()}
		var keys []string
		if rec.HasMetadata() {
			keys = flatten("", gjson.ParseBytes(rec.Metadata), row, keys)
		}
		for _, col := range keys {
			if _, ok := index[col]; !ok {
				index[col] = len(columns)
				columns = append(columns, col)
			}
		}
		rows = append(rows, row)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = row[col]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// flatten copies the leaves of v into row under dotted keys and appends the
// keys it set to keys in document order.
func flatten(prefix string, v gjson.Result, row map[string]string, keys []string) []string {
	if v.IsObject() {
		empty := true
		v.ForEach(func(key, value gjson.Result) bool {
			empty = false
			name := key.String()
			if prefix != "" {
				name = prefix + "." + name
			}
			keys = flatten(name, value, row, keys)
			return true
		})
		if !empty || prefix == "" {
			return keys
		}
	}
	if prefix == "" || prefix == leagueIDColumn {
		return keys
	}
	switch v.Type {
	case gjson.Null:
		row[prefix] = ""
	case gjson.String:
		row[prefix] = v.Str
	default:
		row[prefix] = v.Raw
	}
	return append(keys, prefix)
}

// WriteQueueJSON writes the frontiers and queried users as
// {"league_queue": {id: metadata}, "user_queue": [...], "users_queried": [...]}.
// league_queue keeps insertion order; metadata that was never fetched is null.
func WriteQueueJSON(w io.Writer, state *model.FrontierState) error {
	var buf bytes.Buffer
	buf.WriteString(`{"league_queue":{`)
	for i, rec := range state.PendingLeagues() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rec.ID.String())
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if rec.HasMetadata() {
			if err := json.Compact(&buf, rec.Metadata); err != nil {
				return fmt.Errorf("league %s: %w", rec.ID, err)
			}
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteString(`},"user_queue":`)
	if err := writeUserList(&buf, state.PendingUsers()); err != nil {
		return err
	}
	buf.WriteString(`,"users_queried":`)
	if err := writeUserList(&buf, state.QueriedUsers()); err != nil {
		return err
	}
	buf.WriteString("}\n")

	_, err := w.Write(buf.Bytes())
	return err
}

func writeUserList(buf *bytes.Buffer, users []model.UserID) error {
	if users == nil {
		users = []model.UserID{}
	}
	b, err := json.Marshal(users)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// writeAtomic writes through a temp file in the target directory, then
// renames it over path.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
