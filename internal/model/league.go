package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// League identifier errors.
var (
	// ErrEmptyLeagueID is returned when a league identifier is empty.
	ErrEmptyLeagueID = errors.New("league id cannot be empty")
	// ErrInvalidLeagueID is returned when a league identifier is not a positive integer.
	ErrInvalidLeagueID = errors.New("invalid league id: must be a positive integer")
)

// LeagueID is the platform-unique numeric identifier of a league.
// The platform serializes ids as strings; LeagueID normalizes string and
// numeric representations to the same key.
type LeagueID uint64

// ParseLeagueID parses a league identifier from a string, a json.Number or an
// integer value. Surrounding whitespace and quotes are ignored.
func ParseLeagueID(v any) (LeagueID, error) {
	switch t := v.(type) {
	case LeagueID:
		if t == 0 {
			return 0, ErrInvalidLeagueID
		}
		return t, nil
	case string:
		return parseLeagueIDString(t)
	case json.Number:
		return parseLeagueIDString(t.String())
	case int:
		return leagueIDFromInt(int64(t))
	case int64:
		return leagueIDFromInt(t)
	case uint64:
		if t == 0 {
			return 0, ErrInvalidLeagueID
		}
		return LeagueID(t), nil
	case nil:
		return 0, ErrEmptyLeagueID
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidLeagueID, v)
	}
}

// MustParseLeagueID is like ParseLeagueID but panics on error.
// It is intended for constants and tests.
func MustParseLeagueID(s string) LeagueID {
	id, err := ParseLeagueID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func parseLeagueIDString(s string) (LeagueID, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	if s == "" {
		return 0, ErrEmptyLeagueID
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLeagueID, s)
	}
	return LeagueID(n), nil
}

func leagueIDFromInt(n int64) (LeagueID, error) {
	if n <= 0 {
		return 0, ErrInvalidLeagueID
	}
	return LeagueID(n), nil
}

// String returns the decimal form used by the platform API.
func (id LeagueID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// MarshalText encodes the id as a decimal string so it can be used as a JSON
// object key and round-trips through the platform's string representation.
func (id LeagueID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a decimal string id.
func (id *LeagueID) UnmarshalText(b []byte) error {
	parsed, err := parseLeagueIDString(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// LeagueRecord is a discovered league together with the metadata the platform
// returned for it. Metadata is kept as the raw JSON object so that fields
// unknown to this program are stored losslessly.
type LeagueRecord struct {
	// ID is the normalized league identifier.
	ID LeagueID

	// Metadata is the raw platform JSON object. It may be nil when only the
	// id is known (for example the seed league whose info fetch failed).
	Metadata json.RawMessage
}

// HasMetadata reports whether the record carries a non-empty metadata object.
func (r LeagueRecord) HasMetadata() bool {
	return hasMetadata(r.Metadata)
}

func hasMetadata(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

// UserID is the opaque identifier of a platform user.
type UserID string
