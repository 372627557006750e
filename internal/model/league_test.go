package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseLeagueID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   any
		want    LeagueID
		wantErr error
	}{
		{name: "decimal string", input: "1095093570517798912", want: 1095093570517798912},
		{name: "quoted string", input: `"42"`, want: 42},
		{name: "string with whitespace", input: "  42 ", want: 42},
		{name: "json number", input: json.Number("1095093570517798912"), want: 1095093570517798912},
		{name: "int", input: 7, want: 7},
		{name: "int64", input: int64(8), want: 8},
		{name: "uint64", input: uint64(9), want: 9},
		{name: "empty string", input: "", wantErr: ErrEmptyLeagueID},
		{name: "nil", input: nil, wantErr: ErrEmptyLeagueID},
		{name: "zero", input: "0", wantErr: ErrInvalidLeagueID},
		{name: "negative int", input: -3, wantErr: ErrInvalidLeagueID},
		{name: "not a number", input: "abc", wantErr: ErrInvalidLeagueID},
		{name: "float", input: 1.5, wantErr: ErrInvalidLeagueID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseLeagueID(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestLeagueIDNormalizesRepresentations(t *testing.T) {
	t.Parallel()

	fromString, err := ParseLeagueID("1095093570517798912")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fromNumber, err := ParseLeagueID(json.Number("1095093570517798912"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fromString != fromNumber {
		t.Errorf("expected string and number forms to normalize to the same key, got %d and %d", fromString, fromNumber)
	}
	if fromString.String() != "1095093570517798912" {
		t.Errorf("unexpected string form %q", fromString.String())
	}
}

func TestLeagueIDTextRoundTrip(t *testing.T) {
	t.Parallel()

	in := map[LeagueID]string{42: "a", 1095093570517798912: "b"}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var out map[LeagueID]string
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(out) != 2 || out[42] != "a" || out[1095093570517798912] != "b" {
		t.Errorf("unexpected round trip result: %v", out)
	}
}

func TestLeagueRecordHasMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  json.RawMessage
		want bool
	}{
		{name: "nil", raw: nil, want: false},
		{name: "null", raw: json.RawMessage("null"), want: false},
		{name: "whitespace", raw: json.RawMessage("  "), want: false},
		{name: "object", raw: json.RawMessage(`{"name":"x"}`), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := (LeagueRecord{ID: 1, Metadata: tt.raw}).HasMetadata(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
