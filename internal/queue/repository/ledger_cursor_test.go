package repository

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHistoryCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	id := uuid.New()

	cursor := encodeHistoryCursor(at, id)

	gotAt, gotID, err := decodeHistoryCursor(cursor)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !gotAt.Equal(at) {
		t.Fatalf("expected %s, got %s", at, gotAt)
	}
	if gotID != id {
		t.Fatalf("expected %s, got %s", id, gotID)
	}
}

func TestHistoryCursorNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, loc)

	gotAt, _, err := splitCursor(encodeHistoryCursor(at, uuid.New()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotAt != at.UTC().Format(time.RFC3339Nano) {
		t.Fatalf("expected UTC timestamp, got %s", gotAt)
	}
}

func TestDecodeHistoryCursorRejectsGarbage(t *testing.T) {
	cases := []struct {
		name   string
		cursor string
	}{
		{"not base64", "!!not-base64!!"},
		{"no separator", base64.URLEncoding.EncodeToString([]byte("just-one-part"))},
		{"bad timestamp", base64.URLEncoding.EncodeToString([]byte("yesterday|" + uuid.New().String()))},
		{"bad uuid", base64.URLEncoding.EncodeToString([]byte(time.Now().UTC().Format(time.RFC3339Nano) + "|not-a-uuid"))},
	}
	for _, tc := range cases {
		if _, _, err := decodeHistoryCursor(tc.cursor); err != errBadCursor {
			t.Errorf("%s: expected errBadCursor, got %v", tc.name, err)
		}
	}
}

// splitCursor decodes the cursor without parsing, for asserting its raw form.
func splitCursor(cursor string) (string, string, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", err
	}
	s := string(raw)
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", errBadCursor
}
