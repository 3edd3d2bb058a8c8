package model

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Timestamp is a creation time as reported by the user service.
//
// The service has emitted several encodings over time, all of which decode:
//   - RFC 3339 strings
//   - numbers, read as Unix milliseconds
//   - Firestore objects, {"_seconds":..,"_nanoseconds":..} or {"seconds":..,"nanos":..}
//   - null, read as the zero time
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

type firestoreTimestamp struct {
	Seconds      *int64 `json:"_seconds"`
	Nanoseconds  int64  `json:"_nanoseconds"`
	PlainSeconds *int64 `json:"seconds"`
	Nanos        int64  `json:"nanos"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("timestamp string: %w", err)
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp string: %w", err)
		}
		t.Time = parsed
		return nil
	case '{':
		var fs firestoreTimestamp
		if err := json.Unmarshal(data, &fs); err != nil {
			return fmt.Errorf("timestamp object: %w", err)
		}
		switch {
		case fs.Seconds != nil:
			t.Time = time.Unix(*fs.Seconds, fs.Nanoseconds).UTC()
		case fs.PlainSeconds != nil:
			t.Time = time.Unix(*fs.PlainSeconds, fs.Nanos).UTC()
		default:
			return fmt.Errorf("timestamp object: missing seconds")
		}
		return nil
	default:
		var ms int64
		if err := json.Unmarshal(data, &ms); err != nil {
			return fmt.Errorf("timestamp number: %w", err)
		}
		t.Time = time.UnixMilli(ms).UTC()
		return nil
	}
}

// MarshalJSON implements json.Marshaler. The zero time encodes as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
