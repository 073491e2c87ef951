// Package pagination implements keyset pagination over (created_at, id).
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor is the position after which the next page starts.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// EncodeCursor returns an opaque, URL-safe cursor.
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + "|" + timestamp.UTC().Format(time.RFC3339Nano)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor from EncodeCursor. An empty cursor means the
// first page and decodes to nil.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	lastID, ts, ok := strings.Cut(string(decoded), "|")
	if !ok || lastID == "" {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{LastID: lastID, Timestamp: timestamp}, nil
}

// NewPage builds a page from rows fetched with LIMIT limit+1: the extra row
// only signals that another page exists and is dropped.
func NewPage[T any](items []T, limit int, key func(T) (string, time.Time)) *PageResult[T] {
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	page := &PageResult[T]{Items: items, HasMore: hasMore}
	if hasMore {
		page.Cursor = EncodeCursor(key(items[len(items)-1]))
	}
	return page
}
