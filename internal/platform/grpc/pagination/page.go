// Package pagination normalizes list page sizes and opaque page tokens.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// PageSizeConfig configures page size normalization.
type PageSizeConfig struct {
	Default int
	Max     int
}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int32, cfg PageSizeConfig) int {
	pageSize := int(value)
	if pageSize <= 0 {
		pageSize = cfg.Default
	}
	if cfg.Max > 0 && pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return pageSize
}

// Cursor marks the last row returned on a page. Lists are ordered by
// (Key, ID) so a cursor always identifies a unique position.
type Cursor struct {
	Key int64  `json:"k"`
	ID  string `json:"i"`
}

// EncodeToken returns the opaque page token for cursor.
func EncodeToken(cursor Cursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeToken parses a page token. An empty token yields a nil cursor.
func DecodeToken(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid page token: %w", err)
	}
	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid page token: %w", err)
	}
	return &cursor, nil
}
