package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/boardrag/internal/db"
)

// IndexInfo reads FT.INFO for the named index. "unknown index name" maps to db.ErrIndexNotFound.
func (s *Store) IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error) {
	if !db.IsValidIdentifier(name) {
		return nil, fmt.Errorf("invalid index name %q", name)
	}

	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isIndexMissing(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}

	return parseIndexInfo(name, raw)
}

// parseIndexInfo walks the flat [key, value, key, value, ...] FT.INFO reply.
func parseIndexInfo(name string, raw []rueidis.RedisMessage) (*db.IndexInfo, error) {
	info := &db.IndexInfo{Name: name}
	for i := 0; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		if key != "num_docs" {
			continue
		}
		n, err := messageInt(raw[i+1])
		if err != nil {
			return nil, fmt.Errorf("parse num_docs: %w", err)
		}
		info.NumDocs = n
		return info, nil
	}
	return nil, fmt.Errorf("FT.INFO %s: num_docs missing from reply", name)
}

// messageInt accepts both integer and bulk-string replies; Redis and Valkey differ here.
func messageInt(m rueidis.RedisMessage) (int, error) {
	if n, err := m.AsInt64(); err == nil {
		return int(n), nil
	}
	str, err := m.ToString()
	if err != nil {
		return 0, err //nolint:wrapcheck // caller adds context
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, err //nolint:wrapcheck // caller adds context
	}
	return int(f), nil
}
