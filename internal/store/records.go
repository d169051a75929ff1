package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/inkpress/apiserver/internal/kv"
)

// Key prefixes of the three record kinds. Records live under "{kind}:{id}".
const (
	UserPrefix    = "user:"
	PostPrefix    = "post:"
	CommentPrefix = "comment:"
)

func getRecord[T any](ctx context.Context, s kv.Store, key string) (T, error) {
	var record T
	raw, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return record, ErrNotFound
		}
		return record, err
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return record, fmt.Errorf("decode %s: %w", key, err)
	}
	return record, nil
}

func putRecord[T any](ctx context.Context, s kv.Store, key string, record T) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// listRecords decodes every value under prefix. Undecodable entries are skipped.
func listRecords[T any](ctx context.Context, s kv.Store, prefix string) ([]T, error) {
	entries, err := s.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	records := make([]T, 0, len(entries))
	for _, entry := range entries {
		var record T
		if err := json.Unmarshal(entry.Value, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func exists(ctx context.Context, s kv.Store, key string) error {
	if _, err := s.Get(ctx, key); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
