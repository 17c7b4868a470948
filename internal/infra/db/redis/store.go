// Package redis keeps records in hashes (one field per facet slot) and chat
// history in lists.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/chat"
)

const (
	keyPrefix   = "scanit:"
	recordField = "record"
)

// setFacet writes a slot only if the record exists, and only if the slot is
// empty unless ARGV[2] is "1". It returns the value left in the slot.
var setFacet = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
if ARGV[2] ~= '1' then
  local cur = redis.call('HGET', KEYS[1], ARGV[1])
  if cur then
    return cur
  end
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
return ARGV[3]
`)

// Store implements analysis.Repository and chat.Repository.
type Store struct {
	rdb *goredis.Client
}

// Open connects and pings the server.
func Open(ctx context.Context, addr, password string, db int) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Close() error { return s.rdb.Close() }

func recordKey(id analysis.ID) string { return keyPrefix + "rec:" + string(id) }
func chatKey(id analysis.ID) string   { return keyPrefix + "chat:" + string(id) }

func (s *Store) Create(ctx context.Context, r *analysis.Record) error {
	base := r.Clone()
	for _, f := range analysis.Facets {
		base.SetFacetData(f, nil)
	}
	b, err := json.Marshal(base)
	if err != nil {
		return err
	}
	ok, err := s.rdb.HSetNX(ctx, recordKey(r.ID), recordField, b).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("record %s already exists", r.ID)
	}
	for _, f := range analysis.Facets {
		if data := r.FacetData(f); data != nil {
			if err := s.rdb.HSet(ctx, recordKey(r.ID), string(f), []byte(data)).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id analysis.ID) (*analysis.Record, error) {
	fields, err := s.rdb.HGetAll(ctx, recordKey(id)).Result()
	if err != nil {
		return nil, err
	}
	raw, ok := fields[recordField]
	if !ok {
		return nil, analysis.ErrNotFound
	}
	var r analysis.Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	for _, f := range analysis.Facets {
		var data json.RawMessage
		if v, ok := fields[string(f)]; ok {
			data = json.RawMessage(v)
		}
		r.SetFacetData(f, data)
	}
	return &r, nil
}

func (s *Store) SetFacet(ctx context.Context, id analysis.ID, f analysis.Facet, data json.RawMessage, overwrite bool) (json.RawMessage, error) {
	flag := "0"
	if overwrite {
		flag = "1"
	}
	v, err := setFacet.Run(ctx, s.rdb, []string{recordKey(id)}, string(f), flag, []byte(data)).Text()
	if errors.Is(err, goredis.Nil) {
		return nil, analysis.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(v), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Append(ctx context.Context, m *chat.Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, chatKey(m.AnalysisID), b).Err()
}

func (s *Store) History(ctx context.Context, id analysis.ID) ([]*chat.Message, error) {
	vals, err := s.rdb.LRange(ctx, chatKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*chat.Message, 0, len(vals))
	for _, v := range vals {
		var m chat.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("decode chat message: %w", err)
		}
		out = append(out, &m)
	}
	return out, nil
}
