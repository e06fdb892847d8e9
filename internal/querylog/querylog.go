// Package querylog counts searched queries so the most popular ones can be
// offered as autocomplete suggestions.
package querylog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/catalogsearch/internal/domain"
)

// MaxQueryLength is the longest query, in runes, that is recorded.
const MaxQueryLength = 100

// Log records searched queries and reports the most frequent ones.
type Log interface {
	Record(ctx context.Context, query string) error
	Top(ctx context.Context, n int) ([]domain.PopularQuery, error)
}

// Normalize lowercases query and collapses whitespace. It returns "" for
// queries that should not be recorded.
func Normalize(query string) string {
	q := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	if q == "" || utf8.RuneCountInString(q) > MaxQueryLength {
		return ""
	}
	return q
}

// ZSetClient is the subset of the Redis client used by RedisLog.
type ZSetClient interface {
	ZIncrBy(ctx context.Context, key string, increment float64, member string) *redis.FloatCmd
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
}

// RedisLog keeps query counts in a Redis sorted set, shared by every replica.
type RedisLog struct {
	client ZSetClient
	key    string
}

// NewRedisLog creates a query log stored under key.
func NewRedisLog(client ZSetClient, key string) *RedisLog {
	return &RedisLog{client: client, key: key}
}

// Record increments the counter of query.
func (l *RedisLog) Record(ctx context.Context, query string) error {
	q := Normalize(query)
	if q == "" {
		return nil
	}
	if err := l.client.ZIncrBy(ctx, l.key, 1, q).Err(); err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// Top returns the n most searched queries, most frequent first.
func (l *RedisLog) Top(ctx context.Context, n int) ([]domain.PopularQuery, error) {
	if n <= 0 {
		return nil, nil
	}
	zs, err := l.client.ZRevRangeWithScores(ctx, l.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("top queries: %w", err)
	}

	out := make([]domain.PopularQuery, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok || member == "" {
			continue
		}
		out = append(out, domain.PopularQuery{Query: member, Count: z.Score})
	}
	return out, nil
}

// MemoryLog is a process-local query log used when Redis is disabled.
type MemoryLog struct {
	mu     sync.Mutex
	counts map[string]float64
}

// NewMemoryLog creates an empty in-memory query log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{counts: make(map[string]float64)}
}

// Record increments the counter of query.
func (l *MemoryLog) Record(_ context.Context, query string) error {
	q := Normalize(query)
	if q == "" {
		return nil
	}
	l.mu.Lock()
	l.counts[q]++
	l.mu.Unlock()
	return nil
}

// Top returns the n most searched queries, most frequent first. Ties are
// ordered alphabetically.
func (l *MemoryLog) Top(_ context.Context, n int) ([]domain.PopularQuery, error) {
	if n <= 0 {
		return nil, nil
	}

	l.mu.Lock()
	out := make([]domain.PopularQuery, 0, len(l.counts))
	for q, c := range l.counts {
		out = append(out, domain.PopularQuery{Query: q, Count: c})
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
