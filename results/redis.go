// Package results Redis storage implementation. Use: go get github.com/redis/go-redis/v9
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/klejdi94/clipbench/core"
)

const (
	redisKeyReport = "report:%s:%s"
	redisKeyModels = "index:models"
	redisKeyRuns   = "index:runs:%s"
)

// RedisStore stores reports in Redis. Keys: report:model:runID (JSON),
// index:models (SET), index:runs:model (SET).
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a store using the given Redis client. Optional key
// prefix (e.g. "clipbench:").
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(format string, a ...interface{}) string {
	return r.prefix + fmt.Sprintf(format, a...)
}

// Store saves a report in Redis.
func (r *RedisStore) Store(ctx context.Context, report *core.Report) error {
	if report == nil || report.Model == "" || report.RunID == "" {
		return fmt.Errorf("redis store: report model and run id required")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("redis store encode: %w", err)
	}
	if err := r.client.Set(ctx, r.key(redisKeyReport, report.Model, report.RunID), data, 0).Err(); err != nil {
		return err
	}
	r.client.SAdd(ctx, r.key(redisKeyModels), report.Model)
	r.client.SAdd(ctx, r.key(redisKeyRuns, report.Model), report.RunID)
	return nil
}

// Get retrieves a report by model and run id.
func (r *RedisStore) Get(ctx context.Context, model, runID string) (*core.Report, error) {
	data, err := r.client.Get(ctx, r.key(redisKeyReport, model, runID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, core.ErrReportNotFound
		}
		return nil, err
	}
	var report core.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("redis store decode: %w", err)
	}
	return &report, nil
}

// Latest returns the model's most recent report by CreatedAt.
func (r *RedisStore) Latest(ctx context.Context, model string) (*core.Report, error) {
	runs, err := r.client.SMembers(ctx, r.key(redisKeyRuns, model)).Result()
	if err != nil {
		return nil, err
	}
	var latest *core.Report
	for _, runID := range runs {
		report, err := r.Get(ctx, model, runID)
		if err != nil {
			continue
		}
		if latest == nil || report.CreatedAt.After(latest.CreatedAt) {
			latest = report
		}
	}
	if latest == nil {
		return nil, core.ErrReportNotFound
	}
	return latest, nil
}

// List returns reports matching the filter (scans index), newest first.
func (r *RedisStore) List(ctx context.Context, filter Filter) ([]*core.Report, error) {
	models, err := r.client.SMembers(ctx, r.key(redisKeyModels)).Result()
	if err != nil {
		return nil, err
	}
	var all []*core.Report
	for _, model := range models {
		if len(filter.Models) > 0 && !contains(filter.Models, model) {
			continue
		}
		runs, _ := r.client.SMembers(ctx, r.key(redisKeyRuns, model)).Result()
		for _, runID := range runs {
			report, err := r.Get(ctx, model, runID)
			if err != nil {
				continue
			}
			all = append(all, report)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	offset := filter.Offset
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Delete removes a report from Redis.
func (r *RedisStore) Delete(ctx context.Context, model, runID string) error {
	k := r.key(redisKeyReport, model, runID)
	_, err := r.client.Get(ctx, k).Result()
	if err == redis.Nil {
		return core.ErrReportNotFound
	}
	if err != nil {
		return err
	}
	r.client.Del(ctx, k)
	r.client.SRem(ctx, r.key(redisKeyRuns, model), runID)
	runs, _ := r.client.SMembers(ctx, r.key(redisKeyRuns, model)).Result()
	if len(runs) == 0 {
		r.client.SRem(ctx, r.key(redisKeyModels), model)
	}
	return nil
}
