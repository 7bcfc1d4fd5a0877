// Package cache holds the redis-backed workflow statistics cache. Every held
// caller loops through the queue menu every few seconds; without a cache each
// loop would fetch the same cumulative statistics from the provider.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cxkit/inqueue-voice-service/internal/flow"
	"github.com/cxkit/inqueue-voice-service/internal/taskrouter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const statsKeyPrefix = "inqueue:ewt:"

// DefaultStatsTTL bounds how stale a quoted wait estimate can be.
const DefaultStatsTTL = time.Minute

// WorkflowStatsCache decorates a StatsProvider with a redis cache keyed by
// workflow sid. Cache failures degrade to direct fetches; the cache is never
// load-bearing.
type WorkflowStatsCache struct {
	next   flow.StatsProvider
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewWorkflowStatsCache wraps next with a redis cache. A zero ttl uses
// DefaultStatsTTL.
func NewWorkflowStatsCache(next flow.StatsProvider, client *redis.Client, ttl time.Duration, log *zap.Logger) *WorkflowStatsCache {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	return &WorkflowStatsCache{next: next, client: client, ttl: ttl, log: log}
}

var _ flow.StatsProvider = (*WorkflowStatsCache)(nil)

// WorkflowStats returns cached wait statistics for the workflow, fetching and
// storing them on a miss.
func (c *WorkflowStatsCache) WorkflowStats(ctx context.Context, workflowSid string, windowMinutes int) (*taskrouter.WaitStats, error) {
	key := fmt.Sprintf("%s%s:%d", statsKeyPrefix, workflowSid, windowMinutes)

	if val, err := c.client.Get(ctx, key).Result(); err == nil {
		var stats taskrouter.WaitStats
		if err := json.Unmarshal([]byte(val), &stats); err == nil {
			return &stats, nil
		}
		c.log.Warn("stats cache: unreadable entry, refetching", zap.String("key", key))
	} else if err != redis.Nil {
		c.log.Warn("stats cache: read failed", zap.String("key", key), zap.Error(err))
	}

	stats, err := c.next.WorkflowStats(ctx, workflowSid, windowMinutes)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("stats cache: write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return stats, nil
}
