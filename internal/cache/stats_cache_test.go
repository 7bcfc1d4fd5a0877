package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cxkit/inqueue-voice-service/internal/taskrouter"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingProvider struct {
	stats *taskrouter.WaitStats
	calls int
}

func (p *countingProvider) WorkflowStats(ctx context.Context, workflowSid string, windowMinutes int) (*taskrouter.WaitStats, error) {
	p.calls++
	return p.stats, nil
}

func newTestCache(t *testing.T, next *countingProvider) (*WorkflowStatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWorkflowStatsCache(next, client, time.Minute, zap.NewNop()), mr
}

func TestWorkflowStatsCacheMissThenHit(t *testing.T) {
	next := &countingProvider{stats: &taskrouter.WaitStats{AvgSeconds: 150, MaxSeconds: 300}}
	c, mr := newTestCache(t, next)
	ctx := context.Background()

	stats, err := c.WorkflowStats(ctx, "WW111", 5)
	require.NoError(t, err)
	assert.Equal(t, float64(150), stats.AvgSeconds)
	assert.Equal(t, 1, next.calls)

	// Second lookup is served from redis; the provider is not touched again.
	stats, err = c.WorkflowStats(ctx, "WW111", 5)
	require.NoError(t, err)
	assert.Equal(t, float64(150), stats.AvgSeconds)
	assert.Equal(t, float64(300), stats.MaxSeconds)
	assert.Equal(t, 1, next.calls)

	ttl := mr.TTL("inqueue:ewt:WW111:5")
	assert.Equal(t, time.Minute, ttl)
}

func TestWorkflowStatsCacheKeysIncludeWindow(t *testing.T) {
	next := &countingProvider{stats: &taskrouter.WaitStats{AvgSeconds: 60}}
	c, _ := newTestCache(t, next)
	ctx := context.Background()

	_, err := c.WorkflowStats(ctx, "WW111", 5)
	require.NoError(t, err)
	_, err = c.WorkflowStats(ctx, "WW111", 15)
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
}

func TestWorkflowStatsCacheExpiry(t *testing.T) {
	next := &countingProvider{stats: &taskrouter.WaitStats{AvgSeconds: 60}}
	c, mr := newTestCache(t, next)
	ctx := context.Background()

	_, err := c.WorkflowStats(ctx, "WW111", 5)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, err = c.WorkflowStats(ctx, "WW111", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestWorkflowStatsCacheUnreadableEntryRefetches(t *testing.T) {
	next := &countingProvider{stats: &taskrouter.WaitStats{AvgSeconds: 60}}
	c, mr := newTestCache(t, next)
	ctx := context.Background()

	require.NoError(t, mr.Set("inqueue:ewt:WW111:5", "not json"))

	stats, err := c.WorkflowStats(ctx, "WW111", 5)
	require.NoError(t, err)
	assert.Equal(t, float64(60), stats.AvgSeconds)
	assert.Equal(t, 1, next.calls)
}
