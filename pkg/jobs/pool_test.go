package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchOf(n int) []Job {
	out := make([]Job, n)
	for i := range out {
		out[i] = Job{ID: fmt.Sprintf("doc-%d", i+1), Type: "extract", Payload: i + 1}
	}
	return out
}

func collect(ch <-chan Result) map[string]Result {
	out := make(map[string]Result)
	for res := range ch {
		out[res.Job.ID] = res
	}
	return out
}

func TestPoolIsolatesFailuresAndPanics(t *testing.T) {
	pool := NewPool("extract", func(ctx context.Context, job Job) (interface{}, error) {
		switch job.Payload.(int) {
		case 3:
			return nil, errors.New("broken document")
		case 4:
			panic("bad cell")
		}
		return job.Payload.(int) * 10, nil
	}, PoolConfig{Workers: 2})

	results := collect(pool.Run(context.Background(), batchOf(5)))
	require.Len(t, results, 5)

	assert.EqualError(t, results["doc-3"].Err, "broken document")
	var panicErr *PanicError
	require.ErrorAs(t, results["doc-4"].Err, &panicErr)
	assert.Equal(t, "bad cell", panicErr.Value)
	assert.Nil(t, results["doc-4"].Value)

	for _, id := range []string{"doc-1", "doc-2", "doc-5"} {
		assert.NoError(t, results[id].Err)
	}
	assert.Equal(t, 50, results["doc-5"].Value)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	pool := NewPool("bounded", func(ctx context.Context, job Job) (interface{}, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil, nil
	}, PoolConfig{Workers: 3})

	results := collect(pool.Run(context.Background(), batchOf(12)))
	assert.Len(t, results, 12)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestPoolEmptyBatchClosesChannel(t *testing.T) {
	pool := NewPool("empty", func(ctx context.Context, job Job) (interface{}, error) { return nil, nil }, PoolConfig{})
	_, open := <-pool.Run(context.Background(), nil)
	assert.False(t, open)
	assert.Equal(t, 1, pool.Workers())
}
