package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/larder/backend/internal/cache"
	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/testhelpers"
)

type item struct {
	Name string `json:"name"`
}

func TestFetchWithoutRedisAlwaysLoads(t *testing.T) {
	c := cache.New(nil, time.Minute, logger.Nop())
	var calls int32
	load := func(context.Context) ([]item, error) {
		atomic.AddInt32(&calls, 1)
		return []item{{Name: "salt"}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := cache.Fetch(context.Background(), c, "k", load)
		require.NoError(t, err)
		assert.Equal(t, "salt", got[0].Name)
	}
	assert.EqualValues(t, 3, calls)
	assert.NoError(t, c.Invalidate(context.Background(), []string{"k"}))
}

func TestFetchPropagatesLoadError(t *testing.T) {
	c := cache.New(nil, time.Minute, logger.Nop())
	_, err := cache.Fetch(context.Background(), c, "k", func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}

func TestFetchWithRedis(t *testing.T) {
	rdb := testhelpers.SetupRedis(t)
	c := cache.New(rdb, time.Minute, logger.Nop())
	ctx := context.Background()

	var calls int32
	load := func(context.Context) ([]item, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(100 * time.Millisecond)
		return []item{{Name: "pepper"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cache.Fetch(ctx, c, "ingredients:p", load)
			assert.NoError(t, err)
			assert.Equal(t, "pepper", got[0].Name)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	got, err := cache.Fetch(ctx, c, "ingredients:p", load)
	require.NoError(t, err)
	assert.Equal(t, "pepper", got[0].Name)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	require.NoError(t, c.Invalidate(ctx, nil, "ingredients:"))
	_, err = cache.Fetch(ctx, c, "ingredients:p", load)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestSharedLoadOutlivesCancelledCaller(t *testing.T) {
	rdb := testhelpers.SetupRedis(t)
	c := cache.New(rdb, time.Minute, logger.Nop())

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	var loadErr error
	load := func(ctx context.Context) ([]item, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		loadErr = ctx.Err()
		return []item{{Name: "thyme"}}, ctx.Err()
	}

	first, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	results := make([][]item, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = cache.Fetch(first, c, "tags:t", load)
	}()
	<-started
	cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = cache.Fetch(context.Background(), c, "tags:t", load)
	}()
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, loadErr)
	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, "thyme", results[i][0].Name)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	cached, err := cache.Fetch(context.Background(), c, "tags:t", load)
	require.NoError(t, err)
	assert.Equal(t, "thyme", cached[0].Name)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
