package proxy

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRoundRobin(t *testing.T) {
	pool, err := NewPool([]string{"http://p1:8080", " ", "http://user:pw@p2:8080"}, []string{"ua-a", "ua-b", "ua-c"})
	require.NoError(t, err)
	require.Equal(t, 2, pool.Size())

	first := pool.Next()
	second := pool.Next()
	third := pool.Next()

	assert.Equal(t, "p1:8080", first.ProxyURL.Host)
	assert.Equal(t, "p2:8080", second.ProxyURL.Host)
	assert.Equal(t, "p1:8080", third.ProxyURL.Host)
	assert.Equal(t, []string{"ua-a", "ua-b", "ua-c"}, []string{first.UserAgent, second.UserAgent, third.UserAgent})
	assert.Equal(t, "http://user:xxxxx@p2:8080", second.String())
}

func TestPoolEmptyIsDirect(t *testing.T) {
	pool, err := NewPool(nil, nil)
	require.NoError(t, err)

	id := pool.Next()
	assert.True(t, id.Direct())
	assert.Empty(t, id.UserAgent)
	assert.Equal(t, "direct", id.String())
}

func TestPoolRejectsBadURLs(t *testing.T) {
	_, err := NewPool([]string{"ftp://p1"}, nil)
	assert.Error(t, err)

	_, err = NewPool([]string{"http://"}, nil)
	assert.Error(t, err)
}

func TestPoolConcurrentNext(t *testing.T) {
	pool, err := NewPool([]string{"http://p1:1", "http://p2:2"}, nil)
	require.NoError(t, err)

	var (
		mu     sync.Mutex
		counts = map[string]int{}
		wg     sync.WaitGroup
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			host := pool.Next().ProxyURL.Host
			mu.Lock()
			counts[host]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counts["p1:1"])
	assert.Equal(t, 50, counts["p2:2"])
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserAgent: "ua"})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "ua", id.UserAgent)
}
