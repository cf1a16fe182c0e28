package battle_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/memechain/internal/platform/battle"
	"github.com/kislikjeka/memechain/internal/platform/chain"
	"github.com/kislikjeka/memechain/testutil/ledgerfake"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	failing bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return false, errors.New("connection refused")
	}
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *memoryCache) Set(ctx context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("connection refused")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func TestCachedReader_ListBattlesServedFromCache(t *testing.T) {
	l := ledgerfake.New()
	seedBattles(l, 2)
	cache := newMemoryCache()
	r := battle.NewCachedReader(battle.NewReader(l, testGateway, testLogger()), cache, testLogger())
	ctx := context.Background()

	first, err := r.ListBattles(ctx)
	require.NoError(t, err)
	second, err := r.ListBattles(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, l.Multicalls())
	require.Len(t, second, len(first))
	assert.Equal(t, first[1].ID, second[1].ID)
	assert.Equal(t, first[1].Phase, second[1].Phase)
	assert.Equal(t, first[1].PrizePool.String(), second[1].PrizePool.String())
}

func TestCachedReader_InvalidateForcesFreshRead(t *testing.T) {
	l := ledgerfake.New()
	seedBattles(l, 1)
	l.Returns(chain.MemeRegistry, "getMeme", map[string]any{"id": big.NewInt(1), "ipfsHash": "ipfs://bafy"})
	cache := newMemoryCache()
	r := battle.NewCachedReader(battle.NewReader(l, testGateway, testLogger()), cache, testLogger())
	ctx := context.Background()

	_, err := r.ListBattles(ctx)
	require.NoError(t, err)
	_, err = r.GetBattle(ctx, 1)
	require.NoError(t, err)
	_, err = r.ListMemes(ctx, 1)
	require.NoError(t, err)

	assert.True(t, cache.has("battles"))
	assert.True(t, cache.has("battle:1"))
	assert.True(t, cache.has("battle:1:memes"))

	require.NoError(t, r.Invalidate(ctx, 1))

	assert.False(t, cache.has("battles"))
	assert.False(t, cache.has("battle:1"))
	assert.False(t, cache.has("battle:1:memes"))

	before := l.Multicalls()
	_, err = r.ListBattles(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, l.Multicalls())
}

func TestCachedReader_AbsentBattleNotCached(t *testing.T) {
	l := ledgerfake.New()
	seedBattles(l, 2, 2)
	cache := newMemoryCache()
	r := battle.NewCachedReader(battle.NewReader(l, testGateway, testLogger()), cache, testLogger())

	d, err := r.GetBattle(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.False(t, cache.has("battle:2"))
}

func TestCachedReader_CacheFailureFallsThrough(t *testing.T) {
	l := ledgerfake.New()
	seedBattles(l, 3)
	cache := newMemoryCache()
	cache.failing = true
	r := battle.NewCachedReader(battle.NewReader(l, testGateway, testLogger()), cache, testLogger())

	battles, err := r.ListBattles(context.Background())
	require.NoError(t, err)
	assert.Len(t, battles, 3)
}
