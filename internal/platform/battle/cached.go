package battle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const keyBattleList = "battles"

func keyBattle(id int64) string { return fmt.Sprintf("battle:%d", id) }

func keyMemes(id int64) string { return fmt.Sprintf("battle:%d:memes", id) }

// CachedReader serves listing views through a cache. Live reads used by write flows
// (phase, stake, balance, allowance, owner) pass straight through to the ledger.
// Cache failures fall through to the ledger as well.
//
// Every Invalidate bumps a generation. A view read from the ledger is only cached when no
// invalidation happened since the read began, so a slow read never restores pre-write data.
type CachedReader struct {
	*Reader
	cache  ViewCache
	logger *slog.Logger

	mu  sync.Mutex
	gen uint64
}

// NewCachedReader wraps r with cache
func NewCachedReader(r *Reader, cache ViewCache, logger *slog.Logger) *CachedReader {
	return &CachedReader{
		Reader: r,
		cache:  cache,
		logger: logger.With("component", "battle_cache"),
	}
}

// ListBattles returns the cached listing or reads and caches it
func (c *CachedReader) ListBattles(ctx context.Context) ([]Summary, error) {
	var cached []Summary
	if c.get(ctx, keyBattleList, &cached) {
		return cached, nil
	}

	since := c.generation()
	battles, err := c.Reader.ListBattles(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, since, keyBattleList, battles)
	return battles, nil
}

// GetBattle returns the cached detail or reads and caches it. Absent battles are not cached.
func (c *CachedReader) GetBattle(ctx context.Context, id int64) (*Detail, error) {
	var cached Detail
	if c.get(ctx, keyBattle(id), &cached) {
		return &cached, nil
	}

	since := c.generation()
	detail, err := c.Reader.GetBattle(ctx, id)
	if err != nil || detail == nil {
		return detail, err
	}
	c.set(ctx, since, keyBattle(id), detail)
	return detail, nil
}

// ListMemes returns the cached memes of a battle or reads and caches them
func (c *CachedReader) ListMemes(ctx context.Context, battleID int64) ([]Meme, error) {
	var cached []Meme
	if c.get(ctx, keyMemes(battleID), &cached) {
		return cached, nil
	}

	since := c.generation()
	memes, err := c.Reader.ListMemes(ctx, battleID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, since, keyMemes(battleID), memes)
	return memes, nil
}

// Invalidate drops every cached view a confirmed write to battleID may have changed
func (c *CachedReader) Invalidate(ctx context.Context, battleID int64) error {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()

	if err := c.cache.Delete(ctx, keyBattleList, keyBattle(battleID), keyMemes(battleID)); err != nil {
		return fmt.Errorf("failed to invalidate battle %d views: %w", battleID, err)
	}
	c.logger.Debug("views invalidated", "battle_id", battleID)
	return nil
}

func (c *CachedReader) get(ctx context.Context, key string, dst any) bool {
	found, err := c.cache.Get(ctx, key, dst)
	if err != nil {
		c.logger.Warn("cache read failed, using ledger", "key", key, "error", err)
		return false
	}
	return found
}

func (c *CachedReader) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// set caches value under key unless an invalidation happened after generation since.
// The lock is held across the write so a concurrent Invalidate deletes after it.
func (c *CachedReader) set(ctx context.Context, since uint64, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != since {
		c.logger.Debug("skipping stale view", "key", key)
		return
	}
	if err := c.cache.Set(ctx, key, value); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
