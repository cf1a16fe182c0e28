package battle

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// live reports whether a battle's views still change without a write from this client
func live(p Phase) bool {
	return p == PhaseSubmissionOpen || p == PhaseVotingOpen
}

// Refresh re-reads the battle listing and the memes of live battles from the ledger and
// overwrites their cached views. Views invalidated while the refresh was reading are left
// alone. It returns how many meme views were refreshed.
func (c *CachedReader) Refresh(ctx context.Context) (int, error) {
	since := c.generation()
	battles, err := c.Reader.ListBattles(ctx)
	if err != nil {
		return 0, err
	}
	c.set(ctx, since, keyBattleList, battles)

	refreshed := 0
	for _, b := range battles {
		if !live(b.Phase) {
			continue
		}
		since := c.generation()
		memes, err := c.Reader.ListMemes(ctx, b.ID)
		if err != nil {
			c.logger.Warn("meme refresh failed", "battle_id", b.ID, "error", err)
			continue
		}
		c.set(ctx, since, keyMemes(b.ID), memes)
		refreshed++
	}
	return refreshed, nil
}

// Refresher keeps cached views warm so votes and submissions by other wallets show up
// without waiting for the cache TTL
type Refresher struct {
	reader   *CachedReader
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefresher creates a refresher. A non-positive interval disables it.
func NewRefresher(reader *CachedReader, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		reader:   reader,
		interval: interval,
		logger:   logger.With("service", "view_refresher"),
	}
}

// Run refreshes once immediately and then every interval until ctx ends or Stop is called
func (r *Refresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("view refresher is disabled")
		return
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(doneCh)
	}()

	r.logger.Info("starting view refresher", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("view refresher stopping (context done)")
			return
		case <-stopCh:
			r.logger.Info("view refresher stopping (stop signal)")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// Stop ends a running refresher and waits for it to return
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.running = false
	r.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (r *Refresher) refresh(ctx context.Context) {
	start := time.Now()
	n, err := r.reader.Refresh(ctx)
	if err != nil {
		r.logger.Error("view refresh failed", "error", err)
		return
	}
	r.logger.Debug("views refreshed", "live_battles", n, "duration", time.Since(start))
}
