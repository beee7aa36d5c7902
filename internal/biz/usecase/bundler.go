package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/metrics"
)

// BundlerConfig contains bundling timings
type BundlerConfig struct {
	Inactivity   time.Duration // Flush after this long without a new message
	MaxWindow    time.Duration // Flush this long after the first message regardless
	PollInterval time.Duration // How often a bundle timer checks its deadlines
}

// DefaultBundlerConfig returns default bundler configuration
func DefaultBundlerConfig() BundlerConfig {
	return BundlerConfig{
		Inactivity:   20 * time.Second,
		MaxWindow:    120 * time.Second,
		PollInterval: time.Second,
	}
}

// FlushFunc receives a bundle that left the bundler. It runs on the
// goroutine that flushed the bundle.
type FlushFunc func(b *domain.Bundle, reason domain.FlushReason)

// bundleEntry is a live bundle and the handle of its timer
type bundleEntry struct {
	bundle *domain.Bundle
	gen    uint64
	cancel context.CancelFunc
}

// Bundler groups rapid-fire messages of one user in one channel.
// Every key has at most one live bundle and one timer goroutine; a newer
// message replaces the timer and bumps the generation so a stale timer
// that already woke up cannot flush.
type Bundler struct {
	mu      sync.Mutex
	bundles map[domain.BundleKey]*bundleEntry
	timers  sync.WaitGroup

	config  BundlerConfig
	onFlush FlushFunc
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewBundler creates a new bundler
func NewBundler(config BundlerConfig, onFlush FlushFunc, log zerolog.Logger, m *metrics.Metrics) *Bundler {
	return &Bundler{
		bundles: make(map[domain.BundleKey]*bundleEntry),
		config:  config,
		onFlush: onFlush,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Add appends a message to its bundle, creating the bundle when absent,
// and restarts the bundle timer.
func (b *Bundler) Add(msg domain.InboundMessage) {
	key := msg.Key()
	now := b.now()

	b.mu.Lock()
	e, ok := b.bundles[key]
	if !ok {
		e = &bundleEntry{bundle: &domain.Bundle{Key: key, CreatedAt: now, LastAt: now}}
		b.bundles[key] = e
	}
	e.bundle.Append(msg, now)
	e.gen++
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	gen := e.gen
	active := len(b.bundles)
	b.timers.Add(1)
	b.mu.Unlock()

	b.metrics.SetActiveBundles(active)
	if !ok {
		b.log.Debug().Str("chat_id", key.ChannelID).Str("user_id", key.UserID).Msg("bundle opened")
	}

	go b.watch(ctx, key, gen)
}

// watch polls the deadlines of one bundle generation
func (b *Bundler) watch(ctx context.Context, key domain.BundleKey, gen uint64) {
	defer b.timers.Done()

	ticker := time.NewTicker(b.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		b.mu.Lock()
		e, ok := b.bundles[key]
		if !ok || e.gen != gen {
			b.mu.Unlock()
			return
		}
		reason, due := e.bundle.DueReason(b.now(), b.config.Inactivity, b.config.MaxWindow)
		if !due {
			b.mu.Unlock()
			continue
		}
		b.removeLocked(key, e)
		b.mu.Unlock()

		b.deliver(e.bundle, reason)
		return
	}
}

// removeLocked drops the entry and stops its timer; b.mu must be held
func (b *Bundler) removeLocked(key domain.BundleKey, e *bundleEntry) {
	delete(b.bundles, key)
	if e.cancel != nil {
		e.cancel()
	}
}

func (b *Bundler) deliver(bundle *domain.Bundle, reason domain.FlushReason) {
	b.mu.Lock()
	active := len(b.bundles)
	b.mu.Unlock()

	b.metrics.SetActiveBundles(active)
	b.metrics.Flush(string(reason), len(bundle.Messages))
	b.log.Info().
		Str("chat_id", bundle.Key.ChannelID).
		Str("user_id", bundle.Key.UserID).
		Int("messages", len(bundle.Messages)).
		Str("reason", string(reason)).
		Msg("bundle flushed")

	if len(bundle.Messages) == 0 || b.onFlush == nil {
		return
	}
	b.onFlush(bundle, reason)
}

// Flush flushes the bundle of key now. It reports false when there was no
// live bundle, so calling it twice flushes at most once.
func (b *Bundler) Flush(key domain.BundleKey) bool {
	b.mu.Lock()
	e, ok := b.bundles[key]
	if ok {
		b.removeLocked(key, e)
	}
	b.mu.Unlock()

	if !ok {
		return false
	}
	b.deliver(e.bundle, domain.FlushManual)
	return true
}

// FlushAll flushes every live bundle with the given reason and returns
// how many were flushed.
func (b *Bundler) FlushAll(reason domain.FlushReason) int {
	b.mu.Lock()
	entries := make([]*bundleEntry, 0, len(b.bundles))
	for key, e := range b.bundles {
		b.removeLocked(key, e)
		entries = append(entries, e)
	}
	b.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].bundle.CreatedAt.Before(entries[j].bundle.CreatedAt)
	})
	for _, e := range entries {
		b.deliver(e.bundle, reason)
	}
	return len(entries)
}

// Active returns a snapshot of the live bundles, oldest first
func (b *Bundler) Active() []domain.BundleSnapshot {
	b.mu.Lock()
	out := make([]domain.BundleSnapshot, 0, len(b.bundles))
	for key, e := range b.bundles {
		out = append(out, domain.BundleSnapshot{
			ChannelID:    key.ChannelID,
			UserID:       key.UserID,
			MessageCount: len(e.bundle.Messages),
			CreatedAt:    e.bundle.CreatedAt,
			LastAt:       e.bundle.LastAt,
		})
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close flushes what is left with the shutdown reason and waits for every
// timer goroutine to exit.
func (b *Bundler) Close() {
	n := b.FlushAll(domain.FlushShutdown)
	if n > 0 {
		b.log.Info().Int("bundles", n).Msg("flushed pending bundles on shutdown")
	}
	b.timers.Wait()
}
