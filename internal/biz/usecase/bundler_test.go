package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
)

type flushRecord struct {
	bundle *domain.Bundle
	reason domain.FlushReason
}

type flushRecorder struct {
	mu      sync.Mutex
	flushed []flushRecord
	ch      chan flushRecord
}

func newFlushRecorder() *flushRecorder {
	return &flushRecorder{ch: make(chan flushRecord, 16)}
}

func (r *flushRecorder) handle(b *domain.Bundle, reason domain.FlushReason) {
	r.mu.Lock()
	r.flushed = append(r.flushed, flushRecord{bundle: b, reason: reason})
	r.mu.Unlock()
	r.ch <- flushRecord{bundle: b, reason: reason}
}

func (r *flushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flushed)
}

func (r *flushRecorder) wait(t *testing.T, timeout time.Duration) flushRecord {
	t.Helper()
	select {
	case rec := <-r.ch:
		return rec
	case <-time.After(timeout):
		t.Fatal("timed out waiting for flush")
		return flushRecord{}
	}
}

func testMessage(id, channel, user, text string) domain.InboundMessage {
	return domain.InboundMessage{ID: id, ChannelID: channel, UserID: user, Text: text}
}

func newTestBundler(cfg BundlerConfig, rec *flushRecorder) *Bundler {
	return NewBundler(cfg, rec.handle, zerolog.Nop(), nil)
}

func TestBundler_InactivityFlushJoinsMessages(t *testing.T) {
	rec := newFlushRecorder()
	b := newTestBundler(BundlerConfig{
		Inactivity:   60 * time.Millisecond,
		MaxWindow:    5 * time.Second,
		PollInterval: 5 * time.Millisecond,
	}, rec)
	defer b.Close()

	b.Add(testMessage("m1", "oc_1", "ou_1", "ヤマダです"))
	time.Sleep(20 * time.Millisecond)
	b.Add(testMessage("m2", "oc_1", "ou_1", "B0ABC12345"))
	time.Sleep(20 * time.Millisecond)
	b.Add(testMessage("m3", "oc_1", "ou_1", "5000円"))

	got := rec.wait(t, time.Second)
	assert.Equal(t, domain.FlushInactivity, got.reason)
	require.Len(t, got.bundle.Messages, 3)
	assert.Equal(t, "ヤマダです\nB0ABC12345\n5000円", got.bundle.JoinedText())
	assert.Equal(t, "m3", got.bundle.Last().ID)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "exactly one flush per bundle")
	assert.Empty(t, b.Active())
}

func TestBundler_MaxWindowCapsBundle(t *testing.T) {
	rec := newFlushRecorder()
	b := newTestBundler(BundlerConfig{
		Inactivity:   80 * time.Millisecond,
		MaxWindow:    150 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	}, rec)
	defer b.Close()

	start := time.Now()
	stop := time.After(400 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if rec.count() > 0 {
					return
				}
				b.Add(testMessage("m", "oc_1", "ou_1", "spam"))
			}
		}
	}()

	got := rec.wait(t, time.Second)
	<-done
	assert.Equal(t, domain.FlushMaxWindow, got.reason)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestBundler_KeysAreIndependent(t *testing.T) {
	rec := newFlushRecorder()
	b := newTestBundler(BundlerConfig{
		Inactivity:   40 * time.Millisecond,
		MaxWindow:    5 * time.Second,
		PollInterval: 5 * time.Millisecond,
	}, rec)
	defer b.Close()

	b.Add(testMessage("a1", "oc_1", "ou_1", "alpha"))
	b.Add(testMessage("b1", "oc_1", "ou_2", "beta"))
	b.Add(testMessage("c1", "oc_2", "ou_1", "gamma"))
	assert.Len(t, b.Active(), 3)

	seen := map[domain.BundleKey]string{}
	for i := 0; i < 3; i++ {
		got := rec.wait(t, time.Second)
		seen[got.bundle.Key] = got.bundle.JoinedText()
	}
	assert.Equal(t, "alpha", seen[domain.BundleKey{ChannelID: "oc_1", UserID: "ou_1"}])
	assert.Equal(t, "beta", seen[domain.BundleKey{ChannelID: "oc_1", UserID: "ou_2"}])
	assert.Equal(t, "gamma", seen[domain.BundleKey{ChannelID: "oc_2", UserID: "ou_1"}])
}

func TestBundler_FlushIsIdempotent(t *testing.T) {
	rec := newFlushRecorder()
	b := newTestBundler(BundlerConfig{
		Inactivity:   time.Hour,
		MaxWindow:    time.Hour,
		PollInterval: 5 * time.Millisecond,
	}, rec)
	defer b.Close()

	key := domain.BundleKey{ChannelID: "oc_1", UserID: "ou_1"}
	b.Add(testMessage("m1", "oc_1", "ou_1", "hello"))

	assert.True(t, b.Flush(key))
	assert.False(t, b.Flush(key))

	got := rec.wait(t, time.Second)
	assert.Equal(t, domain.FlushManual, got.reason)
	assert.Equal(t, 1, rec.count())
}

func TestBundler_NewMessageAfterFlushStartsFreshBundle(t *testing.T) {
	rec := newFlushRecorder()
	b := newTestBundler(BundlerConfig{
		Inactivity:   time.Hour,
		MaxWindow:    time.Hour,
		PollInterval: 5 * time.Millisecond,
	}, rec)
	defer b.Close()

	key := domain.BundleKey{ChannelID: "oc_1", UserID: "ou_1"}
	b.Add(testMessage("m1", "oc_1", "ou_1", "first"))
	b.Flush(key)
	b.Add(testMessage("m2", "oc_1", "ou_1", "second"))
	b.Flush(key)

	first := rec.wait(t, time.Second)
	second := rec.wait(t, time.Second)
	assert.Equal(t, "first", first.bundle.JoinedText())
	assert.Equal(t, "second", second.bundle.JoinedText())
}

func TestBundler_CloseFlushesPending(t *testing.T) {
	rec := newFlushRecorder()
	b := newTestBundler(BundlerConfig{
		Inactivity:   time.Hour,
		MaxWindow:    time.Hour,
		PollInterval: 5 * time.Millisecond,
	}, rec)

	b.Add(testMessage("m1", "oc_1", "ou_1", "one"))
	b.Add(testMessage("m2", "oc_2", "ou_1", "two"))
	b.Close()

	assert.Equal(t, 2, rec.count())
	for i := 0; i < 2; i++ {
		assert.Equal(t, domain.FlushShutdown, rec.wait(t, time.Second).reason)
	}
	assert.Empty(t, b.Active())
}

func TestBundler_ActiveSnapshot(t *testing.T) {
	rec := newFlushRecorder()
	b := newTestBundler(BundlerConfig{
		Inactivity:   time.Hour,
		MaxWindow:    time.Hour,
		PollInterval: 5 * time.Millisecond,
	}, rec)
	defer b.Close()

	b.Add(testMessage("m1", "oc_1", "ou_1", "one"))
	b.Add(testMessage("m2", "oc_1", "ou_1", "two"))

	active := b.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "oc_1", active[0].ChannelID)
	assert.Equal(t, 2, active[0].MessageCount)
}
