package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/bizlens/internal/model"
)

// Sink displays a notification. Show is fire-and-forget.
type Sink interface {
	Show(ctx context.Context, n model.Notification)
}

// LogSink writes notifications to the global logger.
type LogSink struct{}

// Show implements Sink.
func (LogSink) Show(_ context.Context, n model.Notification) {
	log := zap.L().With(
		zap.String("key", n.Key),
		zap.String("variant", string(n.Variant)),
		zap.String("title", n.Title),
	)
	if n.Variant == model.VariantDestructive {
		log.Warn("notify: "+n.Description, zap.String("notification_id", n.ID))
		return
	}
	log.Info("notify: "+n.Description, zap.String("notification_id", n.ID))
}

// Feed keeps the most recent notifications in a bounded ring.
type Feed struct {
	mu    sync.RWMutex
	items []model.Notification
	next  int
	full  bool
}

// NewFeed creates a feed holding at most size notifications.
func NewFeed(size int) *Feed {
	if size < 1 {
		size = 1
	}
	return &Feed{items: make([]model.Notification, size)}
}

// Show implements Sink.
func (f *Feed) Show(_ context.Context, n model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[f.next] = n
	f.next = (f.next + 1) % len(f.items)
	if f.next == 0 {
		f.full = true
	}
}

// Recent returns the stored notifications, newest first.
func (f *Feed) Recent() []model.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := f.next
	if f.full {
		n = len(f.items)
	}
	out := make([]model.Notification, 0, n)
	for i := 1; i <= n; i++ {
		idx := (f.next - i + len(f.items)) % len(f.items)
		out = append(out, f.items[idx])
	}
	return out
}

// MultiSink fans a notification out to every sink in order.
type MultiSink []Sink

// Show implements Sink.
func (m MultiSink) Show(ctx context.Context, n model.Notification) {
	for _, s := range m {
		s.Show(ctx, n)
	}
}
