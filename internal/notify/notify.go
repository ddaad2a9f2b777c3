// Package notify suppresses duplicate user-facing notifications for the
// same logical event within a cool-down window.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/bizlens/internal/model"
)

// DefaultCooldown is how long a key suppresses repeats.
const DefaultCooldown = 5 * time.Second

// Throttle delivers a notification only if its key was not shown within the
// cool-down.
type Throttle struct {
	recorder Recorder
	sink     Sink
	cooldown time.Duration
	now      func() time.Time
	onShow   func(key string, shown bool)
}

// Option configures a Throttle.
type Option func(*Throttle)

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(t *Throttle) {
		if d > 0 {
			t.cooldown = d
		}
	}
}

// WithNow sets the clock used for ShownAt.
func WithNow(now func() time.Time) Option {
	return func(t *Throttle) {
		t.now = now
	}
}

// WithObserver registers a callback invoked for every Notify decision.
func WithObserver(fn func(key string, shown bool)) Option {
	return func(t *Throttle) {
		t.onShow = fn
	}
}

// New creates a Throttle over the given recorder and sink.
func New(recorder Recorder, sink Sink, opts ...Option) *Throttle {
	t := &Throttle{
		recorder: recorder,
		sink:     sink,
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Notify shows n under key unless key is cooling down. It reports whether n
// was delivered. A recorder failure lets the notification through.
func (t *Throttle) Notify(ctx context.Context, key string, n model.Notification) bool {
	fresh, err := t.recorder.Mark(ctx, key, t.cooldown)
	if err != nil {
		zap.L().Warn("notify: recorder failed, showing anyway", zap.String("key", key), zap.Error(err))
		fresh = true
	}
	if t.onShow != nil {
		t.onShow(key, fresh)
	}
	if !fresh {
		zap.L().Debug("notify: suppressed duplicate", zap.String("key", key))
		return false
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Variant == "" {
		n.Variant = model.VariantDefault
	}
	n.Key = key
	n.ShownAt = t.now()
	t.sink.Show(ctx, n)
	return true
}

// KeySuccess identifies a successful fetch. Competitor fetches use the bare
// "success-{businessType}-{district}" form.
func KeySuccess(op model.Operation, businessType, district string) string {
	if op == model.OpCompetitors {
		return fmt.Sprintf("success-%s-%s", businessType, district)
	}
	return fmt.Sprintf("success-%s-%s-%s", op, businessType, district)
}

// KeyFallback identifies a switch to synthetic data for op.
func KeyFallback(op model.Operation) string {
	return "fallback-" + string(op)
}

// KeyError identifies an error about subject, e.g. "error-data".
func KeyError(subject string) string {
	return "error-" + subject
}

// KeyTimeout identifies a summarizer timeout.
const KeyTimeout = "error-timeout"
