package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/bizlens/internal/coordinator"
	"github.com/sells-group/bizlens/internal/model"
	"github.com/sells-group/bizlens/internal/resilience"
)

func TestObservers(t *testing.T) {
	skips := testutil.ToFloat64(FetchesSkipped.WithLabelValues("trends", string(coordinator.SkipInFlight)))
	ObserveSkip(model.OpTrends, coordinator.SkipInFlight)
	assert.Equal(t, skips+1, testutil.ToFloat64(FetchesSkipped.WithLabelValues("trends", string(coordinator.SkipInFlight))))

	shown := testutil.ToFloat64(Notifications.WithLabelValues("true"))
	hidden := testutil.ToFloat64(Notifications.WithLabelValues("false"))
	ObserveNotification("success-cafe-doral", true)
	ObserveNotification("success-cafe-doral", false)
	assert.Equal(t, shown+1, testutil.ToFloat64(Notifications.WithLabelValues("true")))
	assert.Equal(t, hidden+1, testutil.ToFloat64(Notifications.WithLabelValues("false")))

	ObserveBreaker("yelp", resilience.Closed, resilience.Open)
	assert.Equal(t, 1.0, testutil.ToFloat64(BreakerState.WithLabelValues("yelp")))
	ObserveBreaker("yelp", resilience.Open, resilience.HalfOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(BreakerState.WithLabelValues("yelp")))
}
