package perfmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPerformanceMonitor(t *testing.T) {
	pm := NewPerformanceMonitor()

	assert.NotNil(t, pm)
	assert.True(t, pm.startTime.IsZero())
	assert.True(t, pm.endTime.IsZero())
	assert.Zero(t, pm.Elapsed())
}

func TestStartStop(t *testing.T) {
	t.Run("stop without start records nothing", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.Stop()
		assert.True(t, pm.endTime.IsZero())
	})

	t.Run("start without stop reports zero", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.Start()
		assert.Equal(t, 0.0, pm.ElapsedMilliseconds())
	})

	t.Run("measures the gap", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.Start()
		time.Sleep(30 * time.Millisecond)
		pm.Stop()

		assert.GreaterOrEqual(t, pm.Elapsed(), 30*time.Millisecond)
		assert.GreaterOrEqual(t, pm.ElapsedMilliseconds(), 30.0)
	})

	t.Run("later stop extends the measurement", func(t *testing.T) {
		pm := NewPerformanceMonitor()
		pm.Start()
		pm.Stop()
		first := pm.Elapsed()

		time.Sleep(10 * time.Millisecond)
		pm.Stop()
		assert.Greater(t, pm.Elapsed(), first)
	})
}

func TestReset(t *testing.T) {
	pm := NewPerformanceMonitor()
	pm.Start()
	pm.Stop()
	pm.Reset()

	assert.True(t, pm.startTime.IsZero())
	assert.True(t, pm.endTime.IsZero())

	pm.Stop()
	assert.Zero(t, pm.Elapsed(), "stop after reset must not record an end")
}
