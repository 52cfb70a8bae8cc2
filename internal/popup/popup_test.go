package popup

import (
	"testing"
	"time"

	"github.com/bravebird/rdie/pkg/rdie/drivertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	sleep = func(time.Duration) {}
}

func TestSweepReportsDismissedCount(t *testing.T) {
	main := &drivertest.FakeFrame{
		FrameID:   "main",
		Responses: []drivertest.EvalResponse{{Value: map[string]interface{}{"dismissed": 3, "captchaDetected": false}}},
	}
	d := New(&drivertest.FakeDriver{Main: main}, nil)
	n, err := d.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, main.Calls, 1)
}

func TestSweepClicksOutsideOnCaptcha(t *testing.T) {
	main := &drivertest.FakeFrame{
		FrameID:   "main",
		Responses: []drivertest.EvalResponse{{Value: map[string]interface{}{"dismissed": 0, "captchaDetected": true}}},
	}
	d := New(&drivertest.FakeDriver{Main: main}, nil)
	n, err := d.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestComprehensiveRunsThreePassesWhenFirstDismisses(t *testing.T) {
	main := &drivertest.FakeFrame{
		FrameID: "main",
		Responses: []drivertest.EvalResponse{
			{Value: map[string]interface{}{"dismissed": 1, "captchaDetected": false}},
			{Value: map[string]interface{}{"dismissed": 0, "captchaDetected": false}},
			{Value: map[string]interface{}{"dismissed": 0, "captchaDetected": false}},
		},
	}
	d := New(&drivertest.FakeDriver{Main: main}, nil)
	dismissed, err := d.Comprehensive()
	require.NoError(t, err)
	assert.True(t, dismissed)
	assert.Len(t, main.Calls, 3)
}

func TestComprehensiveSkipsThirdPassWhenNothingDismissed(t *testing.T) {
	main := &drivertest.FakeFrame{
		FrameID: "main",
		Responses: []drivertest.EvalResponse{
			{Value: map[string]interface{}{"dismissed": 0, "captchaDetected": false}},
			{Value: map[string]interface{}{"dismissed": 0, "captchaDetected": false}},
		},
	}
	d := New(&drivertest.FakeDriver{Main: main}, nil)
	dismissed, err := d.Comprehensive()
	require.NoError(t, err)
	assert.False(t, dismissed)
	assert.Len(t, main.Calls, 2)
}

func TestSweepPropagatesEvaluateError(t *testing.T) {
	main := &drivertest.FakeFrame{FrameID: "main"}
	d := New(&drivertest.FakeDriver{Main: main}, nil)
	_, err := d.Sweep()
	assert.Error(t, err)
}
