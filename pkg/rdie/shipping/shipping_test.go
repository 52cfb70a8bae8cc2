package shipping

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

func optionsResponse(selected int) drivertest.EvalResponse {
	return drivertest.EvalResponse{Value: []map[string]interface{}{
		{"index": 0, "label": "Standard - Rs. 99", "price": 99.0, "selected": selected == 0},
		{"index": 1, "label": "Express - Rs. 49", "price": 49.0, "selected": selected == 1},
		{"index": 2, "label": "Free Pickup", "price": 0.0, "selected": selected == 2},
	}}
}

func TestSelectCheapestPicksLowestPrice(t *testing.T) {
	main := &drivertest.FakeFrame{FrameID: "main"}
	d := &drivertest.FakeDriver{Main: main}
	d.Main.Responses = []drivertest.EvalResponse{
		optionsResponse(0),
		{Value: map[string]interface{}{"success": true, "method": "radio-input"}},
		optionsResponse(2),
	}
	s := New(d)
	outcome, err := s.SelectCheapest(3)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.True(t, outcome.Verified)
	assert.Equal(t, "radio-input", outcome.Method)
	assert.Equal(t, "Free Pickup", outcome.MatchedText)
}

func TestSelectCheapestAlreadySelectedSkipsClick(t *testing.T) {
	main := &drivertest.FakeFrame{FrameID: "main"}
	d := &drivertest.FakeDriver{Main: main}
	d.Main.Responses = []drivertest.EvalResponse{
		optionsResponse(2),
	}
	s := New(d)
	outcome, err := s.SelectCheapest(3)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "already-selected", outcome.Method)
}

func TestSelectCheapestRetriesWhenSelectionDoesNotStick(t *testing.T) {
	main := &drivertest.FakeFrame{FrameID: "main"}
	d := &drivertest.FakeDriver{Main: main}
	d.Main.Responses = []drivertest.EvalResponse{
		optionsResponse(0),
		{Value: map[string]interface{}{"success": true, "method": "radio-input"}},
		optionsResponse(0), // click didn't stick
		optionsResponse(0),
		{Value: map[string]interface{}{"success": true, "method": "radio-input"}},
		optionsResponse(2), // second attempt verifies
	}
	s := New(d)
	outcome, err := s.SelectCheapest(2)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
}

func TestSelectCheapestGivesUpAfterMaxRetries(t *testing.T) {
	main := &drivertest.FakeFrame{FrameID: "main"}
	d := &drivertest.FakeDriver{Main: main}
	d.Main.Responses = []drivertest.EvalResponse{
		{Value: []map[string]interface{}{}},
		{Value: []map[string]interface{}{}},
	}
	s := New(d)
	outcome, err := s.SelectCheapest(2)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, "select_cheapest_shipping", outcome.Action)
}
