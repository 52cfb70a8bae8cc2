package address

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

func sampleTarget() Target {
	return Target{
		FirstName:    "Priya",
		LastName:     "Sharma",
		AddressLine1: "12 MG Road",
		AddressLine2: "Near City Mall",
		City:         "Bengaluru",
		PostalCode:   "560001",
		Phone:        "9876543210",
	}
}

func TestBestMatchPrefersExactPinCode(t *testing.T) {
	saved := []Saved{
		{Index: 0, Text: "12 MG Road Near City Mall", Name: "Priya Sharma", City: "Bengaluru", PinCode: "560001"},
		{Index: 1, Text: "99 Random Street", Name: "Someone Else", City: "Mumbai", PinCode: "400001"},
	}
	best := BestMatch(saved, sampleTarget())
	require.NotNil(t, best)
	assert.Equal(t, 0, best.Saved.Index)
	assert.GreaterOrEqual(t, best.Score, MatchThreshold)
}

func TestBestMatchBelowThresholdWhenNothingMatches(t *testing.T) {
	saved := []Saved{
		{Index: 0, Text: "99 Random Street", Name: "Someone Else", City: "Mumbai", PinCode: "400001"},
	}
	best := BestMatch(saved, sampleTarget())
	require.NotNil(t, best)
	assert.Less(t, best.Score, MatchThreshold)
}

func TestVerifyAndSelectChoosesExisting(t *testing.T) {
	main := &drivertest.FakeFrame{FrameID: "main"}
	d := &drivertest.FakeDriver{Main: main}
	d.Main.Responses = []drivertest.EvalResponse{
		{Value: []map[string]interface{}{
			{"index": 0, "text": "12 MG Road Near City Mall", "preview": "12 MG Road", "name": "Priya Sharma", "city": "Bengaluru", "pinCode": "560001", "phone": "9876543210", "selected": false},
		}},
		{Value: map[string]interface{}{"success": true, "method": "radio"}},
	}
	v := New(d)
	res, err := v.VerifyAndSelect(sampleTarget())
	require.NoError(t, err)
	assert.Equal(t, ActionSelectedExisting, res.Action)
	assert.GreaterOrEqual(t, res.MatchScore, MatchThreshold)
}

func TestVerifyAndSelectAddsNewWhenNoSavedAddresses(t *testing.T) {
	main := &drivertest.FakeFrame{FrameID: "main"}
	d := &drivertest.FakeDriver{Main: main}
	d.Main.Responses = []drivertest.EvalResponse{
		{Value: []Saved{}},
		{Value: map[string]interface{}{"success": true, "text": "add new address"}},
	}
	v := New(d)
	res, err := v.VerifyAndSelect(sampleTarget())
	require.NoError(t, err)
	assert.Equal(t, ActionAddNewInitiated, res.Action)
}

func TestVerifyAndSelectAddsNewWhenScoreBelowThreshold(t *testing.T) {
	main := &drivertest.FakeFrame{FrameID: "main"}
	d := &drivertest.FakeDriver{Main: main}
	d.Main.Responses = []drivertest.EvalResponse{
		{Value: []map[string]interface{}{
			{"index": 0, "text": "99 Random Street", "preview": "99 Random Street", "name": "Someone Else", "city": "Mumbai", "pinCode": "400001"},
		}},
		{Value: map[string]interface{}{"success": true, "text": "add new address"}},
	}
	v := New(d)
	res, err := v.VerifyAndSelect(sampleTarget())
	require.NoError(t, err)
	assert.Equal(t, ActionAddNewInitiated, res.Action)
}

func TestVerifyAndSelectReportsAddNewFailed(t *testing.T) {
	main := &drivertest.FakeFrame{FrameID: "main"}
	d := &drivertest.FakeDriver{Main: main}
	d.Main.Responses = []drivertest.EvalResponse{
		{Value: []Saved{}},
		{Value: map[string]interface{}{"success": false}},
	}
	v := New(d)
	res, err := v.VerifyAndSelect(sampleTarget())
	require.NoError(t, err)
	assert.Equal(t, ActionAddNewFailed, res.Action)
}

func TestSimilarityExactMatchIsOne(t *testing.T) {
	assert.Equal(t, 1.0, similarity("Bengaluru", "bengaluru "))
}

func TestSimilarityEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, similarity("", "Bengaluru"))
}
