package controller

import (
	"testing"
	"time"

	"github.com/bravebird/rdie/pkg/rdie"
	"github.com/bravebird/rdie/pkg/rdie/driver"
	"github.com/bravebird/rdie/pkg/rdie/drivertest"
	"github.com/bravebird/rdie/pkg/rdie/keyword"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	sleep = func(time.Duration) {}
}

func cand(kind string) map[string]interface{} {
	return map[string]interface{}{
		"kind":    kind,
		"textBag": map[string]interface{}{"text": "Add to Cart"},
		"geometry": map[string]interface{}{
			"x": 10.0, "y": 20.0, "w": 100.0, "h": 40.0,
			"inViewport": true, "obscuredByPointTest": false,
		},
		"interactive": true,
	}
}

func inspectOK() map[string]interface{} {
	return map[string]interface{}{
		"found": true,
		"kind":  "button",
		"geometry": map[string]interface{}{
			"x": 0.0, "y": 0.0, "w": 50.0, "h": 20.0,
			"inViewport": true, "obscuredByPointTest": false,
		},
		"interactive": true,
	}
}

func newCtx(main *drivertest.FakeFrame) rdie.Context {
	return rdie.Context{
		Driver:   &drivertest.FakeDriver{Main: main},
		Keywords: keyword.NewRegistry(nil, nil),
	}
}

func TestRunSucceedsOnFirstAttemptClick(t *testing.T) {
	el := &drivertest.FakeElement{Visible: true}
	main := &drivertest.FakeFrame{
		FrameID: "main",
		Responses: []drivertest.EvalResponse{
			{Value: map[string]interface{}{
				"found": true, "index": 1, "score": 100.0,
				"markerAttr": "data-element-index-n",
				"candidate":  cand("button"),
			}},
			{Value: inspectOK()},
		},
		Elements: map[string][]*drivertest.FakeElement{
			`[data-element-index-n="1"]`: {el},
		},
	}
	ctl := New(newCtx(main))
	outcome, err := ctl.Run(rdie.Intent{Kind: rdie.IntentClickAction, ClickKind: "add_to_cart", ID: "n"})
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.True(t, outcome.Verified)
}

func TestRunGivesUpAfterThreeAttempts(t *testing.T) {
	keywords := keyword.NewRegistry(nil, nil).ClickKeywords("view_cart")
	// 3 search phases per attempt (overlay, dom-tree, pattern-match), each
	// trying every keyword in order, across 3 attempts.
	main := &drivertest.FakeFrame{
		FrameID:   "main",
		Responses: repeatMiss(3 * 3 * len(keywords)),
	}
	ctl := New(newCtx(main))
	intent := rdie.Intent{Kind: rdie.IntentClickAction, ClickKind: "view_cart", ID: "n"}
	outcome, err := ctl.Run(intent)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, rdie.ErrNotFound, outcome.Error.Kind)
}

func TestRunEscalatesVariantToDiscovery(t *testing.T) {
	// 3 search phases per attempt, 1 target ("Red"), 3 attempts, all miss.
	responses := repeatMiss(3 * 3)
	responses = append(responses, drivertest.EvalResponse{Value: map[string]interface{}{
		"found": true, "score": 50.0, "markerAttr": "data-rdie-marker-n",
		"candidate": cand("swatch"),
	}})
	responses = append(responses, drivertest.EvalResponse{Value: inspectOK()})
	responses = append(responses, drivertest.EvalResponse{Value: map[string]interface{}{"verified": true, "method": "url", "matchedText": "Red"}})

	el := &drivertest.FakeElement{Visible: true}
	main := &drivertest.FakeFrame{
		FrameID:   "main",
		Responses: responses,
		Elements: map[string][]*drivertest.FakeElement{
			`[data-rdie-marker-n="1"]`: {el},
		},
	}
	ctl := New(newCtx(main))
	intent := rdie.Intent{Kind: rdie.IntentSelectVariant, VariantType: "color", VariantValue: "Red", ID: "n"}
	outcome, err := ctl.Run(intent)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
}

func TestRunNavigationDuringActIsSuccess(t *testing.T) {
	main := &drivertest.FakeFrame{
		FrameID: "main",
		Responses: []drivertest.EvalResponse{
			{Value: map[string]interface{}{
				"found": true, "index": 1, "score": 100.0,
				"markerAttr": "data-element-index-n",
				"candidate":  cand("button"),
			}},
			{Err: driver.ErrNavigated},
		},
		Elements: map[string][]*drivertest.FakeElement{
			`[data-element-index-n="1"]`: {&drivertest.FakeElement{Visible: true}},
		},
	}
	ctl := New(newCtx(main))
	outcome, err := ctl.Run(rdie.Intent{Kind: rdie.IntentClickAction, ClickKind: "add_to_cart", ID: "n"})
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.True(t, outcome.Navigated)
}

func TestRunRecoversAddToCartOnSecondKeyword(t *testing.T) {
	keywords := keyword.NewRegistry(nil, nil).ClickKeywords("add_to_cart")
	responses := repeatMiss(3 * 3 * len(keywords)) // normal attempts exhaust, all miss

	el := &drivertest.FakeElement{Visible: true}
	// recovery cycles keywords one at a time: first keyword's solo attempt
	// misses across all 3 phases, second keyword's hits on overlay.
	responses = append(responses, repeatMiss(3)...)
	responses = append(responses, drivertest.EvalResponse{Value: map[string]interface{}{
		"found": true, "index": 2, "score": 100.0,
		"markerAttr": "data-element-index-n2",
		"candidate":  cand("button"),
	}})
	responses = append(responses, drivertest.EvalResponse{Value: inspectOK()})

	main := &drivertest.FakeFrame{
		FrameID:   "main",
		Responses: responses,
		Elements: map[string][]*drivertest.FakeElement{
			`[data-element-index-n2="2"]`: {el},
		},
	}
	ctl := New(newCtx(main))
	outcome, err := ctl.Run(rdie.Intent{Kind: rdie.IntentClickAction, ClickKind: "add_to_cart"})
	require.NoError(t, err)
	assert.True(t, outcome.Success)
}

func repeatMiss(n int) []drivertest.EvalResponse {
	out := make([]drivertest.EvalResponse, n)
	for i := range out {
		out[i] = drivertest.EvalResponse{Value: map[string]interface{}{"found": false}}
	}
	return out
}
