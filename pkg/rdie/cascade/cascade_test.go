package cascade

import (
	"testing"

	"github.com/bravebird/rdie/pkg/rdie"
	"github.com/bravebird/rdie/pkg/rdie/driver"
	"github.com/bravebird/rdie/pkg/rdie/drivertest"
	"github.com/bravebird/rdie/pkg/rdie/keyword"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(kind string) map[string]interface{} {
	return map[string]interface{}{
		"kind": kind,
		"textBag": map[string]interface{}{
			"text": "Add to Cart",
		},
		"geometry": map[string]interface{}{
			"x": 10.0, "y": 20.0, "w": 100.0, "h": 40.0,
			"inViewport": true, "obscuredByPointTest": false,
		},
		"interactive": true,
	}
}

func TestRunOverlayFindsCandidateInMainFrame(t *testing.T) {
	main := &drivertest.FakeFrame{
		FrameID: "main",
		Responses: []drivertest.EvalResponse{
			{Value: map[string]interface{}{
				"found": true, "index": 3, "score": 100.0,
				"markerAttr": "data-element-index-nonce1",
				"candidate":  cand("button"),
			}},
		},
	}
	d := &drivertest.FakeDriver{Main: main}
	reg := keyword.NewRegistry(nil, nil)
	intent := rdie.Intent{Kind: rdie.IntentClickAction, ClickKind: "add_to_cart"}

	res, err := Run(d, intent, reg, "", "nonce1")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, PhaseOverlay, res.Phase)
	assert.Equal(t, "add for ship", res.Target)
	assert.Equal(t, "main", res.Frame.ID())
}

func TestRunTriesSecondKeywordWhenFirstMisses(t *testing.T) {
	main := &drivertest.FakeFrame{
		FrameID: "main",
		Responses: []drivertest.EvalResponse{
			{Value: map[string]interface{}{"found": false}}, // "add for ship"
			{Value: map[string]interface{}{ // "add to cart"
				"found": true, "index": 1, "score": 100.0,
				"markerAttr": "data-element-index-n",
				"candidate":  cand("button"),
			}},
		},
	}
	d := &drivertest.FakeDriver{Main: main}
	reg := keyword.NewRegistry(nil, nil)
	intent := rdie.Intent{Kind: rdie.IntentClickAction, ClickKind: "add_to_cart"}

	res, err := Run(d, intent, reg, "", "n")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "add to cart", res.Target)
}

func TestRunFallsThroughToDOMTreeWhenOverlayMisses(t *testing.T) {
	// 5 overlay misses (one per add_to_cart keyword), then DOM-tree hits on
	// the first keyword.
	responses := []drivertest.EvalResponse{}
	keywords := keyword.NewRegistry(nil, nil).ClickKeywords("add_to_cart")
	for range keywords {
		responses = append(responses, drivertest.EvalResponse{Value: map[string]interface{}{"found": false}})
	}
	responses = append(responses, drivertest.EvalResponse{Value: map[string]interface{}{
		"found":      true,
		"candidate":  cand("button"),
		"markerAttr": "data-rdie-marker-n",
	}})
	main := &drivertest.FakeFrame{FrameID: "main", Responses: responses}
	d := &drivertest.FakeDriver{Main: main}
	reg := keyword.NewRegistry(nil, nil)
	intent := rdie.Intent{Kind: rdie.IntentClickAction, ClickKind: "add_to_cart"}

	res, err := Run(d, intent, reg, "", "n")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, PhaseDOMTree, res.Phase)
}

func TestRunCrossOriginFrameSkippedWithoutError(t *testing.T) {
	main := &drivertest.FakeFrame{
		FrameID: "main",
		Responses: []drivertest.EvalResponse{
			{Err: driver.ErrCrossOrigin},
			{Value: map[string]interface{}{
				"found": true, "index": 0, "score": 100.0,
				"markerAttr": "data-element-index-n",
				"candidate":  cand("button"),
			}},
		},
	}
	d := &drivertest.FakeDriver{Main: main}
	reg := keyword.NewRegistry(nil, nil)
	intent := rdie.Intent{Kind: rdie.IntentSelectVariant, VariantType: "color", VariantValue: "Red"}

	res, err := Run(d, intent, reg, "", "n")
	require.NoError(t, err)
	assert.True(t, res.Found)
}

func TestDetectPaymentIframeFound(t *testing.T) {
	main := &drivertest.FakeFrame{
		FrameID: "main",
		Responses: []drivertest.EvalResponse{
			{Value: map[string]interface{}{"found": true, "src": "https://js.stripe.com/v3/", "title": "Secure card number field", "markerAttr": "data-rdie-marker-n"}},
		},
	}
	res, err := DetectPaymentIframe(main, rdie.FieldCardNumber, "n")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "iframe_type", res.Action)
}

func TestLocateQuantityFindsInput(t *testing.T) {
	el := &drivertest.FakeElement{Visible: true}
	main := &drivertest.FakeFrame{
		FrameID: "main",
		Elements: map[string][]*drivertest.FakeElement{
			`input[name*="quantity"]`: {el},
		},
	}
	d := &drivertest.FakeDriver{Main: main}
	intent := rdie.Intent{Kind: rdie.IntentSetQuantity, Quantity: 2}

	res, err := Run(d, intent, keyword.NewRegistry(nil, nil), "", "n")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "quantity_input", res.Action)
}

func TestRunDiscoveryOnlySupportsVariantAndField(t *testing.T) {
	d := &drivertest.FakeDriver{Main: &drivertest.FakeFrame{FrameID: "main"}}
	reg := keyword.NewRegistry(nil, nil)
	res, err := RunDiscovery(d, rdie.Intent{Kind: rdie.IntentClickAction, ClickKind: "checkout"}, reg, "n")
	require.NoError(t, err)
	assert.False(t, res.Found)
}
