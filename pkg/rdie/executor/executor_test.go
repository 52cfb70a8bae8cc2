package executor

import (
	"errors"
	"testing"
	"time"

	"github.com/bravebird/rdie/pkg/rdie"
	"github.com/bravebird/rdie/pkg/rdie/cascade"
	"github.com/bravebird/rdie/pkg/rdie/drivertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	sleep = func(time.Duration) {}
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

func TestClickMarkedCoordinateClick(t *testing.T) {
	el := &drivertest.FakeElement{Visible: true}
	frame := &drivertest.FakeFrame{
		FrameID: "main",
		Responses: []drivertest.EvalResponse{
			{Value: inspectOK()},
		},
		Elements: map[string][]*drivertest.FakeElement{
			`[data-x="1"]`: {el},
		},
	}
	method, err := clickMarked(frame, "data-x", "1")
	require.NoError(t, err)
	assert.Equal(t, "coordinate-click", method)
}

func TestClickMarkedFallsBackToJS(t *testing.T) {
	el := &drivertest.FakeElement{Visible: true, ClickErr: errors.New("stale element")}
	frame := &drivertest.FakeFrame{
		FrameID: "main",
		Responses: []drivertest.EvalResponse{
			{Value: inspectOK()},
			{Value: map[string]interface{}{"dispatched": true, "strategy": "synthetic-mouse-events"}},
		},
		Elements: map[string][]*drivertest.FakeElement{
			`[data-x="1"]`: {el},
		},
	}
	method, err := clickMarked(frame, "data-x", "1")
	require.NoError(t, err)
	assert.Equal(t, "synthetic-mouse-events", method)
}

func TestClickMarkedNotFound(t *testing.T) {
	frame := &drivertest.FakeFrame{
		FrameID: "main",
		Responses: []drivertest.EvalResponse{
			{Value: map[string]interface{}{"found": false}},
		},
	}
	_, err := clickMarked(frame, "data-x", "1")
	require.Error(t, err)
	oerr, ok := err.(*rdie.OutcomeError)
	require.True(t, ok)
	assert.Equal(t, rdie.ErrNotFound, oerr.Kind)
}

func TestExecuteSelect(t *testing.T) {
	el := &drivertest.FakeElement{Visible: true}
	frame := &drivertest.FakeFrame{
		FrameID:   "main",
		Responses: []drivertest.EvalResponse{{Value: inspectOK()}},
		Elements: map[string][]*drivertest.FakeElement{
			`[data-x="1"]`: {el},
		},
	}
	res := cascade.Result{Action: "select", Frame: frame, MarkerAttr: "data-x", MarkerVal: "1"}
	method, err := executeSelect(res, rdie.Intent{Value: "Large"})
	require.NoError(t, err)
	assert.Equal(t, "native-select", method)
	assert.Equal(t, "Large", el.Value)
}

func TestExecuteFillUsesFillFirst(t *testing.T) {
	el := &drivertest.FakeElement{Visible: true}
	frame := &drivertest.FakeFrame{
		FrameID:   "main",
		Responses: []drivertest.EvalResponse{{Value: inspectOK()}},
		Elements: map[string][]*drivertest.FakeElement{
			`[data-x="1"]`: {el},
		},
	}
	res := cascade.Result{Action: "fill", Frame: frame, MarkerAttr: "data-x", MarkerVal: "1"}
	method, err := executeFill(res, rdie.Intent{Value: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "fill", method)
	assert.Equal(t, "jane@example.com", el.Value)
}

func TestExecuteQuantityInputSetValue(t *testing.T) {
	el := &drivertest.FakeElement{Visible: true}
	res := cascade.Result{Action: "quantity_input", Element: el}
	method, err := executeQuantityInput(res, rdie.Intent{Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "set-value", method)
	assert.Equal(t, "3", el.Value)
}

func TestExecuteQuantityInputCharByCharAccumulatesMultiDigit(t *testing.T) {
	el := &drivertest.FakeElement{Visible: true, ResetFirstFill: true}
	res := cascade.Result{Action: "quantity_input", Element: el}
	method, err := executeQuantityInput(res, rdie.Intent{Quantity: 12})
	require.NoError(t, err)
	assert.Equal(t, "char-by-char", method)
	assert.Equal(t, "12", el.Value)
}

func TestExecuteCheckboxSkipsWhenAlreadyInState(t *testing.T) {
	frame := &drivertest.FakeFrame{
		FrameID:   "main",
		Responses: []drivertest.EvalResponse{{Value: map[string]interface{}{"checked": true}}},
	}
	res := cascade.Result{Frame: frame, MarkerAttr: "data-x", MarkerVal: "1"}
	method, err := executeCheckbox(res, rdie.Intent{State: rdie.CheckboxChecked})
	require.NoError(t, err)
	assert.Equal(t, "already-in-target-state", method)
}

func TestExecuteDispatchesToIframeType(t *testing.T) {
	el := &drivertest.FakeElement{Visible: true}
	frame := &drivertest.FakeFrame{
		FrameID:   "main",
		Responses: []drivertest.EvalResponse{{Value: inspectOK()}},
		Elements: map[string][]*drivertest.FakeElement{
			`[data-x="1"]`: {el},
		},
	}
	d := &drivertest.FakeDriver{Main: frame}
	res := cascade.Result{Action: "iframe_type", Frame: frame, MarkerAttr: "data-x", MarkerVal: "1"}
	method, err := Execute(d, res, rdie.Intent{Kind: rdie.IntentFillField, FieldKind: rdie.FieldCardNumber, Value: "4242424242424242"})
	require.NoError(t, err)
	assert.Equal(t, "iframe-keyboard-type", method)
}
